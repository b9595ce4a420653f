package commerce

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

var (
	// errors
	ErrBookNotFound     = core.NewNotFound("BOOK_NOT_FOUND", "book not found")
	ErrOrderNotFound    = core.NewNotFound("ORDER_NOT_FOUND", "order not found")
	ErrBooksUnavailable = core.NewBadRequest("BOOKS_UNAVAILABLE", "some books are unavailable")
)

type (
	Repository interface {
		CreateBook(ctx context.Context, book Book) (Book, error)
		GetBook(ctx context.Context, id string) (Book, error)
		// ListBooks returns the books newest first.
		ListBooks(ctx context.Context) ([]Book, error)
		// GetBooks returns the books found among ids, in no particular order.
		GetBooks(ctx context.Context, ids ...string) ([]Book, error)
		UpdateBook(ctx context.Context, book Book) (Book, error)
		DeleteBook(ctx context.Context, id string) error

		// CreateOrder writes the order and all of its items in a single transaction.
		CreateOrder(ctx context.Context, order Order) (Order, error)
		// ListUserOrders returns the user's orders with their items, newest first.
		ListUserOrders(ctx context.Context, userID string) ([]Order, error)
		// GetUserOrder returns ErrOrderNotFound unless the order belongs to userID.
		GetUserOrder(ctx context.Context, userID, id string) (Order, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

func (svc *Service) ListBooks(ctx context.Context) ([]Book, error) {
	books, err := svc.repo.ListBooks(ctx)
	return books, errors.Wrap(err, "listing books")
}

func (svc *Service) GetBook(ctx context.Context, id string) (Book, error) {
	return svc.repo.GetBook(ctx, id)
}

func (svc *Service) CreateBook(ctx context.Context, actor user.Actor, nb NewBook) (Book, error) {
	if err := user.Authorize(actor, user.RoleAdmin); err != nil {
		return Book{}, err
	}
	now := time.Now().UTC()
	book := Book{
		ID:            uuid.New().String(),
		Title:         nb.Title,
		Author:        nb.Author,
		Description:   nb.Description,
		Price:         nb.Price,
		CoverImageURL: nb.CoverImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	book, err := svc.repo.CreateBook(ctx, book)
	return book, errors.Wrap(err, "creating book")
}

// UpdateBook changes the book's listing. Orders already placed keep their own prices.
func (svc *Service) UpdateBook(ctx context.Context, actor user.Actor, id string, ub UpdateBook) (Book, error) {
	if err := user.Authorize(actor, user.RoleAdmin); err != nil {
		return Book{}, err
	}
	book, err := svc.repo.GetBook(ctx, id)
	if err != nil {
		return Book{}, err
	}

	if ub.Title != nil {
		book.Title = *ub.Title
	}
	if ub.Author != nil {
		book.Author = *ub.Author
	}
	if ub.Description != nil {
		book.Description = *ub.Description
	}
	if ub.Price != nil {
		book.Price = *ub.Price
	}
	if ub.CoverImageURL != nil {
		book.CoverImageURL = *ub.CoverImageURL
	}
	book.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateBook(ctx, book)
}

func (svc *Service) DeleteBook(ctx context.Context, actor user.Actor, id string) error {
	if err := user.Authorize(actor, user.RoleAdmin); err != nil {
		return err
	}
	if _, err := svc.repo.GetBook(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteBook(ctx, id), "deleting book")
}

// PlaceOrder buys the requested books at their current prices.
// The whole order is rejected if any of the books does not exist or is listed twice.
func (svc *Service) PlaceOrder(ctx context.Context, actor user.Actor, no NewOrder) (Order, error) {
	if err := user.Authorize(actor, user.AllRoles...); err != nil {
		return Order{}, err
	}

	ids := make([]string, 0, len(no.Items))
	seen := make(map[string]bool, len(no.Items))
	for _, it := range no.Items {
		if seen[it.BookID] {
			return Order{}, ErrBooksUnavailable
		}
		seen[it.BookID] = true
		ids = append(ids, it.BookID)
	}
	books, err := svc.repo.GetBooks(ctx, ids...)
	if err != nil {
		return Order{}, errors.Wrap(err, "getting books")
	}
	byID := make(map[string]Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	if len(byID) != len(ids) {
		return Order{}, ErrBooksUnavailable
	}

	order := Order{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		CreatedAt: time.Now().UTC(),
		Items:     make([]OrderItem, 0, len(no.Items)),
	}
	for _, it := range no.Items {
		book := byID[it.BookID]
		item := OrderItem{
			ID:              uuid.New().String(),
			OrderID:         order.ID,
			BookID:          null.StringFrom(book.ID),
			Title:           book.Title,
			Quantity:        it.Quantity,
			PriceAtPurchase: book.Price,
		}
		order.TotalPrice += item.Subtotal()
		order.Items = append(order.Items, item)
	}

	order, err = svc.repo.CreateOrder(ctx, order)
	if err != nil {
		return Order{}, errors.Wrap(err, "creating order")
	}
	svc.sendReceipt(actor, order)
	return order, nil
}

func (svc *Service) sendReceipt(actor user.Actor, order Order) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: actor.Name, Address: actor.Email}},
		Subject:      "Your order",
		TemplateName: "order_receipt",
		TemplateData: map[string]interface{}{"Order": order},
	})
}

func (svc *Service) ListMine(ctx context.Context, actor user.Actor) ([]Order, error) {
	orders, err := svc.repo.ListUserOrders(ctx, actor.ID)
	return orders, errors.Wrap(err, "listing orders")
}

func (svc *Service) GetMine(ctx context.Context, actor user.Actor, id string) (Order, error) {
	return svc.repo.GetUserOrder(ctx, actor.ID, id)
}
