package dummydb

import (
	"context"
	"sort"

	"github.com/ozgesheedu/ozgeshe/core/commerce"
)

type commerceRepository struct {
	db *DB
}

var _ commerce.Repository = (*commerceRepository)(nil) // interface compliance check

func NewCommerceRepository(db *DB) commerce.Repository {
	return &commerceRepository{db: db}
}

func copyOrder(o commerce.Order) commerce.Order {
	o.Items = append([]commerce.OrderItem{}, o.Items...)
	return o
}

func (repo *commerceRepository) CreateBook(_ context.Context, book commerce.Book) (commerce.Book, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.books[book.ID] = book
	return book, nil
}

func (repo *commerceRepository) GetBook(_ context.Context, id string) (commerce.Book, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.books[id]; ok {
		return b, nil
	}
	return commerce.Book{}, commerce.ErrBookNotFound
}

func (repo *commerceRepository) ListBooks(_ context.Context) ([]commerce.Book, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	books := make([]commerce.Book, 0, len(repo.db.books))
	for _, b := range repo.db.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].CreatedAt.After(books[j].CreatedAt) })
	return books, nil
}

func (repo *commerceRepository) GetBooks(_ context.Context, ids ...string) ([]commerce.Book, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	books := make([]commerce.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := repo.db.books[id]; ok {
			books = append(books, b)
		}
	}
	return books, nil
}

func (repo *commerceRepository) UpdateBook(_ context.Context, book commerce.Book) (commerce.Book, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.books[book.ID]; !ok {
		return commerce.Book{}, commerce.ErrBookNotFound
	}
	repo.db.books[book.ID] = book
	return book, nil
}

// DeleteBook removes the book; order items keep their snapshot but lose the reference.
func (repo *commerceRepository) DeleteBook(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.books[id]; !ok {
		return commerce.ErrBookNotFound
	}
	delete(repo.db.books, id)
	for oid, o := range repo.db.orders {
		o = copyOrder(o)
		for i, it := range o.Items {
			if it.BookID.Valid && it.BookID.String == id {
				o.Items[i].BookID.Valid = false
				o.Items[i].BookID.String = ""
			}
		}
		repo.db.orders[oid] = o
	}
	return nil
}

func (repo *commerceRepository) CreateOrder(_ context.Context, order commerce.Order) (commerce.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.orders[order.ID] = copyOrder(order)
	return copyOrder(order), nil
}

func (repo *commerceRepository) ListUserOrders(_ context.Context, userID string) ([]commerce.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orders := make([]commerce.Order, 0)
	for _, o := range repo.db.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (repo *commerceRepository) GetUserOrder(_ context.Context, userID, id string) (commerce.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	o, ok := repo.db.orders[id]
	if !ok || o.UserID != userID {
		return commerce.Order{}, commerce.ErrOrderNotFound
	}
	return copyOrder(o), nil
}
