package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/commerce"
)

const (
	bookColumns      = `id, title, author, description, price, cover_image_url, created_at, updated_at`
	orderColumns     = `id, user_id, total_price, created_at`
	orderItemColumns = `id, order_id, book_id, title, quantity, price_at_purchase`
)

type bookRow struct {
	ID            string     `db:"id"`
	Title         string     `db:"title"`
	Author        string     `db:"author"`
	Description   string     `db:"description"`
	Price         core.Money `db:"price"`
	CoverImageURL string     `db:"cover_image_url"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r bookRow) toBook() commerce.Book {
	return commerce.Book{
		ID:            r.ID,
		Title:         r.Title,
		Author:        r.Author,
		Description:   r.Description,
		Price:         r.Price,
		CoverImageURL: r.CoverImageURL,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type orderRow struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	TotalPrice core.Money `db:"total_price"`
	CreatedAt  time.Time  `db:"created_at"`
}

type orderItemRow struct {
	ID              string      `db:"id"`
	OrderID         string      `db:"order_id"`
	BookID          null.String `db:"book_id"`
	Title           string      `db:"title"`
	Quantity        int         `db:"quantity"`
	PriceAtPurchase core.Money  `db:"price_at_purchase"`
}

func (r orderItemRow) toItem() commerce.OrderItem {
	return commerce.OrderItem(r)
}

type commerceRepository struct {
	db core.DB
}

var _ commerce.Repository = (*commerceRepository)(nil) // interface compliance check

func NewCommerceRepository(db core.DB) commerce.Repository {
	return &commerceRepository{db: db}
}

func (repo *commerceRepository) CreateBook(ctx context.Context, book commerce.Book) (commerce.Book, error) {
	var row bookRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO books (id, title, author, description, price, cover_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+bookColumns,
		book.ID, book.Title, book.Author, book.Description, book.Price, book.CoverImageURL, book.CreatedAt.UTC(), book.UpdatedAt.UTC())
	if err != nil {
		return commerce.Book{}, errors.Wrap(err, "inserting book")
	}
	return row.toBook(), nil
}

func (repo *commerceRepository) GetBook(ctx context.Context, id string) (commerce.Book, error) {
	if !validID(id) {
		return commerce.Book{}, commerce.ErrBookNotFound
	}
	var row bookRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id); err != nil {
		return commerce.Book{}, trapNoRowsErr(err, commerce.ErrBookNotFound, "finding book")
	}
	return row.toBook(), nil
}

func (repo *commerceRepository) selectBooks(ctx context.Context, query string, args ...interface{}) ([]commerce.Book, error) {
	var rows []bookRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing books")
	}
	books := make([]commerce.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, r.toBook())
	}
	return books, nil
}

func (repo *commerceRepository) ListBooks(ctx context.Context) ([]commerce.Book, error) {
	return repo.selectBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY created_at DESC`)
}

func (repo *commerceRepository) GetBooks(ctx context.Context, ids ...string) ([]commerce.Book, error) {
	valid := validIDs(ids)
	if len(valid) == 0 {
		return []commerce.Book{}, nil
	}
	return repo.selectBooks(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ANY($1)`, pq.StringArray(valid))
}

func (repo *commerceRepository) UpdateBook(ctx context.Context, book commerce.Book) (commerce.Book, error) {
	var row bookRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE books SET title = $2, author = $3, description = $4, price = $5, cover_image_url = $6, updated_at = $7
		WHERE id = $1
		RETURNING `+bookColumns,
		book.ID, book.Title, book.Author, book.Description, book.Price, book.CoverImageURL, book.UpdatedAt.UTC())
	if err != nil {
		return commerce.Book{}, trapNoRowsErr(err, commerce.ErrBookNotFound, "updating book")
	}
	return row.toBook(), nil
}

func (repo *commerceRepository) DeleteBook(ctx context.Context, id string) error {
	if !validID(id) {
		return commerce.ErrBookNotFound
	}
	// order items keep their snapshot (ON DELETE SET NULL)
	return exec(ctx, repo.db, commerce.ErrBookNotFound, "deleting book", `DELETE FROM books WHERE id = $1`, id)
}

func (repo *commerceRepository) CreateOrder(ctx context.Context, order commerce.Order) (commerce.Order, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, total_price, created_at) VALUES ($1, $2, $3, $4)`,
			order.ID, order.UserID, order.TotalPrice, order.CreatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting order")
		}
		for i, it := range order.Items {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (id, order_id, position, book_id, title, quantity, price_at_purchase) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				it.ID, order.ID, i+1, it.BookID, it.Title, it.Quantity, it.PriceAtPurchase)
			if err != nil {
				return errors.Wrap(err, "inserting order item")
			}
		}
		return nil
	})
	if err != nil {
		return commerce.Order{}, err
	}
	return order, nil
}

// attachItems loads the items of the given orders.
func (repo *commerceRepository) attachItems(ctx context.Context, rows []orderRow) ([]commerce.Order, error) {
	orders := make([]commerce.Order, 0, len(rows))
	if len(rows) == 0 {
		return orders, nil
	}
	ids := make(pq.StringArray, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var items []orderItemRow
	err := repo.db.SelectContext(ctx, &items, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "listing order items")
	}
	byOrder := make(map[string][]commerce.OrderItem, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it.toItem())
	}

	for _, r := range rows {
		o := commerce.Order{ID: r.ID, UserID: r.UserID, TotalPrice: r.TotalPrice, CreatedAt: r.CreatedAt.UTC(), Items: byOrder[r.ID]}
		if o.Items == nil {
			o.Items = []commerce.OrderItem{}
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (repo *commerceRepository) ListUserOrders(ctx context.Context, userID string) ([]commerce.Order, error) {
	var rows []orderRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	return repo.attachItems(ctx, rows)
}

func (repo *commerceRepository) GetUserOrder(ctx context.Context, userID, id string) (commerce.Order, error) {
	if !validID(id) {
		return commerce.Order{}, commerce.ErrOrderNotFound
	}
	var row orderRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return commerce.Order{}, trapNoRowsErr(err, commerce.ErrOrderNotFound, "finding order")
	}
	orders, err := repo.attachItems(ctx, []orderRow{row})
	if err != nil {
		return commerce.Order{}, err
	}
	return orders[0], nil
}
