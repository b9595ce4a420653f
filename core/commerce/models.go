package commerce

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/ozgesheedu/ozgeshe/core"
)

type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	Description   string     `json:"description"`
	Price         core.Money `json:"price"`
	CoverImageURL string     `json:"coverImageUrl"`
	CreatedAt     time.Time  `json:"createdAt"` // UTC
	UpdatedAt     time.Time  `json:"updatedAt"` // UTC
}

// Order is immutable once placed: its items keep the title and price the books had at that moment.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	TotalPrice core.Money  `json:"totalPrice"`
	CreatedAt  time.Time   `json:"createdAt"` // UTC
	Items      []OrderItem `json:"items"`
}

type OrderItem struct {
	ID              string      `json:"id"`
	OrderID         string      `json:"orderId"`
	BookID          null.String `json:"bookId"` // null once the book is deleted
	Title           string      `json:"title"`
	Quantity        int         `json:"quantity"`
	PriceAtPurchase core.Money  `json:"priceAtPurchase"`
}

// Subtotal is the line total.
func (it OrderItem) Subtotal() core.Money {
	return it.PriceAtPurchase.Mul(it.Quantity)
}

type NewBook struct {
	Title         string     `json:"title" validate:"required,min=2,max=160"`
	Author        string     `json:"author" validate:"required,min=2,max=120"`
	Description   string     `json:"description" validate:"required,min=10,max=2000"`
	Price         core.Money `json:"price" validate:"money"`
	CoverImageURL string     `json:"coverImageUrl" validate:"required,url"`
}

func (nb *NewBook) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.Author = core.CleanString(nb.Author)
	nb.Description = core.CleanString(nb.Description)
	nb.CoverImageURL = core.CleanString(nb.CoverImageURL)
	return validate.Struct(nb)
}

type UpdateBook struct {
	Title         *string     `json:"title" validate:"omitempty,min=2,max=160"`
	Author        *string     `json:"author" validate:"omitempty,min=2,max=120"`
	Description   *string     `json:"description" validate:"omitempty,min=10,max=2000"`
	Price         *core.Money `json:"price" validate:"omitempty,money"`
	CoverImageURL *string     `json:"coverImageUrl" validate:"omitempty,url"`
}

func (ub *UpdateBook) Validate(validate *validator.Validate) error {
	ub.Title = core.CleanStringPtr(ub.Title)
	ub.Author = core.CleanStringPtr(ub.Author)
	ub.Description = core.CleanStringPtr(ub.Description)
	ub.CoverImageURL = core.CleanStringPtr(ub.CoverImageURL)
	return validate.Struct(ub)
}

type NewOrderItem struct {
	BookID   string `json:"bookId" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=10"`
}

type NewOrder struct {
	Items []NewOrderItem `json:"items" validate:"required,min=1,dive"`
}

func (no *NewOrder) Validate(validate *validator.Validate) error {
	for i := range no.Items {
		no.Items[i].BookID = core.CleanString(no.Items[i].BookID)
	}
	return validate.Struct(no)
}
