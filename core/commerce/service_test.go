package commerce_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/commerce"
	"github.com/ozgesheedu/ozgeshe/core/user"
	"github.com/ozgesheedu/ozgeshe/services/email"
	"github.com/ozgesheedu/ozgeshe/services/logger"
	"github.com/ozgesheedu/ozgeshe/storage/database/dummy"
	"github.com/ozgesheedu/ozgeshe/testutil"
)

type fixture struct {
	repo    commerce.Repository
	svc     *commerce.Service
	admin   user.User
	student user.User
}

func setup(t *testing.T) *fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	f := &fixture{repo: dummydb.NewCommerceRepository(db)}
	f.svc = commerce.NewService(f.repo, emailsvc.NewConsoleServiceMock(core.NewTestConfig(), logsvc.NewNopLogger()))
	f.admin = testutil.CreateUser(t, usrRepo, "Admin", "admin@ozgeshe.kz", "", user.RoleAdmin, true)
	f.student = testutil.CreateUser(t, usrRepo, "Dana", "dana@ozgeshe.kz", "", user.RoleStudent, true)
	emailsvc.ResetSentMessages()
	return f
}

func TestService_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	grammar := testutil.CreateBook(t, f.repo, "Grammar in Use", core.MoneyFromFloat(20))
	vocab := testutil.CreateBook(t, f.repo, "Vocabulary", core.MoneyFromFloat(12.5))

	order, err := f.svc.PlaceOrder(ctx, f.student.Actor(), commerce.NewOrder{Items: []commerce.NewOrderItem{
		{BookID: grammar.ID, Quantity: 2},
		{BookID: vocab.ID, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, core.MoneyFromFloat(52.5), order.TotalPrice)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Grammar in Use", order.Items[0].Title)
	assert.Equal(t, grammar.ID, order.Items[0].BookID.String)
	assert.Equal(t, "Vocabulary", order.Items[1].Title)

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "order_receipt", sent[0].TemplateName)
	assert.True(t, strings.Contains(sent[0].TextContent, "Total: 52.50"), sent[0].TextContent)
}

func TestService_PlaceOrder_RepeatedBook(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	grammar := testutil.CreateBook(t, f.repo, "Grammar in Use", core.MoneyFromFloat(20))

	_, err := f.svc.PlaceOrder(ctx, f.student.Actor(), commerce.NewOrder{Items: []commerce.NewOrderItem{
		{BookID: grammar.ID, Quantity: 2},
		{BookID: grammar.ID, Quantity: 1},
	}})
	assert.Equal(t, commerce.ErrBooksUnavailable, err)

	orders, err := f.svc.ListMine(ctx, f.student.Actor())
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, emailsvc.SentMessages())
}

func TestService_PlaceOrder_UnknownBook(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	book := testutil.CreateBook(t, f.repo, "Grammar in Use", core.MoneyFromFloat(20))

	_, err := f.svc.PlaceOrder(ctx, f.student.Actor(), commerce.NewOrder{Items: []commerce.NewOrderItem{
		{BookID: book.ID, Quantity: 1},
		{BookID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Quantity: 1},
	}})
	assert.Equal(t, commerce.ErrBooksUnavailable, err)

	orders, err := f.svc.ListMine(ctx, f.student.Actor())
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, emailsvc.SentMessages())
}

func TestService_PriceSnapshot(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	book := testutil.CreateBook(t, f.repo, "Grammar in Use", core.MoneyFromFloat(20))

	order, err := f.svc.PlaceOrder(ctx, f.student.Actor(), commerce.NewOrder{Items: []commerce.NewOrderItem{{BookID: book.ID, Quantity: 1}}})
	require.NoError(t, err)

	price := core.MoneyFromFloat(30)
	_, err = f.svc.UpdateBook(ctx, f.admin.Actor(), book.ID, commerce.UpdateBook{Price: &price})
	require.NoError(t, err)

	got, err := f.svc.GetMine(ctx, f.student.Actor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.MoneyFromFloat(20), got.TotalPrice)
	assert.Equal(t, core.MoneyFromFloat(20), got.Items[0].PriceAtPurchase)

	// deleting the book keeps the snapshot
	require.NoError(t, f.svc.DeleteBook(ctx, f.admin.Actor(), book.ID))
	got, err = f.svc.GetMine(ctx, f.student.Actor(), order.ID)
	require.NoError(t, err)
	assert.False(t, got.Items[0].BookID.Valid)
	assert.Equal(t, "Grammar in Use", got.Items[0].Title)
}

func TestService_GetMine(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	book := testutil.CreateBook(t, f.repo, "Grammar in Use", core.MoneyFromFloat(20))
	order, err := f.svc.PlaceOrder(ctx, f.student.Actor(), commerce.NewOrder{Items: []commerce.NewOrderItem{{BookID: book.ID, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.svc.GetMine(ctx, f.admin.Actor(), order.ID)
	assert.Equal(t, commerce.ErrOrderNotFound, err)
}

func TestService_Books(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	nb := commerce.NewBook{
		Title:         "Grammar in Use",
		Author:        "R. Murphy",
		Description:   "The classic grammar reference.",
		Price:         core.MoneyFromFloat(20),
		CoverImageURL: "https://covers.example.com/grammar.png",
	}

	_, err := f.svc.CreateBook(ctx, f.student.Actor(), nb)
	assert.Equal(t, core.ErrForbidden, err)

	book, err := f.svc.CreateBook(ctx, f.admin.Actor(), nb)
	require.NoError(t, err)

	title := "English Grammar in Use"
	updated, err := f.svc.UpdateBook(ctx, f.admin.Actor(), book.ID, commerce.UpdateBook{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "R. Murphy", updated.Author)

	books, err := f.svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)

	assert.Equal(t, core.ErrForbidden, f.svc.DeleteBook(ctx, f.student.Actor(), book.ID))
	require.NoError(t, f.svc.DeleteBook(ctx, f.admin.Actor(), book.ID))
	assert.Equal(t, commerce.ErrBookNotFound, f.svc.DeleteBook(ctx, f.admin.Actor(), book.ID))
}
