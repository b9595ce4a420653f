package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core/commerce"
)

type commerceApi struct {
	svc      *commerce.Service
	validate *validator.Validate
}

func registerCommerceAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := commerceApi{
		svc:      deps.CommerceSvc,
		validate: deps.Validate,
	}

	bg := g.Group("/books")
	bg.GET("", api.queryBooks)
	bg.GET("/:id", api.retrieveBook)
	bg.POST("", api.createBook, auth, adminOnly)
	bg.PATCH("/:id", api.updateBook, auth, adminOnly)
	bg.DELETE("/:id", api.destroyBook, auth, adminOnly)

	g.POST("/orders", api.placeOrder, auth, anyAuthenticated)
	og := g.Group("/my/orders", auth, anyAuthenticated)
	og.GET("", api.queryMine)
	og.GET("/:id", api.retrieveMine)
}

// Books

func (api *commerceApi) queryBooks(ctx echo.Context) error {
	books, err := api.svc.ListBooks(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing books")
	}
	if books == nil {
		books = []commerce.Book{}
	}
	return ctx.JSON(http.StatusOK, books)
}

func (api *commerceApi) retrieveBook(ctx echo.Context) error {
	book, err := api.svc.GetBook(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (api *commerceApi) createBook(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data commerce.NewBook
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	book, err := api.svc.CreateBook(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating book")
	}
	return ctx.JSON(http.StatusCreated, book)
}

func (api *commerceApi) updateBook(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data commerce.UpdateBook
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBook")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	book, err := api.svc.UpdateBook(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (api *commerceApi) destroyBook(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteBook(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting book")
	}
	return ctx.JSON(http.StatusOK, success)
}

// Orders

func (api *commerceApi) placeOrder(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data commerce.NewOrder
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrder")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	order, err := api.svc.PlaceOrder(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "placing order")
	}
	return ctx.JSON(http.StatusCreated, order)
}

func (api *commerceApi) queryMine(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	orders, err := api.svc.ListMine(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing orders")
	}
	if orders == nil {
		orders = []commerce.Order{}
	}
	return ctx.JSON(http.StatusOK, orders)
}

func (api *commerceApi) retrieveMine(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	order, err := api.svc.GetMine(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting order")
	}
	return ctx.JSON(http.StatusOK, order)
}
