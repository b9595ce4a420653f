package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core/schedule"
)

type scheduleApi struct {
	svc      *schedule.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := scheduleApi{
		svc:      deps.ScheduleSvc,
		validate: deps.Validate,
	}

	g.GET("/my/schedule", api.upcoming, auth, studentOnly)

	tg := g.Group("/teacher/schedule", auth, teacherOrAdmin)
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.PATCH("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
}

func (api *scheduleApi) upcoming(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	slots, err := api.svc.Upcoming(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing upcoming slots")
	}
	if slots == nil {
		slots = []schedule.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	slots, err := api.svc.List(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing slots")
	}
	if slots == nil {
		slots = []schedule.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data schedule.NewSlot
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSlot")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	slot, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating slot")
	}
	return ctx.JSON(http.StatusCreated, slot)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data schedule.UpdateSlot
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSlot")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	slot, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating slot")
	}
	return ctx.JSON(http.StatusOK, slot)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting slot")
	}
	return ctx.JSON(http.StatusOK, success)
}
