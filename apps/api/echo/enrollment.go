package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core/enrollment"
)

type enrollmentApi struct {
	svc      *enrollment.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollmentApi{
		svc:      deps.EnrollmentSvc,
		validate: deps.Validate,
	}

	g.POST("/courses/:id/enroll", api.enroll, auth, studentOnly)
	g.POST("/lessons/:id/complete", api.complete, auth, studentOnly)

	mg := g.Group("/my/enrollments", auth, studentOnly)
	mg.GET("", api.queryMine)
	mg.GET("/:id", api.retrieveMine)

	g.GET("/teacher/enrollments", api.teacherEnrollments, auth, teacherOrAdmin)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Enroll(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *enrollmentApi) complete(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data enrollment.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.SubmitHomework(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting homework")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *enrollmentApi) queryMine(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	summaries, err := api.svc.ListMine(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if summaries == nil {
		summaries = []enrollment.Summary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *enrollmentApi) retrieveMine(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	detail, err := api.svc.GetMine(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting enrollment")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *enrollmentApi) teacherEnrollments(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.ListForTeacher(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing teacher enrollments")
	}
	if rows == nil {
		rows = []enrollment.TeacherRow{}
	}
	return ctx.JSON(http.StatusOK, rows)
}
