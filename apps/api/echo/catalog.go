package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/enrollment"
)

type (
	catalogApi struct {
		svc       *catalog.Service
		enrollSvc *enrollment.Service
		validate  *validator.Validate
	}

	// CourseDetail is a course as shown on its page; lessons carry the student's completion.
	CourseDetail struct {
		catalog.Course
		Lessons []LessonDetail `json:"lessons"`
	}

	LessonDetail struct {
		catalog.Lesson
		IsCompleted bool `json:"isCompleted"`
	}
)

func registerCatalogAPI(g *echo.Group, auth, optionalAuth echo.MiddlewareFunc, deps ServerDeps) {
	api := catalogApi{
		svc:       deps.CatalogSvc,
		enrollSvc: deps.EnrollmentSvc,
		validate:  deps.Validate,
	}

	cg := g.Group("/courses")
	cg.GET("", api.queryCourses)
	cg.GET("/:id", api.retrieveCourse, optionalAuth)
	cg.POST("", api.createCourse, auth, teacherOrAdmin)
	cg.PATCH("/:id", api.updateCourse, auth, teacherOrAdmin)
	cg.DELETE("/:id", api.destroyCourse, auth, teacherOrAdmin)
	cg.POST("/:id/lessons", api.createLesson, auth, teacherOrAdmin)

	lg := g.Group("/lessons", auth, teacherOrAdmin)
	lg.PATCH("/:id", api.updateLesson)
	lg.DELETE("/:id", api.destroyLesson)

	gg := g.Group("/course-groups")
	gg.GET("", api.queryGroups)
	gg.POST("", api.createGroup, auth, adminOnly)
	gg.DELETE("/:id", api.destroyGroup, auth, adminOnly)

	g.GET("/teacher/courses", api.teacherCourses, auth, teacherOrAdmin)
}

// Courses

func (api *catalogApi) queryCourses(ctx echo.Context) error {
	filter, err := bindCourseFilter(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.ListPublished(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *catalogApi) retrieveCourse(ctx echo.Context) error {
	actor := getOptionalActor(ctx)
	course, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	completed, err := api.enrollSvc.CompletedLessons(ctx.Request().Context(), actor, course.ID)
	if err != nil {
		return errors.Wrap(err, "getting completed lessons")
	}

	detail := CourseDetail{Course: course, Lessons: make([]LessonDetail, 0, len(course.Lessons))}
	for _, l := range course.Lessons {
		detail.Lessons = append(detail.Lessons, LessonDetail{Lesson: l, IsCompleted: completed[l.ID]})
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *catalogApi) createCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *catalogApi) updateCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *catalogApi) destroyCourse(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, success)
}

func (api *catalogApi) teacherCourses(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.ListForTeacher(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing teacher courses")
	}
	if courses == nil {
		courses = []catalog.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// Lessons

func (api *catalogApi) createLesson(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lesson, err := api.svc.CreateLesson(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

func (api *catalogApi) updateLesson(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lesson, err := api.svc.UpdateLesson(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *catalogApi) destroyLesson(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteLesson(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.JSON(http.StatusOK, success)
}

// Groups

func (api *catalogApi) queryGroups(ctx echo.Context) error {
	groups, err := api.svc.ListGroups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing course groups")
	}
	if groups == nil {
		groups = []catalog.CourseGroup{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *catalogApi) createGroup(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data catalog.NewGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	group, err := api.svc.CreateGroup(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating course group")
	}
	return ctx.JSON(http.StatusCreated, group)
}

func (api *catalogApi) destroyGroup(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteGroup(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course group")
	}
	return ctx.JSON(http.StatusOK, success)
}
