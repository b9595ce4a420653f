package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/user"
)

const orderingParam = "ordering"

// bindOrdering reads `?ordering=-createdAt,name`: a leading "-" sorts descending.
// Repeated fields keep their first occurrence.
func bindOrdering(ctx echo.Context) []core.DBOrdering {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return nil
	}

	var (
		orderings []core.DBOrdering
		seen      = make(map[string]bool)
	)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: name, Error: name + " must be a boolean"})
	}
	return &b, nil
}

// bindUserFilter reads `?search=&role=TEACHER&role=ADMIN&isActive=true&ordering=`.
func bindUserFilter(ctx echo.Context) (user.QueryFilter, []core.DBOrdering, error) {
	filter := user.QueryFilter{Search: ctx.QueryParam("search")}
	for _, r := range ctx.QueryParams()["role"] {
		role := user.Role(strings.ToUpper(strings.TrimSpace(r)))
		if !role.Valid() {
			return filter, nil, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "role is not valid"})
		}
		filter.Roles = append(filter.Roles, role)
	}

	isActive, err := queryBool(ctx, "isActive")
	if err != nil {
		return filter, nil, err
	}
	filter.IsActive = isActive
	return filter, bindOrdering(ctx), nil
}

// bindCourseFilter reads `?subject=&level=&groupId=&search=`; unknown enum values are rejected.
func bindCourseFilter(ctx echo.Context) (catalog.CourseFilter, error) {
	filter := catalog.CourseFilter{
		Subject: core.Subject(strings.ToUpper(strings.TrimSpace(ctx.QueryParam("subject")))),
		Level:   core.Level(strings.ToUpper(strings.TrimSpace(ctx.QueryParam("level")))),
		GroupID: ctx.QueryParam("groupId"),
		Search:  ctx.QueryParam("search"),
	}

	var fields []core.FieldError
	if filter.Subject != "" && !filter.Subject.Valid() {
		fields = append(fields, core.FieldError{Field: "subject", Error: "subject is not valid"})
	}
	if filter.Level != "" && !filter.Level.Valid() {
		fields = append(fields, core.FieldError{Field: "level", Error: "level is not valid"})
	}
	if len(fields) > 0 {
		return filter, core.NewValidationError(nil, fields...)
	}
	return filter, nil
}
