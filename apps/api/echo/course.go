package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core/course"
)

type courseApi struct {
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{deps: deps}

	cg := g.Group("/courses")

	// listing is open; anonymous visitors only see public courses
	cg.GET("", api.query, optionalJWT)

	// course detail is guarded by the access decision engine; credentials
	// and invite tokens are both optional here
	cg.GET("/:id", api.retrieve, optionalJWT, courseAccessMiddleware(deps.AccessEngn, deps.Logger))

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create, teacherOrAdminMiddleware())
	ag.PUT("/:id", api.update, teacherOrAdminMiddleware())
	ag.DELETE("/:id", api.destroy, teacherOrAdminMiddleware())
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.deps.CourseSvc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	// anonymous visitors and students only see the public catalog;
	// teachers and admins can browse everything
	claims, err := getContextClaims(ctx)
	if err != nil || !(claims.IsTeacher || claims.IsAdmin) {
		filter.Visibility = course.VisibilityPublic
	}

	courses, err := api.deps.CourseSvc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.getOwnedCourse(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	crs, err = api.deps.CourseSvc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.getOwnedCourse(ctx)
	if err != nil {
		return err
	}

	if err := api.deps.CourseSvc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// getOwnedCourse loads the ":id" course and ensures the caller is its creator
// or an admin.
func (api *courseApi) getOwnedCourse(ctx echo.Context) (course.Course, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting context claims")
	}

	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return course.Course{}, errHttpNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course by ID")
	}
	if crs.CreatorID != claims.Subject && !claims.IsAdmin {
		return course.Course{}, errHttpForbidden
	}
	return crs, nil
}
