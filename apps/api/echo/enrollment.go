package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/enrollment"
	"github.com/jmwangaza/elimisha/core/user"
)

type enrollmentApi struct {
	deps ServerDeps
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollmentApi{deps: deps}

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.query)
	eg.POST("", api.grant, teacherOrAdminMiddleware())
	eg.DELETE("", api.revoke, teacherOrAdminMiddleware())
}

type (
	GrantEnrollmentRequest struct {
		UserID   string `json:"user_id" validate:"required"`
		CourseID string `json:"course_id" validate:"required"`
	}

	RevokeEnrollmentRequest struct {
		UserID   string `query:"user" validate:"required"`
		CourseID string `query:"course" validate:"required"`
	}
)

func (api *enrollmentApi) query(ctx echo.Context) error {
	filter := new(enrollment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	// students can only see their own enrollments
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsTeacher || claims.IsAdmin) {
		filter.UserID = claims.Subject
	}

	enrs, err := api.deps.EnrollSvc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) grant(ctx echo.Context) error {
	var data GrantEnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GrantEnrollmentRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), data.UserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	enr, err := api.deps.EnrollSvc.Grant(ctx.Request().Context(), usr, data.CourseID)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errHttpNotFound
		case enrollment.ErrExists:
			return echo.NewHTTPError(http.StatusConflict, "user is already enrolled in this course")
		}
		return errors.Wrap(err, "granting enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) revoke(ctx echo.Context) error {
	var query RevokeEnrollmentRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to RevokeEnrollmentRequest")
	}
	if err := api.deps.Validate.Struct(&query); err != nil {
		return err
	}

	if err := api.deps.EnrollSvc.Revoke(ctx.Request().Context(), query.UserID, query.CourseID); err != nil {
		if errors.Cause(err) == enrollment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "revoking enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
