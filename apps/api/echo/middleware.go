package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/access"
)

var inviteTokenParam = "invite"

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func teacherOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher || claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// courseAccessMiddleware guards course detail routes. It resolves the viewer's
// claims (if any) and an optional invite token from the query string, then
// asks the decision engine for a verdict on the ":id" course.
//
// Denied requests are redirected to the configured denial route instead of
// erroring out. An unknown course passes through so the handler can 404.
// Infrastructure failures defer to the FailClosed setting.
func courseAccessMiddleware(engine *access.Engine, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var claims *access.Claims
			if clms, err := getContextClaims(ctx); err == nil {
				claims = clms.AccessClaims()
			}

			courseID := ctx.Param("id")
			inviteToken := ctx.QueryParam(inviteTokenParam)

			verdict, err := engine.Decide(ctx.Request().Context(), courseID, claims, inviteToken)
			if err != nil {
				logger.Error(fmt.Sprintf("deciding course access: %v", err), err)
				if core.Conf.Access.FailClosed {
					return ctx.Redirect(http.StatusFound, core.Conf.Access.DeniedRedirectPath)
				}
				return next(ctx)
			}

			switch verdict {
			case access.VerdictAllow, access.VerdictIndeterminate:
				return next(ctx)
			default:
				return ctx.Redirect(http.StatusFound, core.Conf.Access.DeniedRedirectPath)
			}
		}
	}
}
