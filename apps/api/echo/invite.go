package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/invite"
)

type inviteApi struct {
	deps ServerDeps
}

func registerInviteAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := inviteApi{deps: deps}

	ig := g.Group("/invites", jwt)
	ig.GET("", api.query, teacherOrAdminMiddleware())
	ig.POST("", api.create, teacherOrAdminMiddleware())
	ig.DELETE("/:id", api.destroy, teacherOrAdminMiddleware())

	// any authenticated user can redeem an invite token
	ig.POST("/redeem", api.redeem)
}

type (
	CreateInviteRequest struct {
		CourseID string `json:"course_id" validate:"required"`
		invite.NewLink
	}

	RedeemInviteRequest struct {
		Token string `json:"token" validate:"required"`
	}
)

func (api *inviteApi) create(ctx echo.Context) error {
	var data CreateInviteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateInviteRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	link, err := api.deps.InviteSvc.Create(ctx.Request().Context(), claims.Subject, data.CourseID, data.NewLink)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating invite link")
	}
	return ctx.JSON(http.StatusCreated, link)
}

func (api *inviteApi) query(ctx echo.Context) error {
	filter := new(invite.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []invite.Link{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	links, err := api.deps.InviteSvc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying invite links")
	}
	if links == nil {
		links = []invite.Link{}
	}
	return ctx.JSON(http.StatusOK, links)
}

func (api *inviteApi) redeem(ctx echo.Context) error {
	var data RedeemInviteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RedeemInviteRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	link, err := api.deps.InviteSvc.Redeem(ctx.Request().Context(), usr, data.Token)
	if err != nil {
		switch errors.Cause(err) {
		case invite.ErrNotFound:
			return errHttpNotFound
		case invite.ErrExpired:
			return errInviteExpired
		case invite.ErrExhausted:
			return errInviteExhausted
		}
		return errors.Wrap(err, "redeeming invite link")
	}
	return ctx.JSON(http.StatusOK, link)
}

func (api *inviteApi) destroy(ctx echo.Context) error {
	link, err := api.deps.InviteSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invite.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding invite link by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if link.CreatedBy != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	if err := api.deps.InviteSvc.Delete(ctx.Request().Context(), link.ID); err != nil {
		return errors.Wrap(err, "deleting invite link")
	}
	return ctx.NoContent(http.StatusNoContent)
}
