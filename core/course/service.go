package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core"
)

var ErrNotFound = errors.New("course not found")

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// GetCourseVisibility reads the minimal course state needed for access
		// decisions. Returns ErrNotFound when no such course exists.
		GetCourseVisibility(ctx context.Context, id string) (VisibilityInfo, error)
		FilterCourses(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, creatorID string, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetVisibility(ctx context.Context, id string) (VisibilityInfo, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, creatorID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		Visibility:  nc.Visibility,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if crs.Visibility == "" {
		crs.Visibility = VisibilityHidden
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) GetVisibility(ctx context.Context, id string) (VisibilityInfo, error) {
	return svc.repo.GetCourseVisibility(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterCourses(ctx, *filter, orderings...)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:          id,
		Title:       uc.Title,
		Description: uc.Description,
		Visibility:  uc.Visibility,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids)
	return err
}
