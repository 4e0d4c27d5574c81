package invite

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/enrollment"
	"github.com/jmwangaza/elimisha/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("invite link not found")
	ErrExpired   = errors.New("invite link has expired")
	ErrExhausted = errors.New("invite link has reached its usage limit")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateLink(ctx context.Context, link Link, exec ...core.DBExecutor) (Link, error)
		GetLinkByID(ctx context.Context, id string) (Link, error)
		// GetLinkByToken returns ErrNotFound for unknown tokens; malformed
		// tokens are simply unknown.
		GetLinkByToken(ctx context.Context, token string) (Link, error)
		FilterLinks(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Link, error)
		// IncrementLinkUsage bumps usage_count by one. It is the only write on
		// the redemption path and must run in the caller's transaction.
		IncrementLinkUsage(ctx context.Context, id string, exec ...core.DBExecutor) error
		DeleteLinksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, createdBy string, courseID string, nl NewLink) (Link, error)
		GetByID(ctx context.Context, id string) (Link, error)
		GetByToken(ctx context.Context, token string) (Link, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Link, error)
		// Redeem enrolls usr into the link's course and consumes one usage.
		Redeem(ctx context.Context, usr user.User, token string) (Link, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		db         core.DB
		repo       Repository
		courseRepo course.Repository
		enrollRepo enrollment.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, courseRepo course.Repository, enrollRepo enrollment.Repository) Service {
	return &service{
		db:         db,
		repo:       repo,
		courseRepo: courseRepo,
		enrollRepo: enrollRepo,
	}
}

// makeToken generates an unguessable URL-safe token.
func makeToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (svc *service) Create(ctx context.Context, createdBy string, courseID string, nl NewLink) (Link, error) {
	if _, err := svc.courseRepo.GetCourseVisibility(ctx, courseID); err != nil {
		return Link{}, err // course.ErrNotFound or an infrastructure error
	}

	token, err := makeToken()
	if err != nil {
		return Link{}, err
	}

	var expiresAt *time.Time
	if nl.ExpiresAt != nil {
		utc := nl.ExpiresAt.UTC()
		expiresAt = &utc
	}
	return svc.repo.CreateLink(ctx, Link{
		Token:     token,
		CourseID:  courseID,
		CreatedBy: createdBy,
		ExpiresAt: expiresAt,
		MaxUsages: nl.MaxUsages,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Link, error) {
	return svc.repo.GetLinkByID(ctx, id)
}

func (svc *service) GetByToken(ctx context.Context, token string) (Link, error) {
	return svc.repo.GetLinkByToken(ctx, token)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Link, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterLinks(ctx, *filter, orderings...)
}

// Redeem checks the link's expiry and usage limit, then enrolls usr and
// increments usage_count in one transaction. The limit is checked before the
// increment: a link with UsageCount == MaxUsages-1 redeems successfully and
// becomes exhausted; one already at the limit is rejected. Redeeming a link
// for a course the user is already enrolled in succeeds without consuming a
// usage.
func (svc *service) Redeem(ctx context.Context, usr user.User, token string) (Link, error) {
	link, err := svc.repo.GetLinkByToken(ctx, token)
	if err != nil {
		return Link{}, err
	}
	if link.Expired(nowFunc()) {
		return Link{}, ErrExpired
	}
	if link.Exhausted() {
		return Link{}, ErrExhausted
	}

	exists, err := svc.enrollRepo.EnrollmentExists(ctx, usr.ID, link.CourseID)
	if err != nil {
		return Link{}, errors.Wrap(err, "checking enrollment")
	}
	if exists {
		return link, nil
	}

	tx, err := svc.db.BeginTx(ctx)
	if err != nil {
		return Link{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := svc.enrollRepo.CreateEnrollment(ctx, enrollment.Enrollment{
		UserID:    usr.ID,
		CourseID:  link.CourseID,
		CreatedAt: time.Now().UTC(),
	}, tx); err != nil {
		return Link{}, errors.Wrap(err, "creating enrollment")
	}
	if err := svc.repo.IncrementLinkUsage(ctx, link.ID, tx); err != nil {
		return Link{}, errors.Wrap(err, "incrementing link usage")
	}
	if err := tx.Commit(); err != nil {
		return Link{}, errors.Wrap(err, "committing transaction")
	}

	link.UsageCount++
	return link, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteLinksByID(ctx, ids)
	return err
}
