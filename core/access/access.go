package access

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/invite"
)

// Verdict is the outcome of a course access check.
type Verdict int

const (
	// VerdictDeny refuses access; the caller should redirect to the denial route.
	VerdictDeny Verdict = iota
	// VerdictAllow grants access.
	VerdictAllow
	// VerdictIndeterminate means the course does not exist; the caller should
	// pass the request through and let downstream rendering return not-found.
	VerdictIndeterminate
)

func (v Verdict) String() string {
	switch v {
	case VerdictDeny:
		return "DENY"
	case VerdictAllow:
		return "ALLOW"
	case VerdictIndeterminate:
		return "INDETERMINATE"
	}
	return "UNKNOWN"
}

// Claims is an immutable, request-scoped view of the authenticated user.
// A nil *Claims means the request carries no (valid) session.
type Claims struct {
	SubjectID string
	Admin     bool
}

type (
	CourseReader interface {
		GetCourseVisibility(ctx context.Context, id string) (course.VisibilityInfo, error)
	}

	EnrollmentReader interface {
		EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error)
	}

	InviteReader interface {
		GetLinkByToken(ctx context.Context, token string) (invite.Link, error)
	}

	// Engine combines course visibility, enrollments and invite links into an
	// allow/deny verdict. It is read-only: invite usage accounting happens in
	// the separate redemption step, never here.
	Engine struct {
		courses     CourseReader
		enrollments EnrollmentReader
		invites     InviteReader
		nowFunc     func() time.Time
	}
)

func NewEngine(courses CourseReader, enrollments EnrollmentReader, invites InviteReader) *Engine {
	return &Engine{
		courses:     courses,
		enrollments: enrollments,
		invites:     invites,
		nowFunc:     time.Now,
	}
}

// Decide evaluates access to courseID for the given claims and optional invite
// token. Rules apply in order, first match wins:
//
//  1. unknown course -> VerdictIndeterminate
//  2. public course -> VerdictAllow
//  3. course creator or admin -> VerdictAllow
//  4. enrolled user -> VerdictAllow
//  5. invite token matching the course, not expired, not at its usage limit -> VerdictAllow
//  6. otherwise -> VerdictDeny
//
// A non-nil error reports a storage failure, never a business outcome; the
// verdict is meaningless when err != nil and the caller decides whether to
// fail open or closed.
func (e *Engine) Decide(ctx context.Context, courseID string, claims *Claims, inviteToken string) (Verdict, error) {
	vis, err := e.courses.GetCourseVisibility(ctx, courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return VerdictIndeterminate, nil
		}
		return VerdictDeny, errors.Wrap(err, "reading course visibility")
	}

	if vis.IsPublic() {
		return VerdictAllow, nil
	}

	if claims != nil {
		if claims.SubjectID == vis.CreatorID || claims.Admin {
			return VerdictAllow, nil
		}

		enrolled, err := e.enrollments.EnrollmentExists(ctx, claims.SubjectID, courseID)
		if err != nil {
			return VerdictDeny, errors.Wrap(err, "checking enrollment")
		}
		if enrolled {
			return VerdictAllow, nil
		}
	}

	if inviteToken != "" {
		link, err := e.invites.GetLinkByToken(ctx, inviteToken)
		if err != nil {
			// a malformed or unknown token is an absent invite, not a failure
			if errors.Cause(err) != invite.ErrNotFound {
				return VerdictDeny, errors.Wrap(err, "reading invite link")
			}
		} else if link.GrantsAccess(courseID, e.nowFunc()) {
			return VerdictAllow, nil
		}
	}

	return VerdictDeny, nil
}
