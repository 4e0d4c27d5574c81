package invite

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Link is a shareable token granting conditional access to exactly one course.
// A nil ExpiresAt never expires; a nil MaxUsages is unlimited.
type Link struct {
	ID         string     `json:"id"`
	Token      string     `json:"token"`
	CourseID   string     `json:"course_id"`
	CreatedBy  string     `json:"created_by"`
	ExpiresAt  *time.Time `json:"expires_at"` // UTC
	MaxUsages  *int       `json:"max_usages"`
	UsageCount int        `json:"usage_count"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
}

// Expired reports whether the link's expiry has passed.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// Exhausted reports whether the link's usage limit has been reached.
// The boundary is exclusive: a link with UsageCount == MaxUsages no longer
// grants access.
func (l *Link) Exhausted() bool {
	return l.MaxUsages != nil && l.UsageCount >= *l.MaxUsages
}

// GrantsAccess reports whether the link currently grants access to courseID.
func (l *Link) GrantsAccess(courseID string, now time.Time) bool {
	return l.CourseID == courseID && !l.Expired(now) && !l.Exhausted()
}

// NewLink contains information needed to create a new Link.
type NewLink struct {
	ExpiresAt *time.Time `json:"expires_at"`
	MaxUsages *int       `json:"max_usages" validate:"omitempty,min=1"`
}

func (nl *NewLink) Validate(validate *validator.Validate) error {
	return validate.Struct(nl)
}

type QueryFilter struct {
	CourseID  string `query:"course"`
	CreatedBy string `query:"created_by"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.CreatedBy == ""
}
