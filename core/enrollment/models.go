package enrollment

import "time"

// Enrollment grants a user standing access to a course. Unique on
// (UserID, CourseID); deleting the row revokes access.
type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	UserID   string `query:"user"`
	CourseID string `query:"course"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.UserID == "" && qf.CourseID == ""
}
