package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/enrollment"
)

type enrollmentRepository struct {
	exec core.DBExecutor
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) enrollment.Repository {
	return &enrollmentRepository{exec: exec}
}

func (repo *enrollmentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func isUniqueViolation(err error) bool {
	// 23505 = unique_violation
	return err != nil && strings.Contains(err.Error(), "23505")
}

type enrollmentRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	query := `
		INSERT INTO enrollment (user_id, course_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &enr.ID, query, enr.UserID, enr.CourseID, enr.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrExists
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM enrollment WHERE user_id = $1 AND course_id = $2)`
	if err := repo.exec.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment existence")
	}
	return exists, nil
}

func (repo *enrollmentRepository) FilterEnrollments(ctx context.Context, filter enrollment.QueryFilter, orderings ...core.DBOrdering) ([]enrollment.Enrollment, error) {
	var conds []string
	var args []interface{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, "user_id = $1")
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		if len(args) == 1 {
			conds = append(conds, "course_id = $1")
		} else {
			conds = append(conds, "course_id = $2")
		}
	}

	query := `SELECT * FROM enrollment`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(orderings, "created_at ASC")

	var rows []enrollmentRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering enrollments")
	}

	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, enrollment.Enrollment{ID: row.ID, UserID: row.UserID, CourseID: row.CourseID, CreatedAt: row.CreatedAt})
	}
	return enrs, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM enrollment WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if cnt == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}
