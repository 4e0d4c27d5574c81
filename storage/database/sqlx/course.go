package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/course"
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) course.Repository {
	return &courseRepository{exec: exec}
}

func (repo *courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

type courseRow struct {
	ID          string      `db:"id"`
	Title       null.String `db:"title"`
	Description null.String `db:"description"`
	Visibility  null.String `db:"visibility"`
	CreatorID   null.String `db:"creator_id"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (repo *courseRepository) unrow(row courseRow) course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title.String,
		Description: row.Description.String,
		Visibility:  row.Visibility.String,
		CreatorID:   row.CreatorID.String,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	query := `
		INSERT INTO course (title, description, visibility, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.getExec(exec).GetContext(
		ctx, &crs.ID, query,
		crs.Title, crs.Description, crs.Visibility, crs.CreatorID, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	err := repo.exec.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return repo.unrow(row), nil
}

func (repo *courseRepository) GetCourseVisibility(ctx context.Context, id string) (course.VisibilityInfo, error) {
	var row struct {
		Visibility string `db:"visibility"`
		CreatorID  string `db:"creator_id"`
	}
	err := repo.exec.GetContext(ctx, &row, `SELECT visibility, creator_id FROM course WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.VisibilityInfo{}, course.ErrNotFound
		}
		return course.VisibilityInfo{}, errors.Wrap(err, "getting course visibility")
	}
	return course.VisibilityInfo{Visibility: row.Visibility, CreatorID: row.CreatorID}, nil
}

func (repo *courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, orderings ...core.DBOrdering) ([]course.Course, error) {
	var conds []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if filter.Visibility != "" {
		conds = append(conds, "visibility = "+arg(filter.Visibility))
	}
	if filter.CreatorID != "" {
		conds = append(conds, "creator_id = "+arg(filter.CreatorID))
	}

	query := `SELECT * FROM course`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(orderings, "created_at ASC")

	var rows []courseRow
	if err := repo.exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.unrow(row))
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	query := `
		UPDATE course
		SET title       = COALESCE($2, title),
		    description = COALESCE($3, description),
		    visibility  = COALESCE($4, visibility),
		    updated_at  = COALESCE($5, updated_at)
		WHERE id = $1
		RETURNING *`
	var updated courseRow
	err := repo.getExec(exec).GetContext(
		ctx, &updated, query,
		crs.ID,
		null.NewString(crs.Title, crs.Title != ""),
		null.NewString(crs.Description, crs.Description != ""),
		null.NewString(crs.Visibility, crs.Visibility != ""),
		null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return repo.unrow(updated), nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM course WHERE id = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	return int(cnt), nil
}
