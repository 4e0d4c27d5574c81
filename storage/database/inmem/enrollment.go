package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/enrollment"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range repo.db.table {
		if e.UserID == enr.UserID && e.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrExists
		}
	}

	enr.ID = uuid.NewString()
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) EnrollmentExists(_ context.Context, userID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.table {
		if enr.UserID == userID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *enrollmentRepository) FilterEnrollments(_ context.Context, filter enrollment.QueryFilter, _ ...core.DBOrdering) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.table {
		if filter.UserID != "" && enr.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		enrollments = append(enrollments, *enr)
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, userID, courseID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, enr := range repo.db.table {
		if enr.UserID == userID && enr.CourseID == courseID {
			delete(repo.db.table, id)
			return nil
		}
	}
	return enrollment.ErrNotFound
}
