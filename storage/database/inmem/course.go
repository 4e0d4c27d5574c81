package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.NewString()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	crs, ok := repo.db.table[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return *crs, nil
}

func (repo *courseRepository) GetCourseVisibility(_ context.Context, id string) (course.VisibilityInfo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	crs, ok := repo.db.table[id]
	if !ok {
		return course.VisibilityInfo{}, course.ErrNotFound
	}
	return course.VisibilityInfo{Visibility: crs.Visibility, CreatorID: crs.CreatorID}, nil
}

func (repo *courseRepository) FilterCourses(_ context.Context, filter course.QueryFilter, _ ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.table {
		if matchesCourse(*crs, filter) {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func matchesCourse(crs course.Course, filter course.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(crs.Title), search) ||
			strings.Contains(strings.ToLower(crs.Description), search)) {
			return false
		}
	}
	if filter.Visibility != "" && crs.Visibility != filter.Visibility {
		return false
	}
	if filter.CreatorID != "" && crs.CreatorID != filter.CreatorID {
		return false
	}
	return true
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	if crs.Title != "" {
		orig.Title = crs.Title
	}
	if crs.Description != "" {
		orig.Description = crs.Description
	}
	if crs.Visibility != "" {
		orig.Visibility = crs.Visibility
	}
	if !crs.UpdatedAt.IsZero() {
		orig.UpdatedAt = crs.UpdatedAt
	}
	return *orig, nil
}

func (repo *courseRepository) DeleteCoursesByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
