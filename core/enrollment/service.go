package enrollment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("enrollment not found")
	ErrExists   = errors.New("user is already enrolled in this course")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		// EnrollmentExists reports whether (userID, courseID) has an Enrollment row.
		EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error)
		FilterEnrollments(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Enrollment, error)
		DeleteEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Grant enrolls usr into the course and notifies them by email.
		Grant(ctx context.Context, usr user.User, courseID string) (Enrollment, error)
		Exists(ctx context.Context, userID, courseID string) (bool, error)
		Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Enrollment, error)
		Revoke(ctx context.Context, userID, courseID string) error
	}

	service struct {
		repo      Repository
		courseSvc course.Service
		mailSvc   core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service, mailSvc core.EmailService) Service {
	return &service{
		repo:      repo,
		courseSvc: courseSvc,
		mailSvc:   mailSvc,
	}
}

func (svc *service) Grant(ctx context.Context, usr user.User, courseID string) (Enrollment, error) {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err // course.ErrNotFound or an infrastructure error
	}

	exists, err := svc.repo.EnrollmentExists(ctx, usr.ID, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}
	if exists {
		return Enrollment{}, ErrExists
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:    usr.ID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}

	svc.sendEnrollmentGrantedMail(usr, crs)
	return enr, nil
}

func (svc *service) sendEnrollmentGrantedMail(usr user.User, crs course.Course) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "You have been enrolled",
		TemplateName: "enrollment-granted",
		TemplateData: struct{ CourseID, CourseTitle string }{CourseID: crs.ID, CourseTitle: crs.Title},
	})
}

func (svc *service) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	return svc.repo.EnrollmentExists(ctx, userID, courseID)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings ...core.DBOrdering) ([]Enrollment, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterEnrollments(ctx, *filter, orderings...)
}

func (svc *service) Revoke(ctx context.Context, userID, courseID string) error {
	return svc.repo.DeleteEnrollment(ctx, userID, courseID)
}
