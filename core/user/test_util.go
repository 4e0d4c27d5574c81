package user

import (
	"context"

	"github.com/jmwangaza/elimisha/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose side effects run synchronously, for tests.
func NewServiceMock(db core.DB, repo Repository, mailSvc core.EmailService) Service {
	return &serviceMock{
		service: service{
			db:      db,
			repo:    repo,
			mailSvc: mailSvc,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
