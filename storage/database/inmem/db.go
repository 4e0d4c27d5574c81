package inmemdb

import (
	"context"
	"sync"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/enrollment"
	"github.com/jmwangaza/elimisha/core/invite"
	"github.com/jmwangaza/elimisha/core/user"
)

type (
	// DB is a mutex-guarded in-memory database for tests and local development.
	// The embedded executor is never used by the in-memory repositories; it only
	// satisfies core.DB.
	DB struct {
		core.DBExecutor

		user       *userTable
		course     *courseTable
		enrollment *enrollmentTable
		invite     *inviteTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enrollment.Enrollment
	}

	inviteTable struct {
		sync.RWMutex
		table map[string]*invite.Link
	}

	noopTx struct {
		core.DBExecutor
	}
)

var _ core.DB = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course)},
		enrollment: &enrollmentTable{table: make(map[string]*enrollment.Enrollment)},
		invite:     &inviteTable{table: make(map[string]*invite.Link)},
	}
	return db, nil
}

// BeginTx returns a no-op transactor: in-memory writes are applied immediately
// under each table's lock.
func (db *DB) BeginTx(context.Context) (core.DBTransactor, error) {
	return noopTx{}, nil
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
