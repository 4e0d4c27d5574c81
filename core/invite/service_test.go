package invite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/enrollment"
	"github.com/jmwangaza/elimisha/core/invite"
	"github.com/jmwangaza/elimisha/core/user"
	inmemdb "github.com/jmwangaza/elimisha/storage/database/inmem"
	testutil "github.com/jmwangaza/elimisha/tests"
)

type testEnv struct {
	svc        invite.Service
	repo       invite.Repository
	courseRepo course.Repository
	enrollRepo enrollment.Repository
}

func setup(t *testing.T) testEnv {
	t.Helper()

	db, err := inmemdb.Open()
	require.NoError(t, err)

	repo := inmemdb.NewInviteRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	enrollRepo := inmemdb.NewEnrollmentRepository(db)
	return testEnv{
		svc:        invite.NewService(db, repo, courseRepo, enrollRepo),
		repo:       repo,
		courseRepo: courseRepo,
		enrollRepo: enrollRepo,
	}
}

func intPtr(i int) *int { return &i }

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	crs := testutil.CreateCourse(t, env.courseRepo, "Go 101", course.VisibilityHidden, "teacher-1")

	t.Run("unknown course", func(t *testing.T) {
		_, err := env.svc.Create(ctx, "teacher-1", "nope", invite.NewLink{})
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("ok", func(t *testing.T) {
		exp := time.Now().Add(24 * time.Hour)
		link, err := env.svc.Create(ctx, "teacher-1", crs.ID, invite.NewLink{ExpiresAt: &exp, MaxUsages: intPtr(3)})
		require.NoError(t, err)
		assert.NotEmpty(t, link.ID)
		assert.NotEmpty(t, link.Token)
		assert.Equal(t, crs.ID, link.CourseID)
		assert.Equal(t, "teacher-1", link.CreatedBy)
		assert.Equal(t, 0, link.UsageCount)

		got, err := env.svc.GetByToken(ctx, link.Token)
		require.NoError(t, err)
		assert.Equal(t, link.ID, got.ID)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		l1, err := env.svc.Create(ctx, "teacher-1", crs.ID, invite.NewLink{})
		require.NoError(t, err)
		l2, err := env.svc.Create(ctx, "teacher-1", crs.ID, invite.NewLink{})
		require.NoError(t, err)
		assert.NotEqual(t, l1.Token, l2.Token)
	})
}

func TestService_Redeem(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	crs := testutil.CreateCourse(t, env.courseRepo, "Go 101", course.VisibilityHidden, "teacher-1")
	usr := user.User{ID: "student-1"}

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	t.Run("unknown token", func(t *testing.T) {
		_, err := env.svc.Redeem(ctx, usr, "nope")
		assert.Equal(t, invite.ErrNotFound, err)
	})

	t.Run("expired link", func(t *testing.T) {
		link := testutil.CreateLink(t, env.repo, "tok-expired", crs.ID, "teacher-1", &past, nil, 0)

		_, err := env.svc.Redeem(ctx, usr, link.Token)
		assert.Equal(t, invite.ErrExpired, err)

		// no enrollment was created and no usage consumed
		exists, err := env.enrollRepo.EnrollmentExists(ctx, usr.ID, crs.ID)
		require.NoError(t, err)
		assert.False(t, exists)
		refreshed, err := env.repo.GetLinkByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, refreshed.UsageCount)
	})

	t.Run("exhausted link", func(t *testing.T) {
		link := testutil.CreateLink(t, env.repo, "tok-full", crs.ID, "teacher-1", nil, intPtr(5), 5)

		_, err := env.svc.Redeem(ctx, usr, link.Token)
		assert.Equal(t, invite.ErrExhausted, err)

		refreshed, err := env.repo.GetLinkByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, refreshed.UsageCount)
	})

	t.Run("last usage redeems and exhausts the link", func(t *testing.T) {
		link := testutil.CreateLink(t, env.repo, "tok-last", crs.ID, "teacher-1", &future, intPtr(5), 4)

		got, err := env.svc.Redeem(ctx, usr, link.Token)
		require.NoError(t, err)
		assert.Equal(t, 5, got.UsageCount)

		exists, err := env.enrollRepo.EnrollmentExists(ctx, usr.ID, crs.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		refreshed, err := env.repo.GetLinkByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, refreshed.UsageCount)

		// the link now turns away the next redeemer
		_, err = env.svc.Redeem(ctx, user.User{ID: "student-2"}, link.Token)
		assert.Equal(t, invite.ErrExhausted, err)
	})

	t.Run("already enrolled is a no-op", func(t *testing.T) {
		crs2 := testutil.CreateCourse(t, env.courseRepo, "Go 102", course.VisibilityHidden, "teacher-1")
		link := testutil.CreateLink(t, env.repo, "tok-noop", crs2.ID, "teacher-1", nil, intPtr(5), 1)
		testutil.CreateEnrollment(t, env.enrollRepo, usr.ID, crs2.ID)

		got, err := env.svc.Redeem(ctx, usr, link.Token)
		require.NoError(t, err)
		assert.Equal(t, 1, got.UsageCount)

		refreshed, err := env.repo.GetLinkByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, refreshed.UsageCount)
	})

	t.Run("unlimited link keeps redeeming", func(t *testing.T) {
		crs3 := testutil.CreateCourse(t, env.courseRepo, "Go 103", course.VisibilityHidden, "teacher-1")
		link := testutil.CreateLink(t, env.repo, "tok-unlimited", crs3.ID, "teacher-1", nil, nil, 0)

		for i, uid := range []string{"u1", "u2", "u3"} {
			got, err := env.svc.Redeem(ctx, user.User{ID: uid}, link.Token)
			require.NoError(t, err)
			assert.Equal(t, i+1, got.UsageCount)
		}
	})
}
