package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/access"
	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/invite"
	"github.com/jmwangaza/elimisha/core/user"
	testutil "github.com/jmwangaza/elimisha/tests"
)

func intPtr(i int) *int { return &i }

func TestCourseAPI_retrieve_accessControl(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.TeacherRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", user.StudentRoles, true)
	enrolled := testutil.CreateUser(t, usrRepo, "Enrolled", "enrolled", "enrolled@test.cd", "", user.StudentRoles, true)

	public := testutil.CreateCourse(t, crsRepo, "Open Course", course.VisibilityPublic, teacher.ID)
	hidden := testutil.CreateCourse(t, crsRepo, "Secret Course", course.VisibilityHidden, teacher.ID)
	other := testutil.CreateCourse(t, crsRepo, "Other Course", course.VisibilityHidden, teacher.ID)

	testutil.CreateEnrollment(t, enrRepo, enrolled.ID, hidden.ID)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	validLink := testutil.CreateLink(t, invRepo, "tok-valid", hidden.ID, teacher.ID, &future, intPtr(5), 4)
	expiredLink := testutil.CreateLink(t, invRepo, "tok-expired", hidden.ID, teacher.ID, &past, nil, 0)
	fullLink := testutil.CreateLink(t, invRepo, "tok-full", hidden.ID, teacher.ID, nil, intPtr(5), 5)
	otherLink := testutil.CreateLink(t, invRepo, "tok-other", other.ID, teacher.ID, nil, nil, 0)

	adminToken := getToken(t, admin)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)
	enrolledToken := getToken(t, enrolled)

	tests := []httpTest{
		{name: "anonymous: public course", path: "/v1/courses/" + public.ID, wantCode: http.StatusOK},
		{name: "anonymous: hidden course redirects", path: "/v1/courses/" + hidden.ID, wantCode: http.StatusFound},
		{name: "anonymous: unknown course passes through to 404", path: "/v1/courses/nope", wantCode: http.StatusNotFound},
		{name: "student: hidden course redirects", path: "/v1/courses/" + hidden.ID, token: studentToken, wantCode: http.StatusFound},
		{name: "student: unknown course passes through to 404", path: "/v1/courses/nope", token: studentToken, wantCode: http.StatusNotFound},
		{name: "enrolled student: hidden course", path: "/v1/courses/" + hidden.ID, token: enrolledToken, wantCode: http.StatusOK},
		{name: "enrolled student: other hidden course redirects", path: "/v1/courses/" + other.ID, token: enrolledToken, wantCode: http.StatusFound},
		{name: "creator: hidden course", path: "/v1/courses/" + hidden.ID, token: teacherToken, wantCode: http.StatusOK},
		{name: "admin: hidden course", path: "/v1/courses/" + hidden.ID, token: adminToken, wantCode: http.StatusOK},
		{name: "anonymous: valid invite token", path: "/v1/courses/" + hidden.ID + "?invite=" + validLink.Token, wantCode: http.StatusOK},
		{name: "student: valid invite token", path: "/v1/courses/" + hidden.ID + "?invite=" + validLink.Token, token: studentToken, wantCode: http.StatusOK},
		{name: "anonymous: expired invite token redirects", path: "/v1/courses/" + hidden.ID + "?invite=" + expiredLink.Token, wantCode: http.StatusFound},
		{name: "anonymous: exhausted invite token redirects", path: "/v1/courses/" + hidden.ID + "?invite=" + fullLink.Token, wantCode: http.StatusFound},
		{name: "anonymous: invite for another course redirects", path: "/v1/courses/" + hidden.ID + "?invite=" + otherLink.Token, wantCode: http.StatusFound},
		{name: "anonymous: unknown invite token redirects", path: "/v1/courses/" + hidden.ID + "?invite=lol", wantCode: http.StatusFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusFound {
				if loc := rec.Header().Get("Location"); loc != core.Conf.Access.DeniedRedirectPath {
					t.Errorf("failed! Location = %q; want %q", loc, core.Conf.Access.DeniedRedirectPath)
				}
			}
		})
	}
}

// brokenReader fails every lookup to simulate storage being down.
type brokenReader struct{}

func (brokenReader) GetCourseVisibility(ctx context.Context, id string) (course.VisibilityInfo, error) {
	return course.VisibilityInfo{}, context.DeadlineExceeded
}
func (brokenReader) EnrollmentExists(ctx context.Context, userID, courseID string) (bool, error) {
	return false, context.DeadlineExceeded
}
func (brokenReader) GetLinkByToken(ctx context.Context, token string) (invite.Link, error) {
	return invite.Link{}, context.DeadlineExceeded
}

func TestCourseAPI_retrieve_storageFailure(t *testing.T) {
	engine := access.NewEngine(brokenReader{}, brokenReader{}, brokenReader{})
	app := setup(t, engine)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.TeacherRoles, true)
	hidden := testutil.CreateCourse(t, crsRepo, "Secret Course", course.VisibilityHidden, teacher.ID)

	t.Run("fail-open passes the request through", func(t *testing.T) {
		core.Conf.Access.FailClosed = false

		req, rec := newRequest(http.MethodGet, "/v1/courses/"+hidden.ID)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("fail-closed redirects", func(t *testing.T) {
		core.Conf.Access.FailClosed = true
		defer func() { core.Conf.Access.FailClosed = false }()

		req, rec := newRequest(http.MethodGet, "/v1/courses/"+hidden.ID)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusFound)
		}
	})
}

func TestCourseAPI_create(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.TeacherRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", user.StudentRoles, true)

	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	tests := []httpTest{
		{name: "anonymous is rejected", body: marchallObj(t, course.NewCourse{Title: "Go 101"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student is rejected", token: studentToken, body: marchallObj(t, course.NewCourse{Title: "Go 101"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "missing title", token: teacherToken, body: marchallObj(t, course.NewCourse{}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "title is a required field"}`)},
		{name: "invalid visibility", token: teacherToken,
			body:     marchallObj(t, course.NewCourse{Title: "Go 101", Visibility: "lol"}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"visibility": "visibility must be one of 'public' or 'hidden'"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/courses", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("teacher creates a hidden course by default", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", teacherToken, marchallObj(t, course.NewCourse{Title: "Go 101"}))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusCreated)
		}
		crs, err := crsRepo.FilterCourses(context.Background(), course.QueryFilter{Search: "Go 101"})
		if err != nil || len(crs) != 1 {
			t.Fatalf("FilterCourses() = %v, %v", crs, err)
		}
		if crs[0].Visibility != course.VisibilityHidden {
			t.Errorf("Visibility = %q; want %q", crs[0].Visibility, course.VisibilityHidden)
		}
		if crs[0].CreatorID != teacher.ID {
			t.Errorf("CreatorID = %q; want %q", crs[0].CreatorID, teacher.ID)
		}
	})
}

func TestCourseAPI_query(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.TeacherRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", user.StudentRoles, true)

	public := testutil.CreateCourse(t, crsRepo, "Open Course", course.VisibilityPublic, teacher.ID)
	testutil.CreateCourse(t, crsRepo, "Secret Course", course.VisibilityHidden, teacher.ID)

	check := func(t *testing.T, token string, wantIDs ...string) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var got []course.Course
		unmarchallObj(t, rec.Body.Bytes(), &got)
		if len(got) != len(wantIDs) {
			t.Fatalf("len() = %d; want %d (%v)", len(got), len(wantIDs), got)
		}
		for i, id := range wantIDs {
			if got[i].ID != id {
				t.Errorf("got[%d].ID = %q; want %q", i, got[i].ID, id)
			}
		}
	}

	t.Run("anonymous only sees public courses", func(t *testing.T) {
		check(t, "", public.ID)
	})
	t.Run("student only sees public courses", func(t *testing.T) {
		check(t, getToken(t, student), public.ID)
	})
	t.Run("teacher sees everything", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses", getToken(t, teacher))
		app.ServeHTTP(rec, req)

		var got []course.Course
		unmarchallObj(t, rec.Body.Bytes(), &got)
		if len(got) != 2 {
			t.Errorf("len() = %d; want 2", len(got))
		}
	})
}
