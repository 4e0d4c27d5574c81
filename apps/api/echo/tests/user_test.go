package tests

import (
	"net/http"
	"net/url"
	"testing"

	. "github.com/jmwangaza/elimisha/apps/api/echo"
	"github.com/jmwangaza/elimisha/core/user"
	emailsvc "github.com/jmwangaza/elimisha/services/email"
	testutil "github.com/jmwangaza/elimisha/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "LordOfTheRings", user.StudentRoles, true)
	testutil.CreateUser(t, usrRepo, "Inactive", "iceman", "iceman@test.cd", "LordOfTheRings", user.StudentRoles, false)

	tests := []httpTest{
		{name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "username is a required field", "password": "password is a required field"}`)},
		{name: "unknown username", body: marchallObj(t, LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "wrong password", body: marchallObj(t, LoginRequest{Username: usr.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "deactivated account", body: marchallObj(t, LoginRequest{Username: "iceman", Password: "LordOfTheRings"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("login with username", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: usr.Username, Password: "LordOfTheRings"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res LoginResponse
		unmarchallObj(t, rec.Body.Bytes(), &res)
		if res.Token == "" {
			t.Error("expected a token")
		}

		// the token grants access to authed endpoints
		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, res.Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("login with email", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: usr.Email, Password: "LordOfTheRings"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", user.StudentRoles, true)
	testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.TeacherRoles, true)

	adminToken := getToken(t, admin)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	check := func(t *testing.T, path string, wantLen int) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var users []user.User
		unmarchallObj(t, rec.Body.Bytes(), &users)
		if len(users) != wantLen {
			t.Errorf("len() = %d; want %d", len(users), wantLen)
		}
	}

	t.Run("get all", func(t *testing.T) { check(t, "/v1/users", 3) })
	t.Run("search", func(t *testing.T) { check(t, "/v1/users?search=hero", 1) })
	t.Run("search (unknown)", func(t *testing.T) { check(t, "/v1/users?search=lol", 0) })
	t.Run("filter by role", func(t *testing.T) {
		check(t, "/v1/users?"+url.Values{"role": {user.RoleTeacher}}.Encode(), 1)
	})
}

func Test_userApi_resetPassword(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "LordOfTheRings", user.StudentRoles, true)

	sent := len(emailsvc.SentMessages)

	body := marchallObj(t, PasswordResetRequest{Email: usr.Email})
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := len(emailsvc.SentMessages); got != sent+1 {
		t.Errorf("sent messages = %d; want %d", got, sent+1)
	}

	t.Run("unknown email reveals nothing", func(t *testing.T) {
		sent := len(emailsvc.SentMessages)

		body := marchallObj(t, PasswordResetRequest{Email: "ghost@test.cd"})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		if got := len(emailsvc.SentMessages); got != sent {
			t.Errorf("sent messages = %d; want %d", got, sent)
		}
	})
}

func Test_userApi_update_permissions(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", user.AdminRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", user.StudentRoles, true)

	t.Run("student cannot change own roles", func(t *testing.T) {
		body := []byte(`{"roles": ["admin:"]}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, getToken(t, student), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("student cannot see other users", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+admin.ID, getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("admin updates another user", func(t *testing.T) {
		body := []byte(`{"name": "Renamed"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, getToken(t, admin), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got user.User
		unmarchallObj(t, rec.Body.Bytes(), &got)
		if got.Name != "Renamed" {
			t.Errorf("Name = %q; want %q", got.Name, "Renamed")
		}
	})
}
