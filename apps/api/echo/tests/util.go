package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/jmwangaza/elimisha/apps/api/echo"
	"github.com/jmwangaza/elimisha/core"
	"github.com/jmwangaza/elimisha/core/access"
	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/enrollment"
	"github.com/jmwangaza/elimisha/core/invite"
	"github.com/jmwangaza/elimisha/core/user"
	emailsvc "github.com/jmwangaza/elimisha/services/email"
	inmemdb "github.com/jmwangaza/elimisha/storage/database/inmem"
	testutil "github.com/jmwangaza/elimisha/tests"
)

var (
	usrRepo user.Repository
	crsRepo course.Repository
	enrRepo enrollment.Repository
	invRepo invite.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T, engines ...*access.Engine) Server {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	crsRepo = inmemdb.NewCourseRepository(db)
	enrRepo = inmemdb.NewEnrollmentRepository(db)
	invRepo = inmemdb.NewInviteRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(db, usrRepo, mailSvc)
	crsSvc := course.NewService(crsRepo)
	enrSvc := enrollment.NewService(enrRepo, crsSvc, mailSvc)
	invSvc := invite.NewService(db, invRepo, crsRepo, enrRepo)
	engine := access.NewEngine(crsRepo, enrRepo, invRepo)
	if len(engines) > 0 {
		engine = engines[0]
	}

	validate, translator := testutil.NewValidators()

	// set up server
	return NewServer(
		ServerDeps{
			DisableReqLogs: true,
			Logger:         testLogger{},
			Validate:       validate,
			Translator:     translator,
			UserSvc:        usrSvc,
			CourseSvc:      crsSvc,
			EnrollSvc:      enrSvc,
			InviteSvc:      invSvc,
			AccessEngn:     engine,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v", err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// testLogger swallows log output during tests.
type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}
