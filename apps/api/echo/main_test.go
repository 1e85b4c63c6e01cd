package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	. "github.com/campusrecords/campus/apps/api/echo"
	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/class"
	"github.com/campusrecords/campus/core/course"
	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/result"
	"github.com/campusrecords/campus/core/transcript"
	"github.com/campusrecords/campus/core/user"
	captchasvc "github.com/campusrecords/campus/services/captcha"
	emailsvc "github.com/campusrecords/campus/services/email"
	metricsvc "github.com/campusrecords/campus/services/metrics"
	inmemdb "github.com/campusrecords/campus/storage/database/inmem"
)

const testPassword = "an4lytic4l-engine"

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testApp struct {
	server   *Server
	conf     *core.Config
	mailSvc  *emailsvc.ConsoleServiceMock
	usrRepo  user.Repository
	teacher  user.User
	teacher2 user.User
	student  user.User
	student2 user.User
}

func setup(t *testing.T) testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := nopLogger{}

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger, true /* strict */)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	metrics := metricsvc.New(prometheus.NewRegistry())
	exporter, err := transcript.NewExporter(
		transcript.Options{AppName: conf.AppName, Scale: 1, PageWidth: 210, PageHeight: 297},
		nil, /* cache */
		metrics,
		logger,
	)
	if err != nil {
		t.Fatalf("NewExporter(): %v", err)
	}
	markSvc := mark.NewService(inmemdb.NewMarkRepository(db), 4, metrics)

	// set up server
	server := NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			MailSvc:        mailSvc,
			UserSvc:        user.NewService(usrRepo, mailSvc, captchasvc.Dummy{}, conf),
			CourseSvc:      course.NewService(inmemdb.NewCourseRepository(db)),
			ClassSvc:       class.NewService(inmemdb.NewClassRepository(db), usrRepo, 4),
			MarkSvc:        markSvc,
			ResultSvc:      result.NewService(markSvc, inmemdb.NewResultRepository(db)),
			Exporter:       exporter,
			Observer:       metrics,
			DisableReqLogs: true,
		},
	)
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	app := testApp{server: server, conf: conf, mailSvc: mailSvc, usrRepo: usrRepo}
	app.teacher = createUser(t, usrRepo, "Grace Hopper", "grace@test.cd", user.RoleTeacher, true)
	app.teacher2 = createUser(t, usrRepo, "Alan Turing", "alan@test.cd", user.RoleTeacher, true)
	app.student = createUser(t, usrRepo, "Ada Lovelace", "ada@test.cd", user.RoleStudent, true)
	app.student2 = createUser(t, usrRepo, "Katherine Johnson", "katherine@test.cd", user.RoleStudent, true)
	return app
}

func createUser(t *testing.T, repo user.Repository, name, email, role string, active bool) user.User {
	t.Helper()
	usr := user.User{Name: name, Email: email, Department: "Computer Science", Role: role, IsActive: active}
	if err := usr.SetPassword(testPassword); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func (app testApp) do(t *testing.T, method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
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

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall(%s): %v", rec.Body.String(), err)
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
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, app testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
