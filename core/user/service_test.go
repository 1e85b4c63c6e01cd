package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/user"
	captchasvc "github.com/campusrecords/campus/services/captcha"
	emailsvc "github.com/campusrecords/campus/services/email"
	inmemdb "github.com/campusrecords/campus/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newService(t *testing.T) (*user.Service, *emailsvc.ConsoleServiceMock) {
	t.Helper()
	core.ParseEmailTemplates(nopLogger{}, true)
	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, nopLogger{})
	svc := user.NewService(inmemdb.NewUserRepository(inmemdb.Open()), mailSvc, captchasvc.Dummy{}, conf)
	return svc, mailSvc
}

var ada = user.NewUser{
	Name:            "Ada Lovelace",
	Email:           "ada@test.cd",
	Department:      "Computer Science",
	Role:            user.RoleStudent,
	Password:        "an4lytic4l-engine",
	PasswordConfirm: "an4lytic4l-engine",
	CaptchaToken:    "token",
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	usr, err := svc.Register(ctx, ada, "127.0.0.1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(ada.Password))

	dup := ada
	dup.Name = "Someone Else"
	_, err = svc.Register(ctx, dup, "127.0.0.1")
	if vErr, ok := errors.Cause(err).(*core.ValidationError); !ok || vErr.Err != user.ErrEmailExists {
		t.Errorf("Register() duplicate error = %v, want %v", err, user.ErrEmailExists)
	}

	noCaptcha := ada
	noCaptcha.Email = "other@test.cd"
	noCaptcha.CaptchaToken = ""
	_, err = svc.Register(ctx, noCaptcha, "127.0.0.1")
	if vErr, ok := errors.Cause(err).(*core.ValidationError); !ok || vErr.Err != user.ErrCaptchaRequired {
		t.Errorf("Register() without captcha error = %v, want %v", err, user.ErrCaptchaRequired)
	}
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	created, err := svc.Create(ctx, ada)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "valid", email: ada.Email, pwd: ada.Password},
		{name: "email case", email: " ADA@test.cd ", pwd: ada.Password},
		{name: "wrong password", email: ada.Email, pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@test.cd", pwd: ada.Password, wantErr: user.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (usr.ID != created.ID || usr.LastLogin.IsZero()) {
				t.Errorf("Authenticate() = %+v", usr)
			}
		})
	}

	created.IsActive = false
	if _, err = svc.Update(ctx, created, user.UpdateUser{Name: created.Name, Department: created.Department}); err != nil {
		t.Fatal(err)
	}
	if _, err = svc.Authenticate(ctx, ada.Email, ada.Password); err != user.ErrAccountDeactivated {
		t.Errorf("Authenticate() error = %v, want %v", err, user.ErrAccountDeactivated)
	}
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, mailSvc := newService(t)
	usr, err := svc.Create(ctx, ada)
	if err != nil {
		t.Fatal(err)
	}

	if err = svc.RequestPasswordReset(ctx, "nobody@test.cd"); err != user.ErrNotFound {
		t.Errorf("RequestPasswordReset() error = %v, want %v", err, user.ErrNotFound)
	}
	if err = svc.RequestPasswordReset(ctx, ada.Email); err != nil {
		t.Fatal(err)
	}
	sent := mailSvc.SentMessages()
	if len(sent) != 1 || sent[0].To[0].Address != ada.Email {
		t.Fatalf("SentMessages() = %+v", sent)
	}

	uid, token := svc.MakeResetToken(usr)
	data := sent[0].TemplateData.(map[string]string)
	assert.Equal(t, uid, data["UID"])
	assert.Equal(t, token, data["Token"])

	newPwd := "b3rnoulli-numbers"
	tests := []struct {
		name      string
		data      user.ResetUserPassword
		wantField string
	}{
		{name: "bad uid", data: user.ResetUserPassword{UID: "%%%", Token: token, Password: newPwd}, wantField: "uid"},
		{name: "unknown uid", data: user.ResetUserPassword{UID: "bm9ib2R5", Token: token, Password: newPwd}, wantField: "uid"},
		{name: "bad token", data: user.ResetUserPassword{UID: uid, Token: "abc-def", Password: newPwd}, wantField: "token"},
		{name: "valid", data: user.ResetUserPassword{UID: uid, Token: token, Password: newPwd}},
		{name: "token reused", data: user.ResetUserPassword{UID: uid, Token: token, Password: newPwd}, wantField: "token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(ctx, tt.data)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			if !ok || len(vErr.Fields) != 1 || vErr.Fields[0].Field != tt.wantField {
				t.Errorf("ResetPassword() error = %v, want a %s field error", err, tt.wantField)
			}
		})
	}

	if _, err = svc.Authenticate(ctx, ada.Email, newPwd); err != nil {
		t.Errorf("Authenticate() with the new password error = %v", err)
	}
}

func TestService_QueryStudents(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	teacher := ada
	teacher.Name, teacher.Email, teacher.Role, teacher.Designation = "Grace Hopper", "grace@test.cd", user.RoleTeacher, "Professor"
	for _, nu := range []user.NewUser{ada, teacher} {
		if _, err := svc.Create(ctx, nu); err != nil {
			t.Fatal(err)
		}
	}

	students, err := svc.QueryStudents(ctx, user.QueryFilter{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 1 || students[0].Email != ada.Email {
		t.Errorf("QueryStudents() = %+v", students)
	}

	all, err := svc.Query(ctx, &user.QueryFilter{Search: "GRACE"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Designation != "Professor" {
		t.Errorf("Query() = %+v", all)
	}
}
