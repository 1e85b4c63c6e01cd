package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/campusrecords/campus/apps/api/echo"
	"github.com/campusrecords/campus/core/user"
)

func TestServer_home(t *testing.T) {
	app := setup(t)
	rec := app.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+app.conf.AppName+" API!", rec.Body.String())
}

func TestAuthentication(t *testing.T) {
	app := setup(t)
	inactive := createUser(t, app.usrRepo, "Former Student", "former@test.cd", user.RoleStudent, false)

	studentToken := getToken(t, app.conf, app.student)
	runHttpTests(t, app, []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "missing or malformed jwt", Kind: "auth"}),
		},
		{
			name:     "malformed token",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "invalid or expired jwt", Kind: "auth"}),
		},
		{
			name:     "deactivated account",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    getToken(t, app.conf, inactive),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated", Kind: "auth"}),
		},
		{
			name:     "student creating a subject",
			method:   http.MethodPost,
			path:     "/v1/subjects",
			body:     []byte(`{"name":"Compilers","code":"CS401","department":"CS","semester":4,"credits":3}`),
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied", Kind: "auth"}),
		},
		{
			name:     "student reading another student result",
			method:   http.MethodGet,
			path:     "/v1/results/" + app.student2.ID,
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied", Kind: "auth"}),
		},
		{
			name:     "student listing students",
			method:   http.MethodGet,
			path:     "/v1/students",
			token:    studentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student reading own results",
			method:   http.MethodGet,
			path:     "/v1/results/" + app.student.ID,
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
	})
}

func TestUserAPI_login(t *testing.T) {
	app := setup(t)
	createUser(t, app.usrRepo, "Former Student", "former@test.cd", user.RoleStudent, false)

	tests := []struct {
		name     string
		body     LoginRequest
		wantCode int
		wantKind string
	}{
		{name: "valid", body: LoginRequest{Email: "ada@test.cd", Password: testPassword}, wantCode: http.StatusOK},
		{name: "email is case insensitive", body: LoginRequest{Email: " ADA@test.cd", Password: testPassword}, wantCode: http.StatusOK},
		{name: "wrong password", body: LoginRequest{Email: "ada@test.cd", Password: "nope"}, wantCode: http.StatusUnauthorized, wantKind: "auth"},
		{name: "unknown email", body: LoginRequest{Email: "ghost@test.cd", Password: testPassword}, wantCode: http.StatusUnauthorized, wantKind: "auth"},
		{name: "deactivated", body: LoginRequest{Email: "former@test.cd", Password: testPassword}, wantCode: http.StatusForbidden, wantKind: "auth"},
		{name: "missing email", body: LoginRequest{Password: testPassword}, wantCode: http.StatusBadRequest, wantKind: "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/v1/users/login", "", marshallObj(t, tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("login code = %d, want %d; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				var herr httpErr
				unmarshall(t, rec, &herr)
				assert.Equal(t, tt.wantKind, herr.Kind)
				return
			}
			var resp LoginResponse
			unmarshall(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			if assert.NotNil(t, resp.User) {
				assert.Equal(t, app.student.ID, resp.User.ID)
				assert.False(t, resp.User.LastLogin.IsZero())
			}

			// the token grants access
			me := app.do(t, http.MethodGet, "/v1/users/me", resp.Token)
			assert.Equal(t, http.StatusOK, me.Code)
		})
	}
}

func TestUserAPI_register(t *testing.T) {
	app := setup(t)
	nu := user.NewUser{
		Name:            "Dorothy Vaughan",
		Email:           "dorothy@test.cd",
		Department:      "Mathematics",
		Role:            user.RoleStudent,
		Password:        testPassword,
		PasswordConfirm: testPassword,
		CaptchaToken:    "token",
	}

	rec := app.do(t, http.MethodPost, "/v1/users/register", "", marshallObj(t, nu))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register code = %d; body %s", rec.Code, rec.Body.String())
	}
	var usr user.User
	unmarshall(t, rec, &usr)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "dorothy@test.cd", usr.Email)
	assert.True(t, usr.IsActive)

	dup := nu
	dup.Name = "Someone Else"
	noCaptcha := nu
	noCaptcha.Email = "other@test.cd"
	noCaptcha.CaptchaToken = ""
	mismatch := nu
	mismatch.Email = "mismatch@test.cd"
	mismatch.PasswordConfirm = "something-else"

	runHttpTests(t, app, []httpTest{
		{name: "duplicate email", method: http.MethodPost, path: "/v1/users/register", body: marshallObj(t, dup), wantCode: http.StatusBadRequest},
		{name: "missing captcha", method: http.MethodPost, path: "/v1/users/register", body: marshallObj(t, noCaptcha), wantCode: http.StatusBadRequest},
		{name: "password mismatch", method: http.MethodPost, path: "/v1/users/register", body: marshallObj(t, mismatch), wantCode: http.StatusBadRequest},
	})
}

func TestUserAPI_passwordReset(t *testing.T) {
	app := setup(t)
	successMsg := SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	}

	runHttpTests(t, app, []httpTest{
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/users/password-reset",
			body:     []byte(`{"email":"ghost@test.cd"}`),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, successMsg),
		},
	})
	if sent := app.mailSvc.SentMessages(); len(sent) != 0 {
		t.Fatalf("mails sent for an unknown email = %d, want 0", len(sent))
	}

	rec := app.do(t, http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"ada@test.cd"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, successMsg)}, rec)
	sent := app.mailSvc.SentMessages()
	if len(sent) != 1 {
		t.Fatalf("mails sent = %d, want 1", len(sent))
	}
	data, ok := sent[0].TemplateData.(map[string]string)
	if !ok {
		t.Fatalf("TemplateData = %T", sent[0].TemplateData)
	}

	newPwd := "d1fference-engine"
	confirm := func(token string) []byte {
		return marshallObj(t, user.ResetUserPassword{UID: data["UID"], Token: token, Password: newPwd, PasswordConfirm: newPwd})
	}
	runHttpTests(t, app, []httpTest{
		{name: "bad token", method: http.MethodPost, path: "/v1/users/password-reset-confirm", body: confirm("bad-token"), wantCode: http.StatusBadRequest},
		{
			name:     "valid token",
			method:   http.MethodPost,
			path:     "/v1/users/password-reset-confirm",
			body:     confirm(data["Token"]),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{name: "reused token", method: http.MethodPost, path: "/v1/users/password-reset-confirm", body: confirm(data["Token"]), wantCode: http.StatusBadRequest},
		{
			name:     "login with new password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     marshallObj(t, LoginRequest{Email: "ada@test.cd", Password: newPwd}),
			wantCode: http.StatusOK,
		},
	})
}

func TestUserAPI_updateMe(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.teacher)

	rec := app.do(t, http.MethodPut, "/v1/users/me", token, []byte(`{"name":"Rear Admiral Grace Hopper","designation":"Professor"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %d; body %s", rec.Code, rec.Body.String())
	}
	var usr user.User
	unmarshall(t, rec, &usr)
	assert.Equal(t, "Rear Admiral Grace Hopper", usr.Name)
	assert.Equal(t, "Professor", usr.Designation)

	rec = app.do(t, http.MethodPost, "/v1/users/token-refresh", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh code = %d; body %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	unmarshall(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func TestUserAPI_queryStudents(t *testing.T) {
	app := setup(t)
	rec := app.do(t, http.MethodGet, "/v1/students?ordering=name", getToken(t, app.conf, app.teacher))
	if rec.Code != http.StatusOK {
		t.Fatalf("query code = %d; body %s", rec.Code, rec.Body.String())
	}
	var students []user.User
	unmarshall(t, rec, &students)
	if assert.Len(t, students, 2) {
		assert.Equal(t, app.student.ID, students[0].ID)
		assert.Equal(t, app.student2.ID, students[1].ID)
	}
}
