package captchasvc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
)

func TestHCaptcha_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Method != http.MethodPost || r.PostForm.Get("secret") != "s3cr3t" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.PostForm.Get("response") {
		case "good":
			_, _ = w.Write([]byte(`{"success": true}`))
		case "boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
		}
	}))
	defer srv.Close()

	h := NewHCaptcha(core.CaptchaConfig{Enabled: true, SecretKey: "s3cr3t", VerifyURL: srv.URL})
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "valid", token: "good"},
		{name: "empty", token: " ", want: ErrMissingToken},
		{name: "rejected", token: "bad", want: ErrInvalidToken},
		{name: "server error", token: "boom", want: ErrVerifyFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.Verify(tt.token, "127.0.0.1"); errors.Cause(err) != tt.want {
				t.Errorf("Verify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDummy_Verify(t *testing.T) {
	if err := (Dummy{}).Verify("", ""); err != ErrMissingToken {
		t.Errorf("Verify() error = %v, want %v", err, ErrMissingToken)
	}
	if err := (Dummy{}).Verify("anything", ""); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}
