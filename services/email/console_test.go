package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/campusrecords/campus/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	core.ParseEmailTemplates(nopLogger{}, true)
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf, nopLogger{})

	reset := &core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@test.cd"}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{"Name": "Ada", "UID": "uid42", "Token": "tok42"},
	}
	transcript := &core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@test.cd"}},
		Subject:      "Semester 3 Results",
		TemplateName: "transcript",
		TemplateData: map[string]interface{}{"Name": "Ada", "Semester": 3, "Percentage": 82.0, "CGPA": 8.5, "Result": "PASS"},
	}
	if err := transcript.Attach(bytes.NewReader([]byte("%PDF-1.3")), "Ada_Semester_3_Results.pdf", "application/pdf"); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	noRecipient := &core.EmailMessage{Subject: "nobody", BodyStr: "hello"}

	svc.SendMessages(reset, transcript, noRecipient)

	sent := svc.SentMessages()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if want := conf.FrontendBaseURL + "/password-reset/confirm?uid=uid42&token=tok42"; !strings.Contains(sent[0].TextContent, want) {
		t.Errorf("password reset text = %q, want it to contain %q", sent[0].TextContent, want)
	}
	if sent[0].HTMLContent == "" {
		t.Error("password reset html not rendered")
	}
	if !strings.Contains(sent[1].TextContent, "CGPA: 8.50") || !sent[1].HasAttachments() {
		t.Errorf("transcript message not rendered: %q", sent[1].TextContent)
	}

	svc.Reset()
	if len(svc.SentMessages()) != 0 {
		t.Error("Reset() did not forget the sent messages")
	}
}
