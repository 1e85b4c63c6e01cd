package core

// Logger is the application logger.
// args may hold errors, extra data maps and the logged in user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// CaptchaVerifier checks a captcha response token issued to a client.
type CaptchaVerifier interface {
	Verify(token, remoteIP string) error
}
