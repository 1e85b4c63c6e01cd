package transcript

import (
	"bytes"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
)

// NewEmailMessage builds the message delivering art to the student of view.
func NewEmailMessage(view View, art Artifact) (*core.EmailMessage, error) {
	if view.StudentEmail == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "student has no email address"})
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: view.StudentName, Address: view.StudentEmail}},
		Subject:      fmt.Sprintf("Semester %d Results", view.Semester),
		TemplateName: "transcript",
		TemplateData: map[string]interface{}{
			"Name":       view.StudentName,
			"Semester":   view.Semester,
			"Percentage": view.Summary.OverallPercentage,
			"CGPA":       view.Summary.CGPA,
			"Result":     view.Summary.FinalResult,
		},
	}
	if err := msg.Attach(bytes.NewReader(art.Data), art.Filename, art.ContentType); err != nil {
		return nil, errors.Wrap(err, "attaching transcript")
	}
	return msg, nil
}
