package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/grading"
	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/result"
	"github.com/campusrecords/campus/core/user"
)

type Format string

const (
	FormatImage Format = "image"
	FormatPDF   Format = "pdf"
)

func (f Format) Ext() string {
	if f == FormatPDF {
		return "pdf"
	}
	return "png"
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

// ParseFormat accepts image (png) and pdf (document). Empty defaults to pdf.
func ParseFormat(s string) (Format, error) {
	switch core.CleanString(s, true /* lower */) {
	case "image", "png":
		return FormatImage, nil
	case "", "pdf", "document":
		return FormatPDF, nil
	default:
		return "", core.NewValidationError(nil, core.FieldError{Field: "format", Error: "format must be one of image or pdf"})
	}
}

// Line is one subject or lab row of a transcript.
type Line struct {
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	Subject       string        `json:"subject,omitempty"` // parent subject of a lab
	Credits       int           `json:"credits"`
	ExamType      string        `json:"exam_type,omitempty"`
	MarksObtained float64       `json:"marks_obtained"`
	TotalMarks    float64       `json:"total_marks"`
	Grade         grading.Grade `json:"grade"`
}

func (l Line) Percentage() float64 {
	return grading.Round2(grading.Percentage(l.MarksObtained, l.TotalMarks))
}

// View is everything printed on a transcript. Two equal views render equivalent artifacts.
type View struct {
	StudentID    string          `json:"student_id"`
	StudentName  string          `json:"student_name"`
	StudentEmail string          `json:"student_email"`
	Department   string          `json:"department"`
	Semester     int             `json:"semester"`
	Subjects     []Line          `json:"subjects"`
	Labs         []Line          `json:"labs"`
	Summary      grading.Summary `json:"summary"`
}

// NewView assembles the transcript of a computed semester result.
func NewView(student user.User, rep result.Report) View {
	lines := func(records []mark.Record) []Line {
		ls := make([]Line, 0, len(records))
		for _, r := range records {
			ls = append(ls, Line{
				Code:          r.CourseCode,
				Name:          r.CourseName,
				Subject:       r.SubjectName,
				Credits:       r.Credits,
				ExamType:      r.ExamType,
				MarksObtained: r.MarksObtained,
				TotalMarks:    r.TotalMarks,
				Grade:         r.Grade,
			})
		}
		return ls
	}
	return View{
		StudentID:    student.ID,
		StudentName:  student.Name,
		StudentEmail: student.Email,
		Department:   student.Department,
		Semester:     rep.Semester,
		Subjects:     lines(rep.Subjects),
		Labs:         lines(rep.Labs),
		Summary:      rep.Summary,
	}
}

// Artifact is an exported transcript file.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Pages       int    `json:"pages"`
	Data        []byte `json:"data"`
	Cached      bool   `json:"-"`
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the deterministic artifact name of a transcript: <Name>_Semester_<n>_Results.<ext>.
func Filename(studentName string, semester int, format Format) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(studentName), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "Student"
	}
	return fmt.Sprintf("%s_Semester_%d_Results.%s", name, semester, format.Ext())
}

// ExportError is returned when a transcript could not be rendered or encoded.
type ExportError struct {
	Format Format
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting transcript as %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
