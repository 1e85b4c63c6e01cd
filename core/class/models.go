package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusrecords/campus/core"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

const dateLayout = "2006-01-02"

type Class struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Semester     int       `json:"semester"`
	TeacherID    string    `json:"teacher_id"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Attendance is the status of a student in a class on a given day.
// There is at most one Attendance per (class, student, date).
type Attendance struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	ClassName string    `json:"class_name,omitempty"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Status    string    `json:"status"`
	MarkedBy  string    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"`
}

type NewClass struct {
	Name     string `json:"name" validate:"required"`
	Semester int    `json:"semester" validate:"semester"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type Enrollment struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (e *Enrollment) Validate(validate *validator.Validate) error {
	e.StudentID = core.CleanString(e.StudentID)
	return validate.Struct(e)
}

// AttendanceSheet is a whole class marked in one go.
type AttendanceSheet struct {
	Date    string            `json:"date" validate:"required,datetime=2006-01-02"`
	Records []AttendanceEntry `json:"records" validate:"required,min=1,dive"`
}

type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late"`
}

func (as *AttendanceSheet) Validate(validate *validator.Validate) error {
	as.Date = core.CleanString(as.Date)
	for i := range as.Records {
		as.Records[i].StudentID = core.CleanString(as.Records[i].StudentID)
		as.Records[i].Status = core.CleanString(as.Records[i].Status, true /* lower */)
	}
	return validate.Struct(as)
}

// Today returns the current UTC date in the attendance date format.
func Today() string {
	return time.Now().UTC().Format(dateLayout)
}

type AttendanceFilter struct {
	ClassID   string `query:"class_id"`
	StudentID string `query:"-"`
	Date      string `query:"date"`
}
