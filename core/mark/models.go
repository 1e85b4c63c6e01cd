package mark

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/grading"
)

// Kind of course a mark is recorded against.
type Kind string

const (
	KindSubject Kind = "subject"
	KindLab     Kind = "lab"
)

// Exam types, subject marks only
const (
	ExamMidterm    = "midterm"
	ExamFinal      = "final"
	ExamAssignment = "assignment"
	ExamQuiz       = "quiz"
)

const DefaultTotalMarks = 100

// Mark is a subject or lab score of a student for a semester.
// Its natural key is (student, course, semester) plus the exam type for subjects.
type Mark struct {
	ID            string        `json:"id"`
	Kind          Kind          `json:"kind"`
	StudentID     string        `json:"student_id"`
	CourseID      string        `json:"course_id"` // subject or lab ID, per Kind
	TeacherID     string        `json:"teacher_id"`
	Semester      int           `json:"semester"`
	MarksObtained float64       `json:"marks_obtained"`
	TotalMarks    float64       `json:"total_marks"`
	Grade         grading.Grade `json:"grade"`
	ExamType      string        `json:"exam_type,omitempty"`
	MarkedAt      time.Time     `json:"marked_at"`
}

// Percentage of the total marks obtained.
func (m Mark) Percentage() float64 {
	return grading.Percentage(m.MarksObtained, m.TotalMarks)
}

// Record is a Mark joined with its course and student.
type Record struct {
	Mark
	CourseName   string `json:"course_name"`
	CourseCode   string `json:"course_code"`
	Credits      int    `json:"credits"`
	SubjectName  string `json:"subject_name,omitempty"` // parent subject of a lab
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// Row returns the aggregator view of r.
func (r Record) Row() grading.Row {
	return grading.Row{
		MarksObtained: r.MarksObtained,
		TotalMarks:    r.TotalMarks,
		Grade:         r.Grade,
		Credit:        r.Credits,
	}
}

// Submission is a marking session: the marks of many students for one course and semester.
type Submission struct {
	Kind     Kind    `json:"kind" validate:"required,oneof=subject lab"`
	CourseID string  `json:"course_id" validate:"required"`
	Semester int     `json:"semester" validate:"semester"`
	ExamType string  `json:"exam_type" validate:"omitempty,oneof=midterm final assignment quiz"`
	Rows     []Entry `json:"rows" validate:"required,min=1,dive"`
}

// Entry is one student row of a Submission. ID is set when the row was previously saved.
type Entry struct {
	ID            string  `json:"id"`
	StudentID     string  `json:"student_id" validate:"required"`
	MarksObtained float64 `json:"marks_obtained"`
	TotalMarks    float64 `json:"total_marks" validate:"gte=0"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	s.Kind = Kind(core.CleanString(string(s.Kind), true /* lower */))
	s.CourseID = core.CleanString(s.CourseID)
	s.ExamType = core.CleanString(s.ExamType, true /* lower */)
	for i := range s.Rows {
		s.Rows[i].ID = core.CleanString(s.Rows[i].ID)
		s.Rows[i].StudentID = core.CleanString(s.Rows[i].StudentID)
	}
	return validate.Struct(s)
}

// Outcome statuses
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Outcome reports what happened to one row of a Submission.
type Outcome struct {
	StudentID string        `json:"student_id"`
	MarkID    string        `json:"mark_id,omitempty"`
	Grade     grading.Grade `json:"grade,omitempty"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
}

func (o Outcome) Failed() bool { return o.Status == OutcomeFailed }
