package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusrecords/campus/core"
)

// Subject is a theory course taught by a teacher during a semester.
type Subject struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Department string    `json:"department"`
	Semester   int       `json:"semester"`
	Credits    int       `json:"credits"`
	TeacherID  string    `json:"teacher_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Lab is a practical course attached to a Subject.
type Lab struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	SubjectID   string    `json:"subject_id"`
	SubjectName string    `json:"subject_name,omitempty"`
	Department  string    `json:"department"`
	Semester    int       `json:"semester"`
	Credits     int       `json:"credits"`
	TeacherID   string    `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewSubject struct {
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required,coursecode"`
	Department string `json:"department" validate:"required"`
	Semester   int    `json:"semester" validate:"semester"`
	Credits    int    `json:"credits" validate:"min=1,max=6"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	ns.Department = core.CleanString(ns.Department)
	return validate.Struct(ns)
}

type NewLab struct {
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required,coursecode"`
	SubjectID  string `json:"subject_id" validate:"required"`
	Department string `json:"department" validate:"required"`
	Semester   int    `json:"semester" validate:"semester"`
	Credits    int    `json:"credits" validate:"min=1,max=3"`
}

func (nl *NewLab) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	nl.Code = core.CleanString(nl.Code)
	nl.SubjectID = core.CleanString(nl.SubjectID)
	nl.Department = core.CleanString(nl.Department)
	return validate.Struct(nl)
}

type QueryFilter struct {
	Department string `query:"department"`
	Semester   int    `query:"semester"`
	TeacherID  string `query:"teacher_id"`
	SubjectID  string `query:"subject_id"` // labs only
}

func (qf *QueryFilter) Clean() {
	qf.Department = core.CleanString(qf.Department)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.SubjectID = core.CleanString(qf.SubjectID)
}
