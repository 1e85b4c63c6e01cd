package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
)

var (
	ErrSubjectNotFound = core.NewNotFoundError("subject")
	ErrLabNotFound     = core.NewNotFoundError("lab")
)

// Repository persists subjects and labs.
// Deleting a subject deletes its labs; deleting either deletes the marks recorded against it.
type Repository interface {
	CreateSubject(ctx context.Context, sub Subject) (Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	QuerySubjects(ctx context.Context, filter QueryFilter) ([]Subject, error)
	UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
	DeleteSubject(ctx context.Context, id string) error

	CreateLab(ctx context.Context, lab Lab) (Lab, error)
	GetLab(ctx context.Context, id string) (Lab, error)
	QueryLabs(ctx context.Context, filter QueryFilter) ([]Lab, error)
	UpdateLab(ctx context.Context, lab Lab) (Lab, error)
	DeleteLab(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateSubject records a subject owned by teacherID. ns must have been validated.
func (svc *Service) CreateSubject(ctx context.Context, teacherID string, ns NewSubject) (Subject, error) {
	sub, err := svc.repo.CreateSubject(ctx, Subject{
		Name:       ns.Name,
		Code:       ns.Code,
		Department: ns.Department,
		Semester:   ns.Semester,
		Credits:    ns.Credits,
		TeacherID:  teacherID,
		CreatedAt:  time.Now().UTC(),
	})
	return sub, errors.Wrap(err, "creating subject")
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context, filter QueryFilter) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter)
}

// UpdateSubject replaces the editable fields of sub with ns. ns must have been validated.
func (svc *Service) UpdateSubject(ctx context.Context, sub Subject, ns NewSubject) (Subject, error) {
	sub.Name = ns.Name
	sub.Code = ns.Code
	sub.Department = ns.Department
	sub.Semester = ns.Semester
	sub.Credits = ns.Credits
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// CreateLab records a lab of an existing subject. nl must have been validated.
func (svc *Service) CreateLab(ctx context.Context, teacherID string, nl NewLab) (Lab, error) {
	sub, err := svc.repo.GetSubject(ctx, nl.SubjectID)
	if err != nil {
		if err == ErrSubjectNotFound {
			return Lab{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return Lab{}, errors.Wrap(err, "finding subject")
	}

	lab, err := svc.repo.CreateLab(ctx, Lab{
		Name:        nl.Name,
		Code:        nl.Code,
		SubjectID:   sub.ID,
		SubjectName: sub.Name,
		Department:  nl.Department,
		Semester:    nl.Semester,
		Credits:     nl.Credits,
		TeacherID:   teacherID,
		CreatedAt:   time.Now().UTC(),
	})
	return lab, errors.Wrap(err, "creating lab")
}

func (svc *Service) GetLab(ctx context.Context, id string) (Lab, error) {
	return svc.repo.GetLab(ctx, id)
}

func (svc *Service) QueryLabs(ctx context.Context, filter QueryFilter) ([]Lab, error) {
	return svc.repo.QueryLabs(ctx, filter)
}

// UpdateLab replaces the editable fields of lab with nl. nl must have been validated.
func (svc *Service) UpdateLab(ctx context.Context, lab Lab, nl NewLab) (Lab, error) {
	if nl.SubjectID != lab.SubjectID {
		sub, err := svc.repo.GetSubject(ctx, nl.SubjectID)
		if err != nil {
			if err == ErrSubjectNotFound {
				return Lab{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
			}
			return Lab{}, errors.Wrap(err, "finding subject")
		}
		lab.SubjectID = sub.ID
		lab.SubjectName = sub.Name
	}
	lab.Name = nl.Name
	lab.Code = nl.Code
	lab.Department = nl.Department
	lab.Semester = nl.Semester
	lab.Credits = nl.Credits
	return svc.repo.UpdateLab(ctx, lab)
}

func (svc *Service) DeleteLab(ctx context.Context, id string) error {
	return svc.repo.DeleteLab(ctx, id)
}
