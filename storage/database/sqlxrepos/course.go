package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/course"
)

type subjectRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Code       string    `db:"code"`
	Department string    `db:"department"`
	Semester   int       `db:"semester"`
	Credits    int       `db:"credits"`
	TeacherID  string    `db:"teacher_id"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r subjectRow) subject() course.Subject {
	return course.Subject{
		ID:         r.ID,
		Name:       r.Name,
		Code:       r.Code,
		Department: r.Department,
		Semester:   r.Semester,
		Credits:    r.Credits,
		TeacherID:  r.TeacherID,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type labRow struct {
	subjectRow
	SubjectID   string `db:"subject_id"`
	SubjectName string `db:"subject_name"`
}

func (r labRow) lab() course.Lab {
	return course.Lab{
		ID:          r.ID,
		Name:        r.Name,
		Code:        r.Code,
		SubjectID:   r.SubjectID,
		SubjectName: r.SubjectName,
		Department:  r.Department,
		Semester:    r.Semester,
		Credits:     r.Credits,
		TeacherID:   r.TeacherID,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const (
	subjectSelect = `SELECT id, name, code, department, semester, credits, teacher_id, created_at FROM subjects`
	labSelect     = `SELECT l.id, l.name, l.code, l.subject_id, s.name AS subject_name, l.department, l.semester,
		l.credits, l.teacher_id, l.created_at
		FROM labs l JOIN subjects s ON s.id = l.subject_id`
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) CreateSubject(ctx context.Context, sub course.Subject) (course.Subject, error) {
	sub.ID = uuid.New().String()
	q := repo.exec.Rebind(`INSERT INTO subjects (id, name, code, department, semester, credits, teacher_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.exec.ExecContext(ctx, q, sub.ID, sub.Name, sub.Code, sub.Department, sub.Semester, sub.Credits, sub.TeacherID, sub.CreatedAt.UTC())
	if err != nil {
		return course.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo courseRepository) GetSubject(ctx context.Context, id string) (course.Subject, error) {
	var row subjectRow
	q := repo.exec.Rebind(subjectSelect + ` WHERE id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return course.Subject{}, trapNoRowsErr(err, course.ErrSubjectNotFound, "finding subject")
	}
	return row.subject(), nil
}

func (repo courseRepository) QuerySubjects(ctx context.Context, filter course.QueryFilter) ([]course.Subject, error) {
	var w where
	if filter.Department != "" {
		w.add("department ILIKE ?", filter.Department)
	}
	if filter.Semester > 0 {
		w.add("semester = ?", filter.Semester)
	}
	if filter.TeacherID != "" {
		w.add("teacher_id = ?", filter.TeacherID)
	}

	var rows []subjectRow
	q := repo.exec.Rebind(subjectSelect + w.String() + ` ORDER BY semester, code`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]course.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo courseRepository) UpdateSubject(ctx context.Context, sub course.Subject) (course.Subject, error) {
	q := repo.exec.Rebind(`UPDATE subjects SET name = ?, code = ?, department = ?, semester = ?, credits = ? WHERE id = ?`)
	res, err := repo.exec.ExecContext(ctx, q, sub.Name, sub.Code, sub.Department, sub.Semester, sub.Credits, sub.ID)
	if err != nil {
		return course.Subject{}, errors.Wrap(err, "updating subject")
	}
	if err = checkAffected(res, course.ErrSubjectNotFound); err != nil {
		return course.Subject{}, err
	}
	return sub, nil
}

// DeleteSubject relies on ON DELETE CASCADE to drop the labs and marks of the subject.
func (repo courseRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(`DELETE FROM subjects WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return checkAffected(res, course.ErrSubjectNotFound)
}

func (repo courseRepository) CreateLab(ctx context.Context, lab course.Lab) (course.Lab, error) {
	lab.ID = uuid.New().String()
	q := repo.exec.Rebind(`INSERT INTO labs (id, name, code, subject_id, department, semester, credits, teacher_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.exec.ExecContext(ctx, q, lab.ID, lab.Name, lab.Code, lab.SubjectID, lab.Department, lab.Semester, lab.Credits, lab.TeacherID, lab.CreatedAt.UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return course.Lab{}, core.NewValidationError(course.ErrSubjectNotFound,
				core.FieldError{Field: "subject_id", Error: course.ErrSubjectNotFound.Error()})
		}
		return course.Lab{}, errors.Wrap(err, "inserting lab")
	}
	return lab, nil
}

func (repo courseRepository) GetLab(ctx context.Context, id string) (course.Lab, error) {
	var row labRow
	q := repo.exec.Rebind(labSelect + ` WHERE l.id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return course.Lab{}, trapNoRowsErr(err, course.ErrLabNotFound, "finding lab")
	}
	return row.lab(), nil
}

func (repo courseRepository) QueryLabs(ctx context.Context, filter course.QueryFilter) ([]course.Lab, error) {
	var w where
	if filter.Department != "" {
		w.add("l.department ILIKE ?", filter.Department)
	}
	if filter.Semester > 0 {
		w.add("l.semester = ?", filter.Semester)
	}
	if filter.TeacherID != "" {
		w.add("l.teacher_id = ?", filter.TeacherID)
	}
	if filter.SubjectID != "" {
		w.add("l.subject_id = ?", filter.SubjectID)
	}

	var rows []labRow
	q := repo.exec.Rebind(labSelect + w.String() + ` ORDER BY l.semester, l.code`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying labs")
	}
	labs := make([]course.Lab, 0, len(rows))
	for _, r := range rows {
		labs = append(labs, r.lab())
	}
	return labs, nil
}

func (repo courseRepository) UpdateLab(ctx context.Context, lab course.Lab) (course.Lab, error) {
	q := repo.exec.Rebind(`UPDATE labs SET name = ?, code = ?, subject_id = ?, department = ?, semester = ?, credits = ? WHERE id = ?`)
	res, err := repo.exec.ExecContext(ctx, q, lab.Name, lab.Code, lab.SubjectID, lab.Department, lab.Semester, lab.Credits, lab.ID)
	if err != nil {
		return course.Lab{}, errors.Wrap(err, "updating lab")
	}
	if err = checkAffected(res, course.ErrLabNotFound); err != nil {
		return course.Lab{}, err
	}
	return lab, nil
}

func (repo courseRepository) DeleteLab(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(`DELETE FROM labs WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting lab")
	}
	return checkAffected(res, course.ErrLabNotFound)
}
