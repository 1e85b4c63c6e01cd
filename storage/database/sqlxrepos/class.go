package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/class"
	"github.com/campusrecords/campus/core/user"
)

type classRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Semester     int       `db:"semester"`
	TeacherID    string    `db:"teacher_id"`
	StudentCount int       `db:"student_count"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r classRow) class() class.Class {
	return class.Class{
		ID:           r.ID,
		Name:         r.Name,
		Semester:     r.Semester,
		TeacherID:    r.TeacherID,
		StudentCount: r.StudentCount,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func classesFromRows(rows []classRow) []class.Class {
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.class())
	}
	return classes
}

type attendanceRow struct {
	ID        string    `db:"id"`
	ClassID   string    `db:"class_id"`
	ClassName string    `db:"class_name"`
	StudentID string    `db:"student_id"`
	Date      string    `db:"date"`
	Status    string    `db:"status"`
	MarkedBy  string    `db:"marked_by"`
	MarkedAt  time.Time `db:"marked_at"`
}

func (r attendanceRow) attendance() class.Attendance {
	return class.Attendance{
		ID:        r.ID,
		ClassID:   r.ClassID,
		ClassName: r.ClassName,
		StudentID: r.StudentID,
		Date:      r.Date,
		Status:    r.Status,
		MarkedBy:  r.MarkedBy,
		MarkedAt:  r.MarkedAt.UTC(),
	}
}

const classSelect = `SELECT c.id, c.name, c.semester, c.teacher_id, c.created_at,
	(SELECT COUNT(*) FROM enrollments e WHERE e.class_id = c.id) AS student_count
	FROM classes c`

type classRepository struct {
	exec core.DBExecutor
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{exec: exec}
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.New().String()
	q := repo.exec.Rebind(`INSERT INTO classes (id, name, semester, teacher_id, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := repo.exec.ExecContext(ctx, q, cls.ID, cls.Name, cls.Semester, cls.TeacherID, cls.CreatedAt.UTC()); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	var row classRow
	q := repo.exec.Rebind(classSelect + ` WHERE c.id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return row.class(), nil
}

func (repo classRepository) QueryClasses(ctx context.Context, teacherID string) ([]class.Class, error) {
	var w where
	if teacherID != "" {
		w.add("c.teacher_id = ?", teacherID)
	}
	var rows []classRow
	q := repo.exec.Rebind(classSelect + w.String() + ` ORDER BY c.created_at DESC`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classesFromRows(rows), nil
}

// DeleteClass relies on ON DELETE CASCADE to drop enrollments and attendance.
func (repo classRepository) DeleteClass(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(`DELETE FROM classes WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return checkAffected(res, class.ErrNotFound)
}

func (repo classRepository) Enroll(ctx context.Context, classID, studentID string) error {
	q := repo.exec.Rebind(`INSERT INTO enrollments (class_id, student_id, enrolled_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`)
	if _, err := repo.exec.ExecContext(ctx, q, classID, studentID, time.Now().UTC()); err != nil {
		if isForeignKeyViolation(err) {
			return class.ErrNotFound
		}
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (repo classRepository) Unenroll(ctx context.Context, classID, studentID string) error {
	q := repo.exec.Rebind(`DELETE FROM enrollments WHERE class_id = ? AND student_id = ?`)
	res, err := repo.exec.ExecContext(ctx, q, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return checkAffected(res, class.ErrEnrollmentNotFound)
}

func (repo classRepository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	var found []bool
	q := repo.exec.Rebind(`SELECT true FROM enrollments WHERE class_id = ? AND student_id = ?`)
	if err := sqlx.SelectContext(ctx, repo.exec, &found, q, classID, studentID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return len(found) > 0, nil
}

func (repo classRepository) ClassStudents(ctx context.Context, classID string) ([]user.User, error) {
	var rows []userRow
	q := repo.exec.Rebind(`SELECT u.id, u.name, u.email, u.department, u.role, u.designation, u.is_active,
		u.password_hash, u.created_at, u.updated_at, u.last_login
		FROM users u JOIN enrollments e ON e.student_id = u.id
		WHERE e.class_id = ? ORDER BY u.name`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	return usersFromRows(rows), nil
}

func (repo classRepository) StudentClasses(ctx context.Context, studentID string) ([]class.Class, error) {
	var rows []classRow
	q := repo.exec.Rebind(classSelect + ` JOIN enrollments en ON en.class_id = c.id WHERE en.student_id = ? ORDER BY c.created_at DESC`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student classes")
	}
	return classesFromRows(rows), nil
}

func (repo classRepository) UpsertAttendance(ctx context.Context, att class.Attendance) (class.Attendance, error) {
	q := repo.exec.Rebind(`INSERT INTO attendance (id, class_id, student_id, date, status, marked_by, marked_at)
		VALUES (?, ?, ?, ?::date, ?, ?, ?)
		ON CONFLICT (class_id, student_id, date) DO UPDATE
		SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
		RETURNING id`)
	var id string
	err := sqlx.GetContext(ctx, repo.exec, &id, q,
		uuid.New().String(), att.ClassID, att.StudentID, att.Date, att.Status, att.MarkedBy, att.MarkedAt.UTC())
	if err != nil {
		return class.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	att.ID = id
	return att, nil
}

func (repo classRepository) QueryAttendance(ctx context.Context, filter class.AttendanceFilter) ([]class.Attendance, error) {
	var w where
	if filter.ClassID != "" {
		w.add("a.class_id = ?", filter.ClassID)
	}
	if filter.StudentID != "" {
		w.add("a.student_id = ?", filter.StudentID)
	}
	if filter.Date != "" {
		w.add("a.date = ?::date", filter.Date)
	}

	var rows []attendanceRow
	q := repo.exec.Rebind(`SELECT a.id, a.class_id, c.name AS class_name, a.student_id,
		to_char(a.date, 'YYYY-MM-DD') AS date, a.status, a.marked_by, a.marked_at
		FROM attendance a JOIN classes c ON c.id = a.class_id` + w.String() + ` ORDER BY a.date DESC, c.name`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	atts := make([]class.Attendance, 0, len(rows))
	for _, r := range rows {
		atts = append(atts, r.attendance())
	}
	return atts, nil
}
