package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/grading"
	"github.com/campusrecords/campus/core/mark"
)

type markRow struct {
	ID            string    `db:"id"`
	StudentID     string    `db:"student_id"`
	CourseID      string    `db:"course_id"`
	TeacherID     string    `db:"teacher_id"`
	Semester      int       `db:"semester"`
	MarksObtained float64   `db:"marks_obtained"`
	TotalMarks    float64   `db:"total_marks"`
	Grade         string    `db:"grade"`
	ExamType      string    `db:"exam_type"`
	MarkedAt      time.Time `db:"marked_at"`
}

func (r markRow) mark(kind mark.Kind) mark.Mark {
	return mark.Mark{
		ID:            r.ID,
		Kind:          kind,
		StudentID:     r.StudentID,
		CourseID:      r.CourseID,
		TeacherID:     r.TeacherID,
		Semester:      r.Semester,
		MarksObtained: r.MarksObtained,
		TotalMarks:    r.TotalMarks,
		Grade:         grading.Grade(r.Grade),
		ExamType:      r.ExamType,
		MarkedAt:      r.MarkedAt.UTC(),
	}
}

type recordRow struct {
	markRow
	CourseName   string `db:"course_name"`
	CourseCode   string `db:"course_code"`
	Credits      int    `db:"credits"`
	SubjectName  string `db:"subject_name"`
	StudentName  string `db:"student_name"`
	StudentEmail string `db:"student_email"`
}

// markTable describes where the marks of a kind are stored.
type markTable struct {
	name      string
	courseCol string
	markCols  string // selectable as markRow
	records   string // selectable as recordRow, aliased m (mark), u (student)
	upsert    string
}

var markTables = map[mark.Kind]markTable{
	mark.KindSubject: {
		name:      "subject_marks",
		courseCol: "subject_id",
		markCols: `id, student_id, subject_id AS course_id, teacher_id, semester, marks_obtained, total_marks,
			grade, exam_type, marked_at`,
		records: `SELECT m.id, m.student_id, m.subject_id AS course_id, m.teacher_id, m.semester, m.marks_obtained,
			m.total_marks, m.grade, m.exam_type, m.marked_at, s.name AS course_name, s.code AS course_code,
			s.credits, '' AS subject_name, u.name AS student_name, u.email AS student_email
			FROM subject_marks m
			JOIN subjects s ON s.id = m.subject_id
			JOIN users u ON u.id = m.student_id`,
		upsert: `INSERT INTO subject_marks (id, student_id, subject_id, teacher_id, semester, marks_obtained, total_marks,
			grade, exam_type, marked_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (student_id, subject_id, semester, exam_type) DO UPDATE
			SET teacher_id = EXCLUDED.teacher_id, marks_obtained = EXCLUDED.marks_obtained,
				total_marks = EXCLUDED.total_marks, grade = EXCLUDED.grade, marked_at = EXCLUDED.marked_at
			RETURNING id, (xmax = 0) AS inserted`,
	},
	mark.KindLab: {
		name:      "lab_marks",
		courseCol: "lab_id",
		markCols: `id, student_id, lab_id AS course_id, teacher_id, semester, marks_obtained, total_marks,
			grade, '' AS exam_type, marked_at`,
		records: `SELECT m.id, m.student_id, m.lab_id AS course_id, m.teacher_id, m.semester, m.marks_obtained,
			m.total_marks, m.grade, '' AS exam_type, m.marked_at, l.name AS course_name, l.code AS course_code,
			l.credits, s.name AS subject_name, u.name AS student_name, u.email AS student_email
			FROM lab_marks m
			JOIN labs l ON l.id = m.lab_id
			JOIN subjects s ON s.id = l.subject_id
			JOIN users u ON u.id = m.student_id`,
		upsert: `INSERT INTO lab_marks (id, student_id, lab_id, teacher_id, semester, marks_obtained, total_marks,
			grade, marked_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (student_id, lab_id, semester) DO UPDATE
			SET teacher_id = EXCLUDED.teacher_id, marks_obtained = EXCLUDED.marks_obtained,
				total_marks = EXCLUDED.total_marks, grade = EXCLUDED.grade, marked_at = EXCLUDED.marked_at
			RETURNING id, (xmax = 0) AS inserted`,
	},
}

type markRepository struct {
	exec core.DBExecutor
}

var _ mark.Repository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository(exec core.DBExecutor) *markRepository {
	return &markRepository{exec: exec}
}

func table(kind mark.Kind) (markTable, error) {
	t, ok := markTables[kind]
	if !ok {
		return markTable{}, mark.ErrInvalidKind
	}
	return t, nil
}

func (repo markRepository) records(ctx context.Context, kind mark.Kind, col, id string, semester int) ([]mark.Record, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	var w where
	w.add(col+" = ?", id)
	if semester > 0 {
		w.add("m.semester = ?", semester)
	}

	var rows []recordRow
	q := repo.exec.Rebind(t.records + w.String() + ` ORDER BY m.semester, course_code, u.name`)
	if err = sqlx.SelectContext(ctx, repo.exec, &rows, q, w.args...); err != nil {
		return nil, errors.Wrapf(err, "querying %s", t.name)
	}
	recs := make([]mark.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, mark.Record{
			Mark:         r.mark(kind),
			CourseName:   r.CourseName,
			CourseCode:   r.CourseCode,
			Credits:      r.Credits,
			SubjectName:  r.SubjectName,
			StudentName:  r.StudentName,
			StudentEmail: r.StudentEmail,
		})
	}
	return recs, nil
}

func (repo markRepository) StudentMarks(ctx context.Context, kind mark.Kind, studentID string, semester int) ([]mark.Record, error) {
	return repo.records(ctx, kind, "m.student_id", studentID, semester)
}

func (repo markRepository) CourseMarks(ctx context.Context, kind mark.Kind, courseID string, semester int) ([]mark.Record, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	return repo.records(ctx, kind, "m."+t.courseCol, courseID, semester)
}

func (repo markRepository) GetMark(ctx context.Context, kind mark.Kind, id string) (mark.Mark, error) {
	t, err := table(kind)
	if err != nil {
		return mark.Mark{}, err
	}
	var row markRow
	q := repo.exec.Rebind(`SELECT ` + t.markCols + ` FROM ` + t.name + ` WHERE id = ?`)
	if err = sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return mark.Mark{}, trapNoRowsErr(err, mark.ErrNotFound, "finding mark")
	}
	return row.mark(kind), nil
}

func (repo markRepository) UpdateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	t, err := table(m.Kind)
	if err != nil {
		return mark.Mark{}, err
	}
	q := repo.exec.Rebind(`UPDATE ` + t.name + ` SET teacher_id = ?, marks_obtained = ?, total_marks = ?, grade = ?, marked_at = ?
		WHERE id = ?`)
	res, err := repo.exec.ExecContext(ctx, q, m.TeacherID, m.MarksObtained, m.TotalMarks, string(m.Grade), m.MarkedAt.UTC(), m.ID)
	if err != nil {
		return mark.Mark{}, errors.Wrap(err, "updating mark")
	}
	if err = checkAffected(res, mark.ErrNotFound); err != nil {
		return mark.Mark{}, err
	}
	return m, nil
}

func (repo markRepository) UpsertMark(ctx context.Context, m mark.Mark) (mark.Mark, bool, error) {
	t, err := table(m.Kind)
	if err != nil {
		return mark.Mark{}, false, err
	}

	args := []interface{}{uuid.New().String(), m.StudentID, m.CourseID, m.TeacherID, m.Semester,
		m.MarksObtained, m.TotalMarks, string(m.Grade)}
	if m.Kind == mark.KindSubject {
		args = append(args, m.ExamType)
	}
	args = append(args, m.MarkedAt.UTC())

	var res struct {
		ID       string `db:"id"`
		Inserted bool   `db:"inserted"`
	}
	if err = sqlx.GetContext(ctx, repo.exec, &res, repo.exec.Rebind(t.upsert), args...); err != nil {
		if isForeignKeyViolation(err) {
			return mark.Mark{}, false, mark.ErrUnknownReference
		}
		return mark.Mark{}, false, errors.Wrapf(err, "upserting %s", t.name)
	}
	m.ID = res.ID
	return m, res.Inserted, nil
}
