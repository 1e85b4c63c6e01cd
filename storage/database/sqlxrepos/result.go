package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/grading"
	"github.com/campusrecords/campus/core/result"
)

type resultRow struct {
	StudentID         string    `db:"student_id"`
	Semester          int       `db:"semester"`
	TotalSubjects     int       `db:"total_subjects"`
	TotalLabs         int       `db:"total_labs"`
	SubjectsPassed    int       `db:"subjects_passed"`
	LabsPassed        int       `db:"labs_passed"`
	OverallPercentage float64   `db:"overall_percentage"`
	CGPA              float64   `db:"cgpa"`
	FinalResult       string    `db:"final_result"`
	GeneratedAt       time.Time `db:"generated_at"`
}

func toResultRow(res result.StudentResult) resultRow {
	return resultRow{
		StudentID:         res.StudentID,
		Semester:          res.Semester,
		TotalSubjects:     res.TotalSubjects,
		TotalLabs:         res.TotalLabs,
		SubjectsPassed:    res.SubjectsPassed,
		LabsPassed:        res.LabsPassed,
		OverallPercentage: res.OverallPercentage,
		CGPA:              res.CGPA,
		FinalResult:       string(res.FinalResult),
		GeneratedAt:       res.GeneratedAt.UTC(),
	}
}

func (r resultRow) result() result.StudentResult {
	return result.StudentResult{
		StudentID: r.StudentID,
		Semester:  r.Semester,
		Summary: grading.Summary{
			TotalSubjects:     r.TotalSubjects,
			TotalLabs:         r.TotalLabs,
			SubjectsPassed:    r.SubjectsPassed,
			LabsPassed:        r.LabsPassed,
			OverallPercentage: r.OverallPercentage,
			CGPA:              r.CGPA,
			FinalResult:       grading.Result(r.FinalResult),
		},
		GeneratedAt: r.GeneratedAt.UTC(),
	}
}

const resultColumns = `student_id, semester, total_subjects, total_labs, subjects_passed, labs_passed,
	overall_percentage, cgpa, final_result, generated_at`

type resultRepository struct {
	exec core.DBExecutor
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(exec core.DBExecutor) *resultRepository {
	return &resultRepository{exec: exec}
}

func (repo resultRepository) SaveResult(ctx context.Context, res result.StudentResult) error {
	q := `INSERT INTO student_results (` + resultColumns + `)
		VALUES (:student_id, :semester, :total_subjects, :total_labs, :subjects_passed, :labs_passed,
			:overall_percentage, :cgpa, :final_result, :generated_at)
		ON CONFLICT (student_id, semester) DO UPDATE
		SET total_subjects = EXCLUDED.total_subjects, total_labs = EXCLUDED.total_labs,
			subjects_passed = EXCLUDED.subjects_passed, labs_passed = EXCLUDED.labs_passed,
			overall_percentage = EXCLUDED.overall_percentage, cgpa = EXCLUDED.cgpa,
			final_result = EXCLUDED.final_result, generated_at = EXCLUDED.generated_at`
	_, err := sqlx.NamedExecContext(ctx, repo.exec, q, toResultRow(res))
	return errors.Wrap(err, "saving result")
}

func (repo resultRepository) DeleteResult(ctx context.Context, studentID string, semester int) error {
	q := repo.exec.Rebind(`DELETE FROM student_results WHERE student_id = ? AND semester = ?`)
	_, err := repo.exec.ExecContext(ctx, q, studentID, semester)
	return errors.Wrap(err, "deleting result")
}

func (repo resultRepository) GetResult(ctx context.Context, studentID string, semester int) (result.StudentResult, error) {
	var row resultRow
	q := repo.exec.Rebind(`SELECT ` + resultColumns + ` FROM student_results WHERE student_id = ? AND semester = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, studentID, semester); err != nil {
		return result.StudentResult{}, trapNoRowsErr(err, result.ErrNotFound, "finding result")
	}
	return row.result(), nil
}

func (repo resultRepository) QueryResults(ctx context.Context, studentID string) ([]result.StudentResult, error) {
	var rows []resultRow
	q := repo.exec.Rebind(`SELECT ` + resultColumns + ` FROM student_results WHERE student_id = ? ORDER BY semester`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	results := make([]result.StudentResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.result())
	}
	return results, nil
}
