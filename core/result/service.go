// Package result computes the semester results of students from their marks
// and keeps the last computed result of each semester.
package result

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/grading"
	"github.com/campusrecords/campus/core/mark"
)

var ErrNotFound = core.NewNotFoundError("result")

// StudentResult is the stored outcome of a semester.
type StudentResult struct {
	StudentID string `json:"student_id"`
	Semester  int    `json:"semester"`
	grading.Summary
	GeneratedAt time.Time `json:"generated_at"`
}

// Report is a freshly computed semester result with the marks it was computed from.
type Report struct {
	StudentID string          `json:"student_id"`
	Semester  int             `json:"semester"`
	Subjects  []mark.Record   `json:"subjects"`
	Labs      []mark.Record   `json:"labs"`
	Summary   grading.Summary `json:"summary"`
}

// Empty reports whether no mark was recorded for the semester.
func (r Report) Empty() bool { return len(r.Subjects) == 0 && len(r.Labs) == 0 }

type Repository interface {
	// SaveResult inserts or replaces the result of (res.StudentID, res.Semester).
	SaveResult(ctx context.Context, res StudentResult) error
	GetResult(ctx context.Context, studentID string, semester int) (StudentResult, error)
	// DeleteResult forgets the result of (studentID, semester). Deleting a missing result is not an error.
	DeleteResult(ctx context.Context, studentID string, semester int) error
	// QueryResults returns the stored results of a student ordered by semester.
	QueryResults(ctx context.Context, studentID string) ([]StudentResult, error)
}

// MarkSource provides the marks a result is computed from.
type MarkSource interface {
	StudentSubjectMarks(ctx context.Context, studentID string, semester int) ([]mark.Record, error)
	StudentLabMarks(ctx context.Context, studentID string, semester int) ([]mark.Record, error)
}

type Service struct {
	marks MarkSource
	repo  Repository
}

func NewService(marks MarkSource, repo Repository) *Service {
	return &Service{marks: marks, repo: repo}
}

// Compute fetches the subject and lab marks of a semester in parallel and aggregates them.
// Results of semesters having at least one mark are stored, the stored result of an empty semester is deleted.
func (svc *Service) Compute(ctx context.Context, studentID string, semester int) (Report, error) {
	rep := Report{StudentID: studentID, Semester: semester}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subjects, err := svc.marks.StudentSubjectMarks(gctx, studentID, semester)
		rep.Subjects = subjects
		return errors.Wrap(err, "fetching subject marks")
	})
	g.Go(func() error {
		labs, err := svc.marks.StudentLabMarks(gctx, studentID, semester)
		rep.Labs = labs
		return errors.Wrap(err, "fetching lab marks")
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	if rep.Subjects == nil {
		rep.Subjects = []mark.Record{}
	}
	if rep.Labs == nil {
		rep.Labs = []mark.Record{}
	}
	rep.Summary = Summarize(rep.Subjects, rep.Labs)

	if rep.Empty() {
		// marks may have been deleted since the last computation
		if err := svc.repo.DeleteResult(ctx, studentID, semester); err != nil {
			return Report{}, errors.Wrap(err, "deleting stale result")
		}
		return rep, nil
	}

	err := svc.repo.SaveResult(ctx, StudentResult{
		StudentID:   studentID,
		Semester:    semester,
		Summary:     rep.Summary,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return Report{}, errors.Wrap(err, "saving result")
	}
	return rep, nil
}

// Summarize aggregates subject and lab records.
func Summarize(subjects, labs []mark.Record) grading.Summary {
	return grading.Aggregate(rows(subjects), rows(labs))
}

func rows(records []mark.Record) []grading.Row {
	rs := make([]grading.Row, 0, len(records))
	for _, r := range records {
		rs = append(rs, r.Row())
	}
	return rs
}

func (svc *Service) Get(ctx context.Context, studentID string, semester int) (StudentResult, error) {
	return svc.repo.GetResult(ctx, studentID, semester)
}

func (svc *Service) Query(ctx context.Context, studentID string) ([]StudentResult, error) {
	return svc.repo.QueryResults(ctx, studentID)
}
