package mark

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/grading"
)

var (
	ErrNotFound         = core.NewNotFoundError("mark")
	ErrInvalidKind      = errors.New("kind must be one of subject or lab")
	ErrInvalidTotal     = errors.New("total_marks must be greater than 0")
	ErrAboveTotal       = errors.New("marks_obtained cannot exceed total_marks")
	ErrNaturalKeyChange = errors.New("a saved mark cannot be moved to another student, course, semester or exam type")
	ErrUnknownReference = errors.New("unknown student or course")
)

type Repository interface {
	// StudentMarks returns the marks of a student, for every semester when semester is 0.
	StudentMarks(ctx context.Context, kind Kind, studentID string, semester int) ([]Record, error)
	// CourseMarks returns the marks entered for a subject or lab, for every semester when semester is 0.
	CourseMarks(ctx context.Context, kind Kind, courseID string, semester int) ([]Record, error)
	GetMark(ctx context.Context, kind Kind, id string) (Mark, error)
	// UpdateMark overwrites the score of the mark having m.ID.
	UpdateMark(ctx context.Context, m Mark) (Mark, error)
	// UpsertMark inserts m or, when a mark with the same natural key exists, overwrites its score.
	UpsertMark(ctx context.Context, m Mark) (saved Mark, created bool, err error)
}

// Recorder receives the outcome of every written row. Used for metrics.
type Recorder interface {
	MarkWritten(kind Kind, status string)
}

type Service struct {
	repo       Repository
	batchLimit int
	recorder   Recorder
}

func NewService(repo Repository, batchLimit int, recorder Recorder) *Service {
	if batchLimit <= 0 {
		batchLimit = 1
	}
	return &Service{repo: repo, batchLimit: batchLimit, recorder: recorder}
}

// StudentSubjectMarks returns the subject marks of a student with their subject name, code and credits.
func (svc *Service) StudentSubjectMarks(ctx context.Context, studentID string, semester int) ([]Record, error) {
	return svc.repo.StudentMarks(ctx, KindSubject, studentID, semester)
}

// StudentLabMarks returns the lab marks of a student with their lab name, code, credits and parent subject.
func (svc *Service) StudentLabMarks(ctx context.Context, studentID string, semester int) ([]Record, error) {
	return svc.repo.StudentMarks(ctx, KindLab, studentID, semester)
}

// EnteredMarks returns the marks entered for a subject or lab with the identity of each student.
func (svc *Service) EnteredMarks(ctx context.Context, kind Kind, courseID string, semester int) ([]Record, error) {
	if kind != KindSubject && kind != KindLab {
		return nil, core.NewValidationError(ErrInvalidKind, core.FieldError{Field: "kind", Error: ErrInvalidKind.Error()})
	}
	return svc.repo.CourseMarks(ctx, kind, courseID, semester)
}

// Upsert saves a single mark and reports whether it was created, updated or skipped.
//
// Marks of 0 or less mean "not yet graded" and are never written.
// A mark carrying an ID is updated in place, any other is written on its natural key,
// so resubmitting the same row twice never duplicates it.
// The grade is always derived from the score.
func (svc *Service) Upsert(ctx context.Context, m Mark) (Mark, string, error) {
	if m.MarksObtained <= 0 {
		return m, OutcomeSkipped, nil
	}
	if m.Kind != KindSubject && m.Kind != KindLab {
		return m, OutcomeFailed, ErrInvalidKind
	}
	if m.TotalMarks == 0 {
		m.TotalMarks = DefaultTotalMarks
	}
	if m.TotalMarks < 0 {
		return m, OutcomeFailed, ErrInvalidTotal
	}
	if m.MarksObtained > m.TotalMarks {
		return m, OutcomeFailed, ErrAboveTotal
	}
	if m.Kind == KindSubject && m.ExamType == "" {
		m.ExamType = ExamFinal
	}
	if m.Kind == KindLab {
		m.ExamType = ""
	}
	m.Grade = grading.GradeFor(m.Percentage())
	if m.MarkedAt.IsZero() {
		m.MarkedAt = time.Now().UTC()
	}

	if m.ID != "" {
		prev, err := svc.repo.GetMark(ctx, m.Kind, m.ID)
		if err != nil {
			return m, OutcomeFailed, err
		}
		if prev.StudentID != m.StudentID || prev.CourseID != m.CourseID || prev.Semester != m.Semester || prev.ExamType != m.ExamType {
			return m, OutcomeFailed, ErrNaturalKeyChange
		}
		saved, err := svc.repo.UpdateMark(ctx, m)
		if err != nil {
			return m, OutcomeFailed, pkgerrors.Wrap(err, "updating mark")
		}
		return saved, OutcomeUpdated, nil
	}

	saved, created, err := svc.repo.UpsertMark(ctx, m)
	if err != nil {
		return m, OutcomeFailed, pkgerrors.Wrap(err, "upserting mark")
	}
	if created {
		return saved, OutcomeCreated, nil
	}
	return saved, OutcomeUpdated, nil
}

// Submit writes every row of a marking session concurrently and reports one outcome per row, in order.
// Rows are independent: there is no transaction across the session, callers retry the failed rows only.
// sub must have been validated.
func (svc *Service) Submit(ctx context.Context, teacherID string, sub Submission) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(sub.Rows))
	now := time.Now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.batchLimit)
	for i, row := range sub.Rows {
		i, row := i, row
		g.Go(func() error {
			m := Mark{
				ID:            row.ID,
				Kind:          sub.Kind,
				StudentID:     row.StudentID,
				CourseID:      sub.CourseID,
				TeacherID:     teacherID,
				Semester:      sub.Semester,
				MarksObtained: row.MarksObtained,
				TotalMarks:    row.TotalMarks,
				ExamType:      sub.ExamType,
				MarkedAt:      now,
			}
			saved, status, err := svc.Upsert(gctx, m)
			out := Outcome{StudentID: row.StudentID, Status: status}
			if err != nil {
				out.Error = err.Error()
			} else if status != OutcomeSkipped {
				out.MarkID = saved.ID
				out.Grade = saved.Grade
			}
			if svc.recorder != nil {
				svc.recorder.MarkWritten(sub.Kind, status)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

// Summarize counts outcomes per status, e.g. "2 created, 1 skipped".
func Summarize(outcomes []Outcome) map[string]int {
	counts := make(map[string]int, 4)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}

func (k Kind) String() string { return string(k) }

// ParseKind parses "subject" or "lab".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(core.CleanString(s, true /* lower */)); k {
	case KindSubject, KindLab:
		return k, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidKind)
	}
}
