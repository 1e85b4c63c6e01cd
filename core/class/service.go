package class

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/user"
)

var (
	ErrNotFound           = core.NewNotFoundError("class")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment")
	ErrAlreadyEnrolled    = errors.New("student already enrolled in this class")
	ErrNotEnrolled        = errors.New("student not enrolled in this class")
	ErrNotAStudent        = errors.New("user is not an active student")
	ErrNotClassTeacher    = errors.New("only the class teacher may do this")
)

type Repository interface {
	CreateClass(ctx context.Context, cls Class) (Class, error)
	GetClass(ctx context.Context, id string) (Class, error)
	// QueryClasses returns the classes of teacherID, all classes when empty.
	QueryClasses(ctx context.Context, teacherID string) ([]Class, error)
	// DeleteClass also deletes its enrollments and attendance.
	DeleteClass(ctx context.Context, id string) error

	Enroll(ctx context.Context, classID, studentID string) error
	Unenroll(ctx context.Context, classID, studentID string) error
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
	ClassStudents(ctx context.Context, classID string) ([]user.User, error)
	StudentClasses(ctx context.Context, studentID string) ([]Class, error)

	// UpsertAttendance writes the attendance of a student for a day, replacing any previous status.
	UpsertAttendance(ctx context.Context, att Attendance) (Attendance, error)
	QueryAttendance(ctx context.Context, filter AttendanceFilter) ([]Attendance, error)
}

// Outcome statuses
const (
	OutcomeWritten = "written"
	OutcomeFailed  = "failed"
)

// AttendanceOutcome reports what happened to one entry of an AttendanceSheet.
type AttendanceOutcome struct {
	StudentID    string `json:"student_id"`
	AttendanceID string `json:"attendance_id,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

type Service struct {
	repo       Repository
	usrRepo    user.Repository
	batchLimit int
}

func NewService(repo Repository, usrRepo user.Repository, batchLimit int) *Service {
	if batchLimit <= 0 {
		batchLimit = 1
	}
	return &Service{repo: repo, usrRepo: usrRepo, batchLimit: batchLimit}
}

func (svc *Service) Create(ctx context.Context, teacherID string, nc NewClass) (Class, error) {
	cls, err := svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		Semester:  nc.Semester,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	})
	return cls, pkgerrors.Wrap(err, "creating class")
}

func (svc *Service) Get(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryForTeacher(ctx context.Context, teacherID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, teacherID)
}

func (svc *Service) QueryForStudent(ctx context.Context, studentID string) ([]Class, error) {
	return svc.repo.StudentClasses(ctx, studentID)
}

// Delete removes a class owned by teacherID along with its roster and attendance.
func (svc *Service) Delete(ctx context.Context, teacherID, id string) error {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if cls.TeacherID != teacherID {
		return ErrNotClassTeacher
	}
	return svc.repo.DeleteClass(ctx, id)
}

// Enroll adds an active student to the roster of cls.
func (svc *Service) Enroll(ctx context.Context, cls Class, studentID string) error {
	stud, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: studentID})
	if err != nil {
		if err == user.ErrNotFound {
			return core.NewValidationError(ErrNotAStudent, core.FieldError{Field: "student_id", Error: ErrNotAStudent.Error()})
		}
		return pkgerrors.Wrap(err, "finding student")
	}
	if !stud.IsStudent() || !stud.IsActive {
		return core.NewValidationError(ErrNotAStudent, core.FieldError{Field: "student_id", Error: ErrNotAStudent.Error()})
	}

	enrolled, err := svc.repo.IsEnrolled(ctx, cls.ID, studentID)
	if err != nil {
		return pkgerrors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return core.NewValidationError(ErrAlreadyEnrolled, core.FieldError{Field: "student_id", Error: ErrAlreadyEnrolled.Error()})
	}
	return pkgerrors.Wrap(svc.repo.Enroll(ctx, cls.ID, studentID), "enrolling student")
}

func (svc *Service) Unenroll(ctx context.Context, cls Class, studentID string) error {
	return svc.repo.Unenroll(ctx, cls.ID, studentID)
}

func (svc *Service) Roster(ctx context.Context, classID string) ([]user.User, error) {
	return svc.repo.ClassStudents(ctx, classID)
}

// MarkAttendance writes every entry of sheet concurrently and reports one outcome per entry, in order.
// Entries are independent: a failed entry does not prevent the others from being written.
func (svc *Service) MarkAttendance(ctx context.Context, cls Class, markedBy string, sheet AttendanceSheet) ([]AttendanceOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := make([]AttendanceOutcome, len(sheet.Records))
	now := time.Now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.batchLimit)
	for i, entry := range sheet.Records {
		i, entry := i, entry
		g.Go(func() error {
			outcomes[i] = svc.markOne(gctx, cls, markedBy, sheet.Date, entry, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

func (svc *Service) markOne(ctx context.Context, cls Class, markedBy, date string, entry AttendanceEntry, now time.Time) AttendanceOutcome {
	out := AttendanceOutcome{StudentID: entry.StudentID}
	fail := func(err error) AttendanceOutcome {
		out.Status = OutcomeFailed
		out.Error = err.Error()
		return out
	}

	enrolled, err := svc.repo.IsEnrolled(ctx, cls.ID, entry.StudentID)
	if err != nil {
		return fail(err)
	}
	if !enrolled {
		return fail(ErrNotEnrolled)
	}

	att, err := svc.repo.UpsertAttendance(ctx, Attendance{
		ClassID:   cls.ID,
		StudentID: entry.StudentID,
		Date:      date,
		Status:    entry.Status,
		MarkedBy:  markedBy,
		MarkedAt:  now,
	})
	if err != nil {
		return fail(err)
	}
	out.AttendanceID = att.ID
	out.Status = OutcomeWritten
	return out
}

func (svc *Service) StudentAttendance(ctx context.Context, studentID string, filter AttendanceFilter) ([]Attendance, error) {
	filter.StudentID = studentID
	return svc.repo.QueryAttendance(ctx, filter)
}

func (svc *Service) ClassAttendance(ctx context.Context, classID string, filter AttendanceFilter) ([]Attendance, error) {
	filter.ClassID = classID
	return svc.repo.QueryAttendance(ctx, filter)
}
