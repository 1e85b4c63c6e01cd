package mark_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campusrecords/campus/core/course"
	"github.com/campusrecords/campus/core/grading"
	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/user"
	inmemdb "github.com/campusrecords/campus/storage/database/inmem"
)

type fixture struct {
	svc      *mark.Service
	repo     mark.Repository
	recorder *countingRecorder
	teacher  user.User
	student  user.User
	subject  course.Subject
	lab      course.Lab
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) MarkWritten(kind mark.Kind, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[string(kind)+":"+status]++
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)

	teacher, err := usrRepo.CreateUser(ctx, user.User{Name: "Grace Hopper", Email: "grace@test.cd", Role: user.RoleTeacher, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	student, err := usrRepo.CreateUser(ctx, user.User{Name: "Ada Lovelace", Email: "ada@test.cd", Role: user.RoleStudent, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	sub, err := crsRepo.CreateSubject(ctx, course.Subject{Name: "Data Structures", Code: "CS301", Semester: 3, Credits: 3, TeacherID: teacher.ID})
	if err != nil {
		t.Fatal(err)
	}
	lab, err := crsRepo.CreateLab(ctx, course.Lab{Name: "Data Structures Lab", Code: "CS301L", SubjectID: sub.ID, Semester: 3, Credits: 1, TeacherID: teacher.ID})
	if err != nil {
		t.Fatal(err)
	}

	rec := &countingRecorder{counts: make(map[string]int)}
	repo := inmemdb.NewMarkRepository(db)
	return fixture{
		svc:      mark.NewService(repo, 4, rec),
		repo:     repo,
		recorder: rec,
		teacher:  teacher,
		student:  student,
		subject:  sub,
		lab:      lab,
	}
}

func TestService_Upsert(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	subjectMark := func(obtained, total float64) mark.Mark {
		return mark.Mark{Kind: mark.KindSubject, StudentID: f.student.ID, CourseID: f.subject.ID, TeacherID: f.teacher.ID,
			Semester: 3, MarksObtained: obtained, TotalMarks: total}
	}

	tests := []struct {
		name       string
		mark       mark.Mark
		wantStatus string
		wantErr    error
		wantGrade  grading.Grade
	}{
		{name: "zero is not graded", mark: subjectMark(0, 100), wantStatus: mark.OutcomeSkipped},
		{name: "negative is not graded", mark: subjectMark(-3, 100), wantStatus: mark.OutcomeSkipped},
		{name: "above total", mark: subjectMark(120, 100), wantStatus: mark.OutcomeFailed, wantErr: mark.ErrAboveTotal},
		{name: "negative total", mark: subjectMark(12, -1), wantStatus: mark.OutcomeFailed, wantErr: mark.ErrInvalidTotal},
		{name: "invalid kind", mark: mark.Mark{Kind: "exam", MarksObtained: 5}, wantStatus: mark.OutcomeFailed, wantErr: mark.ErrInvalidKind},
		{
			name:       "unknown student",
			mark:       mark.Mark{Kind: mark.KindSubject, StudentID: "nobody", CourseID: f.subject.ID, Semester: 3, MarksObtained: 50},
			wantStatus: mark.OutcomeFailed,
			wantErr:    mark.ErrUnknownReference,
		},
		{name: "created", mark: subjectMark(78, 100), wantStatus: mark.OutcomeCreated, wantGrade: grading.BPlus},
		{name: "same natural key", mark: subjectMark(85, 0), wantStatus: mark.OutcomeUpdated, wantGrade: grading.A},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, status, err := f.svc.Upsert(ctx, tt.mark)
			if status != tt.wantStatus {
				t.Errorf("Upsert() status = %v, want %v", status, tt.wantStatus)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Upsert() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			if tt.wantGrade != "" && got.Grade != tt.wantGrade {
				t.Errorf("Upsert() grade = %v, want %v", got.Grade, tt.wantGrade)
			}
		})
	}

	// the resubmission above overwrote the first mark instead of duplicating it
	recs, err := f.svc.StudentSubjectMarks(ctx, f.student.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("StudentSubjectMarks() returned %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.MarksObtained != 85 || rec.TotalMarks != mark.DefaultTotalMarks || rec.ExamType != mark.ExamFinal {
		t.Errorf("StudentSubjectMarks() = %+v", rec.Mark)
	}
	if rec.CourseName != f.subject.Name || rec.CourseCode != f.subject.Code || rec.Credits != 3 || rec.StudentName != f.student.Name {
		t.Errorf("StudentSubjectMarks() record not joined: %+v", rec)
	}
}

func TestService_Upsert_byID(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	m := mark.Mark{Kind: mark.KindLab, StudentID: f.student.ID, CourseID: f.lab.ID, Semester: 3,
		MarksObtained: 30, TotalMarks: 50, ExamType: mark.ExamQuiz}
	saved, status, err := f.svc.Upsert(ctx, m)
	if err != nil || status != mark.OutcomeCreated {
		t.Fatalf("Upsert() = %v, %v", status, err)
	}
	if saved.ExamType != "" {
		t.Errorf("lab mark exam type = %q, want none", saved.ExamType)
	}

	saved.MarksObtained = 45
	updated, status, err := f.svc.Upsert(ctx, saved)
	if err != nil || status != mark.OutcomeUpdated {
		t.Fatalf("Upsert() = %v, %v", status, err)
	}
	if updated.ID != saved.ID || updated.Grade != grading.APlus {
		t.Errorf("Upsert() = %+v", updated)
	}

	moved := updated
	moved.Semester = 4
	if _, status, err = f.svc.Upsert(ctx, moved); err != mark.ErrNaturalKeyChange || status != mark.OutcomeFailed {
		t.Errorf("Upsert() = %v, %v; want failed, %v", status, err, mark.ErrNaturalKeyChange)
	}

	gone := updated
	gone.ID = "missing"
	if _, _, err = f.svc.Upsert(ctx, gone); err != mark.ErrNotFound {
		t.Errorf("Upsert() error = %v, want %v", err, mark.ErrNotFound)
	}
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	sub := mark.Submission{
		Kind:     mark.KindSubject,
		CourseID: f.subject.ID,
		Semester: 3,
		ExamType: mark.ExamMidterm,
		Rows: []mark.Entry{
			{StudentID: f.student.ID, MarksObtained: 78, TotalMarks: 100},
			{StudentID: "ghost", MarksObtained: 50, TotalMarks: 100},
			{StudentID: f.student.ID, MarksObtained: 0},
			{StudentID: f.student.ID, MarksObtained: 101, TotalMarks: 100},
		},
	}
	outcomes, err := f.svc.Submit(ctx, f.teacher.ID, sub)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	wantStatuses := []string{mark.OutcomeCreated, mark.OutcomeFailed, mark.OutcomeSkipped, mark.OutcomeFailed}
	if len(outcomes) != len(wantStatuses) {
		t.Fatalf("Submit() returned %d outcomes, want %d", len(outcomes), len(wantStatuses))
	}
	for i, want := range wantStatuses {
		if outcomes[i].Status != want {
			t.Errorf("outcome[%d] = %+v, want status %v", i, outcomes[i], want)
		}
		if outcomes[i].StudentID != sub.Rows[i].StudentID {
			t.Errorf("outcome[%d] student = %v, want %v", i, outcomes[i].StudentID, sub.Rows[i].StudentID)
		}
	}
	if outcomes[0].MarkID == "" || outcomes[0].Grade != grading.BPlus {
		t.Errorf("outcome[0] = %+v", outcomes[0])
	}
	if outcomes[1].Error == "" || !outcomes[1].Failed() {
		t.Errorf("outcome[1] = %+v", outcomes[1])
	}
	assert.Equal(t, map[string]int{"created": 1, "failed": 2, "skipped": 1}, mark.Summarize(outcomes))
	assert.Equal(t, 2, f.recorder.counts["subject:failed"])

	// resubmitting only the failed rows does not duplicate the written ones
	sub.Rows = []mark.Entry{{StudentID: f.student.ID, MarksObtained: 80, TotalMarks: 100}}
	if outcomes, err = f.svc.Submit(ctx, f.teacher.ID, sub); err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != mark.OutcomeUpdated {
		t.Errorf("resubmitted outcome = %+v, want updated", outcomes[0])
	}
	entered, err := f.svc.EnteredMarks(ctx, mark.KindSubject, f.subject.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entered) != 1 || entered[0].StudentEmail != f.student.Email {
		t.Errorf("EnteredMarks() = %+v", entered)
	}
}

func TestService_Submit_cancelled(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	sub := mark.Submission{Kind: mark.KindLab, CourseID: f.lab.ID, Semester: 3,
		Rows: []mark.Entry{{StudentID: f.student.ID, MarksObtained: 40, TotalMarks: 50}}}
	if _, err := f.svc.Submit(ctx, f.teacher.ID, sub); err == nil {
		t.Error("Submit() on a cancelled context should fail")
	}
}

// cancellingRepo cancels the session once the first mark is written.
type cancellingRepo struct {
	mark.Repository
	cancel context.CancelFunc
}

func (r cancellingRepo) UpsertMark(ctx context.Context, m mark.Mark) (mark.Mark, bool, error) {
	defer r.cancel()
	return r.Repository.UpsertMark(ctx, m)
}

func TestService_Submit_cancelledMidway(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := mark.NewService(cancellingRepo{Repository: f.repo, cancel: cancel}, 1, nil)

	sub := mark.Submission{Kind: mark.KindSubject, CourseID: f.subject.ID, Semester: 3, Rows: []mark.Entry{
		{StudentID: f.student.ID, MarksObtained: 70, TotalMarks: 100},
		{StudentID: f.student.ID, MarksObtained: 75, TotalMarks: 100},
	}}
	outcomes, err := svc.Submit(ctx, f.teacher.ID, sub)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want %v", err, context.Canceled)
	}
	if len(outcomes) != len(sub.Rows) {
		t.Fatalf("Submit() returned %d outcomes, want %d", len(outcomes), len(sub.Rows))
	}
	if outcomes[0].Status != mark.OutcomeCreated {
		t.Errorf("first outcome = %+v, want created", outcomes[0])
	}
}

func TestService_EnteredMarks_invalidKind(t *testing.T) {
	f := setup(t)
	if _, err := f.svc.EnteredMarks(context.Background(), "exam", f.subject.ID, 0); err == nil {
		t.Error("EnteredMarks() with an invalid kind should fail")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]mark.Kind{"subject": mark.KindSubject, " LAB ": mark.KindLab} {
		if got, err := mark.ParseKind(in); err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := mark.ParseKind("exam"); err == nil {
		t.Error("ParseKind(exam) should fail")
	}
}
