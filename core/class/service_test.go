package class_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/class"
	"github.com/campusrecords/campus/core/user"
	inmemdb "github.com/campusrecords/campus/storage/database/inmem"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	svc := class.NewService(inmemdb.NewClassRepository(db), usrRepo, 3)

	newUser := func(name, email, role string, active bool) user.User {
		usr, err := usrRepo.CreateUser(ctx, user.User{Name: name, Email: email, Role: role, IsActive: active})
		if err != nil {
			t.Fatal(err)
		}
		return usr
	}
	teacher := newUser("Grace", "grace@test.cd", user.RoleTeacher, true)
	other := newUser("Alan", "alan@test.cd", user.RoleTeacher, true)
	ada := newUser("Ada", "ada@test.cd", user.RoleStudent, true)
	bob := newUser("Bob", "bob@test.cd", user.RoleStudent, true)
	gone := newUser("Gone", "gone@test.cd", user.RoleStudent, false)

	cls, err := svc.Create(ctx, teacher.ID, class.NewClass{Name: "CS 3A", Semester: 3})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("enroll", func(t *testing.T) {
		tests := []struct {
			name      string
			studentID string
			wantErr   error
		}{
			{name: "student", studentID: ada.ID},
			{name: "second student", studentID: bob.ID},
			{name: "twice", studentID: ada.ID, wantErr: class.ErrAlreadyEnrolled},
			{name: "teacher", studentID: other.ID, wantErr: class.ErrNotAStudent},
			{name: "inactive", studentID: gone.ID, wantErr: class.ErrNotAStudent},
			{name: "unknown", studentID: "nobody", wantErr: class.ErrNotAStudent},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := svc.Enroll(ctx, cls, tt.studentID)
				if tt.wantErr == nil {
					assert.NoError(t, err)
					return
				}
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				if !ok || vErr.Err != tt.wantErr {
					t.Errorf("Enroll() error = %v, want %v", err, tt.wantErr)
				}
			})
		}

		roster, err := svc.Roster(ctx, cls.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(roster) != 2 || roster[0].ID != ada.ID || roster[1].ID != bob.ID {
			t.Errorf("Roster() = %+v", roster)
		}
		if got, _ := svc.Get(ctx, cls.ID); got.StudentCount != 2 {
			t.Errorf("Get() student count = %d, want 2", got.StudentCount)
		}
	})

	t.Run("attendance", func(t *testing.T) {
		sheet := class.AttendanceSheet{
			Date: "2024-03-11",
			Records: []class.AttendanceEntry{
				{StudentID: ada.ID, Status: class.StatusPresent},
				{StudentID: gone.ID, Status: class.StatusPresent},
				{StudentID: bob.ID, Status: class.StatusAbsent},
			},
		}
		outcomes, err := svc.MarkAttendance(ctx, cls, teacher.ID, sheet)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{class.OutcomeWritten, class.OutcomeFailed, class.OutcomeWritten}
		for i, status := range want {
			if outcomes[i].Status != status || outcomes[i].StudentID != sheet.Records[i].StudentID {
				t.Errorf("outcome[%d] = %+v, want %v", i, outcomes[i], status)
			}
		}
		assert.Equal(t, class.ErrNotEnrolled.Error(), outcomes[1].Error)

		// marking the same day again replaces the status
		sheet.Records = []class.AttendanceEntry{{StudentID: bob.ID, Status: class.StatusLate}}
		again, err := svc.MarkAttendance(ctx, cls, teacher.ID, sheet)
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, outcomes[2].AttendanceID, again[0].AttendanceID)

		atts, err := svc.ClassAttendance(ctx, cls.ID, class.AttendanceFilter{Date: "2024-03-11"})
		if err != nil {
			t.Fatal(err)
		}
		if len(atts) != 2 {
			t.Fatalf("ClassAttendance() returned %d rows, want 2", len(atts))
		}
		mine, err := svc.StudentAttendance(ctx, bob.ID, class.AttendanceFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(mine) != 1 || mine[0].Status != class.StatusLate || mine[0].ClassName != cls.Name {
			t.Errorf("StudentAttendance() = %+v", mine)
		}
	})

	t.Run("unenroll", func(t *testing.T) {
		assert.NoError(t, svc.Unenroll(ctx, cls, bob.ID))
		if err := svc.Unenroll(ctx, cls, bob.ID); err != class.ErrEnrollmentNotFound {
			t.Errorf("Unenroll() error = %v, want %v", err, class.ErrEnrollmentNotFound)
		}
		classes, err := svc.QueryForStudent(ctx, bob.ID)
		if err != nil {
			t.Fatal(err)
		}
		assert.Empty(t, classes)
	})

	t.Run("delete", func(t *testing.T) {
		if err := svc.Delete(ctx, other.ID, cls.ID); err != class.ErrNotClassTeacher {
			t.Errorf("Delete() by another teacher error = %v, want %v", err, class.ErrNotClassTeacher)
		}
		assert.NoError(t, svc.Delete(ctx, teacher.ID, cls.ID))
		if _, err := svc.Get(ctx, cls.ID); err != class.ErrNotFound {
			t.Errorf("Get() error = %v, want %v", err, class.ErrNotFound)
		}
		atts, err := svc.StudentAttendance(ctx, ada.ID, class.AttendanceFilter{})
		if err != nil {
			t.Fatal(err)
		}
		assert.Empty(t, atts, "attendance should be deleted with its class")
		classes, err := svc.QueryForTeacher(ctx, teacher.ID)
		if err != nil {
			t.Fatal(err)
		}
		assert.Empty(t, classes)
	})
}
