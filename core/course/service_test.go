package course_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/course"
	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/user"
	inmemdb "github.com/campusrecords/campus/storage/database/inmem"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func TestNewSubject_Validate(t *testing.T) {
	validate := newValidator()
	tests := []struct {
		name    string
		ns      course.NewSubject
		wantErr bool
	}{
		{name: "valid", ns: course.NewSubject{Name: " Algorithms ", Code: "CS-201", Department: "CS", Semester: 2, Credits: 4}},
		{name: "bad code", ns: course.NewSubject{Name: "Algorithms", Code: "CS 201", Department: "CS", Semester: 2, Credits: 4}, wantErr: true},
		{name: "semester too high", ns: course.NewSubject{Name: "Algorithms", Code: "CS201", Department: "CS", Semester: 9, Credits: 4}, wantErr: true},
		{name: "no credits", ns: course.NewSubject{Name: "Algorithms", Code: "CS201", Department: "CS", Semester: 2}, wantErr: true},
		{name: "no name", ns: course.NewSubject{Code: "CS201", Department: "CS", Semester: 2, Credits: 2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ns.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	svc := course.NewService(inmemdb.NewCourseRepository(db))
	markRepo := inmemdb.NewMarkRepository(db)

	teacher, err := inmemdb.NewUserRepository(db).CreateUser(ctx, user.User{Name: "Grace", Email: "grace@test.cd", Role: user.RoleTeacher, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	student, err := inmemdb.NewUserRepository(db).CreateUser(ctx, user.User{Name: "Ada", Email: "ada@test.cd", Role: user.RoleStudent, IsActive: true})
	if err != nil {
		t.Fatal(err)
	}

	sub, err := svc.CreateSubject(ctx, teacher.ID, course.NewSubject{Name: "Networks", Code: "CS401", Department: "CS", Semester: 4, Credits: 3})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.CreateLab(ctx, teacher.ID, course.NewLab{Name: "Networks Lab", Code: "CS401L", SubjectID: "missing", Department: "CS", Semester: 4, Credits: 1})
	if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
		t.Errorf("CreateLab() with an unknown subject error = %v, want a validation error", err)
	}

	lab, err := svc.CreateLab(ctx, teacher.ID, course.NewLab{Name: "Networks Lab", Code: "CS401L", SubjectID: sub.ID, Department: "CS", Semester: 4, Credits: 1})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, sub.Name, lab.SubjectName)

	labs, err := svc.QueryLabs(ctx, course.QueryFilter{SubjectID: sub.ID, Department: "cs"})
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, labs, 1)

	updated, err := svc.UpdateSubject(ctx, sub, course.NewSubject{Name: "Computer Networks", Code: "CS401", Department: "CS", Semester: 4, Credits: 4})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 4, updated.Credits)

	if _, _, err = markRepo.UpsertMark(ctx, mark.Mark{Kind: mark.KindLab, StudentID: student.ID, CourseID: lab.ID, Semester: 4,
		MarksObtained: 40, TotalMarks: 50, Grade: "A"}); err != nil {
		t.Fatal(err)
	}

	// deleting the subject deletes its labs and their marks
	assert.NoError(t, svc.DeleteSubject(ctx, sub.ID))
	if _, err = svc.GetLab(ctx, lab.ID); err != course.ErrLabNotFound {
		t.Errorf("GetLab() error = %v, want %v", err, course.ErrLabNotFound)
	}
	recs, err := markRepo.StudentMarks(ctx, mark.KindLab, student.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	assert.Empty(t, recs)
	if err = svc.DeleteSubject(ctx, sub.ID); err != course.ErrSubjectNotFound {
		t.Errorf("DeleteSubject() error = %v, want %v", err, course.ErrSubjectNotFound)
	}
}
