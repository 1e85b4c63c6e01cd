package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/course"
	"github.com/campusrecords/campus/core/mark"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateSubject(ctx context.Context, sub course.Subject) (course.Subject, error) {
	sub.ID = uuid.New().String()
	err := repo.db.write(ctx, func() error {
		s := sub
		repo.db.subjects[sub.ID] = &s
		return nil
	})
	if err != nil {
		return course.Subject{}, err
	}
	return sub, nil
}

func (repo *courseRepository) GetSubject(ctx context.Context, id string) (course.Subject, error) {
	var sub course.Subject
	err := repo.db.read(ctx, func() error {
		s, ok := repo.db.subjects[id]
		if !ok {
			return course.ErrSubjectNotFound
		}
		sub = *s
		return nil
	})
	return sub, err
}

func (repo *courseRepository) QuerySubjects(ctx context.Context, filter course.QueryFilter) ([]course.Subject, error) {
	subjects := make([]course.Subject, 0)
	err := repo.db.read(ctx, func() error {
		for _, s := range repo.db.subjects {
			if matchCourse(filter, s.Department, s.Semester, s.TeacherID, "") {
				subjects = append(subjects, *s)
			}
		}
		return nil
	})
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Semester != subjects[j].Semester {
			return subjects[i].Semester < subjects[j].Semester
		}
		return subjects[i].Code < subjects[j].Code
	})
	return subjects, err
}

func matchCourse(filter course.QueryFilter, department string, semester int, teacherID, subjectID string) bool {
	if filter.Department != "" && !strings.EqualFold(filter.Department, department) {
		return false
	}
	if filter.Semester > 0 && filter.Semester != semester {
		return false
	}
	if filter.TeacherID != "" && filter.TeacherID != teacherID {
		return false
	}
	if filter.SubjectID != "" && filter.SubjectID != subjectID {
		return false
	}
	return true
}

func (repo *courseRepository) UpdateSubject(ctx context.Context, sub course.Subject) (course.Subject, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.subjects[sub.ID]; !ok {
			return course.ErrSubjectNotFound
		}
		s := sub
		repo.db.subjects[sub.ID] = &s
		return nil
	})
	if err != nil {
		return course.Subject{}, err
	}
	return sub, nil
}

func (repo *courseRepository) DeleteSubject(ctx context.Context, id string) error {
	return repo.db.write(ctx, func() error {
		if _, ok := repo.db.subjects[id]; !ok {
			return course.ErrSubjectNotFound
		}
		for labID, lab := range repo.db.labs {
			if lab.SubjectID == id {
				repo.db.deleteMarks(mark.KindLab, labID)
				delete(repo.db.labs, labID)
			}
		}
		repo.db.deleteMarks(mark.KindSubject, id)
		delete(repo.db.subjects, id)
		return nil
	})
}

// withSubject fills the subject name of lab. The lock must be held.
func (repo *courseRepository) withSubject(lab course.Lab) course.Lab {
	if sub, ok := repo.db.subjects[lab.SubjectID]; ok {
		lab.SubjectName = sub.Name
	}
	return lab
}

func (repo *courseRepository) CreateLab(ctx context.Context, lab course.Lab) (course.Lab, error) {
	lab.ID = uuid.New().String()
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.subjects[lab.SubjectID]; !ok {
			return core.NewValidationError(course.ErrSubjectNotFound,
				core.FieldError{Field: "subject_id", Error: course.ErrSubjectNotFound.Error()})
		}
		lab = repo.withSubject(lab)
		l := lab
		repo.db.labs[lab.ID] = &l
		return nil
	})
	if err != nil {
		return course.Lab{}, err
	}
	return lab, nil
}

func (repo *courseRepository) GetLab(ctx context.Context, id string) (course.Lab, error) {
	var lab course.Lab
	err := repo.db.read(ctx, func() error {
		l, ok := repo.db.labs[id]
		if !ok {
			return course.ErrLabNotFound
		}
		lab = repo.withSubject(*l)
		return nil
	})
	return lab, err
}

func (repo *courseRepository) QueryLabs(ctx context.Context, filter course.QueryFilter) ([]course.Lab, error) {
	labs := make([]course.Lab, 0)
	err := repo.db.read(ctx, func() error {
		for _, l := range repo.db.labs {
			if matchCourse(filter, l.Department, l.Semester, l.TeacherID, l.SubjectID) {
				labs = append(labs, repo.withSubject(*l))
			}
		}
		return nil
	})
	sort.Slice(labs, func(i, j int) bool {
		if labs[i].Semester != labs[j].Semester {
			return labs[i].Semester < labs[j].Semester
		}
		return labs[i].Code < labs[j].Code
	})
	return labs, err
}

func (repo *courseRepository) UpdateLab(ctx context.Context, lab course.Lab) (course.Lab, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.labs[lab.ID]; !ok {
			return course.ErrLabNotFound
		}
		if _, ok := repo.db.subjects[lab.SubjectID]; !ok {
			return core.NewValidationError(course.ErrSubjectNotFound,
				core.FieldError{Field: "subject_id", Error: course.ErrSubjectNotFound.Error()})
		}
		lab = repo.withSubject(lab)
		l := lab
		repo.db.labs[lab.ID] = &l
		return nil
	})
	if err != nil {
		return course.Lab{}, err
	}
	return lab, nil
}

func (repo *courseRepository) DeleteLab(ctx context.Context, id string) error {
	return repo.db.write(ctx, func() error {
		if _, ok := repo.db.labs[id]; !ok {
			return course.ErrLabNotFound
		}
		repo.db.deleteMarks(mark.KindLab, id)
		delete(repo.db.labs, id)
		return nil
	})
}
