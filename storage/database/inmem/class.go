package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/campusrecords/campus/core/class"
	"github.com/campusrecords/campus/core/user"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

// withCount fills the roster size of cls. The lock must be held.
func (repo *classRepository) withCount(cls class.Class) class.Class {
	cls.StudentCount = len(repo.db.enrollments[cls.ID])
	return cls
}

func sortClasses(classes []class.Class) {
	sort.Slice(classes, func(i, j int) bool {
		if !classes[i].CreatedAt.Equal(classes[j].CreatedAt) {
			return classes[i].CreatedAt.After(classes[j].CreatedAt)
		}
		return classes[i].ID < classes[j].ID
	})
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.New().String()
	err := repo.db.write(ctx, func() error {
		c := cls
		repo.db.classes[cls.ID] = &c
		return nil
	})
	if err != nil {
		return class.Class{}, err
	}
	return cls, nil
}

func (repo *classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	var cls class.Class
	err := repo.db.read(ctx, func() error {
		c, ok := repo.db.classes[id]
		if !ok {
			return class.ErrNotFound
		}
		cls = repo.withCount(*c)
		return nil
	})
	return cls, err
}

func (repo *classRepository) QueryClasses(ctx context.Context, teacherID string) ([]class.Class, error) {
	classes := make([]class.Class, 0)
	err := repo.db.read(ctx, func() error {
		for _, c := range repo.db.classes {
			if teacherID == "" || c.TeacherID == teacherID {
				classes = append(classes, repo.withCount(*c))
			}
		}
		return nil
	})
	sortClasses(classes)
	return classes, err
}

func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	return repo.db.write(ctx, func() error {
		if _, ok := repo.db.classes[id]; !ok {
			return class.ErrNotFound
		}
		for attID, att := range repo.db.attendance {
			if att.ClassID == id {
				delete(repo.db.attendance, attID)
				delete(repo.db.attKeys, key(att.ClassID, att.StudentID, att.Date))
			}
		}
		delete(repo.db.enrollments, id)
		delete(repo.db.classes, id)
		return nil
	})
}

func (repo *classRepository) Enroll(ctx context.Context, classID, studentID string) error {
	return repo.db.write(ctx, func() error {
		if _, ok := repo.db.classes[classID]; !ok {
			return class.ErrNotFound
		}
		roster, ok := repo.db.enrollments[classID]
		if !ok {
			roster = make(map[string]time.Time)
			repo.db.enrollments[classID] = roster
		}
		if _, ok = roster[studentID]; !ok {
			roster[studentID] = time.Now().UTC()
		}
		return nil
	})
}

func (repo *classRepository) Unenroll(ctx context.Context, classID, studentID string) error {
	return repo.db.write(ctx, func() error {
		if _, ok := repo.db.enrollments[classID][studentID]; !ok {
			return class.ErrEnrollmentNotFound
		}
		delete(repo.db.enrollments[classID], studentID)
		return nil
	})
}

func (repo *classRepository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	var enrolled bool
	err := repo.db.read(ctx, func() error {
		_, enrolled = repo.db.enrollments[classID][studentID]
		return nil
	})
	return enrolled, err
}

func (repo *classRepository) ClassStudents(ctx context.Context, classID string) ([]user.User, error) {
	students := make([]user.User, 0)
	err := repo.db.read(ctx, func() error {
		for id := range repo.db.enrollments[classID] {
			if usr, ok := repo.db.users[id]; ok {
				students = append(students, *usr)
			}
		}
		return nil
	})
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, err
}

func (repo *classRepository) StudentClasses(ctx context.Context, studentID string) ([]class.Class, error) {
	classes := make([]class.Class, 0)
	err := repo.db.read(ctx, func() error {
		for classID, roster := range repo.db.enrollments {
			if _, ok := roster[studentID]; !ok {
				continue
			}
			if c, ok := repo.db.classes[classID]; ok {
				classes = append(classes, repo.withCount(*c))
			}
		}
		return nil
	})
	sortClasses(classes)
	return classes, err
}

func (repo *classRepository) UpsertAttendance(ctx context.Context, att class.Attendance) (class.Attendance, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.classes[att.ClassID]; !ok {
			return class.ErrNotFound
		}
		nk := key(att.ClassID, att.StudentID, att.Date)
		if id, ok := repo.db.attKeys[nk]; ok {
			att.ID = id
		} else {
			att.ID = uuid.New().String()
			repo.db.attKeys[nk] = att.ID
		}
		a := att
		repo.db.attendance[att.ID] = &a
		return nil
	})
	if err != nil {
		return class.Attendance{}, err
	}
	return att, nil
}

func (repo *classRepository) QueryAttendance(ctx context.Context, filter class.AttendanceFilter) ([]class.Attendance, error) {
	atts := make([]class.Attendance, 0)
	err := repo.db.read(ctx, func() error {
		for _, a := range repo.db.attendance {
			if filter.ClassID != "" && a.ClassID != filter.ClassID {
				continue
			}
			if filter.StudentID != "" && a.StudentID != filter.StudentID {
				continue
			}
			if filter.Date != "" && a.Date != filter.Date {
				continue
			}
			att := *a
			if c, ok := repo.db.classes[a.ClassID]; ok {
				att.ClassName = c.Name
			}
			atts = append(atts, att)
		}
		return nil
	})
	sort.Slice(atts, func(i, j int) bool {
		if atts[i].Date != atts[j].Date {
			return atts[i].Date > atts[j].Date
		}
		if atts[i].ClassName != atts[j].ClassName {
			return atts[i].ClassName < atts[j].ClassName
		}
		return atts[i].StudentID < atts[j].StudentID
	})
	return atts, err
}
