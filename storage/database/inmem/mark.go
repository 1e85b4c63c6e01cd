package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/campusrecords/campus/core/mark"
)

// naturalKey identifies a mark regardless of its ID.
func naturalKey(m mark.Mark) string {
	if m.Kind == mark.KindLab {
		return key(m.StudentID, m.CourseID, itoa(m.Semester))
	}
	return key(m.StudentID, m.CourseID, itoa(m.Semester), m.ExamType)
}

func validKind(kind mark.Kind) bool { return kind == mark.KindSubject || kind == mark.KindLab }

type markRepository struct {
	db *DB
}

var _ mark.Repository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository(db *DB) *markRepository {
	return &markRepository{db: db}
}

// record joins m with its course and student. The lock must be held.
func (repo *markRepository) record(m mark.Mark) mark.Record {
	rec := mark.Record{Mark: m}
	switch m.Kind {
	case mark.KindSubject:
		if sub, ok := repo.db.subjects[m.CourseID]; ok {
			rec.CourseName, rec.CourseCode, rec.Credits = sub.Name, sub.Code, sub.Credits
		}
	case mark.KindLab:
		if lab, ok := repo.db.labs[m.CourseID]; ok {
			rec.CourseName, rec.CourseCode, rec.Credits = lab.Name, lab.Code, lab.Credits
			if sub, ok := repo.db.subjects[lab.SubjectID]; ok {
				rec.SubjectName = sub.Name
			}
		}
	}
	if usr, ok := repo.db.users[m.StudentID]; ok {
		rec.StudentName, rec.StudentEmail = usr.Name, usr.Email
	}
	return rec
}

// courseExists must be called with the lock held.
func (repo *markRepository) courseExists(kind mark.Kind, id string) bool {
	if kind == mark.KindLab {
		_, ok := repo.db.labs[id]
		return ok
	}
	_, ok := repo.db.subjects[id]
	return ok
}

func (repo *markRepository) records(ctx context.Context, kind mark.Kind, semester int, match func(m *mark.Mark) bool) ([]mark.Record, error) {
	if !validKind(kind) {
		return nil, mark.ErrInvalidKind
	}
	recs := make([]mark.Record, 0)
	err := repo.db.read(ctx, func() error {
		for _, m := range repo.db.marks[kind] {
			if (semester <= 0 || m.Semester == semester) && match(m) {
				recs = append(recs, repo.record(*m))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.ExamType < b.ExamType
	})
	return recs, nil
}

func (repo *markRepository) StudentMarks(ctx context.Context, kind mark.Kind, studentID string, semester int) ([]mark.Record, error) {
	return repo.records(ctx, kind, semester, func(m *mark.Mark) bool { return m.StudentID == studentID })
}

func (repo *markRepository) CourseMarks(ctx context.Context, kind mark.Kind, courseID string, semester int) ([]mark.Record, error) {
	return repo.records(ctx, kind, semester, func(m *mark.Mark) bool { return m.CourseID == courseID })
}

func (repo *markRepository) GetMark(ctx context.Context, kind mark.Kind, id string) (mark.Mark, error) {
	var m mark.Mark
	err := repo.db.read(ctx, func() error {
		found, ok := repo.db.marks[kind][id]
		if !ok {
			return mark.ErrNotFound
		}
		m = *found
		return nil
	})
	return m, err
}

func (repo *markRepository) UpdateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	var saved mark.Mark
	err := repo.db.write(ctx, func() error {
		prev, ok := repo.db.marks[m.Kind][m.ID]
		if !ok {
			return mark.ErrNotFound
		}
		// only the score may change
		prev.TeacherID = m.TeacherID
		prev.MarksObtained = m.MarksObtained
		prev.TotalMarks = m.TotalMarks
		prev.Grade = m.Grade
		prev.MarkedAt = m.MarkedAt
		saved = *prev
		return nil
	})
	return saved, err
}

func (repo *markRepository) UpsertMark(ctx context.Context, m mark.Mark) (mark.Mark, bool, error) {
	if !validKind(m.Kind) {
		return mark.Mark{}, false, mark.ErrInvalidKind
	}

	var created bool
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.users[m.StudentID]; !ok || !repo.courseExists(m.Kind, m.CourseID) {
			return mark.ErrUnknownReference
		}

		nk := naturalKey(m)
		if id, ok := repo.db.markKeys[m.Kind][nk]; ok {
			m.ID = id
		} else {
			m.ID = uuid.New().String()
			repo.db.markKeys[m.Kind][nk] = m.ID
			created = true
		}
		saved := m
		repo.db.marks[m.Kind][m.ID] = &saved
		return nil
	})
	if err != nil {
		return mark.Mark{}, false, err
	}
	return m, created, nil
}
