// Package inmemdb implements the core repositories in memory. Used by tests and ENV=TEST.
//
// Foreign keys and cascading deletes of the PostgreSQL schema are emulated:
// deleting a subject deletes its labs and their marks, deleting a class deletes its roster and attendance.
package inmemdb

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/campusrecords/campus/core/class"
	"github.com/campusrecords/campus/core/course"
	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/result"
	"github.com/campusrecords/campus/core/user"
)

type DB struct {
	mu sync.RWMutex

	users    map[string]*user.User
	subjects map[string]*course.Subject
	labs     map[string]*course.Lab

	marks    map[mark.Kind]map[string]*mark.Mark
	markKeys map[mark.Kind]map[string]string // natural key -> mark ID

	results map[string]result.StudentResult // studentID|semester

	classes     map[string]*class.Class
	enrollments map[string]map[string]time.Time // classID -> studentID -> enrolled at
	attendance  map[string]*class.Attendance
	attKeys     map[string]string // classID|studentID|date -> attendance ID
}

func Open() *DB {
	return &DB{
		users:    make(map[string]*user.User),
		subjects: make(map[string]*course.Subject),
		labs:     make(map[string]*course.Lab),
		marks: map[mark.Kind]map[string]*mark.Mark{
			mark.KindSubject: make(map[string]*mark.Mark),
			mark.KindLab:     make(map[string]*mark.Mark),
		},
		markKeys: map[mark.Kind]map[string]string{
			mark.KindSubject: make(map[string]string),
			mark.KindLab:     make(map[string]string),
		},
		results:     make(map[string]result.StudentResult),
		classes:     make(map[string]*class.Class),
		enrollments: make(map[string]map[string]time.Time),
		attendance:  make(map[string]*class.Attendance),
		attKeys:     make(map[string]string),
	}
}

// Reset drops every row. Used between tests.
func (db *DB) Reset() {
	fresh := Open()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = fresh.users
	db.subjects = fresh.subjects
	db.labs = fresh.labs
	db.marks = fresh.marks
	db.markKeys = fresh.markKeys
	db.results = fresh.results
	db.classes = fresh.classes
	db.enrollments = fresh.enrollments
	db.attendance = fresh.attendance
	db.attKeys = fresh.attKeys
}

// read runs fn under the read lock unless ctx is done.
func (db *DB) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn()
}

// write runs fn under the write lock unless ctx is done.
func (db *DB) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

func key(parts ...string) string { return strings.Join(parts, "|") }

func itoa(i int) string { return strconv.Itoa(i) }

// deleteMarks drops the marks of kind recorded against courseID. The lock must be held.
func (db *DB) deleteMarks(kind mark.Kind, courseID string) {
	for id, m := range db.marks[kind] {
		if m.CourseID == courseID {
			delete(db.marks[kind], id)
			delete(db.markKeys[kind], naturalKey(*m))
		}
	}
}
