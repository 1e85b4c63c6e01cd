package inmemdb

import (
	"context"
	"sort"

	"github.com/campusrecords/campus/core/result"
)

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) *resultRepository {
	return &resultRepository{db: db}
}

func (repo *resultRepository) SaveResult(ctx context.Context, res result.StudentResult) error {
	return repo.db.write(ctx, func() error {
		repo.db.results[key(res.StudentID, itoa(res.Semester))] = res
		return nil
	})
}

func (repo *resultRepository) DeleteResult(ctx context.Context, studentID string, semester int) error {
	return repo.db.write(ctx, func() error {
		delete(repo.db.results, key(studentID, itoa(semester)))
		return nil
	})
}

func (repo *resultRepository) GetResult(ctx context.Context, studentID string, semester int) (result.StudentResult, error) {
	var res result.StudentResult
	err := repo.db.read(ctx, func() error {
		r, ok := repo.db.results[key(studentID, itoa(semester))]
		if !ok {
			return result.ErrNotFound
		}
		res = r
		return nil
	})
	return res, err
}

func (repo *resultRepository) QueryResults(ctx context.Context, studentID string) ([]result.StudentResult, error) {
	results := make([]result.StudentResult, 0)
	err := repo.db.read(ctx, func() error {
		for _, r := range repo.db.results {
			if r.StudentID == studentID {
				results = append(results, r)
			}
		}
		return nil
	})
	sort.Slice(results, func(i, j int) bool { return results[i].Semester < results[j].Semester })
	return results, err
}
