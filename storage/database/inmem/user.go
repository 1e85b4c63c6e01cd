package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// emailTaken must be called with the lock held.
func (repo *userRepository) emailTaken(email, excludedID string) bool {
	for _, usr := range repo.db.users {
		if usr.Email == email && usr.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *userRepository) EmailExists(ctx context.Context, email, excludedID string) (bool, error) {
	var exists bool
	err := repo.db.read(ctx, func() error {
		exists = repo.emailTaken(email, excludedID)
		return nil
	})
	return exists, err
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(ctx, func() error {
		if repo.emailTaken(usr.Email, "") {
			return core.NewValidationError(user.ErrEmailExists, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
		}
		usr.ID = uuid.New().String()
		u := usr
		repo.db.users[usr.ID] = &u
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var usr user.User
	err := repo.db.read(ctx, func() error {
		if filter.ID != "" {
			if u, ok := repo.db.users[filter.ID]; ok {
				usr = *u
				return nil
			}
			return user.ErrNotFound
		}
		if filter.Email != "" {
			for _, u := range repo.db.users {
				if u.Email == filter.Email {
					usr = *u
					return nil
				}
			}
		}
		return user.ErrNotFound
	})
	return usr, err
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), s) && !strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if filter.Role != "" && usr.Role != filter.Role {
		return false
	}
	if filter.Department != "" && !strings.EqualFold(usr.Department, filter.Department) {
		return false
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	users := make([]user.User, 0)
	err := repo.db.read(ctx, func() error {
		for _, u := range repo.db.users {
			if matchUser(*u, filter) {
				users = append(users, *u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := userField(users[i], ord.Field), userField(users[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// userField returns a sortable representation of a User field.
func userField(usr user.User, field string) string {
	switch field {
	case "email":
		return usr.Email
	case "department":
		return strings.ToLower(usr.Department)
	case "created_at":
		return usr.CreatedAt.Format("2006-01-02T15:04:05.000000000")
	case "last_login":
		return usr.LastLogin.Format("2006-01-02T15:04:05.000000000")
	default:
		return strings.ToLower(usr.Name)
	}
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.users[usr.ID]; !ok {
			return user.ErrNotFound
		}
		if repo.emailTaken(usr.Email, usr.ID) {
			return core.NewValidationError(user.ErrEmailExists, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
		}
		u := usr
		repo.db.users[usr.ID] = &u
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}
