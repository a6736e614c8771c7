package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs []string, exec ...core.DBExecutor) error {
	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	return repo.db.read(ctx, func(t *tables) error {
		return checkUserUniqueness(t, username, email, excluded)
	})
}

func checkUserUniqueness(t *tables, username, email string, excluded map[string]bool) error {
	for _, usr := range t.users {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if usr.ID == "" {
			usr.ID = uuid.New().String()
		}
		if _, ok := t.users[usr.ID]; ok {
			return core.ErrUniqueViolation
		}
		if err := checkUserUniqueness(t, usr.Username, usr.Email, nil); err != nil {
			return core.ErrUniqueViolation
		}
		t.users[usr.ID] = usr
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var found user.User
	err := repo.db.read(ctx, func(t *tables) error {
		if filter.ID != "" {
			usr, ok := t.users[filter.ID]
			if !ok {
				return user.ErrNotFound
			}
			found = usr
			return nil
		}
		for _, usr := range t.users {
			switch {
			case filter.Username != "" && usr.Username == filter.Username,
				filter.Email != "" && usr.Email == filter.Email,
				filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
				found = usr
				return nil
			}
		}
		return user.ErrNotFound
	})
	return found, err
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var users []user.User
	err := repo.db.read(ctx, func(t *tables) error {
		users = make([]user.User, 0, len(t.users))
		for _, usr := range t.users {
			if filter == nil || matchesUser(usr, filter) {
				users = append(users, usr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// newest first unless ordered by username
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	for _, ord := range ordering {
		if ord.Field == "username" {
			asc := ord.Ascending
			sort.SliceStable(users, func(i, j int) bool {
				if asc {
					return users[i].Username < users[j].Username
				}
				return users[i].Username > users[j].Username
			})
		}
	}
	return users, nil
}

func matchesUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" && !containsFold(filter.Search, usr.Username, usr.Name, usr.Surname, usr.Email) {
		return false
	}
	if len(filter.Roles) > 0 {
		hasRole := false
		for _, role := range filter.Roles {
			if usr.Role == role {
				hasRole = true
				break
			}
		}
		if !hasRole {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.users[usr.ID]; !ok {
			return user.ErrNotFound
		}
		if err := checkUserUniqueness(t, usr.Username, usr.Email, map[string]bool{usr.ID: true}); err != nil {
			return core.ErrUniqueViolation
		}
		t.users[usr.ID] = usr
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.users[id]; !ok {
			return user.ErrNotFound
		}
		delete(t.users, id)
		return nil
	})
}

// containsFold reports whether any of vals contains term, ignoring case.
func containsFold(term string, vals ...string) bool {
	term = strings.ToLower(term)
	for _, v := range vals {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
