package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string      `db:"id"`
	Username     string      `db:"username"`
	Name         string      `db:"name"`
	Surname      null.String `db:"surname"`
	Email        null.String `db:"email"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

const userCols = "id, username, name, surname, email, role, is_active, password_hash, created_at, updated_at, last_login"

var userOrdering = map[string]string{"username": "username", "name": "name", "created_at": "created_at", "last_login": "last_login"}

func toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Name:         usr.Name,
		Surname:      nullString(usr.Surname),
		Email:        nullString(usr.Email),
		Role:         string(usr.Role),
		IsActive:     usr.IsActive,
		PasswordHash: null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Name:         r.Name,
		Surname:      r.Surname.String,
		Email:        r.Email.String,
		Role:         core.Role(r.Role),
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

// trapNotFound maps a missing row to user.ErrNotFound
func trapNotFound(err error, msg string) error {
	if errors.Cause(err) == core.ErrNotFound {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs []string, exec ...core.DBExecutor) error {
	excluded := append([]string{}, excludedIDs...) // a nil array binds as NULL
	check := func(col, val string, errExists error) error {
		if val == "" {
			return nil
		}
		var exists bool
		query := "SELECT EXISTS (SELECT 1 FROM users WHERE " + col + " = ? AND NOT (id = ANY(?)))"
		if err := get(ctx, getExec(repo.db, exec), &exists, query, val, pq.Array(excluded)); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return errExists
		}
		return nil
	}
	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	r := toRow(usr)
	_, err := run(ctx, getExec(repo.db, exec),
		"INSERT INTO users ("+userCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Username, r.Name, r.Surname, r.Email, r.Role, r.IsActive, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := get(ctx, getExec(repo.db, exec), &row, "SELECT "+userCols+" FROM users"+w.String()+" LIMIT 1", w.args...); err != nil {
		return user.User{}, trapNotFound(err, "finding user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter != nil {
		w.search(filter.Search, "username", "name", "surname", "email")
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roles = append(roles, string(role))
			}
			w.add("role = ANY(?)", pq.Array(roles))
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	query := "SELECT " + userCols + " FROM users" + w.String() +
		" ORDER BY " + core.OrderClause(ordering, userOrdering, "created_at DESC")
	var rows []userRow
	if err := selectRows(ctx, getExec(repo.db, exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	r := toRow(usr)
	err := runOne(ctx, getExec(repo.db, exec),
		"UPDATE users SET username = ?, name = ?, surname = ?, email = ?, role = ?, is_active = ?, password_hash = ?, "+
			"updated_at = ?, last_login = ? WHERE id = ?",
		r.Username, r.Name, r.Surname, r.Email, r.Role, r.IsActive, r.PasswordHash, r.UpdatedAt, r.LastLogin, r.ID)
	if err != nil {
		return user.User{}, trapNotFound(err, "updating user")
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return trapNotFound(runOne(ctx, getExec(repo.db, exec), "DELETE FROM users WHERE id = ?", id), "deleting user")
}
