package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// User is an identity account: what a Teacher, Student, Parent or Admin signs in with.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	Role         core.Role `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) FullName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}

// Caller returns the entity-action caller this account acts as.
func (u User) Caller() core.Caller {
	return core.Caller{ID: u.ID, Username: u.Username, Role: u.Role}
}

// NewUser contains information needed to create a new User.
// ID is optional: identity-bearing entities may pre-allocate it.
type NewUser struct {
	ID              string    `json:"-"`
	Username        string    `json:"username" validate:"required,min=3,max=20,alphanum_"`
	Name            string    `json:"name" validate:"required"`
	Surname         string    `json:"surname"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Role            core.Role `json:"role" validate:"required,role"`
	Password        string    `json:"password" validate:"required"`
	PasswordConfirm string    `json:"password_confirm" validate:"omitempty,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	nu.Surname = core.CleanString(nu.Surname)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Username        string `json:"username" validate:"omitempty,min=3,max=20,alphanum_"`
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"omitempty,eqfield=Password"`

	ClearEmail bool `json:"-"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	uu.Username = orDefault(core.CleanString(uu.Username, true /* lower */), origUsr.Username)
	uu.Name = orDefault(core.CleanString(uu.Name), origUsr.Name)
	uu.Surname = orDefault(core.CleanString(uu.Surname), origUsr.Surname)
	if !uu.ClearEmail {
		uu.Email = orDefault(core.CleanString(uu.Email, true /* lower */), origUsr.Email)
	}
	return validate.Struct(uu)
}

func orDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects a single User. The first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}

type QueryFilter struct {
	Search   string      `query:"search"`
	Roles    []core.Role `query:"role"`
	IsActive *bool       `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
