package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// ErrAccountExists is returned by an IdentityProvider when the username or email is already taken.
var ErrAccountExists = errors.New("account already exists")

type (
	NewAccount struct {
		Username string
		Password string
		Name     string
		Surname  string
		Email    string
		Role     core.Role
	}

	// AccountUpdate changes the non-empty fields of an account. ClearEmail removes the email address.
	AccountUpdate struct {
		Username   string
		Password   string
		Name       string
		Surname    string
		Email      string
		ClearEmail bool
	}

	// IdentityProvider manages the external accounts of identity-bearing entities.
	// The id it issues on CreateUser becomes the entity id.
	IdentityProvider interface {
		CreateUser(ctx context.Context, acc NewAccount) (string, error)
		UpdateUser(ctx context.Context, id string, upd AccountUpdate) error
		DeleteUser(ctx context.Context, id string) error
	}
)

func (upd AccountUpdate) IsEmpty() bool {
	return upd == AccountUpdate{}
}

// changedFrom keeps the fields of upd that differ from old. A password is always kept,
// and an email emptied since old becomes ClearEmail.
func (upd AccountUpdate) changedFrom(old AccountUpdate) AccountUpdate {
	if upd.Username == old.Username {
		upd.Username = ""
	}
	if upd.Name == old.Name {
		upd.Name = ""
	}
	if upd.Surname == old.Surname {
		upd.Surname = ""
	}
	if upd.Email == old.Email {
		upd.Email = ""
	} else if upd.Email == "" {
		upd.ClearEmail = true
	}
	return upd
}
