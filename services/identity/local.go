package identitysvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// LocalProvider keeps Teacher, Student and Parent accounts in the users table.
type LocalProvider struct {
	users user.Service
}

var _ school.IdentityProvider = (*LocalProvider)(nil)

func NewLocalProvider(users user.Service) *LocalProvider {
	return &LocalProvider{users: users}
}

// accountErr maps the user service's uniqueness failures to school.ErrAccountExists.
func accountErr(err error, msg string) error {
	cause := errors.Cause(err)
	if vErr, ok := cause.(*core.ValidationError); ok {
		cause = errors.Cause(vErr.Err)
	}
	switch cause {
	case user.ErrUsernameExists, user.ErrEmailExists, core.ErrUniqueViolation:
		return errors.Wrap(school.ErrAccountExists, msg)
	}
	return errors.Wrap(err, msg)
}

func (p *LocalProvider) CreateUser(ctx context.Context, acc school.NewAccount) (string, error) {
	usr, err := p.users.Create(ctx, user.NewUser{
		Username: core.CleanString(acc.Username, true /* lower */),
		Name:     acc.Name,
		Surname:  acc.Surname,
		Email:    core.CleanString(acc.Email, true /* lower */),
		Role:     acc.Role,
		Password: acc.Password,
	})
	if err != nil {
		return "", accountErr(err, "creating account")
	}
	p.users.SendWelcome(usr)
	return usr.ID, nil
}

func (p *LocalProvider) UpdateUser(ctx context.Context, id string, upd school.AccountUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	_, err := p.users.Update(ctx, id, user.UpdateUser{
		Username: core.CleanString(upd.Username, true /* lower */),
		Name:     upd.Name,
		Surname:  upd.Surname,
		Email:    core.CleanString(upd.Email, true /* lower */),
		Password: upd.Password,

		ClearEmail: upd.ClearEmail,
	})
	if err != nil {
		return accountErr(err, "updating account")
	}
	return nil
}

// DeleteUser removes the account; an account already gone is not an error.
func (p *LocalProvider) DeleteUser(ctx context.Context, id string) error {
	if err := p.users.Delete(ctx, id); err != nil && errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "deleting account")
	}
	return nil
}
