package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// addUser updates or creates an admin account along with its admins row.
func (cli *commandLine) addUser(uname, email, name, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if name = core.CleanString(name); name == "" {
		name = uname
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	creating := errors.Cause(err) == user.ErrNotFound
	if err != nil && !creating {
		return err
	}
	if creating {
		usr = user.User{Username: uname, CreatedAt: now}
	}
	usr.Name = name
	usr.Email = email
	usr.Role = core.RoleAdmin
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if creating {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return err
	}

	if _, err = cli.schoolRepo.GetAdmin(ctx, usr.ID); errors.Cause(err) == core.ErrNotFound {
		_, err = cli.schoolRepo.CreateAdmin(ctx, school.Admin{ID: usr.ID, Username: usr.Username})
	}
	return err
}
