package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage"
	"github.com/trezcool/shule/tests"
)

func setup(t *testing.T) (*commandLine, storage.Stores, *[]string) {
	stores := storage.OpenInMem()
	var migrations []string

	return &commandLine{
		usrRepo:    stores.Users,
		schoolRepo: stores.School,
		svcs:       testutil.NewServices(t, stores, nil),
		migrate: func(command string, args ...string) error {
			migrations = append(migrations, command)
			return nil
		},
	}, stores, &migrations
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func withPassword(pwd string) func() {
	old := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
	return func() { readPasswordFunc = old }
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, migrations := setup(t)

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: migrate up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: migrate down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			before := len(*migrations)
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
				require.Len(t, *migrations, before+1)
				assert.Equal(t, tt.args[1], (*migrations)[before])
				return
			}
			assert.Len(t, *migrations, before, "a rejected command must not reach the database")
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, stores, _ := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "Boss", "-email", "boss@test.cd"}, extra: extra{pwd: "secret"}},
		{name: "update", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd", "-name", "The Boss"}, extra: extra{pwd: "secret2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}

		t.Run(tt.name, func(t *testing.T) {
			defer withPassword(pwd)()

			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			usr, err := stores.Users.GetUser(ctx, user.GetFilter{Username: "boss"})
			require.NoError(t, err)
			assert.Equal(t, core.RoleAdmin, usr.Role)
			assert.True(t, usr.IsActive)
			assert.Equal(t, "boss@test.cd", usr.Email)
			assert.NoError(t, usr.CheckPassword(pwd))

			admin, err := stores.School.GetAdmin(ctx, usr.ID)
			require.NoError(t, err)
			assert.Equal(t, "boss", admin.Username)

			role, err := cli.svcs.ResolveRole(ctx, usr.ID)
			require.NoError(t, err)
			assert.Equal(t, core.RoleAdmin, role)
		})
	}

	users, err := stores.Users.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1, "adduser must update an existing account")
	assert.Equal(t, "The Boss", users[0].Name)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, stores, _ := setup(t)

	usr := testutil.CreateUser(t, stores.Users, "User", "awe", "awe@test.cd", "mdr", core.RoleTeacher, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}

		t.Run(tt.name, func(t *testing.T) {
			defer withPassword(pwd)()

			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)

			refreshedUsr, err := stores.Users.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "seed"}))

	counts := map[core.EntityKind]int{
		core.EntitySubject:      len(seedSubjects),
		core.EntityTeacher:      15,
		core.EntityParent:       25,
		core.EntityStudent:      50,
		core.EntityClass:        6,
		core.EntityLesson:       60,
		core.EntityExam:         10,
		core.EntityAssignment:   10,
		core.EntityEvent:        5,
		core.EntityAnnouncement: 5,
	}
	for kind, want := range counts {
		res, err := cli.svcs.List(ctx, seedCaller, kind, school.ListQuery{})
		require.NoError(t, err, kind.String())
		assert.Equal(t, want, res.Count, kind.String())
	}

	res, err := cli.svcs.List(ctx, seedCaller, core.EntityResult, school.ListQuery{})
	require.NoError(t, err)
	assert.NotZero(t, res.Count)

	err = cli.run([]string{"admin", "seed"})
	assert.EqualError(t, err, "the database already holds school data")
}
