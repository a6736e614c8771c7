package identitysvc_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	identitysvc "github.com/trezcool/shule/services/identity"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

func setupLocal(t *testing.T) (*identitysvc.LocalProvider, user.Service, *emailsvc.Outbox) {
	t.Helper()
	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger(conf))
	usrSvc := user.NewService(inmemdb.NewUserRepository(inmemdb.Open()), mailSvc, conf)
	return identitysvc.NewLocalProvider(usrSvc), usrSvc, mailSvc.Outbox()
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	idp, usrSvc, outbox := setupLocal(t)

	id, err := idp.CreateUser(ctx, school.NewAccount{
		Username: " Jdoe ",
		Password: "password123",
		Name:     "John",
		Surname:  "Doe",
		Email:    "JDoe@School.cd",
		Role:     core.RoleTeacher,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	usr, err := usrSvc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", usr.Username)
	assert.Equal(t, "jdoe@school.cd", usr.Email)
	assert.Equal(t, core.RoleTeacher, usr.Role)
	assert.NoError(t, usr.CheckPassword("password123"))
	if assert.Len(t, outbox.Messages(), 1, "welcome email") {
		assert.Equal(t, "Welcome", outbox.Messages()[0].Subject)
	}

	t.Run("taken identifiers", func(t *testing.T) {
		_, err := idp.CreateUser(ctx, school.NewAccount{Username: "jdoe", Password: "password123", Name: "J", Role: core.RoleParent})
		assert.Equal(t, school.ErrAccountExists, errors.Cause(err))

		_, err = idp.CreateUser(ctx, school.NewAccount{Username: "other", Password: "password123", Name: "O", Email: "jdoe@school.cd", Role: core.RoleParent})
		assert.Equal(t, school.ErrAccountExists, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, idp.UpdateUser(ctx, id, school.AccountUpdate{}), "empty updates are no-ops")
		require.NoError(t, idp.UpdateUser(ctx, id, school.AccountUpdate{Name: "Johnny", Password: "newpassword1"}))

		usr, err := usrSvc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Johnny", usr.Name)
		assert.Equal(t, "jdoe", usr.Username)
		assert.NoError(t, usr.CheckPassword("newpassword1"))

		err = idp.UpdateUser(ctx, "missing", school.AccountUpdate{Name: "X"})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("email changed then cleared", func(t *testing.T) {
		require.NoError(t, idp.UpdateUser(ctx, id, school.AccountUpdate{Email: "John@School.cd"}))
		usr, err := usrSvc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "john@school.cd", usr.Email)

		require.NoError(t, idp.UpdateUser(ctx, id, school.AccountUpdate{ClearEmail: true}))
		usr, err = usrSvc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, usr.Email)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, idp.DeleteUser(ctx, id))
		_, err := usrSvc.GetByID(ctx, id)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		assert.NoError(t, idp.DeleteUser(ctx, id), "deleting twice is fine")
	})
}
