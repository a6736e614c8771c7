package testutil

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role core.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// NewLogger returns a logger that reports nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func NewValidation() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	return validate, translator
}

// NewServices builds the school services over stores. A nil idp gets a fresh FakeIdentity.
func NewServices(t *testing.T, stores storage.Stores, idp school.IdentityProvider) *school.Services {
	t.Helper()
	conf := core.NewTestConfig()
	if idp == nil {
		idp = NewFakeIdentity()
	}
	validate, translator := NewValidation()
	return school.NewServices(stores.School, stores.Tx, idp, validate, translator, NewLogger(conf), conf)
}

// FakeIdentity is an in-memory IdentityProvider. Setting one of the Fail* errors makes the matching call fail.
type FakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]school.NewAccount

	FailCreate error
	FailUpdate error
	FailDelete error

	Updates []school.AccountUpdate
	Deleted []string
}

var _ school.IdentityProvider = (*FakeIdentity)(nil)

func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{accounts: make(map[string]school.NewAccount)}
}

func (f *FakeIdentity) CreateUser(_ context.Context, acc school.NewAccount) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate != nil {
		return "", f.FailCreate
	}
	for _, other := range f.accounts {
		if other.Username == acc.Username || (acc.Email != "" && other.Email == acc.Email) {
			return "", school.ErrAccountExists
		}
	}
	id := uuid.New().String()
	f.accounts[id] = acc
	return id, nil
}

func (f *FakeIdentity) UpdateUser(_ context.Context, id string, upd school.AccountUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailUpdate != nil {
		return f.FailUpdate
	}
	acc, ok := f.accounts[id]
	if !ok {
		return errors.Wrapf(core.ErrNotFound, "account %s", id)
	}
	if upd.Username != "" {
		acc.Username = upd.Username
	}
	if upd.Password != "" {
		acc.Password = upd.Password
	}
	if upd.Name != "" {
		acc.Name = upd.Name
	}
	if upd.Surname != "" {
		acc.Surname = upd.Surname
	}
	if upd.Email != "" {
		acc.Email = upd.Email
	}
	if upd.ClearEmail {
		acc.Email = ""
	}
	f.accounts[id] = acc
	f.Updates = append(f.Updates, upd)
	return nil
}

func (f *FakeIdentity) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete != nil {
		return f.FailDelete
	}
	delete(f.accounts, id)
	f.Deleted = append(f.Deleted, id)
	return nil
}

// Account returns the account issued under id.
func (f *FakeIdentity) Account(id string) (school.NewAccount, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	return acc, ok
}

func (f *FakeIdentity) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts)
}
