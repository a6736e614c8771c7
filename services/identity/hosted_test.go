package identitysvc

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type recorder struct {
	requests []rest.Request
	status   int
	body     string
	err      error
}

func (r *recorder) send(_ context.Context, req rest.Request) (*rest.Response, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &rest.Response{StatusCode: r.status, Body: r.body}, nil
}

func newHosted(rec *recorder) *HostedProvider {
	conf := core.NewTestConfig()
	conf.Identity.BaseURL = "https://idp.test"
	conf.Identity.SecretKey = "sk_test"
	p := NewHostedProvider(conf)
	p.send = rec.send
	return p
}

func TestHostedProvider_CreateUser(t *testing.T) {
	ctx := context.Background()
	acc := school.NewAccount{Username: "jdoe", Password: "password123", Name: "John", Surname: "Doe", Email: "jdoe@school.cd", Role: core.RoleStudent}

	t.Run("created", func(t *testing.T) {
		rec := &recorder{status: http.StatusOK, body: `{"id":"user_123"}`}
		id, err := newHosted(rec).CreateUser(ctx, acc)
		require.NoError(t, err)
		assert.Equal(t, "user_123", id)

		require.Len(t, rec.requests, 1)
		req := rec.requests[0]
		assert.Equal(t, rest.Post, req.Method)
		assert.Equal(t, "https://idp.test/v1/users", req.BaseURL)
		assert.Equal(t, "Bearer sk_test", req.Headers["Authorization"])

		var body hostedUser
		require.NoError(t, json.Unmarshal(req.Body, &body))
		assert.Equal(t, hostedUser{
			Username:       "jdoe",
			Password:       "password123",
			FirstName:      "John",
			LastName:       "Doe",
			EmailAddress:   []string{"jdoe@school.cd"},
			PublicMetadata: map[string]string{"role": "student"},
		}, body)
	})

	tests := []struct {
		name    string
		rec     *recorder
		wantErr error
	}{
		{
			name:    "identifier taken",
			rec:     &recorder{status: http.StatusUnprocessableEntity, body: `{"errors":[{"code":"form_identifier_exists","message":"taken"}]}`},
			wantErr: school.ErrAccountExists,
		},
		{
			name:    "timeout",
			rec:     &recorder{err: errors.Wrap(context.DeadlineExceeded, "post")},
			wantErr: core.ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newHosted(tt.rec).CreateUser(ctx, acc)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}

	t.Run("server error", func(t *testing.T) {
		_, err := newHosted(&recorder{status: http.StatusInternalServerError, body: "boom"}).CreateUser(ctx, acc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("no id", func(t *testing.T) {
		_, err := newHosted(&recorder{status: http.StatusOK, body: `{}`}).CreateUser(ctx, acc)
		assert.Error(t, err)
	})
}

func TestHostedProvider_UpdateUser(t *testing.T) {
	ctx := context.Background()

	rec := &recorder{status: http.StatusOK, body: `{}`}
	p := newHosted(rec)
	require.NoError(t, p.UpdateUser(ctx, "user_1", school.AccountUpdate{}))
	assert.Empty(t, rec.requests, "nothing to send")

	require.NoError(t, p.UpdateUser(ctx, "user_1", school.AccountUpdate{Name: "Jane"}))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, rest.Patch, rec.requests[0].Method)
	assert.Equal(t, "https://idp.test/v1/users/user_1", rec.requests[0].BaseURL)
	assert.JSONEq(t, `{"first_name":"Jane"}`, string(rec.requests[0].Body))

	emails := []struct {
		name string
		upd  school.AccountUpdate
		want string
	}{
		{name: "email changed", upd: school.AccountUpdate{Email: "new@school.cd"}, want: `{"email_address":["new@school.cd"]}`},
		{name: "email cleared", upd: school.AccountUpdate{ClearEmail: true}, want: `{"email_address":[]}`},
	}
	for _, tt := range emails {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: http.StatusOK, body: `{}`}
			require.NoError(t, newHosted(rec).UpdateUser(ctx, "user_1", tt.upd))
			require.Len(t, rec.requests, 1)
			assert.JSONEq(t, tt.want, string(rec.requests[0].Body))
		})
	}

	err := newHosted(&recorder{status: http.StatusNotFound, body: `{}`}).UpdateUser(ctx, "gone", school.AccountUpdate{Name: "X"})
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}

func TestHostedProvider_DeleteUser(t *testing.T) {
	ctx := context.Background()

	rec := &recorder{status: http.StatusOK, body: `{"deleted":true}`}
	require.NoError(t, newHosted(rec).DeleteUser(ctx, "user_1"))
	require.Len(t, rec.requests, 1)
	assert.Equal(t, rest.Delete, rec.requests[0].Method)
	assert.Nil(t, rec.requests[0].Body)

	assert.NoError(t, newHosted(&recorder{status: http.StatusNotFound}).DeleteUser(ctx, "gone"), "already gone")
	assert.Error(t, newHosted(&recorder{status: http.StatusBadGateway}).DeleteUser(ctx, "user_1"))
}
