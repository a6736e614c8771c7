package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/tests"
)

func Test_server_home(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+app.conf.AppName+" API!", rec.Body.String())
}

func Test_server_routing(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.stores.Users, "Admin", "admin", "admin@test.cd", "", core.RoleAdmin, true)
	token := app.getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/subjects", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Unknown kind", method: http.MethodGet, path: "/v1/lol", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "Unknown kind (delete)", method: http.MethodDelete, path: "/v1/lol/1", token: token, wantCode: http.StatusNotFound},
		{name: "Trailing slash", method: http.MethodGet, path: "/v1/subjects/", token: token, wantCode: http.StatusOK},
		{name: "Attendance has no update", method: http.MethodPut, path: "/v1/attendances/1", token: token, body: []byte(`{}`), wantCode: http.StatusMethodNotAllowed},
		{name: "Bad id", method: http.MethodDelete, path: "/v1/subjects/lol", token: token, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_server_callerResolution(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	teacherOut := app.svcs.Teachers.Create(ctx, core.Caller{ID: "root", Role: core.RoleAdmin}, validTeacher("teach"))
	require.True(t, teacherOut.Success, teacherOut.Message)

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantRole core.Role
	}{
		{name: "role claim", token: app.callerToken(t, teacherOut.ID, core.RoleTeacher), wantCode: http.StatusOK, wantRole: core.RoleTeacher},
		{name: "role resolved from tables", token: app.callerToken(t, teacherOut.ID, ""), wantCode: http.StatusOK, wantRole: core.RoleTeacher},
		{name: "unknown id", token: app.callerToken(t, "ghost", ""), wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/v1/me", tt.token)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var caller core.Caller
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &caller))
			assert.Equal(t, teacherOut.ID, caller.ID)
			assert.Equal(t, tt.wantRole, caller.Role)
		})
	}
}
