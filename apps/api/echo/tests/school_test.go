package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/tests"
)

func validTeacher(uname string) school.TeacherInput {
	return school.TeacherInput{
		Username:  uname,
		Password:  "password123",
		Name:      "Jane",
		Surname:   "Doe",
		Email:     uname + "@test.cd",
		Address:   "1 School Rd",
		BloodType: "A+",
		Sex:       "FEMALE",
		Birthday:  time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Count int             `json:"count"`
	Page  int             `json:"page"`
}

func Test_schoolApi_subjects(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.stores.Users, "Admin", "admin", "admin@test.cd", "", core.RoleAdmin, true)
	adminToken := app.getToken(t, admin)
	teacherToken := app.callerToken(t, "t1", core.RoleTeacher)
	studentToken := app.callerToken(t, "s1", core.RoleStudent)

	// create
	rec := app.do(http.MethodPost, "/v1/subjects", adminToken, []byte(`{"name":"  Mathematics "}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := unmarshalOutcome(t, rec)
	assert.True(t, out.Success)
	assert.Equal(t, core.SyncNone, out.Sync)
	mathID := out.ID

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     string
		wantCode int
		wantKind core.ErrorKind
	}{
		{name: "teacher cannot create", method: http.MethodPost, path: "/v1/subjects", token: teacherToken, body: `{"name":"Art"}`, wantCode: http.StatusForbidden, wantKind: core.KindForbidden},
		{name: "blank name", method: http.MethodPost, path: "/v1/subjects", token: adminToken, body: `{"name":"  "}`, wantCode: http.StatusBadRequest, wantKind: core.KindValidation},
		{name: "malformed body", method: http.MethodPost, path: "/v1/subjects", token: adminToken, body: `{"name":`, wantCode: http.StatusBadRequest, wantKind: core.KindValidation},
		{name: "duplicate name", method: http.MethodPost, path: "/v1/subjects", token: adminToken, body: `{"name":"Mathematics"}`, wantCode: http.StatusConflict, wantKind: core.KindConflict},
		{name: "unknown teacher", method: http.MethodPost, path: "/v1/subjects", token: adminToken, body: `{"name":"Art","teachers":["ghost"]}`, wantCode: http.StatusNotFound, wantKind: core.KindNotFound},
		{name: "update missing", method: http.MethodPut, path: "/v1/subjects/999", token: adminToken, body: `{"name":"Art"}`, wantCode: http.StatusNotFound, wantKind: core.KindNotFound},
		{name: "update", method: http.MethodPut, path: "/v1/subjects/" + mathID, token: adminToken, body: `{"name":"Maths"}`, wantCode: http.StatusOK},
		{name: "student cannot delete", method: http.MethodDelete, path: "/v1/subjects/" + mathID, token: studentToken, wantCode: http.StatusForbidden, wantKind: core.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, []byte(tt.body))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			out := unmarshalOutcome(t, rec)
			assert.Equal(t, tt.wantCode < 300, out.Success)
			assert.Equal(t, !out.Success, out.Error)
			assert.Equal(t, tt.wantKind, out.Kind)
			if !out.Success {
				assert.NotEmpty(t, out.Message)
			}
		})
	}

	// list
	rec = app.do(http.MethodGet, "/v1/subjects?search=math", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, res.Page)
	var subjects []school.Subject
	require.NoError(t, json.Unmarshal(res.Data, &subjects))
	require.Len(t, subjects, 1)
	assert.Equal(t, "Maths", subjects[0].Name)

	rec = app.do(http.MethodGet, "/v1/subjects", studentToken)
	assert.Equal(t, http.StatusForbidden, rec.Code, "students cannot list subjects")

	// delete
	rec = app.do(http.MethodDelete, "/v1/subjects/"+mathID, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = app.do(http.MethodDelete, "/v1/subjects/"+mathID, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_schoolApi_teachers(t *testing.T) {
	app := setup(t)
	adminToken := app.callerToken(t, "root", core.RoleAdmin)

	rec := app.do(http.MethodPost, "/v1/teachers", adminToken, marchallObj(t, validTeacher("jdoe")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := unmarshalOutcome(t, rec)
	assert.Equal(t, core.CommittedLocally, out.Sync)
	acc, ok := app.idp.Account(out.ID)
	require.True(t, ok, "identity account issued")
	assert.Equal(t, core.RoleTeacher, acc.Role)

	// the issued account id becomes the teacher id
	_, err := app.stores.School.GetTeacher(context.Background(), out.ID)
	require.NoError(t, err)

	rec = app.do(http.MethodPost, "/v1/teachers", adminToken, marchallObj(t, validTeacher("jdoe")))
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	noPwd := validTeacher("other")
	noPwd.Password = ""
	rec = app.do(http.MethodPost, "/v1/teachers", adminToken, marchallObj(t, noPwd))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, unmarshalOutcome(t, rec).Fields, "password")

	upd := validTeacher("jdoe")
	upd.Password = ""
	upd.Name = "Janet"
	rec = app.do(http.MethodPut, "/v1/teachers/"+out.ID, adminToken, marchallObj(t, upd))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.CommittedLocally, unmarshalOutcome(t, rec).Sync)
	acc, _ = app.idp.Account(out.ID)
	assert.Equal(t, "Janet", acc.Name)

	rec = app.do(http.MethodDelete, "/v1/teachers/"+out.ID, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, app.idp.Deleted, out.ID)
}

func Test_schoolApi_announcements(t *testing.T) {
	app := setup(t)
	adminToken := app.callerToken(t, "root", core.RoleAdmin)
	today := time.Now().UTC()

	var ids []int
	for i := 0; i < 4; i++ {
		rec := app.do(http.MethodPost, "/v1/announcements", adminToken, marchallObj(t, school.AnnouncementInput{
			Title:       "Notice " + strconv.Itoa(i),
			Description: "Read me",
			Date:        today.AddDate(0, 0, -i),
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		id, err := strconv.Atoi(unmarshalOutcome(t, rec).ID)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	rec := app.do(http.MethodGet, "/v1/announcements/latest", app.callerToken(t, "s1", core.RoleStudent))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var latest []school.Announcement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Len(t, latest, 3)
	for i, ann := range latest {
		assert.Equal(t, ids[i], ann.ID, "newest first")
	}

	rec = app.do(http.MethodGet, "/v1/announcements/latest?date="+today.AddDate(0, 0, -2).Format("2006-01-02"), adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Len(t, latest, 1)
	assert.Equal(t, ids[2], latest[0].ID)

	rec = app.do(http.MethodPost, "/v1/announcements", app.callerToken(t, "t1", core.RoleTeacher), marchallObj(t, school.AnnouncementInput{
		Title: "School-wide", Description: "Nope", Date: today,
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code, "school-wide notices are admin only")
}
