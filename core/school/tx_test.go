package school_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/storage"
	"github.com/trezcool/shule/tests"
)

// brokenLinks stores subjects and teachers, then fails as a failing link write would.
type brokenLinks struct {
	school.Repository
	fail bool
}

func (r *brokenLinks) result(err error, exec []core.DBExecutor) error {
	if len(exec) == 0 {
		return errors.New("write outside a transaction")
	}
	if err == nil && r.fail {
		return errors.Wrap(core.ErrForeignKeyViolation, "linking")
	}
	return err
}

func (r *brokenLinks) CreateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	s, err := r.Repository.CreateSubject(ctx, s, exec...)
	return s, r.result(err, exec)
}

func (r *brokenLinks) UpdateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	s, err := r.Repository.UpdateSubject(ctx, s, exec...)
	return s, r.result(err, exec)
}

func (r *brokenLinks) CreateTeacher(ctx context.Context, t school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	t, err := r.Repository.CreateTeacher(ctx, t, exec...)
	return t, r.result(err, exec)
}

func (r *brokenLinks) UpdateTeacher(ctx context.Context, t school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	t, err := r.Repository.UpdateTeacher(ctx, t, exec...)
	return t, r.result(err, exec)
}

func TestLinkedWrites_allOrNothing(t *testing.T) {
	ctx := context.Background()
	stores := storage.OpenInMem()
	repo := &brokenLinks{Repository: stores.School}
	stores.School = repo
	idp := testutil.NewFakeIdentity()
	svcs := testutil.NewServices(t, stores, idp)

	tchID := svcs.Teachers.Create(ctx, admin, teacherInput("mrsmith")).ID
	require.NotEmpty(t, tchID)
	out := svcs.Subjects.Create(ctx, admin, school.SubjectInput{Name: "Mathematics", TeacherIDs: []string{tchID}})
	require.True(t, out.Success, out.Message)
	subID, err := strconv.Atoi(out.ID)
	require.NoError(t, err)

	repo.fail = true

	t.Run("subject update", func(t *testing.T) {
		out := svcs.Subjects.Update(ctx, admin, subID, school.SubjectInput{Name: "Maths"})
		assert.Equal(t, core.KindConflict, out.Kind)
		sub, err := stores.School.GetSubject(ctx, subID)
		require.NoError(t, err)
		assert.Equal(t, "Mathematics", sub.Name, "rename rolled back")
		assert.Equal(t, []string{tchID}, sub.TeacherIDs, "links rolled back")
	})

	t.Run("subject create", func(t *testing.T) {
		out := svcs.Subjects.Create(ctx, admin, school.SubjectInput{Name: "Art", TeacherIDs: []string{tchID}})
		assert.False(t, out.Success)
		res, err := svcs.List(ctx, admin, core.EntitySubject, school.ListQuery{Search: "Art"})
		require.NoError(t, err)
		assert.Zero(t, res.Count)
	})

	t.Run("teacher update", func(t *testing.T) {
		in := teacherInput("mrsmith")
		in.Password = ""
		in.Name = "Renamed"
		out := svcs.Teachers.Update(ctx, admin, tchID, in)
		assert.False(t, out.Success)
		tch, err := stores.School.GetTeacher(ctx, tchID)
		require.NoError(t, err)
		assert.Equal(t, "Tmrsmith", tch.Name)
		assert.Equal(t, []int{subID}, tch.SubjectIDs)
		assert.Empty(t, idp.Updates, "identity untouched when nothing was stored")
	})

	t.Run("teacher create", func(t *testing.T) {
		accounts := idp.Len()
		in := teacherInput("mrsjones")
		in.SubjectIDs = []int{subID}
		out := svcs.Teachers.Create(ctx, admin, in)
		assert.False(t, out.Success)
		res, err := svcs.List(ctx, admin, core.EntityTeacher, school.ListQuery{Search: "mrsjones"})
		require.NoError(t, err)
		assert.Zero(t, res.Count, "no teacher row left behind")
		assert.Equal(t, accounts, idp.Len(), "account compensated")
	})
}
