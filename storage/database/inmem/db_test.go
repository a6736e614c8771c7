package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	repo := NewSchoolRepository(Open())

	for lvl := 1; lvl <= 6; lvl++ {
		g, err := repo.GetGrade(ctx, lvl)
		require.NoError(t, err)
		assert.Equal(t, lvl, g.Level)
	}
	cls, err := repo.GetClass(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1A", cls.Name)

	// ids continue after the seeded rows
	cls, err = repo.CreateClass(ctx, school.Class{Name: "2A", Capacity: 20, GradeID: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, cls.ID)
}

func TestDB_RunInTx(t *testing.T) {
	ctx := context.Background()
	db := Open()
	repo := NewSchoolRepository(db)

	t.Run("commit", func(t *testing.T) {
		err := db.RunInTx(ctx, func(exec core.DBExecutor) error {
			_, err := repo.CreateSubject(ctx, school.Subject{Name: "Biology"}, exec)
			return err
		})
		require.NoError(t, err)
		n, err := repo.CountSubjects(ctx, []int{1})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.RunInTx(ctx, func(exec core.DBExecutor) error {
			if _, err := repo.CreateSubject(ctx, school.Subject{Name: "Chemistry"}, exec); err != nil {
				return err
			}
			if err := repo.DeleteSubject(ctx, 1, exec); err != nil {
				return err
			}
			return boom
		})
		assert.Equal(t, boom, err)

		subjects, total, err := repo.ListSubjects(ctx, school.ListQuery{})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, "Biology", subjects[0].Name)
	})

	t.Run("expired context", func(t *testing.T) {
		expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()
		err := db.RunInTx(expired, func(core.DBExecutor) error { return nil })
		assert.Equal(t, core.ErrTimeout, errors.Cause(err))
	})
}

func TestSchoolRepository_uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewSchoolRepository(Open())

	_, err := repo.CreateClass(ctx, school.Class{Name: "1A", Capacity: 10, GradeID: 1})
	assert.Equal(t, core.ErrUniqueViolation, errors.Cause(err), "class names are unique")

	_, err = repo.CreateSubject(ctx, school.Subject{Name: "Art", TeacherIDs: []string{"ghost"}})
	assert.Equal(t, core.ErrForeignKeyViolation, errors.Cause(err))

	_, err = repo.CreateAdmin(ctx, school.Admin{ID: "a1", Username: "root"})
	require.NoError(t, err)
	_, err = repo.CreateAdmin(ctx, school.Admin{ID: "a2", Username: "root"})
	assert.Equal(t, core.ErrUniqueViolation, errors.Cause(err))

	_, err = repo.GetAdmin(ctx, "a3")
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}

func TestPage(t *testing.T) {
	rows := []school.Subject{{ID: 3, Name: "b"}, {ID: 1, Name: "c"}, {ID: 2, Name: "a"}, {ID: 4, Name: "a"}}
	cols := columns[school.Subject]{
		"id":   func(s school.Subject) interface{} { return s.ID },
		"name": func(s school.Subject) interface{} { return s.Name },
	}
	ids := func(subjects []school.Subject) []int {
		out := make([]int, 0, len(subjects))
		for _, s := range subjects {
			out = append(out, s.ID)
		}
		return out
	}

	tests := []struct {
		name    string
		q       school.ListQuery
		wantIDs []int
	}{
		{name: "fallback ordering", q: school.ListQuery{}, wantIDs: []int{1, 2, 3, 4}},
		{name: "name then id", q: school.ListQuery{Ordering: []core.DBOrdering{{Field: "name", Ascending: true}}}, wantIDs: []int{2, 4, 3, 1}},
		{name: "unknown field ignored", q: school.ListQuery{Ordering: []core.DBOrdering{{Field: "password"}}}, wantIDs: []int{1, 2, 3, 4}},
		{name: "second page", q: school.ListQuery{Page: core.Page{Number: 2, PerPage: 3}}, wantIDs: []int{4}},
		{name: "beyond the end", q: school.ListQuery{Page: core.Page{Number: 3, PerPage: 3}}, wantIDs: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]school.Subject(nil), rows...)
			got, total := page(in, tt.q, cols, core.DBOrdering{Field: "id", Ascending: true})
			assert.Equal(t, 4, total)
			assert.Equal(t, tt.wantIDs, ids(got))
		})
	}
}
