package school_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

func TestTeacherService_Create(t *testing.T) {
	f := newFixture(t)
	mathID := f.subject("Mathematics")

	in := teacherInput("mrsmith")
	in.Username = " MrSmith "
	in.SubjectIDs = []int{mathID, mathID}
	out := f.svcs.Teachers.Create(f.ctx, admin, in)
	require.True(t, out.Success, out.Message)
	assert.Equal(t, core.CommittedLocally, out.Sync)

	tch, err := f.stores.School.GetTeacher(f.ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "mrsmith", tch.Username)
	assert.Equal(t, []int{mathID}, tch.SubjectIDs)
	assert.Equal(t, school.Male, tch.Sex)
	acc, ok := f.idp.Account(out.ID)
	require.True(t, ok)
	assert.Equal(t, core.RoleTeacher, acc.Role)

	tests := []struct {
		name     string
		caller   core.Caller
		in       func() school.TeacherInput
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{
			name: "teachers cannot create teachers", caller: core.Caller{ID: out.ID, Role: core.RoleTeacher},
			in: func() school.TeacherInput { return teacherInput("other") }, wantKind: core.KindForbidden,
		},
		{
			name: "password required", caller: admin,
			in:       func() school.TeacherInput { in := teacherInput("other"); in.Password = ""; return in },
			wantKind: core.KindValidation,
		},
		{
			name: "bad blood type", caller: admin,
			in:       func() school.TeacherInput { in := teacherInput("other"); in.BloodType = "C+"; return in },
			wantKind: core.KindValidation,
		},
		{
			name: "unknown subject", caller: admin,
			in:       func() school.TeacherInput { in := teacherInput("other"); in.SubjectIDs = []int{99}; return in },
			wantKind: core.KindNotFound, wantMsg: "One or more selected subjects do not exist.",
		},
		{
			name: "username taken", caller: admin,
			in:       func() school.TeacherInput { return teacherInput("mrsmith") },
			wantKind: core.KindConflict, wantMsg: "A teacher with this username or email already exists.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := f.idp.Len()
			out := f.svcs.Teachers.Create(f.ctx, tt.caller, tt.in())
			assert.False(t, out.Success)
			assert.True(t, out.Error)
			assert.Equal(t, tt.wantKind, out.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out.Message)
			}
			assert.Equal(t, accounts, f.idp.Len(), "no account may be left behind")
		})
	}
}

func TestTeacherService_Create_identityFailure(t *testing.T) {
	f := newFixture(t)
	f.idp.FailCreate = errors.New("identity backend down")

	out := f.svcs.Teachers.Create(f.ctx, admin, teacherInput("mrsmith"))
	assert.Equal(t, core.KindExternal, out.Kind)
	assert.Equal(t, "Failed to create user account. Please check the provided information.", out.Message)

	res := f.list(admin, core.EntityTeacher, school.ListQuery{})
	assert.Zero(t, res.Count, "no teacher stored without an account")
}

func TestTeacherService_Update(t *testing.T) {
	f := newFixture(t)
	id := f.teacher("mrsmith")

	t.Run("non-account fields only", func(t *testing.T) {
		in := teacherInput("mrsmith")
		in.Password = ""
		in.Phone = "555-0100"
		out := f.svcs.Teachers.Update(f.ctx, admin, id, in)
		require.True(t, out.Success, out.Message)
		assert.Equal(t, core.IdentitySyncPending, out.Sync)
		assert.Empty(t, f.idp.Updates)
	})

	t.Run("account fields are synced", func(t *testing.T) {
		in := teacherInput("mrsmith")
		in.Password = ""
		in.Surname = "Smithers"
		out := f.svcs.Teachers.Update(f.ctx, admin, id, in)
		require.True(t, out.Success, out.Message)
		assert.Equal(t, core.CommittedLocally, out.Sync)
		require.NotEmpty(t, f.idp.Updates)
		assert.Equal(t, school.AccountUpdate{Surname: "Smithers"}, f.idp.Updates[len(f.idp.Updates)-1])
	})

	t.Run("identity failure keeps the local change", func(t *testing.T) {
		f.idp.FailUpdate = errors.New("identity backend down")
		defer func() { f.idp.FailUpdate = nil }()

		in := teacherInput("mrsmith")
		in.Name = "Renamed"
		out := f.svcs.Teachers.Update(f.ctx, admin, id, in)
		require.True(t, out.Success, out.Message)
		assert.Equal(t, core.IdentitySyncFailed, out.Sync)

		tch, err := f.stores.School.GetTeacher(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", tch.Name)
	})

	t.Run("missing teacher", func(t *testing.T) {
		out := f.svcs.Teachers.Update(f.ctx, admin, "ghost", teacherInput("ghost"))
		assert.Equal(t, core.KindNotFound, out.Kind)
	})
}

func TestTeacherService_Delete(t *testing.T) {
	c := newCampus(t)

	out := c.svcs.Teachers.Delete(c.ctx, admin, c.teacherID)
	require.True(t, out.Success, out.Message)
	assert.Equal(t, core.CommittedLocally, out.Sync)
	assert.Contains(t, c.idp.Deleted, c.teacherID)

	cls, err := c.stores.School.GetClass(c.ctx, c.classID)
	require.NoError(t, err)
	assert.Empty(t, cls.SupervisorID, "supervision cleared")
	_, err = c.stores.School.GetLesson(c.ctx, c.lessonID)
	assert.Equal(t, core.ErrNotFound, errors.Cause(err), "lessons removed")

	out = c.svcs.Teachers.Delete(c.ctx, admin, c.teacherID)
	assert.Equal(t, core.KindNotFound, out.Kind)
}

func TestStudentService_Create(t *testing.T) {
	f := newFixture(t)
	small := f.class("2A", 1, 2, "")

	id := f.student("kid1", small, "")
	std, err := f.stores.School.GetStudent(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, small, std.ClassID)
	assert.Equal(t, school.Female, std.Sex)

	tests := []struct {
		name     string
		in       school.StudentInput
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{name: "class full", in: studentInput("kid2", small, ""), wantKind: core.KindInvariant, wantMsg: "Class capacity is full. Cannot add more students to this class."},
		{name: "unknown class", in: studentInput("kid2", 99, ""), wantKind: core.KindNotFound, wantMsg: "Selected class does not exist."},
		{name: "unknown parent", in: studentInput("kid2", defaultClassID, "ghost"), wantKind: core.KindNotFound, wantMsg: "Selected parent does not exist."},
		{
			name: "sex required",
			in: func() school.StudentInput {
				in := studentInput("kid2", defaultClassID, "")
				in.Sex = ""
				return in
			}(),
			wantKind: core.KindValidation,
		},
		{name: "username taken", in: studentInput("kid1", defaultClassID, ""), wantKind: core.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := f.idp.Len()
			out := f.svcs.Students.Create(f.ctx, admin, tt.in)
			require.False(t, out.Success)
			assert.Equal(t, tt.wantKind, out.Kind, out.Message)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out.Message)
			}
			assert.Equal(t, accounts, f.idp.Len())
		})
	}
}

func TestStudentService_Update(t *testing.T) {
	c := newCampus(t)
	full := c.class("3A", 1, 3, "")
	c.student("kid3", full, "")

	in := studentInput("kid1", full, c.parentID)
	in.Password = ""
	out := c.svcs.Students.Update(c.ctx, admin, c.students[0], in)
	assert.Equal(t, core.KindInvariant, out.Kind)
	assert.Equal(t, "Cannot move student to this class. Class capacity is full.", out.Message)

	in.ClassID = defaultClassID
	out = c.svcs.Students.Update(c.ctx, admin, c.students[0], in)
	require.True(t, out.Success, out.Message)
	assert.Equal(t, core.IdentitySyncPending, out.Sync)

	std, err := c.stores.School.GetStudent(c.ctx, c.students[0])
	require.NoError(t, err)
	assert.Equal(t, defaultClassID, std.ClassID)
}

func TestStudentService_Delete(t *testing.T) {
	c := newCampus(t)
	c.okInt(c.svcs.Attendances.Create(c.ctx, admin, school.AttendanceInput{
		Date: now, Present: true, StudentID: c.students[0], LessonID: c.lessonID,
	}))

	out := c.svcs.Students.Delete(c.ctx, admin, c.students[0])
	require.True(t, out.Success, out.Message)
	assert.Equal(t, core.CommittedLocally, out.Sync)
	assert.Contains(t, c.idp.Deleted, c.students[0])

	res := c.list(admin, core.EntityAttendance, school.ListQuery{})
	assert.Zero(t, res.Count, "attendance of a deleted student is removed")

	out = c.svcs.Students.Delete(c.ctx, c.teacherCaller(), c.students[1])
	assert.Equal(t, core.KindForbidden, out.Kind)
}

func TestParentService(t *testing.T) {
	c := newCampus(t)

	t.Run("students already taken", func(t *testing.T) {
		out := c.svcs.Parents.Create(c.ctx, admin, parentInput("dad", c.students[0]))
		assert.Equal(t, core.KindConflict, out.Kind)
	})

	t.Run("unknown students", func(t *testing.T) {
		out := c.svcs.Parents.Create(c.ctx, admin, parentInput("dad", "ghost"))
		assert.Equal(t, core.KindNotFound, out.Kind)
		assert.Equal(t, "One or more selected students do not exist.", out.Message)
	})

	var dad string
	t.Run("create with free students", func(t *testing.T) {
		dad = c.ok(c.svcs.Parents.Create(c.ctx, admin, parentInput("dad", c.students[1])))
		std, err := c.stores.School.GetStudent(c.ctx, c.students[1])
		require.NoError(t, err)
		assert.Equal(t, dad, std.ParentID)
	})

	t.Run("update keeps own students", func(t *testing.T) {
		in := parentInput("dad", c.students[1])
		in.Password = ""
		in.Phone = "555-0199"
		out := c.svcs.Parents.Update(c.ctx, admin, dad, in)
		require.True(t, out.Success, out.Message)
	})

	t.Run("delete detaches children", func(t *testing.T) {
		out := c.svcs.Parents.Delete(c.ctx, admin, dad)
		require.True(t, out.Success, out.Message)
		std, err := c.stores.School.GetStudent(c.ctx, c.students[1])
		require.NoError(t, err)
		assert.Empty(t, std.ParentID)
	})

	t.Run("identity delete failure", func(t *testing.T) {
		c.idp.FailDelete = errors.New("identity backend down")
		defer func() { c.idp.FailDelete = nil }()

		out := c.svcs.Parents.Delete(c.ctx, admin, c.parentID)
		require.True(t, out.Success, out.Message)
		assert.Equal(t, core.IdentitySyncFailed, out.Sync)
		_, err := c.stores.School.GetParent(c.ctx, c.parentID)
		assert.Equal(t, core.ErrNotFound, errors.Cause(err))
	})
}

func TestPeople_updateWithSameValues(t *testing.T) {
	c := newCampus(t)
	tests := []struct {
		name   string
		update func() core.Outcome
	}{
		{
			name: "teacher",
			update: func() core.Outcome {
				in := teacherInput("mrsmith")
				in.Password = ""
				in.SubjectIDs = []int{c.subjectID}
				return c.svcs.Teachers.Update(c.ctx, admin, c.teacherID, in)
			},
		},
		{
			name: "student",
			update: func() core.Outcome {
				in := studentInput("kid1", c.classID, c.parentID)
				in.Password = ""
				return c.svcs.Students.Update(c.ctx, admin, c.students[0], in)
			},
		},
		{
			name: "parent",
			update: func() core.Outcome {
				in := parentInput("mum", c.students[0])
				in.Password = ""
				return c.svcs.Parents.Update(c.ctx, admin, c.parentID, in)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.update()
			require.True(t, out.Success, out.Message)
			assert.Equal(t, core.IdentitySyncPending, out.Sync)
			assert.Empty(t, c.idp.Updates, "nothing to sync")
		})
	}
}

func TestTeacherService_Update_clearEmail(t *testing.T) {
	f := newFixture(t)
	id := f.teacher("mrsmith")

	in := teacherInput("mrsmith")
	in.Password = ""
	in.Email = ""
	out := f.svcs.Teachers.Update(f.ctx, admin, id, in)
	require.True(t, out.Success, out.Message)
	assert.Equal(t, core.CommittedLocally, out.Sync)
	require.Len(t, f.idp.Updates, 1)
	assert.Equal(t, school.AccountUpdate{ClearEmail: true}, f.idp.Updates[0])

	acc, ok := f.idp.Account(id)
	require.True(t, ok)
	assert.Empty(t, acc.Email)
	tch, err := f.stores.School.GetTeacher(f.ctx, id)
	require.NoError(t, err)
	assert.Empty(t, tch.Email)
}

func TestTeacherService_Delete_timeout(t *testing.T) {
	c := newCampus(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	out := c.svcs.Teachers.Delete(ctx, admin, c.teacherID)
	assert.Equal(t, core.KindTimeout, out.Kind)
	assert.Equal(t, "Deletion timed out. Please try again.", out.Message)
	assert.Empty(t, c.idp.Deleted, "account kept when the teacher is kept")

	_, err := c.stores.School.GetTeacher(c.ctx, c.teacherID)
	assert.NoError(t, err)
}

func TestStudentService_Create_concurrentEnrolment(t *testing.T) {
	f := newFixture(t)
	small := f.class("2A", 3, 2, "")
	accounts := f.idp.Len()

	const applicants = 12
	outs := make([]core.Outcome, applicants)
	var wg sync.WaitGroup
	for i := 0; i < applicants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = f.svcs.Students.Create(f.ctx, admin, studentInput(fmt.Sprintf("kid%02d", i), small, ""))
		}(i)
	}
	wg.Wait()

	var enrolled int
	for _, out := range outs {
		if out.Success {
			enrolled++
			continue
		}
		assert.Equal(t, "Class capacity is full. Cannot add more students to this class.", out.Message)
	}
	assert.Equal(t, 3, enrolled)
	assert.Equal(t, 3, f.list(admin, core.EntityStudent, school.ListQuery{ClassID: small}).Count)
	assert.Equal(t, accounts+3, f.idp.Len(), "rejected applicants keep no account")
}
