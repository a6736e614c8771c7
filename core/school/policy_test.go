package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type teachingStub map[string][]int

func (s teachingStub) TeacherTeachesClass(_ context.Context, teacherID string, classID int, _ ...core.DBExecutor) (bool, error) {
	for _, id := range s[teacherID] {
		if id == classID {
			return true, nil
		}
	}
	return false, nil
}

func forbidden(t *testing.T, err error, msg string) {
	t.Helper()
	aErr, ok := core.AsActionError(err)
	require.True(t, ok, "want an action error, got %v", err)
	assert.Equal(t, core.KindForbidden, aErr.Kind)
	if msg != "" {
		assert.Equal(t, msg, aErr.Message)
	}
}

func TestPolicy_CanMutate(t *testing.T) {
	p := school.NewPolicy(teachingStub{})
	teacherMay := map[core.EntityKind]bool{
		core.EntityLesson: true, core.EntityExam: true, core.EntityAssignment: true, core.EntityResult: true,
		core.EntityAttendance: true, core.EntityEvent: true, core.EntityAnnouncement: true,
	}

	for _, kind := range core.AllEntityKinds {
		t.Run(kind.String(), func(t *testing.T) {
			assert.NoError(t, p.CanMutate(core.Caller{ID: "a", Role: core.RoleAdmin}, kind))

			err := p.CanMutate(core.Caller{ID: "t", Role: core.RoleTeacher}, kind)
			if teacherMay[kind] {
				assert.NoError(t, err)
			} else {
				forbidden(t, err, "Only admins can manage "+kind.Plural()+".")
			}

			forbidden(t, p.CanMutate(core.Caller{ID: "s", Role: core.RoleStudent}, kind), "Your role cannot modify "+kind.Plural()+".")
			forbidden(t, p.CanMutate(core.Caller{ID: "p", Role: core.RoleParent}, kind), "")
			forbidden(t, p.CanMutate(core.Caller{ID: "x"}, kind), "You are not allowed to perform this action.")
		})
	}
}

func TestPolicy_CanList(t *testing.T) {
	p := school.NewPolicy(teachingStub{})

	tests := []struct {
		kind      core.EntityKind
		familyMay bool
	}{
		{core.EntitySubject, false},
		{core.EntityTeacher, false},
		{core.EntityStudent, false},
		{core.EntityParent, false},
		{core.EntityClass, false},
		{core.EntityLesson, false},
		{core.EntityExam, true},
		{core.EntityAssignment, true},
		{core.EntityResult, true},
		{core.EntityAttendance, true},
		{core.EntityEvent, true},
		{core.EntityAnnouncement, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.NoError(t, p.CanList(core.Caller{Role: core.RoleAdmin}, tt.kind))
			assert.NoError(t, p.CanList(core.Caller{Role: core.RoleTeacher}, tt.kind))
			for _, role := range []core.Role{core.RoleStudent, core.RoleParent} {
				err := p.CanList(core.Caller{Role: role}, tt.kind)
				if tt.familyMay {
					assert.NoError(t, err)
				} else {
					forbidden(t, err, "Your role cannot list "+tt.kind.Plural()+".")
				}
			}
		})
	}
}

func TestPolicy_AuthorizeLesson(t *testing.T) {
	p := school.NewPolicy(teachingStub{})
	lsn := school.Lesson{ID: 1, TeacherID: "t1", ClassID: 2}

	assert.NoError(t, p.AuthorizeLesson(core.Caller{ID: "a", Role: core.RoleAdmin}, lsn, core.EntityExam, school.ActionUpdate))
	assert.NoError(t, p.AuthorizeLesson(core.Caller{ID: "t1", Role: core.RoleTeacher}, lsn, core.EntityExam, school.ActionUpdate))
	forbidden(t, p.AuthorizeLesson(core.Caller{ID: "t2", Role: core.RoleTeacher}, lsn, core.EntityExam, school.ActionUpdate),
		"You can only update exams for lessons you teach.")
	forbidden(t, p.AuthorizeLesson(core.Caller{ID: "t2", Role: core.RoleTeacher}, lsn, core.EntityLesson, school.ActionDelete),
		"You can only delete lessons you teach.")
	forbidden(t, p.AuthorizeLesson(core.Caller{ID: "s", Role: core.RoleStudent}, lsn, core.EntityExam, school.ActionCreate), "")
}

func TestPolicy_AuthorizeClass(t *testing.T) {
	p := school.NewPolicy(teachingStub{"t1": {2}})
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  core.Caller
		classID int
		wantMsg string
	}{
		{name: "admin school-wide", caller: core.Caller{ID: "a", Role: core.RoleAdmin}},
		{name: "teacher of the class", caller: core.Caller{ID: "t1", Role: core.RoleTeacher}, classID: 2},
		{
			name: "teacher school-wide", caller: core.Caller{ID: "t1", Role: core.RoleTeacher},
			wantMsg: "Only admins can create school-wide events.",
		},
		{
			name: "teacher of another class", caller: core.Caller{ID: "t1", Role: core.RoleTeacher}, classID: 3,
			wantMsg: "You can only create events for classes you teach.",
		},
		{
			name: "parent", caller: core.Caller{ID: "p", Role: core.RoleParent}, classID: 2,
			wantMsg: "Your role cannot modify events.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.AuthorizeClass(ctx, tt.caller, tt.classID, core.EntityEvent, school.ActionCreate)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			forbidden(t, err, tt.wantMsg)
		})
	}
}
