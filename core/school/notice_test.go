package school_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

func TestEventService(t *testing.T) {
	c := newCampus(t)
	stranger := core.Caller{ID: c.teacher("mrsjones"), Role: core.RoleTeacher}

	tests := []struct {
		name     string
		caller   core.Caller
		in       school.EventInput
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{
			name: "starts in the past", caller: admin,
			in:       school.EventInput{Title: "Fair", Description: "Science fair", StartTime: at(-1, 9, 0), EndTime: at(-1, 12, 0)},
			wantKind: core.KindInvariant, wantMsg: "Start time cannot be in the past.",
		},
		{
			name: "ends before start", caller: admin,
			in:       school.EventInput{Title: "Fair", Description: "Science fair", StartTime: at(1, 12, 0), EndTime: at(1, 9, 0)},
			wantKind: core.KindInvariant, wantMsg: "End time must be after start time.",
		},
		{
			name: "school-wide by a teacher", caller: c.teacherCaller(),
			in:       school.EventInput{Title: "Fair", Description: "Science fair", StartTime: at(1, 9, 0), EndTime: at(1, 12, 0)},
			wantKind: core.KindForbidden, wantMsg: "Only admins can create school-wide events.",
		},
		{
			name: "class the teacher does not teach", caller: stranger,
			in:       school.EventInput{Title: "Fair", Description: "Science fair", StartTime: at(1, 9, 0), EndTime: at(1, 12, 0), ClassID: c.classID},
			wantKind: core.KindForbidden, wantMsg: "You can only create events for classes you teach.",
		},
		{
			name: "unknown class", caller: admin,
			in:       school.EventInput{Title: "Fair", Description: "Science fair", StartTime: at(1, 9, 0), EndTime: at(1, 12, 0), ClassID: 99},
			wantKind: core.KindNotFound,
		},
		{
			name: "blank description", caller: admin,
			in:       school.EventInput{Title: "Fair", Description: "  ", StartTime: at(1, 9, 0), EndTime: at(1, 12, 0)},
			wantKind: core.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.svcs.Events.Create(c.ctx, tt.caller, tt.in)
			require.False(t, out.Success)
			assert.Equal(t, tt.wantKind, out.Kind, out.Message)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out.Message)
			}
		})
	}

	in := school.EventInput{Title: "Trip", Description: "Zoo trip", StartTime: at(2, 9, 0), EndTime: at(2, 15, 0), ClassID: c.classID}
	id := c.okInt(c.svcs.Events.Create(c.ctx, c.teacherCaller(), in))

	out := c.svcs.Events.Create(c.ctx, admin, in)
	assert.Equal(t, core.KindConflict, out.Kind, "same title and start")

	in.ClassID = 0
	out = c.svcs.Events.Update(c.ctx, c.teacherCaller(), id, in)
	assert.Equal(t, core.KindForbidden, out.Kind, "a teacher cannot widen an event to the whole school")

	out = c.svcs.Events.Delete(c.ctx, stranger, id)
	assert.Equal(t, core.KindForbidden, out.Kind)
	out = c.svcs.Events.Delete(c.ctx, c.teacherCaller(), id)
	require.True(t, out.Success, out.Message)
}

func TestAnnouncementService(t *testing.T) {
	c := newCampus(t)

	c.okInt(c.svcs.Announcements.Create(c.ctx, admin, school.AnnouncementInput{Title: "Holiday", Description: "No school", Date: at(0, 0, 0)}))
	classAnn := c.okInt(c.svcs.Announcements.Create(c.ctx, c.teacherCaller(), school.AnnouncementInput{
		Title: "Homework", Description: "Bring books", Date: at(1, 0, 0), ClassID: c.classID,
	}))

	out := c.svcs.Announcements.Create(c.ctx, c.teacherCaller(), school.AnnouncementInput{Title: "Closure", Description: "Closed", Date: at(2, 0, 0)})
	assert.Equal(t, core.KindForbidden, out.Kind)

	out = c.svcs.Announcements.Create(c.ctx, admin, school.AnnouncementInput{Title: "Holiday", Description: "Again", Date: at(0, 0, 0)})
	assert.Equal(t, core.KindConflict, out.Kind)
	assert.Equal(t, "An announcement with this title and date already exists.", out.Message)

	out = c.svcs.Announcements.Update(c.ctx, c.teacherCaller(), classAnn, school.AnnouncementInput{
		Title: "Homework", Description: "Bring pens", Date: at(1, 0, 0), ClassID: c.classID,
	})
	require.True(t, out.Success, out.Message)

	student := core.Caller{ID: c.students[0], Role: core.RoleStudent}
	out = c.svcs.Announcements.Delete(c.ctx, student, classAnn)
	assert.Equal(t, core.KindForbidden, out.Kind)
	assert.Equal(t, "Your role cannot modify announcements.", out.Message)

	out = c.svcs.Announcements.Delete(c.ctx, admin, 99)
	assert.Equal(t, core.KindNotFound, out.Kind)
}
