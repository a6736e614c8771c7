package school

import (
	"context"

	"github.com/trezcool/shule/core"
)

// Action is the kind of mutation being authorized.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// teacherKinds are the kinds a teacher may mutate, within the lessons or classes they teach.
var teacherKinds = map[core.EntityKind]bool{
	core.EntityLesson:       true,
	core.EntityExam:         true,
	core.EntityAssignment:   true,
	core.EntityResult:       true,
	core.EntityAttendance:   true,
	core.EntityEvent:        true,
	core.EntityAnnouncement: true,
}

// listKinds are the kinds students and parents may list.
var listKinds = map[core.EntityKind]bool{
	core.EntityExam:         true,
	core.EntityAssignment:   true,
	core.EntityResult:       true,
	core.EntityAttendance:   true,
	core.EntityEvent:        true,
	core.EntityAnnouncement: true,
}

type classTeaching interface {
	TeacherTeachesClass(ctx context.Context, teacherID string, classID int, exec ...core.DBExecutor) (bool, error)
}

// Policy decides what a caller may do. Denials are *core.ActionError of kind core.KindForbidden.
type Policy struct {
	store classTeaching
}

func NewPolicy(store classTeaching) Policy {
	return Policy{store: store}
}

// CanMutate is the role gate run before any entity-specific check.
func (p Policy) CanMutate(caller core.Caller, kind core.EntityKind) error {
	switch caller.Role {
	case core.RoleAdmin:
		return nil
	case core.RoleTeacher:
		if teacherKinds[kind] {
			return nil
		}
		return core.Rejectf(core.KindForbidden, "Only admins can manage %s.", kind.Plural())
	case core.RoleStudent, core.RoleParent:
		return core.Rejectf(core.KindForbidden, "Your role cannot modify %s.", kind.Plural())
	}
	return core.Reject(core.KindForbidden, "You are not allowed to perform this action.")
}

// AuthorizeLesson allows teachers to act on kind only through lessons they teach.
func (p Policy) AuthorizeLesson(caller core.Caller, lesson Lesson, kind core.EntityKind, action Action) error {
	if err := p.CanMutate(caller, kind); err != nil {
		return err
	}
	if caller.IsAdmin() || lesson.TeacherID == caller.ID {
		return nil
	}
	if kind == core.EntityLesson {
		return core.Rejectf(core.KindForbidden, "You can only %s lessons you teach.", action)
	}
	return core.Rejectf(core.KindForbidden, "You can only %s %s for lessons you teach.", action, kind.Plural())
}

// AuthorizeClass allows teachers to act on kind only for classes they teach a lesson in.
// classID 0 (school-wide) is reserved to admins.
func (p Policy) AuthorizeClass(ctx context.Context, caller core.Caller, classID int, kind core.EntityKind, action Action, exec ...core.DBExecutor) error {
	if err := p.CanMutate(caller, kind); err != nil {
		return err
	}
	if caller.IsAdmin() {
		return nil
	}
	if classID == 0 {
		return core.Rejectf(core.KindForbidden, "Only admins can %s school-wide %s.", action, kind.Plural())
	}
	teaches, err := p.store.TeacherTeachesClass(ctx, caller.ID, classID, exec...)
	if err != nil {
		return err
	}
	if !teaches {
		return core.Rejectf(core.KindForbidden, "You can only %s %s for classes you teach.", action, kind.Plural())
	}
	return nil
}

// CanList gates list reads by role.
func (p Policy) CanList(caller core.Caller, kind core.EntityKind) error {
	switch caller.Role {
	case core.RoleAdmin, core.RoleTeacher:
		return nil
	case core.RoleStudent, core.RoleParent:
		if listKinds[kind] {
			return nil
		}
		return core.Rejectf(core.KindForbidden, "Your role cannot list %s.", kind.Plural())
	}
	return core.Reject(core.KindForbidden, "You are not allowed to perform this action.")
}

// ReadScope is the scope list reads of caller run in.
func (p Policy) ReadScope(caller core.Caller) Scope {
	return Scope{Role: caller.Role, CallerID: caller.ID}
}
