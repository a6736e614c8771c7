package core

import "fmt"

// EntityKind enumerates the entity kinds managed through entity actions.
// Switches over EntityKind must stay exhaustive; AllEntityKinds lists every value.
type EntityKind int

const (
	EntitySubject EntityKind = iota + 1
	EntityTeacher
	EntityStudent
	EntityParent
	EntityClass
	EntityLesson
	EntityExam
	EntityAssignment
	EntityResult
	EntityAttendance
	EntityEvent
	EntityAnnouncement
)

var AllEntityKinds = []EntityKind{
	EntitySubject, EntityTeacher, EntityStudent, EntityParent, EntityClass, EntityLesson,
	EntityExam, EntityAssignment, EntityResult, EntityAttendance, EntityEvent, EntityAnnouncement,
}

var entityKindNames = map[EntityKind]string{
	EntitySubject:      "subject",
	EntityTeacher:      "teacher",
	EntityStudent:      "student",
	EntityParent:       "parent",
	EntityClass:        "class",
	EntityLesson:       "lesson",
	EntityExam:         "exam",
	EntityAssignment:   "assignment",
	EntityResult:       "result",
	EntityAttendance:   "attendance",
	EntityEvent:        "event",
	EntityAnnouncement: "announcement",
}

func (k EntityKind) String() string {
	if name, ok := entityKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EntityKind(%d)", int(k))
}

// Plural is the collection name used in routes.
func (k EntityKind) Plural() string {
	switch k {
	case EntityClass:
		return "classes"
	case EntityAttendance:
		return "attendances"
	}
	return k.String() + "s"
}

// IdentityBearing reports whether the entity's id is issued by the identity provider.
func (k EntityKind) IdentityBearing() bool {
	return k == EntityTeacher || k == EntityStudent || k == EntityParent
}

// ParseEntityKind maps a singular or plural kind name to its EntityKind.
func ParseEntityKind(s string) (EntityKind, bool) {
	for _, k := range AllEntityKinds {
		if s == k.String() || s == k.Plural() {
			return k, true
		}
	}
	return 0, false
}
