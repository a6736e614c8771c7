package inmemdb

import (
	"cmp"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// columns maps orderable api fields to row accessors returning an int, string, bool or time.Time.
// Every columns map has an "id" entry, used as tie-breaker.
type columns[T any] map[string]func(T) interface{}

// page sorts rows and cuts the requested page out of them. It returns the page and the total row count.
func page[T any](rows []T, q school.ListQuery, cols columns[T], fallback core.DBOrdering) ([]T, int) {
	ords := make([]core.DBOrdering, 0, len(q.Ordering)+2)
	for _, ord := range q.Ordering {
		if _, ok := cols[ord.Field]; ok {
			ords = append(ords, ord)
		}
	}
	if len(ords) == 0 {
		ords = append(ords, fallback)
	}
	ords = append(ords, core.DBOrdering{Field: "id", Ascending: true})

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ords {
			col := cols[ord.Field]
			c := compare(col(rows[i]), col(rows[j]))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	total := len(rows)
	offset := q.Page.Offset()
	if offset >= total {
		return []T{}, total
	}
	end := min(offset+q.Page.Limit(), total)
	return rows[offset:end], total
}

func compare(a, b interface{}) int {
	switch av := a.(type) {
	case int:
		return cmp.Compare(av, b.(int))
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	}
	return 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// visibleClasses is the set of classes scope reaches; all is true for unrestricted scopes.
//   - teacher: classes they teach a lesson in or supervise
//   - student: their class
//   - parent: their children's classes
func (t *tables) visibleClasses(scope school.Scope) (set map[int]bool, all bool) {
	if scope.Unrestricted() {
		return nil, true
	}
	set = make(map[int]bool)
	switch scope.Role {
	case core.RoleTeacher:
		for id := range t.teacherClasses(scope.CallerID) {
			set[id] = true
		}
	case core.RoleStudent:
		if std, ok := t.students[scope.CallerID]; ok {
			set[std.ClassID] = true
		}
	case core.RoleParent:
		for _, std := range t.students {
			if std.ParentID == scope.CallerID {
				set[std.ClassID] = true
			}
		}
	}
	return set, false
}

func (t *tables) teacherClasses(teacherID string) map[int]bool {
	set := make(map[int]bool)
	for _, lsn := range t.lessons {
		if lsn.TeacherID == teacherID {
			set[lsn.ClassID] = true
		}
	}
	for _, cls := range t.classes {
		if cls.SupervisorID == teacherID {
			set[cls.ID] = true
		}
	}
	return set
}

// lessonVisible: teachers see the lessons they teach, students and parents the lessons of their classes.
func (t *tables) lessonVisible(scope school.Scope, lsn school.Lesson) bool {
	switch scope.Role {
	case core.RoleAdmin:
		return true
	case core.RoleTeacher:
		return lsn.TeacherID == scope.CallerID
	}
	classes, _ := t.visibleClasses(scope)
	return classes[lsn.ClassID]
}

// studentVisible: students see their own rows, parents their children's, teachers those of students
// in classes they teach.
func (t *tables) studentVisible(scope school.Scope, studentID string) bool {
	switch scope.Role {
	case core.RoleAdmin:
		return true
	case core.RoleStudent:
		return studentID == scope.CallerID
	case core.RoleParent:
		return t.students[studentID].ParentID == scope.CallerID
	case core.RoleTeacher:
		std, ok := t.students[studentID]
		return ok && t.teacherClasses(scope.CallerID)[std.ClassID]
	}
	return false
}

// assessmentLesson is the lesson behind the exam or assignment of a result.
func (t *tables) assessmentLesson(res school.Result) school.Lesson {
	if res.ExamID != 0 {
		return t.lessons[t.exams[res.ExamID].LessonID]
	}
	return t.lessons[t.assignments[res.AssignmentID].LessonID]
}

func (t *tables) subjectTeacherIDs(subjectID int) []string {
	ids := make([]string, 0)
	for link := range t.subjTeachers {
		if link.SubjectID == subjectID {
			ids = append(ids, link.TeacherID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (t *tables) teacherSubjectIDs(teacherID string) []int {
	ids := make([]int, 0)
	for link := range t.subjTeachers {
		if link.TeacherID == teacherID {
			ids = append(ids, link.SubjectID)
		}
	}
	sort.Ints(ids)
	return ids
}

func (t *tables) parentStudentIDs(parentID string) []string {
	ids := make([]string, 0)
	for _, std := range t.students {
		if std.ParentID == parentID {
			ids = append(ids, std.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
