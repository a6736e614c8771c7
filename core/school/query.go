package school

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Scope restricts reads to what a caller may see.
//   - admin: everything
//   - teacher: rows tied to lessons they teach (students and classes: classes they teach in or supervise)
//   - student: rows tied to their class, results and attendance of their own
//   - parent: rows tied to their children's classes, results and attendance of their children
type Scope struct {
	Role     core.Role
	CallerID string
}

// Unrestricted reports whether the scope sees every row.
func (s Scope) Unrestricted() bool {
	return s.Role == core.RoleAdmin
}

// ListQuery is a paginated, role-scoped read. Zero-valued filters are ignored;
// a filter that does not apply to the listed kind is ignored too.
type ListQuery struct {
	Scope    Scope
	Page     core.Page
	Search   string
	Ordering []core.DBOrdering

	ClassID   int
	TeacherID string
	StudentID string
	LessonID  int
	Date      time.Time
}

func (q *ListQuery) Clean() {
	q.Search = core.CleanString(q.Search)
	q.TeacherID = core.CleanString(q.TeacherID)
	q.StudentID = core.CleanString(q.StudentID)
	q.Date = truncateDay(q.Date)
}

// ListResult is one page of rows along with the total row count.
type ListResult struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
	Page  int         `json:"page"`
}
