package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/storage/database"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

// getExec returns the transaction handed down by the service, if any.
func getExec(db *sqlx.DB, svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if ext, ok := svcExec[0].(sqlx.ExtContext); ok {
			return ext
		}
	}
	return db
}

func (repo *schoolRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	return getExec(repo.db, svcExec)
}

// Queries are written with "?" placeholders and rebound for the driver.

func get(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	if err := sqlx.GetContext(ctx, ext, dest, ext.Rebind(query), args...); err != nil {
		return database.MapError(err)
	}
	return nil
}

func selectRows(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	if err := sqlx.SelectContext(ctx, ext, dest, ext.Rebind(query), args...); err != nil {
		return database.MapError(err)
	}
	return nil
}

func run(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, database.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

// runOne is run for statements that must touch a row; none touched is core.ErrNotFound.
func runOne(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) error {
	n, err := run(ctx, ext, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func count(ctx context.Context, ext sqlx.ExtContext, from string, w where) (int, error) {
	var n int
	err := get(ctx, ext, &n, "SELECT COUNT(*) FROM "+from+w.String(), w.args...)
	return n, err
}

// list runs a paginated select of cols from `from`, filtered by w, and the matching count.
func list(ctx context.Context, ext sqlx.ExtContext, dest interface{}, cols, from string, w where, orderBy string, pg core.Page) (int, error) {
	total, err := count(ctx, ext, from, w)
	if err != nil {
		return 0, err
	}
	query := "SELECT " + cols + " FROM " + from + w.String() + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args := append(append([]interface{}{}, w.args...), pg.Limit(), pg.Offset())
	if err = selectRows(ctx, ext, dest, query, args...); err != nil {
		return 0, err
	}
	return total, nil
}

// where AND-s conditions together.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// search adds a case-insensitive match of term on any of cols.
func (w *where) search(term string, cols ...string) {
	if term == "" {
		return
	}
	pattern := "%" + term + "%"
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, col+" ILIKE ?")
		w.args = append(w.args, pattern)
	}
	w.conds = append(w.conds, "("+strings.Join(parts, " OR ")+")")
}

const teacherClassesSQL = "(SELECT class_id FROM lessons WHERE teacher_id = ? UNION SELECT id FROM classes WHERE supervisor_id = ?)"

// visibleClasses is the subquery of the classes scope reaches; all is true for unrestricted scopes.
//   - teacher: classes they teach a lesson in or supervise
//   - student: their class
//   - parent: their children's classes
func visibleClasses(scope school.Scope) (subquery string, args []interface{}, all bool) {
	switch scope.Role {
	case core.RoleAdmin:
		return "", nil, true
	case core.RoleTeacher:
		return teacherClassesSQL, []interface{}{scope.CallerID, scope.CallerID}, false
	case core.RoleStudent:
		return "(SELECT class_id FROM students WHERE id = ?)", []interface{}{scope.CallerID}, false
	case core.RoleParent:
		return "(SELECT class_id FROM students WHERE parent_id = ?)", []interface{}{scope.CallerID}, false
	}
	return "(SELECT NULL::int WHERE FALSE)", nil, false
}

// classVisible restricts col (a class id) to the classes scope reaches.
func (w *where) classVisible(scope school.Scope, col string) {
	sub, args, all := visibleClasses(scope)
	if !all {
		w.add(col+" IN "+sub, args...)
	}
}

// lessonVisible: teachers see the lessons they teach, students and parents the lessons of their classes.
// alias names the lessons table.
func (w *where) lessonVisible(scope school.Scope, alias string) {
	if scope.Role == core.RoleTeacher {
		w.add(alias+".teacher_id = ?", scope.CallerID)
		return
	}
	w.classVisible(scope, alias+".class_id")
}

// studentVisible: students see their own rows, parents their children's, teachers those of students
// in classes they teach. alias names the students table.
func (w *where) studentVisible(scope school.Scope, alias string) {
	switch scope.Role {
	case core.RoleAdmin:
	case core.RoleStudent:
		w.add(alias+".id = ?", scope.CallerID)
	case core.RoleParent:
		w.add(alias+".parent_id = ?", scope.CallerID)
	default:
		w.classVisible(scope, alias+".class_id")
	}
}

// admins

func (repo *schoolRepository) GetAdmin(ctx context.Context, id string, exec ...core.DBExecutor) (school.Admin, error) {
	var adm school.Admin
	err := get(ctx, repo.getExec(exec), &adm, "SELECT id, username FROM admins WHERE id = ?", id)
	return adm, errors.Wrap(err, "getting admin")
}

func (repo *schoolRepository) CreateAdmin(ctx context.Context, adm school.Admin, exec ...core.DBExecutor) (school.Admin, error) {
	if _, err := run(ctx, repo.getExec(exec), "INSERT INTO admins (id, username) VALUES (?, ?)", adm.ID, adm.Username); err != nil {
		return school.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return adm, nil
}
