package inmemdb

import (
	"context"
	"maps"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type subjectTeacher struct {
	SubjectID int
	TeacherID string
}

// tables hold plain values only; link slices (Subject.TeacherIDs, ...) are rebuilt on read.
type tables struct {
	users         map[string]user.User
	admins        map[string]school.Admin
	grades        map[int]school.Grade
	subjects      map[int]school.Subject
	teachers      map[string]school.Teacher
	subjTeachers  map[subjectTeacher]bool
	students      map[string]school.Student
	parents       map[string]school.Parent
	classes       map[int]school.Class
	lessons       map[int]school.Lesson
	exams         map[int]school.Exam
	assignments   map[int]school.Assignment
	results       map[int]school.Result
	attendances   map[int]school.Attendance
	events        map[int]school.Event
	announcements map[int]school.Announcement

	pkCount map[string]int
}

func newTables() *tables {
	return &tables{
		users:         make(map[string]user.User),
		admins:        make(map[string]school.Admin),
		grades:        make(map[int]school.Grade),
		subjects:      make(map[int]school.Subject),
		teachers:      make(map[string]school.Teacher),
		subjTeachers:  make(map[subjectTeacher]bool),
		students:      make(map[string]school.Student),
		parents:       make(map[string]school.Parent),
		classes:       make(map[int]school.Class),
		lessons:       make(map[int]school.Lesson),
		exams:         make(map[int]school.Exam),
		assignments:   make(map[int]school.Assignment),
		results:       make(map[int]school.Result),
		attendances:   make(map[int]school.Attendance),
		events:        make(map[int]school.Event),
		announcements: make(map[int]school.Announcement),
		pkCount:       make(map[string]int),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		users:         maps.Clone(t.users),
		admins:        maps.Clone(t.admins),
		grades:        maps.Clone(t.grades),
		subjects:      maps.Clone(t.subjects),
		teachers:      maps.Clone(t.teachers),
		subjTeachers:  maps.Clone(t.subjTeachers),
		students:      maps.Clone(t.students),
		parents:       maps.Clone(t.parents),
		classes:       maps.Clone(t.classes),
		lessons:       maps.Clone(t.lessons),
		exams:         maps.Clone(t.exams),
		assignments:   maps.Clone(t.assignments),
		results:       maps.Clone(t.results),
		attendances:   maps.Clone(t.attendances),
		events:        maps.Clone(t.events),
		announcements: maps.Clone(t.announcements),
		pkCount:       maps.Clone(t.pkCount),
	}
}

func (t *tables) nextPK(table string) int {
	t.pkCount[table]++
	return t.pkCount[table]
}

// DB is a process-local datastore. Writers are serialized; a transaction holds the writer slot
// from start to end and is undone by restoring a snapshot.
type DB struct {
	mutex   sync.RWMutex // guards t
	txMutex sync.Mutex   // writer slot
	t       *tables
}

var _ core.TxRunner = (*DB)(nil) // interface compliance check

// Open returns an empty DB holding the six grades and the default class (id 1), as migrations do.
func Open() *DB {
	db := &DB{t: newTables()}
	for lvl := 1; lvl <= 6; lvl++ {
		id := db.t.nextPK("grades")
		db.t.grades[id] = school.Grade{ID: id, Level: lvl}
	}
	id := db.t.nextPK("classes")
	db.t.classes[id] = school.Class{ID: id, Name: "1A", Capacity: 30, GradeID: 1}
	return db
}

// txExecutor marks repository calls made inside RunInTx. It never runs SQL.
type txExecutor struct {
	core.DBExecutor
}

func inTx(exec []core.DBExecutor) bool {
	if len(exec) == 0 {
		return false
	}
	_, ok := exec[0].(txExecutor)
	return ok
}

func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMutex.Lock()
	defer db.txMutex.Unlock()

	if err := ctxErr(ctx); err != nil {
		return err
	}
	db.mutex.RLock()
	snapshot := db.t.clone()
	db.mutex.RUnlock()

	err := fn(txExecutor{})
	if err == nil {
		err = ctxErr(ctx)
	}
	if err != nil {
		db.mutex.Lock()
		db.t = snapshot
		db.mutex.Unlock()
		return err
	}
	return nil
}

func (db *DB) read(ctx context.Context, fn func(t *tables) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return fn(db.t)
}

// write runs fn with exclusive access. fn must check everything before mutating t.
func (db *DB) write(ctx context.Context, exec []core.DBExecutor, fn func(t *tables) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if !inTx(exec) {
		db.txMutex.Lock()
		defer db.txMutex.Unlock()
	}
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return fn(db.t)
}

func ctxErr(ctx context.Context) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return errors.Wrap(core.ErrTimeout, "inmem")
	default:
		return errors.Wrap(ctx.Err(), "inmem")
	}
}
