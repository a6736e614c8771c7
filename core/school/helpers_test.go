package school_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/storage"
	"github.com/trezcool/shule/tests"
)

const defaultClassID = 1

// now is a Monday morning.
var now = time.Date(2030, time.January, 7, 8, 0, 0, 0, time.UTC)

var admin = core.Caller{ID: "root", Username: "root", Role: core.RoleAdmin}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	stores storage.Stores
	idp    *testutil.FakeIdentity
	svcs   *school.Services
}

func newFixture(t *testing.T) *fixture {
	stores := storage.OpenInMem()
	idp := testutil.NewFakeIdentity()
	svcs := testutil.NewServices(t, stores, idp)
	svcs.SetNow(func() time.Time { return now })
	return &fixture{t: t, ctx: context.Background(), stores: stores, idp: idp, svcs: svcs}
}

func clock(hour, min int) time.Time {
	return time.Date(2000, time.January, 1, hour, min, 0, 0, time.UTC)
}

func (f *fixture) ok(out core.Outcome) string {
	f.t.Helper()
	require.True(f.t, out.Success, "%s (%v) %v", out.Message, out.Kind, out.Fields)
	return out.ID
}

func (f *fixture) okInt(out core.Outcome) int {
	f.t.Helper()
	id, err := strconv.Atoi(f.ok(out))
	require.NoError(f.t, err)
	return id
}

func (f *fixture) subject(name string, teacherIDs ...string) int {
	f.t.Helper()
	return f.okInt(f.svcs.Subjects.Create(f.ctx, admin, school.SubjectInput{Name: name, TeacherIDs: teacherIDs}))
}

func teacherInput(uname string) school.TeacherInput {
	return school.TeacherInput{
		Username:  uname,
		Password:  "password123",
		Name:      "T" + uname,
		Surname:   "Teacher",
		Email:     uname + "@test.cd",
		Address:   "1 School Rd",
		BloodType: "A+",
		Sex:       "MALE",
		Birthday:  time.Date(1990, time.March, 3, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) teacher(uname string) string {
	f.t.Helper()
	return f.ok(f.svcs.Teachers.Create(f.ctx, admin, teacherInput(uname)))
}

func (f *fixture) class(name string, capacity, grade int, supervisor string) int {
	f.t.Helper()
	return f.okInt(f.svcs.Classes.Create(f.ctx, admin, school.ClassInput{
		Name: name, Capacity: capacity, GradeID: grade, SupervisorID: supervisor,
	}))
}

func lessonInput(day school.Day, from, to, subject, class int, teacher string) school.LessonInput {
	return school.LessonInput{
		Name:      string(day) + " " + strconv.Itoa(from),
		Day:       day,
		StartTime: clock(from, 0),
		EndTime:   clock(to, 0),
		SubjectID: subject,
		ClassID:   class,
		TeacherID: teacher,
	}
}

func (f *fixture) lesson(day school.Day, from, to, subject, class int, teacher string) int {
	f.t.Helper()
	return f.okInt(f.svcs.Lessons.Create(f.ctx, admin, lessonInput(day, from, to, subject, class, teacher)))
}

func parentInput(uname string, studentIDs ...string) school.ParentInput {
	return school.ParentInput{
		Username:   uname,
		Password:   "password123",
		Name:       "P" + uname,
		Surname:    "Parent",
		Email:      uname + "@test.cd",
		Address:    "2 Home St",
		StudentIDs: studentIDs,
	}
}

func (f *fixture) parent(uname string, studentIDs ...string) string {
	f.t.Helper()
	return f.ok(f.svcs.Parents.Create(f.ctx, admin, parentInput(uname, studentIDs...)))
}

func studentInput(uname string, classID int, parentID string) school.StudentInput {
	return school.StudentInput{
		Username:  uname,
		Password:  "password123",
		Name:      "S" + uname,
		Surname:   "Student",
		Address:   "2 Home St",
		BloodType: "O-",
		Sex:       "FEMALE",
		Birthday:  time.Date(2020, time.June, 6, 0, 0, 0, 0, time.UTC),
		GradeID:   1,
		ClassID:   classID,
		ParentID:  parentID,
	}
}

func (f *fixture) student(uname string, classID int, parentID string) string {
	f.t.Helper()
	return f.ok(f.svcs.Students.Create(f.ctx, admin, studentInput(uname, classID, parentID)))
}

// at returns the clock of hour:min on the n-th day after now.
func at(days, hour, min int) time.Time {
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, time.UTC)
}

func (f *fixture) exam(lessonID int, from, to time.Time) int {
	f.t.Helper()
	return f.okInt(f.svcs.Exams.Create(f.ctx, admin, school.ExamInput{
		Title: "Exam", StartTime: from, EndTime: to, LessonID: lessonID,
	}))
}

func (f *fixture) list(caller core.Caller, kind core.EntityKind, q school.ListQuery) school.ListResult {
	f.t.Helper()
	res, err := f.svcs.List(f.ctx, caller, kind, q)
	require.NoError(f.t, err)
	return res
}

// campus is a small school: one subject taught by one teacher to one class of two students.
type campus struct {
	*fixture
	subjectID int
	teacherID string
	classID   int
	lessonID  int
	parentID  string
	students  []string
}

func newCampus(t *testing.T) *campus {
	f := newFixture(t)
	c := &campus{fixture: f}
	c.teacherID = f.teacher("mrsmith")
	c.subjectID = f.subject("Mathematics", c.teacherID)
	c.classID = f.class("2A", 10, 2, c.teacherID)
	c.lessonID = f.lesson(school.Monday, 9, 10, c.subjectID, c.classID, c.teacherID)
	c.parentID = f.parent("mum")
	c.students = []string{
		f.student("kid1", c.classID, c.parentID),
		f.student("kid2", c.classID, ""),
	}
	return c
}

func (c *campus) teacherCaller() core.Caller {
	return core.Caller{ID: c.teacherID, Username: "mrsmith", Role: core.RoleTeacher}
}
