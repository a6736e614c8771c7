package school_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

func TestLessonService(t *testing.T) {
	c := newCampus(t)
	other := c.teacher("mrsjones")
	otherCaller := core.Caller{ID: other, Role: core.RoleTeacher}

	tests := []struct {
		name     string
		caller   core.Caller
		in       school.LessonInput
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{
			name: "overlap in class", caller: admin, in: lessonInput(school.Monday, 9, 11, c.subjectID, c.classID, other),
			wantKind: core.KindConflict, wantMsg: "Time conflict with another lesson in this class on MONDAY.",
		},
		{
			name: "end before start", caller: admin, in: lessonInput(school.Tuesday, 10, 9, c.subjectID, c.classID, other),
			wantKind: core.KindInvariant, wantMsg: "Lesson end time must be after start time.",
		},
		{name: "weekend", caller: admin, in: lessonInput("SATURDAY", 9, 10, c.subjectID, c.classID, other), wantKind: core.KindValidation},
		{name: "unknown teacher", caller: admin, in: lessonInput(school.Tuesday, 9, 10, c.subjectID, c.classID, "ghost"), wantKind: core.KindNotFound},
		{
			name: "teacher for someone else", caller: otherCaller, in: lessonInput(school.Tuesday, 9, 10, c.subjectID, c.classID, c.teacherID),
			wantKind: core.KindForbidden, wantMsg: "You can only create lessons you teach.",
		},
		{name: "students cannot create", caller: core.Caller{ID: c.students[0], Role: core.RoleStudent}, in: lessonInput(school.Tuesday, 9, 10, c.subjectID, c.classID, other), wantKind: core.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.svcs.Lessons.Create(c.ctx, tt.caller, tt.in)
			require.False(t, out.Success)
			assert.Equal(t, tt.wantKind, out.Kind, out.Message)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out.Message)
			}
		})
	}

	t.Run("adjacent lessons do not overlap", func(t *testing.T) {
		out := c.svcs.Lessons.Create(c.ctx, otherCaller, lessonInput(school.Monday, 10, 11, c.subjectID, c.classID, other))
		require.True(t, out.Success, out.Message)
	})

	t.Run("teacher updates own lesson only", func(t *testing.T) {
		out := c.svcs.Lessons.Update(c.ctx, otherCaller, c.lessonID, lessonInput(school.Monday, 9, 10, c.subjectID, c.classID, other))
		assert.Equal(t, core.KindForbidden, out.Kind)

		out = c.svcs.Lessons.Update(c.ctx, c.teacherCaller(), c.lessonID, lessonInput(school.Monday, 8, 9, c.subjectID, c.classID, c.teacherID))
		require.True(t, out.Success, out.Message)
	})

	t.Run("delete blocked by exams", func(t *testing.T) {
		c.exam(c.lessonID, at(7, 8, 0), at(7, 9, 0))
		out := c.svcs.Lessons.Delete(c.ctx, admin, c.lessonID)
		assert.Equal(t, core.KindInvariant, out.Kind)
		assert.Equal(t, "Cannot delete lesson. It has 0 attendance records, 1 exams, and 0 assignments associated with it. Please remove these first.", out.Message)
	})
}

func TestExamService(t *testing.T) {
	c := newCampus(t)

	tests := []struct {
		name     string
		in       school.ExamInput
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{
			name: "in the past", in: school.ExamInput{Title: "Quiz", StartTime: at(-7, 9, 0), EndTime: at(-7, 10, 0), LessonID: c.lessonID},
			wantKind: core.KindInvariant, wantMsg: "Exam start time cannot be in the past.",
		},
		{
			name: "end before start", in: school.ExamInput{Title: "Quiz", StartTime: at(7, 10, 0), EndTime: at(7, 9, 0), LessonID: c.lessonID},
			wantKind: core.KindInvariant, wantMsg: "Exam end time must be after start time.",
		},
		{
			name: "outside the lesson", in: school.ExamInput{Title: "Quiz", StartTime: at(7, 9, 30), EndTime: at(7, 10, 30), LessonID: c.lessonID},
			wantKind: core.KindInvariant, wantMsg: "Exam time must be within lesson time (09:00 - 10:00).",
		},
		{
			name: "spans two days", in: school.ExamInput{Title: "Quiz", StartTime: at(7, 9, 10), EndTime: at(8, 9, 50), LessonID: c.lessonID},
			wantKind: core.KindInvariant, wantMsg: "Exam must start and end on the same day.",
		},
		{
			name: "not on the lesson day", in: school.ExamInput{Title: "Quiz", StartTime: at(8, 9, 10), EndTime: at(8, 9, 50), LessonID: c.lessonID},
			wantKind: core.KindInvariant, wantMsg: "Exam must take place on a MONDAY, the day of its lesson.",
		},
		{
			name: "unknown lesson", in: school.ExamInput{Title: "Quiz", StartTime: at(7, 9, 0), EndTime: at(7, 10, 0), LessonID: 99},
			wantKind: core.KindNotFound, wantMsg: "Selected lesson does not exist.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.svcs.Exams.Create(c.ctx, admin, tt.in)
			require.False(t, out.Success)
			assert.Equal(t, tt.wantKind, out.Kind, out.Message)
			assert.Equal(t, tt.wantMsg, out.Message)
		})
	}

	in := school.ExamInput{Title: "Quiz", StartTime: at(7, 9, 10), EndTime: at(7, 9, 50), LessonID: c.lessonID}
	out := c.svcs.Exams.Create(c.ctx, c.teacherCaller(), in)
	require.True(t, out.Success, out.Message)
	examID := c.okInt(out)

	out = c.svcs.Exams.Create(c.ctx, admin, in)
	assert.Equal(t, core.KindConflict, out.Kind, "same title on the same lesson")

	// updates may keep a start that has passed since
	c.svcs.SetNow(func() time.Time { return now.AddDate(0, 1, 0) })
	defer c.svcs.SetNow(func() time.Time { return now })
	in.Title = "Pop quiz"
	out = c.svcs.Exams.Update(c.ctx, admin, examID, in)
	require.True(t, out.Success, out.Message)

	c.okInt(c.svcs.Results.Create(c.ctx, admin, school.ResultInput{Score: 80, StudentID: c.students[0], ExamID: examID}))
	out = c.svcs.Exams.Delete(c.ctx, admin, examID)
	assert.Equal(t, core.KindInvariant, out.Kind)
}

func TestAssignmentService(t *testing.T) {
	c := newCampus(t)

	t.Run("resolved from subject and class", func(t *testing.T) {
		id := c.okInt(c.svcs.Assignments.Create(c.ctx, c.teacherCaller(), school.AssignmentInput{
			Title: "Homework", StartDate: now, DueDate: now.AddDate(0, 0, 7), SubjectID: c.subjectID, ClassID: c.classID,
		}))
		asg, err := c.stores.School.GetAssignment(c.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, c.lessonID, asg.LessonID)
	})

	tests := []struct {
		name     string
		in       school.AssignmentInput
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{
			name: "due in the past", in: school.AssignmentInput{Title: "Late", StartDate: now.AddDate(0, 0, -7), DueDate: now.AddDate(0, 0, -1), SubjectID: c.subjectID, ClassID: c.classID},
			wantKind: core.KindInvariant, wantMsg: "Due date cannot be in the past.",
		},
		{
			name: "due before start", in: school.AssignmentInput{Title: "Odd", StartDate: now.AddDate(0, 0, 7), DueDate: now.AddDate(0, 0, 6), SubjectID: c.subjectID, ClassID: c.classID},
			wantKind: core.KindInvariant, wantMsg: "Due date must be after the start date.",
		},
		{
			name: "no lesson for subject and class", in: school.AssignmentInput{Title: "Lost", StartDate: now, DueDate: now.AddDate(0, 0, 7), SubjectID: c.subjectID, ClassID: defaultClassID},
			wantKind: core.KindNotFound, wantMsg: "No lessons found for this subject and class combination. Please create a lesson first.",
		},
		{
			name: "class or lesson required", in: school.AssignmentInput{Title: "Lost", StartDate: now, DueDate: now.AddDate(0, 0, 7), SubjectID: c.subjectID},
			wantKind: core.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.svcs.Assignments.Create(c.ctx, admin, tt.in)
			require.False(t, out.Success)
			assert.Equal(t, tt.wantKind, out.Kind, out.Message)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out.Message)
			}
		})
	}
}

func TestResultService(t *testing.T) {
	c := newCampus(t)
	examID := c.exam(c.lessonID, at(7, 9, 0), at(7, 10, 0))
	outsider := c.student("outsider", defaultClassID, "")

	tests := []struct {
		name     string
		caller   core.Caller
		in       school.ResultInput
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{name: "no assessment", caller: admin, in: school.ResultInput{Score: 50, StudentID: c.students[0]}, wantKind: core.KindValidation},
		{name: "both assessments", caller: admin, in: school.ResultInput{Score: 50, StudentID: c.students[0], ExamID: examID, AssignmentID: 1}, wantKind: core.KindValidation},
		{name: "score over 100", caller: admin, in: school.ResultInput{Score: 101, StudentID: c.students[0], ExamID: examID}, wantKind: core.KindValidation},
		{
			name: "student of another class", caller: admin, in: school.ResultInput{Score: 50, StudentID: outsider, ExamID: examID},
			wantKind: core.KindInvariant, wantMsg: "Student is not enrolled in the class for this exam.",
		},
		{
			name: "teacher of another lesson", caller: core.Caller{ID: "someone", Role: core.RoleTeacher}, in: school.ResultInput{Score: 50, StudentID: c.students[0], ExamID: examID},
			wantKind: core.KindForbidden, wantMsg: "You can only create results for lessons you teach.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.svcs.Results.Create(c.ctx, tt.caller, tt.in)
			require.False(t, out.Success)
			assert.Equal(t, tt.wantKind, out.Kind, out.Message)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out.Message)
			}
		})
	}

	id := c.okInt(c.svcs.Results.Create(c.ctx, c.teacherCaller(), school.ResultInput{Score: 75, StudentID: c.students[0], ExamID: examID}))

	out := c.svcs.Results.Create(c.ctx, admin, school.ResultInput{Score: 90, StudentID: c.students[0], ExamID: examID})
	assert.Equal(t, core.KindConflict, out.Kind)
	assert.Equal(t, "A result already exists for this student and assessment.", out.Message)

	out = c.svcs.Results.Update(c.ctx, c.teacherCaller(), id, school.ResultInput{Score: 0, StudentID: c.students[0], ExamID: examID})
	require.True(t, out.Success, out.Message)
	res, err := c.stores.School.GetResult(c.ctx, id)
	require.NoError(t, err)
	assert.Zero(t, res.Score)

	out = c.svcs.Results.Delete(c.ctx, admin, id)
	require.True(t, out.Success, out.Message)
}

func TestAttendanceService(t *testing.T) {
	c := newCampus(t)
	outsider := c.student("outsider", defaultClassID, "")

	in := school.AttendanceInput{Date: now.Add(3 * time.Hour), Present: true, StudentID: c.students[0], LessonID: c.lessonID}
	id := c.okInt(c.svcs.Attendances.Create(c.ctx, c.teacherCaller(), in))

	att, err := c.stores.School.GetAttendance(c.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, time.January, 7, 0, 0, 0, 0, time.UTC), att.Date, "dates are stored as days")

	out := c.svcs.Attendances.Create(c.ctx, admin, in)
	assert.Equal(t, core.KindConflict, out.Kind, "one record per student, lesson and day")

	in.StudentID = outsider
	out = c.svcs.Attendances.Create(c.ctx, admin, in)
	assert.Equal(t, core.KindInvariant, out.Kind)
	assert.Equal(t, "Student is not enrolled in the class for this lesson.", out.Message)

	out = c.svcs.Attendances.Delete(c.ctx, core.Caller{ID: c.parentID, Role: core.RoleParent}, id)
	assert.Equal(t, core.KindForbidden, out.Kind)

	out = c.svcs.Attendances.Delete(c.ctx, c.teacherCaller(), id)
	require.True(t, out.Success, out.Message)
}
