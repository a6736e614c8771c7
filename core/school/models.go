package school

import (
	"strings"
	"time"
)

// Day is a school day of the week.
type Day string

const (
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
)

var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

func (d Day) IsValid() bool {
	for _, day := range Days {
		if d == day {
			return true
		}
	}
	return false
}

// DayOf is the school day t falls on in UTC; weekends are not school days.
func DayOf(t time.Time) (Day, bool) {
	d := Day(strings.ToUpper(t.UTC().Weekday().String()))
	return d, d.IsValid()
}

type Sex string

const (
	Male   Sex = "MALE"
	Female Sex = "FEMALE"
)

func ParseSex(s string) (Sex, bool) {
	switch Sex(strings.ToUpper(strings.TrimSpace(s))) {
	case Male:
		return Male, true
	case Female:
		return Female, true
	}
	return "", false
}

// Optional references use their zero value for "none": 0 for int ids, "" for identity ids.

type (
	Grade struct {
		ID    int `json:"id"`
		Level int `json:"level"`
	}

	Admin struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}

	Subject struct {
		ID         int      `json:"id"`
		Name       string   `json:"name"`
		TeacherIDs []string `json:"teachers"`
	}

	Teacher struct {
		ID         string    `json:"id"`
		Username   string    `json:"username"`
		Name       string    `json:"name"`
		Surname    string    `json:"surname"`
		Email      string    `json:"email,omitempty"`
		Phone      string    `json:"phone,omitempty"`
		Address    string    `json:"address"`
		Img        string    `json:"img,omitempty"`
		BloodType  string    `json:"bloodType"`
		Sex        Sex       `json:"sex"`
		Birthday   time.Time `json:"birthday"`
		SubjectIDs []int     `json:"subjects"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	Student struct {
		ID        string    `json:"id"`
		Username  string    `json:"username"`
		Name      string    `json:"name"`
		Surname   string    `json:"surname"`
		Email     string    `json:"email,omitempty"`
		Phone     string    `json:"phone,omitempty"`
		Address   string    `json:"address"`
		Img       string    `json:"img,omitempty"`
		BloodType string    `json:"bloodType"`
		Sex       Sex       `json:"sex"`
		Birthday  time.Time `json:"birthday"`
		GradeID   int       `json:"gradeId"`
		ClassID   int       `json:"classId"`
		ParentID  string    `json:"parentId,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Parent struct {
		ID         string    `json:"id"`
		Username   string    `json:"username"`
		Name       string    `json:"name"`
		Surname    string    `json:"surname"`
		Email      string    `json:"email,omitempty"`
		Phone      string    `json:"phone,omitempty"`
		Address    string    `json:"address"`
		StudentIDs []string  `json:"students"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	Class struct {
		ID           int    `json:"id"`
		Name         string `json:"name"`
		Capacity     int    `json:"capacity"`
		GradeID      int    `json:"gradeId"`
		SupervisorID string `json:"supervisorId,omitempty"`
	}

	// Lesson is a weekly slot: only the clock part of StartTime and EndTime is significant.
	Lesson struct {
		ID        int       `json:"id"`
		Name      string    `json:"name"`
		Day       Day       `json:"day"`
		StartTime time.Time `json:"startTime"`
		EndTime   time.Time `json:"endTime"`
		SubjectID int       `json:"subjectId"`
		ClassID   int       `json:"classId"`
		TeacherID string    `json:"teacherId"`
	}

	Exam struct {
		ID        int       `json:"id"`
		Title     string    `json:"title"`
		StartTime time.Time `json:"startTime"`
		EndTime   time.Time `json:"endTime"`
		LessonID  int       `json:"lessonId"`
	}

	Assignment struct {
		ID        int       `json:"id"`
		Title     string    `json:"title"`
		StartDate time.Time `json:"startDate"`
		DueDate   time.Time `json:"dueDate"`
		SubjectID int       `json:"subjectId"`
		LessonID  int       `json:"lessonId"`
	}

	// Result references exactly one of ExamID or AssignmentID.
	Result struct {
		ID           int    `json:"id"`
		Score        int    `json:"score"`
		StudentID    string `json:"studentId"`
		ExamID       int    `json:"examId,omitempty"`
		AssignmentID int    `json:"assignmentId,omitempty"`
	}

	Attendance struct {
		ID        int       `json:"id"`
		Date      time.Time `json:"date"`
		Present   bool      `json:"present"`
		StudentID string    `json:"studentId"`
		LessonID  int       `json:"lessonId"`
	}

	// Event and Announcement with ClassID 0 are school-wide.
	Event struct {
		ID          int       `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		StartTime   time.Time `json:"startTime"`
		EndTime     time.Time `json:"endTime"`
		ClassID     int       `json:"classId,omitempty"`
	}

	Announcement struct {
		ID          int       `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Date        time.Time `json:"date"`
		ClassID     int       `json:"classId,omitempty"`
	}
)

// clockMinutes is the minute of the day of t, in UTC.
func clockMinutes(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

func clockString(t time.Time) string {
	return t.UTC().Format("15:04")
}

// overlaps reports whether the clock intervals [aStart, aEnd) and [bStart, bEnd) intersect.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return clockMinutes(aStart) < clockMinutes(bEnd) && clockMinutes(bStart) < clockMinutes(aEnd)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// within reports whether the clock interval [start, end] lies inside [outerStart, outerEnd].
func within(start, end, outerStart, outerEnd time.Time) bool {
	return clockMinutes(start) >= clockMinutes(outerStart) && clockMinutes(end) <= clockMinutes(outerEnd)
}
