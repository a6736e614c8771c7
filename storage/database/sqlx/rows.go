package sqlxrepos

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/school"
)

// Rows mirror the tables; optional columns are null types and map to zero values in the domain.

type teacherRow struct {
	ID        string      `db:"id"`
	Username  string      `db:"username"`
	Name      string      `db:"name"`
	Surname   string      `db:"surname"`
	Email     null.String `db:"email"`
	Phone     null.String `db:"phone"`
	Address   string      `db:"address"`
	Img       null.String `db:"img"`
	BloodType string      `db:"blood_type"`
	Sex       string      `db:"sex"`
	Birthday  time.Time   `db:"birthday"`
	CreatedAt time.Time   `db:"created_at"`
}

const teacherCols = "t.id, t.username, t.name, t.surname, t.email, t.phone, t.address, t.img, t.blood_type, t.sex, t.birthday, t.created_at"

func (r teacherRow) teacher() school.Teacher {
	return school.Teacher{
		ID:        r.ID,
		Username:  r.Username,
		Name:      r.Name,
		Surname:   r.Surname,
		Email:     r.Email.String,
		Phone:     r.Phone.String,
		Address:   r.Address,
		Img:       r.Img.String,
		BloodType: r.BloodType,
		Sex:       school.Sex(r.Sex),
		Birthday:  r.Birthday,
		CreatedAt: r.CreatedAt,
	}
}

type studentRow struct {
	ID        string      `db:"id"`
	Username  string      `db:"username"`
	Name      string      `db:"name"`
	Surname   string      `db:"surname"`
	Email     null.String `db:"email"`
	Phone     null.String `db:"phone"`
	Address   string      `db:"address"`
	Img       null.String `db:"img"`
	BloodType string      `db:"blood_type"`
	Sex       string      `db:"sex"`
	Birthday  time.Time   `db:"birthday"`
	GradeID   int         `db:"grade_id"`
	ClassID   int         `db:"class_id"`
	ParentID  null.String `db:"parent_id"`
	CreatedAt time.Time   `db:"created_at"`
}

const studentCols = "st.id, st.username, st.name, st.surname, st.email, st.phone, st.address, st.img, st.blood_type, " +
	"st.sex, st.birthday, st.grade_id, st.class_id, st.parent_id, st.created_at"

func (r studentRow) student() school.Student {
	return school.Student{
		ID:        r.ID,
		Username:  r.Username,
		Name:      r.Name,
		Surname:   r.Surname,
		Email:     r.Email.String,
		Phone:     r.Phone.String,
		Address:   r.Address,
		Img:       r.Img.String,
		BloodType: r.BloodType,
		Sex:       school.Sex(r.Sex),
		Birthday:  r.Birthday,
		GradeID:   r.GradeID,
		ClassID:   r.ClassID,
		ParentID:  r.ParentID.String,
		CreatedAt: r.CreatedAt,
	}
}

type parentRow struct {
	ID        string      `db:"id"`
	Username  string      `db:"username"`
	Name      string      `db:"name"`
	Surname   string      `db:"surname"`
	Email     null.String `db:"email"`
	Phone     null.String `db:"phone"`
	Address   string      `db:"address"`
	CreatedAt time.Time   `db:"created_at"`
}

const parentCols = "p.id, p.username, p.name, p.surname, p.email, p.phone, p.address, p.created_at"

func (r parentRow) parent() school.Parent {
	return school.Parent{
		ID:        r.ID,
		Username:  r.Username,
		Name:      r.Name,
		Surname:   r.Surname,
		Email:     r.Email.String,
		Phone:     r.Phone.String,
		Address:   r.Address,
		CreatedAt: r.CreatedAt,
	}
}

type classRow struct {
	ID           int         `db:"id"`
	Name         string      `db:"name"`
	Capacity     int         `db:"capacity"`
	GradeID      int         `db:"grade_id"`
	SupervisorID null.String `db:"supervisor_id"`
}

const classCols = "c.id, c.name, c.capacity, c.grade_id, c.supervisor_id"

func (r classRow) class() school.Class {
	return school.Class{ID: r.ID, Name: r.Name, Capacity: r.Capacity, GradeID: r.GradeID, SupervisorID: r.SupervisorID.String}
}

type lessonRow struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Day       string    `db:"day"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	SubjectID int       `db:"subject_id"`
	ClassID   int       `db:"class_id"`
	TeacherID string    `db:"teacher_id"`
}

const lessonCols = "l.id, l.name, l.day, l.start_time, l.end_time, l.subject_id, l.class_id, l.teacher_id"

func (r lessonRow) lesson() school.Lesson {
	return school.Lesson{
		ID:        r.ID,
		Name:      r.Name,
		Day:       school.Day(r.Day),
		StartTime: r.StartTime.UTC(),
		EndTime:   r.EndTime.UTC(),
		SubjectID: r.SubjectID,
		ClassID:   r.ClassID,
		TeacherID: r.TeacherID,
	}
}

type examRow struct {
	ID        int       `db:"id"`
	Title     string    `db:"title"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	LessonID  int       `db:"lesson_id"`
}

const examCols = "e.id, e.title, e.start_time, e.end_time, e.lesson_id"

func (r examRow) exam() school.Exam {
	return school.Exam{ID: r.ID, Title: r.Title, StartTime: r.StartTime.UTC(), EndTime: r.EndTime.UTC(), LessonID: r.LessonID}
}

type assignmentRow struct {
	ID        int       `db:"id"`
	Title     string    `db:"title"`
	StartDate time.Time `db:"start_date"`
	DueDate   time.Time `db:"due_date"`
	SubjectID int       `db:"subject_id"`
	LessonID  int       `db:"lesson_id"`
}

const assignmentCols = "a.id, a.title, a.start_date, a.due_date, a.subject_id, a.lesson_id"

func (r assignmentRow) assignment() school.Assignment {
	return school.Assignment{
		ID:        r.ID,
		Title:     r.Title,
		StartDate: r.StartDate.UTC(),
		DueDate:   r.DueDate.UTC(),
		SubjectID: r.SubjectID,
		LessonID:  r.LessonID,
	}
}

type resultRow struct {
	ID           int      `db:"id"`
	Score        int      `db:"score"`
	StudentID    string   `db:"student_id"`
	ExamID       null.Int `db:"exam_id"`
	AssignmentID null.Int `db:"assignment_id"`
}

const resultCols = "r.id, r.score, r.student_id, r.exam_id, r.assignment_id"

func (r resultRow) result() school.Result {
	return school.Result{ID: r.ID, Score: r.Score, StudentID: r.StudentID, ExamID: r.ExamID.Int, AssignmentID: r.AssignmentID.Int}
}

type attendanceRow struct {
	ID        int       `db:"id"`
	Date      time.Time `db:"date"`
	Present   bool      `db:"present"`
	StudentID string    `db:"student_id"`
	LessonID  int       `db:"lesson_id"`
}

const attendanceCols = "att.id, att.date, att.present, att.student_id, att.lesson_id"

func (r attendanceRow) attendance() school.Attendance {
	return school.Attendance{ID: r.ID, Date: r.Date.UTC(), Present: r.Present, StudentID: r.StudentID, LessonID: r.LessonID}
}

type eventRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	StartTime   time.Time `db:"start_time"`
	EndTime     time.Time `db:"end_time"`
	ClassID     null.Int  `db:"class_id"`
}

const eventCols = "ev.id, ev.title, ev.description, ev.start_time, ev.end_time, ev.class_id"

func (r eventRow) event() school.Event {
	return school.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime.UTC(),
		EndTime:     r.EndTime.UTC(),
		ClassID:     r.ClassID.Int,
	}
}

type announcementRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Date        time.Time `db:"date"`
	ClassID     null.Int  `db:"class_id"`
}

const announcementCols = "an.id, an.title, an.description, an.date, an.class_id"

func (r announcementRow) announcement() school.Announcement {
	return school.Announcement{ID: r.ID, Title: r.Title, Description: r.Description, Date: r.Date.UTC(), ClassID: r.ClassID.Int}
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullInt(i int) null.Int {
	return null.NewInt(i, i != 0)
}
