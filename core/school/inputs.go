package school

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Inputs are the typed payloads of entity actions. Validate cleans the input then checks it;
// no input validation performs I/O.

type SubjectInput struct {
	Name       string   `json:"name" validate:"required,notblank,max=100"`
	TeacherIDs []string `json:"teachers"`
}

func (in *SubjectInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.TeacherIDs = cleanIDs(in.TeacherIDs)
	return validate.Struct(in)
}

type TeacherInput struct {
	Username   string    `json:"username" validate:"required,min=3,max=20,alphanum_"`
	Password   string    `json:"password" validate:"omitempty,min=8"`
	Name       string    `json:"name" validate:"required,notblank"`
	Surname    string    `json:"surname" validate:"required,notblank"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Phone      string    `json:"phone" validate:"omitempty,max=20"`
	Address    string    `json:"address" validate:"required,notblank"`
	Img        string    `json:"img" validate:"omitempty,url"`
	BloodType  string    `json:"bloodType" validate:"required,bloodtype"`
	Sex        string    `json:"sex" validate:"omitempty,sex"`
	Birthday   time.Time `json:"birthday" validate:"required"`
	SubjectIDs []int     `json:"subjects"`
}

func (in *TeacherInput) Validate(validate *validator.Validate, creating bool) error {
	in.Username = core.CleanString(in.Username, true /* lower */)
	in.Name = core.CleanString(in.Name)
	in.Surname = core.CleanString(in.Surname)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.Phone = core.CleanString(in.Phone)
	in.Address = core.CleanString(in.Address)
	in.Img = core.CleanString(in.Img)
	in.BloodType = strings.ToUpper(core.CleanString(in.BloodType))
	in.SubjectIDs = uniqueInts(in.SubjectIDs)
	if err := validate.Struct(in); err != nil {
		return err
	}
	return requirePassword(in.Password, creating)
}

func (in TeacherInput) sex() Sex {
	if sex, ok := ParseSex(in.Sex); ok {
		return sex
	}
	return Male
}

type StudentInput struct {
	Username  string    `json:"username" validate:"required,min=3,max=20,alphanum_"`
	Password  string    `json:"password" validate:"omitempty,min=8"`
	Name      string    `json:"name" validate:"required,notblank"`
	Surname   string    `json:"surname" validate:"required,notblank"`
	Email     string    `json:"email" validate:"omitempty,email"`
	Phone     string    `json:"phone" validate:"omitempty,max=20"`
	Address   string    `json:"address" validate:"required,notblank"`
	Img       string    `json:"img" validate:"omitempty,url"`
	BloodType string    `json:"bloodType" validate:"required,bloodtype"`
	Sex       string    `json:"sex" validate:"required,sex"`
	Birthday  time.Time `json:"birthday" validate:"required"`
	GradeID   int       `json:"gradeId" validate:"required,min=1"`
	ClassID   int       `json:"classId" validate:"required,min=1"`
	ParentID  string    `json:"parentId"`
}

func (in *StudentInput) Validate(validate *validator.Validate, creating bool) error {
	in.Username = core.CleanString(in.Username, true /* lower */)
	in.Name = core.CleanString(in.Name)
	in.Surname = core.CleanString(in.Surname)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.Phone = core.CleanString(in.Phone)
	in.Address = core.CleanString(in.Address)
	in.Img = core.CleanString(in.Img)
	in.BloodType = strings.ToUpper(core.CleanString(in.BloodType))
	in.Sex = strings.ToUpper(core.CleanString(in.Sex))
	in.ParentID = core.CleanString(in.ParentID)
	if err := validate.Struct(in); err != nil {
		return err
	}
	return requirePassword(in.Password, creating)
}

type ParentInput struct {
	Username   string   `json:"username" validate:"required,min=3,max=20,alphanum_"`
	Password   string   `json:"password" validate:"omitempty,min=8"`
	Name       string   `json:"name" validate:"required,notblank"`
	Surname    string   `json:"surname" validate:"required,notblank"`
	Email      string   `json:"email" validate:"omitempty,email"`
	Phone      string   `json:"phone" validate:"omitempty,max=20"`
	Address    string   `json:"address" validate:"required,notblank"`
	StudentIDs []string `json:"studentIds"`
}

func (in *ParentInput) Validate(validate *validator.Validate, creating bool) error {
	in.Username = core.CleanString(in.Username, true /* lower */)
	in.Name = core.CleanString(in.Name)
	in.Surname = core.CleanString(in.Surname)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.Phone = core.CleanString(in.Phone)
	in.Address = core.CleanString(in.Address)
	in.StudentIDs = cleanIDs(in.StudentIDs)
	if err := validate.Struct(in); err != nil {
		return err
	}
	return requirePassword(in.Password, creating)
}

type ClassInput struct {
	Name         string `json:"name" validate:"required,notblank,max=20"`
	Capacity     int    `json:"capacity" validate:"required,min=1"`
	GradeID      int    `json:"gradeId" validate:"required,min=1"`
	SupervisorID string `json:"supervisorId"`
}

func (in *ClassInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.SupervisorID = core.CleanString(in.SupervisorID)
	return validate.Struct(in)
}

type LessonInput struct {
	Name      string    `json:"name" validate:"required,notblank"`
	Day       Day       `json:"day" validate:"required,weekday"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
	SubjectID int       `json:"subjectId" validate:"required,min=1"`
	ClassID   int       `json:"classId" validate:"required,min=1"`
	TeacherID string    `json:"teacherId" validate:"required"`
}

func (in *LessonInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Day = Day(strings.ToUpper(core.CleanString(string(in.Day))))
	in.TeacherID = core.CleanString(in.TeacherID)
	return validate.Struct(in)
}

type ExamInput struct {
	Title     string    `json:"title" validate:"required,notblank"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
	LessonID  int       `json:"lessonId" validate:"required,min=1"`
}

func (in *ExamInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	return validate.Struct(in)
}

// AssignmentInput anchors the Assignment to LessonID when set, otherwise to the first lesson
// of SubjectID in ClassID.
type AssignmentInput struct {
	Title     string    `json:"title" validate:"required,notblank"`
	StartDate time.Time `json:"startDate" validate:"required"`
	DueDate   time.Time `json:"dueDate" validate:"required"`
	SubjectID int       `json:"subjectId" validate:"required,min=1"`
	ClassID   int       `json:"classId" validate:"required_without=LessonID,omitempty,min=1"`
	LessonID  int       `json:"lessonId" validate:"omitempty,min=1"`
}

func (in *AssignmentInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	return validate.Struct(in)
}

type ResultInput struct {
	Score        int    `json:"score" validate:"min=0,max=100"`
	StudentID    string `json:"studentId" validate:"required"`
	ExamID       int    `json:"examId" validate:"omitempty,min=1"`
	AssignmentID int    `json:"assignmentId" validate:"omitempty,min=1"`
}

func (in *ResultInput) Validate(validate *validator.Validate) error {
	in.StudentID = core.CleanString(in.StudentID)
	return validate.Struct(in)
}

type AttendanceInput struct {
	Date      time.Time `json:"date" validate:"required"`
	Present   bool      `json:"present"`
	StudentID string    `json:"studentId" validate:"required"`
	LessonID  int       `json:"lessonId" validate:"required,min=1"`
}

func (in *AttendanceInput) Validate(validate *validator.Validate) error {
	in.StudentID = core.CleanString(in.StudentID)
	in.Date = truncateDay(in.Date)
	return validate.Struct(in)
}

type EventInput struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description" validate:"required,notblank"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
	ClassID     int       `json:"classId" validate:"omitempty,min=1"`
}

func (in *EventInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

type AnnouncementInput struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description" validate:"required,notblank"`
	Date        time.Time `json:"date" validate:"required"`
	ClassID     int       `json:"classId" validate:"omitempty,min=1"`
}

func (in *AnnouncementInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

// helpers

var errPasswordRequired = core.NewValidationError(nil, core.FieldError{Field: "password", Error: "this field is required"})

func requirePassword(pwd string, creating bool) error {
	if creating && pwd == "" {
		return errPasswordRequired
	}
	return nil
}

// cleanIDs trims ids and drops blanks and duplicates, keeping order.
func cleanIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func uniqueInts(ids []int) []int {
	if ids == nil {
		return nil
	}
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
