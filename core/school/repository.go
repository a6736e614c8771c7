package school

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
)

// Filters select rows by AND-ing their non-zero fields.
type (
	StudentFilter struct {
		ClassID  int
		ParentID string
		IDs      []string
		// HasParent restricts to students with (true) or without (false) a parent.
		HasParent *bool
		// ExcludeParentID drops the students of this parent.
		ExcludeParentID string
	}

	LessonFilter struct {
		SubjectID int
		ClassID   int
		TeacherID string
		Day       Day
		ExcludeID int
	}

	ExamFilter struct {
		LessonID int
	}

	AssignmentFilter struct {
		SubjectID int
		LessonID  int
	}

	ResultFilter struct {
		StudentID    string
		ExamID       int
		AssignmentID int
		ExcludeID    int
	}

	AttendanceFilter struct {
		StudentID string
		LessonID  int
		Date      time.Time
	}
)

type (
	SubjectRepository interface {
		GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (Subject, error)
		// CountSubjects counts the existing subjects among ids.
		CountSubjects(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)
		// CreateSubject and UpdateSubject replace the subject's teacher links with s.TeacherIDs.
		CreateSubject(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
		// DeleteSubject removes the subject and its teacher links.
		DeleteSubject(ctx context.Context, id int, exec ...core.DBExecutor) error
		ListSubjects(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Subject, int, error)
	}

	TeacherRepository interface {
		GetTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (Teacher, error)
		CountTeachers(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
		// CreateTeacher and UpdateTeacher replace the teacher's subject links with t.SubjectIDs.
		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		// DeleteTeacher removes the teacher and its subject links.
		DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error
		// ClearClassSupervisor unsets the teacher as supervisor of every class.
		ClearClassSupervisor(ctx context.Context, teacherID string, exec ...core.DBExecutor) error
		// TeacherTeachesClass reports whether the teacher has a lesson in the class.
		TeacherTeachesClass(ctx context.Context, teacherID string, classID int, exec ...core.DBExecutor) (bool, error)
		ListTeachers(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Teacher, int, error)
	}

	StudentRepository interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		CountStudents(ctx context.Context, filter StudentFilter, exec ...core.DBExecutor) (int, error)
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
		// MoveStudents re-enrolls every student of class from into class to.
		MoveStudents(ctx context.Context, from, to int, exec ...core.DBExecutor) error
		ListStudents(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Student, int, error)
	}

	ParentRepository interface {
		GetParent(ctx context.Context, id string, exec ...core.DBExecutor) (Parent, error)
		CreateParent(ctx context.Context, p Parent, exec ...core.DBExecutor) (Parent, error)
		UpdateParent(ctx context.Context, p Parent, exec ...core.DBExecutor) (Parent, error)
		DeleteParent(ctx context.Context, id string, exec ...core.DBExecutor) error
		// SetParentStudents makes studentIDs exactly the children of the parent.
		SetParentStudents(ctx context.Context, parentID string, studentIDs []string, exec ...core.DBExecutor) error
		ListParents(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Parent, int, error)
	}

	ClassRepository interface {
		GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		// LockClass is GetClass holding a write lock on the class until the transaction ends.
		LockClass(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		CreateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		UpdateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error
		ListClasses(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Class, int, error)
		GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (Grade, error)
	}

	LessonRepository interface {
		GetLesson(ctx context.Context, id int, exec ...core.DBExecutor) (Lesson, error)
		// FindLessons returns the matching lessons ordered by id.
		FindLessons(ctx context.Context, filter LessonFilter, exec ...core.DBExecutor) ([]Lesson, error)
		CreateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error
		// DeleteLessons removes the matching lessons with their exams, assignments, attendance
		// and the results of those exams and assignments.
		DeleteLessons(ctx context.Context, filter LessonFilter, exec ...core.DBExecutor) error
		ListLessons(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Lesson, int, error)
	}

	ExamRepository interface {
		GetExam(ctx context.Context, id int, exec ...core.DBExecutor) (Exam, error)
		CountExams(ctx context.Context, filter ExamFilter, exec ...core.DBExecutor) (int, error)
		CreateExam(ctx context.Context, e Exam, exec ...core.DBExecutor) (Exam, error)
		UpdateExam(ctx context.Context, e Exam, exec ...core.DBExecutor) (Exam, error)
		DeleteExam(ctx context.Context, id int, exec ...core.DBExecutor) error
		ListExams(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Exam, int, error)
	}

	AssignmentRepository interface {
		GetAssignment(ctx context.Context, id int, exec ...core.DBExecutor) (Assignment, error)
		CountAssignments(ctx context.Context, filter AssignmentFilter, exec ...core.DBExecutor) (int, error)
		CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int, exec ...core.DBExecutor) error
		// DeleteAssignments removes the matching assignments and their results.
		DeleteAssignments(ctx context.Context, filter AssignmentFilter, exec ...core.DBExecutor) error
		ListAssignments(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Assignment, int, error)
	}

	ResultRepository interface {
		GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (Result, error)
		CountResults(ctx context.Context, filter ResultFilter, exec ...core.DBExecutor) (int, error)
		CreateResult(ctx context.Context, r Result, exec ...core.DBExecutor) (Result, error)
		UpdateResult(ctx context.Context, r Result, exec ...core.DBExecutor) (Result, error)
		DeleteResult(ctx context.Context, id int, exec ...core.DBExecutor) error
		DeleteResults(ctx context.Context, filter ResultFilter, exec ...core.DBExecutor) error
		ListResults(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Result, int, error)
	}

	AttendanceRepository interface {
		GetAttendance(ctx context.Context, id int, exec ...core.DBExecutor) (Attendance, error)
		CountAttendances(ctx context.Context, filter AttendanceFilter, exec ...core.DBExecutor) (int, error)
		CreateAttendance(ctx context.Context, a Attendance, exec ...core.DBExecutor) (Attendance, error)
		DeleteAttendance(ctx context.Context, id int, exec ...core.DBExecutor) error
		DeleteAttendances(ctx context.Context, filter AttendanceFilter, exec ...core.DBExecutor) error
		ListAttendances(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Attendance, int, error)
	}

	EventRepository interface {
		GetEvent(ctx context.Context, id int, exec ...core.DBExecutor) (Event, error)
		CreateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		UpdateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id int, exec ...core.DBExecutor) error
		DeleteClassEvents(ctx context.Context, classID int, exec ...core.DBExecutor) error
		ListEvents(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Event, int, error)
	}

	AnnouncementRepository interface {
		GetAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) (Announcement, error)
		CreateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) error
		DeleteClassAnnouncements(ctx context.Context, classID int, exec ...core.DBExecutor) error
		ListAnnouncements(ctx context.Context, q ListQuery, exec ...core.DBExecutor) ([]Announcement, int, error)
		// LatestAnnouncements returns at most limit announcements visible in scope, newest first.
		// A non-zero day restricts them to that date.
		LatestAnnouncements(ctx context.Context, scope Scope, day time.Time, limit int, exec ...core.DBExecutor) ([]Announcement, error)
	}

	// Repository is the datastore access layer of the school domain.
	// Missing rows are reported as core.ErrNotFound; constraint and timeout failures as
	// core.ErrUniqueViolation, core.ErrForeignKeyViolation and core.ErrTimeout.
	Repository interface {
		SubjectRepository
		TeacherRepository
		StudentRepository
		ParentRepository
		ClassRepository
		LessonRepository
		ExamRepository
		AssignmentRepository
		ResultRepository
		AttendanceRepository
		EventRepository
		AnnouncementRepository

		GetAdmin(ctx context.Context, id string, exec ...core.DBExecutor) (Admin, error)
		CreateAdmin(ctx context.Context, a Admin, exec ...core.DBExecutor) (Admin, error)
	}
)
