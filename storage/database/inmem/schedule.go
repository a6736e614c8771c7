package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// lessons

func (repo *schoolRepository) GetLesson(ctx context.Context, id int, exec ...core.DBExecutor) (school.Lesson, error) {
	var lsn school.Lesson
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if lsn, ok = t.lessons[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return lsn, err
}

func matchesLesson(lsn school.Lesson, filter school.LessonFilter) bool {
	switch {
	case filter.SubjectID != 0 && lsn.SubjectID != filter.SubjectID,
		filter.ClassID != 0 && lsn.ClassID != filter.ClassID,
		filter.TeacherID != "" && lsn.TeacherID != filter.TeacherID,
		filter.Day != "" && lsn.Day != filter.Day,
		filter.ExcludeID != 0 && lsn.ID == filter.ExcludeID:
		return false
	}
	return true
}

func (repo *schoolRepository) FindLessons(ctx context.Context, filter school.LessonFilter, exec ...core.DBExecutor) ([]school.Lesson, error) {
	var lessons []school.Lesson
	err := repo.db.read(ctx, func(t *tables) error {
		for _, lsn := range t.lessons {
			if matchesLesson(lsn, filter) {
				lessons = append(lessons, lsn)
			}
		}
		return nil
	})
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons, err
}

func (repo *schoolRepository) CreateLesson(ctx context.Context, lsn school.Lesson, exec ...core.DBExecutor) (school.Lesson, error) {
	return repo.saveLesson(ctx, lsn, exec)
}

func (repo *schoolRepository) UpdateLesson(ctx context.Context, lsn school.Lesson, exec ...core.DBExecutor) (school.Lesson, error) {
	return repo.saveLesson(ctx, lsn, exec)
}

func (repo *schoolRepository) saveLesson(ctx context.Context, lsn school.Lesson, exec []core.DBExecutor) (school.Lesson, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if lsn.ID != 0 {
			if _, ok := t.lessons[lsn.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.lessons {
			if other.ID != lsn.ID && other.ClassID == lsn.ClassID && other.Day == lsn.Day && other.Name == lsn.Name {
				return core.ErrUniqueViolation
			}
		}
		_, subjOK := t.subjects[lsn.SubjectID]
		_, clsOK := t.classes[lsn.ClassID]
		_, tchrOK := t.teachers[lsn.TeacherID]
		if !subjOK || !clsOK || !tchrOK {
			return core.ErrForeignKeyViolation
		}
		if lsn.ID == 0 {
			lsn.ID = t.nextPK("lessons")
		}
		t.lessons[lsn.ID] = lsn
		return nil
	})
	if err != nil {
		return school.Lesson{}, err
	}
	return lsn, nil
}

func (repo *schoolRepository) DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.lessons[id]; !ok {
			return core.ErrNotFound
		}
		if t.lessonReferenced(id) {
			return core.ErrForeignKeyViolation
		}
		delete(t.lessons, id)
		return nil
	})
}

func (t *tables) lessonReferenced(id int) bool {
	for _, exam := range t.exams {
		if exam.LessonID == id {
			return true
		}
	}
	for _, asg := range t.assignments {
		if asg.LessonID == id {
			return true
		}
	}
	for _, att := range t.attendances {
		if att.LessonID == id {
			return true
		}
	}
	return false
}

func (repo *schoolRepository) DeleteLessons(ctx context.Context, filter school.LessonFilter, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		for id, lsn := range t.lessons {
			if !matchesLesson(lsn, filter) {
				continue
			}
			for eid, exam := range t.exams {
				if exam.LessonID == id {
					t.deleteResults(school.ResultFilter{ExamID: eid})
					delete(t.exams, eid)
				}
			}
			for aid, asg := range t.assignments {
				if asg.LessonID == id {
					t.deleteResults(school.ResultFilter{AssignmentID: aid})
					delete(t.assignments, aid)
				}
			}
			t.deleteAttendances(school.AttendanceFilter{LessonID: id})
			delete(t.lessons, id)
		}
		return nil
	})
}

func (repo *schoolRepository) ListLessons(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Lesson, int, error) {
	var (
		rows  []school.Lesson
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		filter := school.LessonFilter{ClassID: q.ClassID, TeacherID: q.TeacherID}
		for _, lsn := range t.lessons {
			switch {
			case !t.lessonVisible(q.Scope, lsn),
				!matchesLesson(lsn, filter),
				q.Search != "" && !containsFold(q.Search, lsn.Name, t.subjects[lsn.SubjectID].Name):
				continue
			}
			rows = append(rows, lsn)
		}
		rows, total = page(rows, q, columns[school.Lesson]{
			"id":        func(l school.Lesson) interface{} { return l.ID },
			"name":      func(l school.Lesson) interface{} { return l.Name },
			"day":       func(l school.Lesson) interface{} { return dayIndex(l.Day) },
			"startTime": func(l school.Lesson) interface{} { return l.StartTime },
		}, core.DBOrdering{Field: "id", Ascending: true})
		return nil
	})
	return rows, total, err
}

func dayIndex(d school.Day) int {
	for i, day := range school.Days {
		if d == day {
			return i
		}
	}
	return len(school.Days)
}

// exams

func (repo *schoolRepository) GetExam(ctx context.Context, id int, exec ...core.DBExecutor) (school.Exam, error) {
	var exam school.Exam
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if exam, ok = t.exams[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return exam, err
}

func (repo *schoolRepository) CountExams(ctx context.Context, filter school.ExamFilter, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.db.read(ctx, func(t *tables) error {
		for _, exam := range t.exams {
			if filter.LessonID == 0 || exam.LessonID == filter.LessonID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (repo *schoolRepository) CreateExam(ctx context.Context, exam school.Exam, exec ...core.DBExecutor) (school.Exam, error) {
	return repo.saveExam(ctx, exam, exec)
}

func (repo *schoolRepository) UpdateExam(ctx context.Context, exam school.Exam, exec ...core.DBExecutor) (school.Exam, error) {
	return repo.saveExam(ctx, exam, exec)
}

func (repo *schoolRepository) saveExam(ctx context.Context, exam school.Exam, exec []core.DBExecutor) (school.Exam, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if exam.ID != 0 {
			if _, ok := t.exams[exam.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.exams {
			if other.ID != exam.ID && other.LessonID == exam.LessonID && other.Title == exam.Title {
				return core.ErrUniqueViolation
			}
		}
		if _, ok := t.lessons[exam.LessonID]; !ok {
			return core.ErrForeignKeyViolation
		}
		if exam.ID == 0 {
			exam.ID = t.nextPK("exams")
		}
		t.exams[exam.ID] = exam
		return nil
	})
	if err != nil {
		return school.Exam{}, err
	}
	return exam, nil
}

func (repo *schoolRepository) DeleteExam(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.exams[id]; !ok {
			return core.ErrNotFound
		}
		for _, res := range t.results {
			if res.ExamID == id {
				return core.ErrForeignKeyViolation
			}
		}
		delete(t.exams, id)
		return nil
	})
}

func (repo *schoolRepository) ListExams(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Exam, int, error) {
	var (
		rows  []school.Exam
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		for _, exam := range t.exams {
			if !t.assessmentListed(q, exam.LessonID, exam.Title) {
				continue
			}
			rows = append(rows, exam)
		}
		rows, total = page(rows, q, columns[school.Exam]{
			"id":        func(e school.Exam) interface{} { return e.ID },
			"title":     func(e school.Exam) interface{} { return e.Title },
			"startTime": func(e school.Exam) interface{} { return e.StartTime },
		}, core.DBOrdering{Field: "startTime", Ascending: false})
		return nil
	})
	return rows, total, err
}

// assessmentListed applies the scope and filters of an exam or assignment list through its lesson.
func (t *tables) assessmentListed(q school.ListQuery, lessonID int, title string) bool {
	lsn := t.lessons[lessonID]
	switch {
	case !t.lessonVisible(q.Scope, lsn),
		q.LessonID != 0 && lessonID != q.LessonID,
		q.ClassID != 0 && lsn.ClassID != q.ClassID,
		q.TeacherID != "" && lsn.TeacherID != q.TeacherID,
		q.StudentID != "" && t.students[q.StudentID].ClassID != lsn.ClassID,
		q.Search != "" && !containsFold(q.Search, title, t.subjects[lsn.SubjectID].Name):
		return false
	}
	return true
}

// assignments

func (repo *schoolRepository) GetAssignment(ctx context.Context, id int, exec ...core.DBExecutor) (school.Assignment, error) {
	var asg school.Assignment
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if asg, ok = t.assignments[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return asg, err
}

func (repo *schoolRepository) CountAssignments(ctx context.Context, filter school.AssignmentFilter, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.db.read(ctx, func(t *tables) error {
		for _, asg := range t.assignments {
			if matchesAssignment(asg, filter) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func matchesAssignment(asg school.Assignment, filter school.AssignmentFilter) bool {
	return (filter.SubjectID == 0 || asg.SubjectID == filter.SubjectID) &&
		(filter.LessonID == 0 || asg.LessonID == filter.LessonID)
}

func (repo *schoolRepository) CreateAssignment(ctx context.Context, asg school.Assignment, exec ...core.DBExecutor) (school.Assignment, error) {
	return repo.saveAssignment(ctx, asg, exec)
}

func (repo *schoolRepository) UpdateAssignment(ctx context.Context, asg school.Assignment, exec ...core.DBExecutor) (school.Assignment, error) {
	return repo.saveAssignment(ctx, asg, exec)
}

func (repo *schoolRepository) saveAssignment(ctx context.Context, asg school.Assignment, exec []core.DBExecutor) (school.Assignment, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if asg.ID != 0 {
			if _, ok := t.assignments[asg.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.assignments {
			if other.ID != asg.ID && other.SubjectID == asg.SubjectID && other.Title == asg.Title {
				return core.ErrUniqueViolation
			}
		}
		_, subjOK := t.subjects[asg.SubjectID]
		_, lsnOK := t.lessons[asg.LessonID]
		if !subjOK || !lsnOK {
			return core.ErrForeignKeyViolation
		}
		if asg.ID == 0 {
			asg.ID = t.nextPK("assignments")
		}
		t.assignments[asg.ID] = asg
		return nil
	})
	if err != nil {
		return school.Assignment{}, err
	}
	return asg, nil
}

func (repo *schoolRepository) DeleteAssignment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.assignments[id]; !ok {
			return core.ErrNotFound
		}
		for _, res := range t.results {
			if res.AssignmentID == id {
				return core.ErrForeignKeyViolation
			}
		}
		delete(t.assignments, id)
		return nil
	})
}

func (repo *schoolRepository) DeleteAssignments(ctx context.Context, filter school.AssignmentFilter, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		for id, asg := range t.assignments {
			if matchesAssignment(asg, filter) {
				t.deleteResults(school.ResultFilter{AssignmentID: id})
				delete(t.assignments, id)
			}
		}
		return nil
	})
}

func (repo *schoolRepository) ListAssignments(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Assignment, int, error) {
	var (
		rows  []school.Assignment
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		for _, asg := range t.assignments {
			if !t.assessmentListed(q, asg.LessonID, asg.Title) {
				continue
			}
			rows = append(rows, asg)
		}
		rows, total = page(rows, q, columns[school.Assignment]{
			"id":        func(a school.Assignment) interface{} { return a.ID },
			"title":     func(a school.Assignment) interface{} { return a.Title },
			"startDate": func(a school.Assignment) interface{} { return a.StartDate },
			"dueDate":   func(a school.Assignment) interface{} { return a.DueDate },
		}, core.DBOrdering{Field: "dueDate", Ascending: false})
		return nil
	})
	return rows, total, err
}

// results

func (repo *schoolRepository) GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (school.Result, error) {
	var res school.Result
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if res, ok = t.results[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return res, err
}

func matchesResult(res school.Result, filter school.ResultFilter) bool {
	switch {
	case filter.StudentID != "" && res.StudentID != filter.StudentID,
		filter.ExamID != 0 && res.ExamID != filter.ExamID,
		filter.AssignmentID != 0 && res.AssignmentID != filter.AssignmentID,
		filter.ExcludeID != 0 && res.ID == filter.ExcludeID:
		return false
	}
	return true
}

func (repo *schoolRepository) CountResults(ctx context.Context, filter school.ResultFilter, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.db.read(ctx, func(t *tables) error {
		for _, res := range t.results {
			if matchesResult(res, filter) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (repo *schoolRepository) CreateResult(ctx context.Context, res school.Result, exec ...core.DBExecutor) (school.Result, error) {
	return repo.saveResult(ctx, res, exec)
}

func (repo *schoolRepository) UpdateResult(ctx context.Context, res school.Result, exec ...core.DBExecutor) (school.Result, error) {
	return repo.saveResult(ctx, res, exec)
}

func (repo *schoolRepository) saveResult(ctx context.Context, res school.Result, exec []core.DBExecutor) (school.Result, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if res.ID != 0 {
			if _, ok := t.results[res.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.results {
			if matchesResult(other, school.ResultFilter{
				StudentID: res.StudentID, ExamID: res.ExamID, AssignmentID: res.AssignmentID, ExcludeID: res.ID,
			}) {
				return core.ErrUniqueViolation
			}
		}
		if _, ok := t.students[res.StudentID]; !ok {
			return core.ErrForeignKeyViolation
		}
		if _, ok := t.exams[res.ExamID]; res.ExamID != 0 && !ok {
			return core.ErrForeignKeyViolation
		}
		if _, ok := t.assignments[res.AssignmentID]; res.AssignmentID != 0 && !ok {
			return core.ErrForeignKeyViolation
		}
		if res.ID == 0 {
			res.ID = t.nextPK("results")
		}
		t.results[res.ID] = res
		return nil
	})
	if err != nil {
		return school.Result{}, err
	}
	return res, nil
}

func (repo *schoolRepository) DeleteResult(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.results[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.results, id)
		return nil
	})
}

func (repo *schoolRepository) DeleteResults(ctx context.Context, filter school.ResultFilter, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		t.deleteResults(filter)
		return nil
	})
}

func (t *tables) deleteResults(filter school.ResultFilter) {
	for id, res := range t.results {
		if matchesResult(res, filter) {
			delete(t.results, id)
		}
	}
}

func (repo *schoolRepository) ListResults(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Result, int, error) {
	var (
		rows  []school.Result
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		for _, res := range t.results {
			lsn := t.assessmentLesson(res)
			std := t.students[res.StudentID]
			visible := t.studentVisible(q.Scope, res.StudentID)
			if q.Scope.Role == core.RoleTeacher {
				visible = lsn.TeacherID == q.Scope.CallerID
			}
			switch {
			case !visible,
				q.StudentID != "" && res.StudentID != q.StudentID,
				q.ClassID != 0 && lsn.ClassID != q.ClassID,
				q.LessonID != 0 && lsn.ID != q.LessonID,
				q.TeacherID != "" && lsn.TeacherID != q.TeacherID,
				q.Search != "" && !containsFold(q.Search, std.Name, std.Surname, t.exams[res.ExamID].Title, t.assignments[res.AssignmentID].Title):
				continue
			}
			rows = append(rows, res)
		}
		rows, total = page(rows, q, columns[school.Result]{
			"id":    func(r school.Result) interface{} { return r.ID },
			"score": func(r school.Result) interface{} { return r.Score },
		}, core.DBOrdering{Field: "id", Ascending: false})
		return nil
	})
	return rows, total, err
}

// attendances

func (repo *schoolRepository) GetAttendance(ctx context.Context, id int, exec ...core.DBExecutor) (school.Attendance, error) {
	var att school.Attendance
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if att, ok = t.attendances[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return att, err
}

func matchesAttendance(att school.Attendance, filter school.AttendanceFilter) bool {
	switch {
	case filter.StudentID != "" && att.StudentID != filter.StudentID,
		filter.LessonID != 0 && att.LessonID != filter.LessonID,
		!filter.Date.IsZero() && !sameDay(att.Date, filter.Date):
		return false
	}
	return true
}

func (repo *schoolRepository) CountAttendances(ctx context.Context, filter school.AttendanceFilter, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.db.read(ctx, func(t *tables) error {
		for _, att := range t.attendances {
			if matchesAttendance(att, filter) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (repo *schoolRepository) CreateAttendance(ctx context.Context, att school.Attendance, exec ...core.DBExecutor) (school.Attendance, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		for _, other := range t.attendances {
			if matchesAttendance(other, school.AttendanceFilter{StudentID: att.StudentID, LessonID: att.LessonID, Date: att.Date}) {
				return core.ErrUniqueViolation
			}
		}
		_, stdOK := t.students[att.StudentID]
		_, lsnOK := t.lessons[att.LessonID]
		if !stdOK || !lsnOK {
			return core.ErrForeignKeyViolation
		}
		att.ID = t.nextPK("attendances")
		t.attendances[att.ID] = att
		return nil
	})
	if err != nil {
		return school.Attendance{}, err
	}
	return att, nil
}

func (repo *schoolRepository) DeleteAttendance(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.attendances[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.attendances, id)
		return nil
	})
}

func (repo *schoolRepository) DeleteAttendances(ctx context.Context, filter school.AttendanceFilter, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		t.deleteAttendances(filter)
		return nil
	})
}

func (t *tables) deleteAttendances(filter school.AttendanceFilter) {
	for id, att := range t.attendances {
		if matchesAttendance(att, filter) {
			delete(t.attendances, id)
		}
	}
}

func (repo *schoolRepository) ListAttendances(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Attendance, int, error) {
	var (
		rows  []school.Attendance
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		filter := school.AttendanceFilter{StudentID: q.StudentID, LessonID: q.LessonID, Date: q.Date}
		for _, att := range t.attendances {
			lsn := t.lessons[att.LessonID]
			std := t.students[att.StudentID]
			visible := t.studentVisible(q.Scope, att.StudentID)
			if q.Scope.Role == core.RoleTeacher {
				visible = lsn.TeacherID == q.Scope.CallerID
			}
			switch {
			case !visible,
				!matchesAttendance(att, filter),
				q.ClassID != 0 && lsn.ClassID != q.ClassID,
				q.TeacherID != "" && lsn.TeacherID != q.TeacherID,
				q.Search != "" && !containsFold(q.Search, std.Name, std.Surname, lsn.Name):
				continue
			}
			rows = append(rows, att)
		}
		rows, total = page(rows, q, columns[school.Attendance]{
			"id":      func(a school.Attendance) interface{} { return a.ID },
			"date":    func(a school.Attendance) interface{} { return a.Date },
			"present": func(a school.Attendance) interface{} { return a.Present },
		}, core.DBOrdering{Field: "date", Ascending: false})
		return nil
	})
	return rows, total, err
}
