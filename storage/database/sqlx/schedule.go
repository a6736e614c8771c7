package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

var (
	lessonOrdering = map[string]string{
		"id":        "l.id",
		"name":      "l.name",
		"day":       "array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY'], l.day)",
		"startTime": "l.start_time::time",
	}
	examOrdering       = map[string]string{"id": "e.id", "title": "e.title", "startTime": "e.start_time"}
	assignmentOrdering = map[string]string{"id": "a.id", "title": "a.title", "startDate": "a.start_date", "dueDate": "a.due_date"}
	resultOrdering     = map[string]string{"id": "r.id", "score": "r.score"}
	attendanceOrdering = map[string]string{"id": "att.id", "date": "att.date", "present": "att.present"}
)

// lessons

func lessonWhere(filter school.LessonFilter) where {
	var w where
	if filter.SubjectID != 0 {
		w.add("subject_id = ?", filter.SubjectID)
	}
	if filter.ClassID != 0 {
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.TeacherID != "" {
		w.add("teacher_id = ?", filter.TeacherID)
	}
	if filter.Day != "" {
		w.add("day = ?", string(filter.Day))
	}
	if filter.ExcludeID != 0 {
		w.add("id <> ?", filter.ExcludeID)
	}
	return w
}

func (repo *schoolRepository) GetLesson(ctx context.Context, id int, exec ...core.DBExecutor) (school.Lesson, error) {
	var row lessonRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+lessonCols+" FROM lessons l WHERE l.id = ?", id); err != nil {
		return school.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.lesson(), nil
}

func (repo *schoolRepository) FindLessons(ctx context.Context, filter school.LessonFilter, exec ...core.DBExecutor) ([]school.Lesson, error) {
	w := lessonWhere(filter)
	var rows []lessonRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, "SELECT "+lessonCols+" FROM lessons l"+w.String()+" ORDER BY l.id", w.args...); err != nil {
		return nil, errors.Wrap(err, "finding lessons")
	}
	lessons := make([]school.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.lesson())
	}
	return lessons, nil
}

func (repo *schoolRepository) CreateLesson(ctx context.Context, lsn school.Lesson, exec ...core.DBExecutor) (school.Lesson, error) {
	err := get(ctx, repo.getExec(exec), &lsn.ID,
		`INSERT INTO lessons (name, day, start_time, end_time, subject_id, class_id, teacher_id)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		lsn.Name, string(lsn.Day), lsn.StartTime.UTC(), lsn.EndTime.UTC(), lsn.SubjectID, lsn.ClassID, lsn.TeacherID)
	if err != nil {
		return school.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo *schoolRepository) UpdateLesson(ctx context.Context, lsn school.Lesson, exec ...core.DBExecutor) (school.Lesson, error) {
	err := runOne(ctx, repo.getExec(exec),
		`UPDATE lessons SET name = ?, day = ?, start_time = ?, end_time = ?, subject_id = ?, class_id = ?, teacher_id = ?
		WHERE id = ?`,
		lsn.Name, string(lsn.Day), lsn.StartTime.UTC(), lsn.EndTime.UTC(), lsn.SubjectID, lsn.ClassID, lsn.TeacherID, lsn.ID)
	if err != nil {
		return school.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return lsn, nil
}

func (repo *schoolRepository) DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM lessons WHERE id = ?", id), "deleting lesson")
}

func (repo *schoolRepository) DeleteLessons(ctx context.Context, filter school.LessonFilter, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	w := lessonWhere(filter)
	lessonIDs := "(SELECT id FROM lessons" + w.String() + ")"

	stmts := []string{
		"DELETE FROM results WHERE exam_id IN (SELECT id FROM exams WHERE lesson_id IN " + lessonIDs + ")",
		"DELETE FROM results WHERE assignment_id IN (SELECT id FROM assignments WHERE lesson_id IN " + lessonIDs + ")",
		"DELETE FROM exams WHERE lesson_id IN " + lessonIDs,
		"DELETE FROM assignments WHERE lesson_id IN " + lessonIDs,
		"DELETE FROM attendances WHERE lesson_id IN " + lessonIDs,
		"DELETE FROM lessons" + w.String(),
	}
	for _, stmt := range stmts {
		if _, err := run(ctx, ext, stmt, w.args...); err != nil {
			return errors.Wrap(err, "deleting lessons")
		}
	}
	return nil
}

func (repo *schoolRepository) ListLessons(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Lesson, int, error) {
	var w where
	w.lessonVisible(q.Scope, "l")
	if q.ClassID != 0 {
		w.add("l.class_id = ?", q.ClassID)
	}
	if q.TeacherID != "" {
		w.add("l.teacher_id = ?", q.TeacherID)
	}
	w.search(q.Search, "l.name", "sj.name")

	var rows []lessonRow
	total, err := list(ctx, repo.getExec(exec), &rows, lessonCols, "lessons l JOIN subjects sj ON sj.id = l.subject_id", w,
		core.OrderClause(q.Ordering, lessonOrdering, "l.id ASC")+", l.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing lessons")
	}
	lessons := make([]school.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.lesson())
	}
	return lessons, total, nil
}

// assessmentWhere applies the scope and filters of an exam or assignment list through lessons l.
func assessmentWhere(q school.ListQuery, alias, titleCol string) where {
	var w where
	w.lessonVisible(q.Scope, "l")
	if q.LessonID != 0 {
		w.add(alias+".lesson_id = ?", q.LessonID)
	}
	if q.ClassID != 0 {
		w.add("l.class_id = ?", q.ClassID)
	}
	if q.TeacherID != "" {
		w.add("l.teacher_id = ?", q.TeacherID)
	}
	if q.StudentID != "" {
		w.add("l.class_id = (SELECT class_id FROM students WHERE id = ?)", q.StudentID)
	}
	w.search(q.Search, titleCol, "sj.name")
	return w
}

// exams

func (repo *schoolRepository) GetExam(ctx context.Context, id int, exec ...core.DBExecutor) (school.Exam, error) {
	var row examRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+examCols+" FROM exams e WHERE e.id = ?", id); err != nil {
		return school.Exam{}, errors.Wrap(err, "getting exam")
	}
	return row.exam(), nil
}

func (repo *schoolRepository) CountExams(ctx context.Context, filter school.ExamFilter, exec ...core.DBExecutor) (int, error) {
	var w where
	if filter.LessonID != 0 {
		w.add("lesson_id = ?", filter.LessonID)
	}
	n, err := count(ctx, repo.getExec(exec), "exams", w)
	return n, errors.Wrap(err, "counting exams")
}

func (repo *schoolRepository) CreateExam(ctx context.Context, exam school.Exam, exec ...core.DBExecutor) (school.Exam, error) {
	err := get(ctx, repo.getExec(exec), &exam.ID,
		"INSERT INTO exams (title, start_time, end_time, lesson_id) VALUES (?, ?, ?, ?) RETURNING id",
		exam.Title, exam.StartTime.UTC(), exam.EndTime.UTC(), exam.LessonID)
	if err != nil {
		return school.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return exam, nil
}

func (repo *schoolRepository) UpdateExam(ctx context.Context, exam school.Exam, exec ...core.DBExecutor) (school.Exam, error) {
	err := runOne(ctx, repo.getExec(exec),
		"UPDATE exams SET title = ?, start_time = ?, end_time = ?, lesson_id = ? WHERE id = ?",
		exam.Title, exam.StartTime.UTC(), exam.EndTime.UTC(), exam.LessonID, exam.ID)
	if err != nil {
		return school.Exam{}, errors.Wrap(err, "updating exam")
	}
	return exam, nil
}

func (repo *schoolRepository) DeleteExam(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM exams WHERE id = ?", id), "deleting exam")
}

func (repo *schoolRepository) ListExams(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Exam, int, error) {
	w := assessmentWhere(q, "e", "e.title")
	var rows []examRow
	total, err := list(ctx, repo.getExec(exec), &rows, examCols,
		"exams e JOIN lessons l ON l.id = e.lesson_id JOIN subjects sj ON sj.id = l.subject_id", w,
		core.OrderClause(q.Ordering, examOrdering, "e.start_time DESC")+", e.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing exams")
	}
	exams := make([]school.Exam, 0, len(rows))
	for _, row := range rows {
		exams = append(exams, row.exam())
	}
	return exams, total, nil
}

// assignments

func assignmentWhere(filter school.AssignmentFilter) where {
	var w where
	if filter.SubjectID != 0 {
		w.add("subject_id = ?", filter.SubjectID)
	}
	if filter.LessonID != 0 {
		w.add("lesson_id = ?", filter.LessonID)
	}
	return w
}

func (repo *schoolRepository) GetAssignment(ctx context.Context, id int, exec ...core.DBExecutor) (school.Assignment, error) {
	var row assignmentRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+assignmentCols+" FROM assignments a WHERE a.id = ?", id); err != nil {
		return school.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return row.assignment(), nil
}

func (repo *schoolRepository) CountAssignments(ctx context.Context, filter school.AssignmentFilter, exec ...core.DBExecutor) (int, error) {
	n, err := count(ctx, repo.getExec(exec), "assignments", assignmentWhere(filter))
	return n, errors.Wrap(err, "counting assignments")
}

func (repo *schoolRepository) CreateAssignment(ctx context.Context, asg school.Assignment, exec ...core.DBExecutor) (school.Assignment, error) {
	err := get(ctx, repo.getExec(exec), &asg.ID,
		"INSERT INTO assignments (title, start_date, due_date, subject_id, lesson_id) VALUES (?, ?, ?, ?, ?) RETURNING id",
		asg.Title, asg.StartDate.UTC(), asg.DueDate.UTC(), asg.SubjectID, asg.LessonID)
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *schoolRepository) UpdateAssignment(ctx context.Context, asg school.Assignment, exec ...core.DBExecutor) (school.Assignment, error) {
	err := runOne(ctx, repo.getExec(exec),
		"UPDATE assignments SET title = ?, start_date = ?, due_date = ?, subject_id = ?, lesson_id = ? WHERE id = ?",
		asg.Title, asg.StartDate.UTC(), asg.DueDate.UTC(), asg.SubjectID, asg.LessonID, asg.ID)
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return asg, nil
}

func (repo *schoolRepository) DeleteAssignment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM assignments WHERE id = ?", id), "deleting assignment")
}

func (repo *schoolRepository) DeleteAssignments(ctx context.Context, filter school.AssignmentFilter, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	w := assignmentWhere(filter)
	if _, err := run(ctx, ext, "DELETE FROM results WHERE assignment_id IN (SELECT id FROM assignments"+w.String()+")", w.args...); err != nil {
		return errors.Wrap(err, "deleting assignment results")
	}
	_, err := run(ctx, ext, "DELETE FROM assignments"+w.String(), w.args...)
	return errors.Wrap(err, "deleting assignments")
}

func (repo *schoolRepository) ListAssignments(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Assignment, int, error) {
	w := assessmentWhere(q, "a", "a.title")
	var rows []assignmentRow
	total, err := list(ctx, repo.getExec(exec), &rows, assignmentCols,
		"assignments a JOIN lessons l ON l.id = a.lesson_id JOIN subjects sj ON sj.id = l.subject_id", w,
		core.OrderClause(q.Ordering, assignmentOrdering, "a.due_date DESC")+", a.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing assignments")
	}
	assignments := make([]school.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.assignment())
	}
	return assignments, total, nil
}

// results

func resultWhere(filter school.ResultFilter) where {
	var w where
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.ExamID != 0 {
		w.add("exam_id = ?", filter.ExamID)
	}
	if filter.AssignmentID != 0 {
		w.add("assignment_id = ?", filter.AssignmentID)
	}
	if filter.ExcludeID != 0 {
		w.add("id <> ?", filter.ExcludeID)
	}
	return w
}

func (repo *schoolRepository) GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (school.Result, error) {
	var row resultRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+resultCols+" FROM results r WHERE r.id = ?", id); err != nil {
		return school.Result{}, errors.Wrap(err, "getting result")
	}
	return row.result(), nil
}

func (repo *schoolRepository) CountResults(ctx context.Context, filter school.ResultFilter, exec ...core.DBExecutor) (int, error) {
	n, err := count(ctx, repo.getExec(exec), "results", resultWhere(filter))
	return n, errors.Wrap(err, "counting results")
}

func (repo *schoolRepository) CreateResult(ctx context.Context, res school.Result, exec ...core.DBExecutor) (school.Result, error) {
	err := get(ctx, repo.getExec(exec), &res.ID,
		"INSERT INTO results (score, student_id, exam_id, assignment_id) VALUES (?, ?, ?, ?) RETURNING id",
		res.Score, res.StudentID, nullInt(res.ExamID), nullInt(res.AssignmentID))
	if err != nil {
		return school.Result{}, errors.Wrap(err, "inserting result")
	}
	return res, nil
}

func (repo *schoolRepository) UpdateResult(ctx context.Context, res school.Result, exec ...core.DBExecutor) (school.Result, error) {
	err := runOne(ctx, repo.getExec(exec),
		"UPDATE results SET score = ?, student_id = ?, exam_id = ?, assignment_id = ? WHERE id = ?",
		res.Score, res.StudentID, nullInt(res.ExamID), nullInt(res.AssignmentID), res.ID)
	if err != nil {
		return school.Result{}, errors.Wrap(err, "updating result")
	}
	return res, nil
}

func (repo *schoolRepository) DeleteResult(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM results WHERE id = ?", id), "deleting result")
}

func (repo *schoolRepository) DeleteResults(ctx context.Context, filter school.ResultFilter, exec ...core.DBExecutor) error {
	w := resultWhere(filter)
	_, err := run(ctx, repo.getExec(exec), "DELETE FROM results"+w.String(), w.args...)
	return errors.Wrap(err, "deleting results")
}

const resultFrom = `results r
	LEFT JOIN exams e ON e.id = r.exam_id
	LEFT JOIN assignments a ON a.id = r.assignment_id
	JOIN lessons l ON l.id = COALESCE(e.lesson_id, a.lesson_id)
	JOIN students st ON st.id = r.student_id`

func (repo *schoolRepository) ListResults(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Result, int, error) {
	var w where
	if q.Scope.Role == core.RoleTeacher {
		w.add("l.teacher_id = ?", q.Scope.CallerID)
	} else {
		w.studentVisible(q.Scope, "st")
	}
	if q.StudentID != "" {
		w.add("r.student_id = ?", q.StudentID)
	}
	if q.ClassID != 0 {
		w.add("l.class_id = ?", q.ClassID)
	}
	if q.LessonID != 0 {
		w.add("l.id = ?", q.LessonID)
	}
	if q.TeacherID != "" {
		w.add("l.teacher_id = ?", q.TeacherID)
	}
	w.search(q.Search, "st.name", "st.surname", "e.title", "a.title")

	var rows []resultRow
	total, err := list(ctx, repo.getExec(exec), &rows, resultCols, resultFrom, w,
		core.OrderClause(q.Ordering, resultOrdering, "r.id DESC")+", r.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing results")
	}
	results := make([]school.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.result())
	}
	return results, total, nil
}

// attendances

func attendanceWhere(filter school.AttendanceFilter, alias string) where {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	var w where
	if filter.StudentID != "" {
		w.add(prefix+"student_id = ?", filter.StudentID)
	}
	if filter.LessonID != 0 {
		w.add(prefix+"lesson_id = ?", filter.LessonID)
	}
	if !filter.Date.IsZero() {
		w.add(prefix+"date = ?::date", filter.Date.UTC().Format("2006-01-02"))
	}
	return w
}

func (repo *schoolRepository) GetAttendance(ctx context.Context, id int, exec ...core.DBExecutor) (school.Attendance, error) {
	var row attendanceRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+attendanceCols+" FROM attendances att WHERE att.id = ?", id); err != nil {
		return school.Attendance{}, errors.Wrap(err, "getting attendance")
	}
	return row.attendance(), nil
}

func (repo *schoolRepository) CountAttendances(ctx context.Context, filter school.AttendanceFilter, exec ...core.DBExecutor) (int, error) {
	n, err := count(ctx, repo.getExec(exec), "attendances", attendanceWhere(filter, ""))
	return n, errors.Wrap(err, "counting attendance")
}

func (repo *schoolRepository) CreateAttendance(ctx context.Context, att school.Attendance, exec ...core.DBExecutor) (school.Attendance, error) {
	err := get(ctx, repo.getExec(exec), &att.ID,
		"INSERT INTO attendances (date, present, student_id, lesson_id) VALUES (?::date, ?, ?, ?) RETURNING id",
		att.Date.UTC().Format("2006-01-02"), att.Present, att.StudentID, att.LessonID)
	if err != nil {
		return school.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo *schoolRepository) DeleteAttendance(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM attendances WHERE id = ?", id), "deleting attendance")
}

func (repo *schoolRepository) DeleteAttendances(ctx context.Context, filter school.AttendanceFilter, exec ...core.DBExecutor) error {
	w := attendanceWhere(filter, "")
	_, err := run(ctx, repo.getExec(exec), "DELETE FROM attendances"+w.String(), w.args...)
	return errors.Wrap(err, "deleting attendance")
}

func (repo *schoolRepository) ListAttendances(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Attendance, int, error) {
	w := attendanceWhere(school.AttendanceFilter{StudentID: q.StudentID, LessonID: q.LessonID, Date: q.Date}, "att")
	if q.Scope.Role == core.RoleTeacher {
		w.add("l.teacher_id = ?", q.Scope.CallerID)
	} else {
		w.studentVisible(q.Scope, "st")
	}
	if q.ClassID != 0 {
		w.add("l.class_id = ?", q.ClassID)
	}
	if q.TeacherID != "" {
		w.add("l.teacher_id = ?", q.TeacherID)
	}
	w.search(q.Search, "st.name", "st.surname", "l.name")

	var rows []attendanceRow
	total, err := list(ctx, repo.getExec(exec), &rows, attendanceCols,
		"attendances att JOIN lessons l ON l.id = att.lesson_id JOIN students st ON st.id = att.student_id", w,
		core.OrderClause(q.Ordering, attendanceOrdering, "att.date DESC")+", att.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing attendance")
	}
	attendances := make([]school.Attendance, 0, len(rows))
	for _, row := range rows {
		attendances = append(attendances, row.attendance())
	}
	return attendances, total, nil
}
