package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

var (
	subjectOrdering = map[string]string{"id": "s.id", "name": "s.name"}
	personOrdering  = func(alias string) map[string]string {
		return map[string]string{
			"id":        alias + ".id",
			"username":  alias + ".username",
			"name":      alias + ".name",
			"surname":   alias + ".surname",
			"createdAt": alias + ".created_at",
		}
	}
	classOrdering = map[string]string{"id": "c.id", "name": "c.name", "capacity": "c.capacity", "grade": "c.grade_id"}
)

// subjects

type subjectTeacherRow struct {
	SubjectID int    `db:"subject_id"`
	TeacherID string `db:"teacher_id"`
}

// subjectTeachers loads the teacher links of subjects, keyed by subject id.
func subjectTeachers(ctx context.Context, ext sqlx.ExtContext, subjectIDs []int) (map[int][]string, error) {
	var links []subjectTeacherRow
	err := selectRows(ctx, ext, &links,
		"SELECT subject_id, teacher_id FROM subject_teachers WHERE subject_id = ANY(?) ORDER BY teacher_id",
		pq.Array(subjectIDs))
	if err != nil {
		return nil, err
	}
	bySubject := make(map[int][]string, len(subjectIDs))
	for _, link := range links {
		bySubject[link.SubjectID] = append(bySubject[link.SubjectID], link.TeacherID)
	}
	return bySubject, nil
}

func (repo *schoolRepository) GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (school.Subject, error) {
	ext := repo.getExec(exec)
	var subj school.Subject
	if err := get(ctx, ext, &subj, "SELECT id, name FROM subjects WHERE id = ?", id); err != nil {
		return school.Subject{}, errors.Wrap(err, "getting subject")
	}
	links, err := subjectTeachers(ctx, ext, []int{id})
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "getting subject teachers")
	}
	subj.TeacherIDs = orEmpty(links[id])
	return subj, nil
}

func (repo *schoolRepository) CountSubjects(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	var w where
	w.add("id = ANY(?)", pq.Array(ids))
	n, err := count(ctx, repo.getExec(exec), "subjects", w)
	return n, errors.Wrap(err, "counting subjects")
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	ext := repo.getExec(exec)
	if err := get(ctx, ext, &s.ID, "INSERT INTO subjects (name) VALUES (?) RETURNING id", s.Name); err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	if err := repo.linkSubjectTeachers(ctx, ext, s); err != nil {
		return school.Subject{}, err
	}
	return s, nil
}

func (repo *schoolRepository) UpdateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	ext := repo.getExec(exec)
	if err := runOne(ctx, ext, "UPDATE subjects SET name = ? WHERE id = ?", s.Name, s.ID); err != nil {
		return school.Subject{}, errors.Wrap(err, "updating subject")
	}
	if err := repo.linkSubjectTeachers(ctx, ext, s); err != nil {
		return school.Subject{}, err
	}
	return s, nil
}

func (repo *schoolRepository) linkSubjectTeachers(ctx context.Context, ext sqlx.ExtContext, s school.Subject) error {
	if _, err := run(ctx, ext, "DELETE FROM subject_teachers WHERE subject_id = ?", s.ID); err != nil {
		return errors.Wrap(err, "unlinking subject teachers")
	}
	if len(s.TeacherIDs) == 0 {
		return nil
	}
	_, err := run(ctx, ext,
		"INSERT INTO subject_teachers (subject_id, teacher_id) SELECT ?, UNNEST(?::text[])",
		s.ID, pq.Array(s.TeacherIDs))
	return errors.Wrap(err, "linking subject teachers")
}

func (repo *schoolRepository) DeleteSubject(ctx context.Context, id int, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	if _, err := run(ctx, ext, "DELETE FROM subject_teachers WHERE subject_id = ?", id); err != nil {
		return errors.Wrap(err, "unlinking subject teachers")
	}
	return errors.Wrap(runOne(ctx, ext, "DELETE FROM subjects WHERE id = ?", id), "deleting subject")
}

func (repo *schoolRepository) ListSubjects(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Subject, int, error) {
	ext := repo.getExec(exec)
	var w where
	w.search(q.Search, "s.name")
	if q.TeacherID != "" {
		w.add("s.id IN (SELECT subject_id FROM subject_teachers WHERE teacher_id = ?)", q.TeacherID)
	}

	var subjects []school.Subject
	total, err := list(ctx, ext, &subjects, "s.id, s.name", "subjects s", w,
		core.OrderClause(q.Ordering, subjectOrdering, "s.id ASC")+", s.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing subjects")
	}

	ids := make([]int, 0, len(subjects))
	for _, s := range subjects {
		ids = append(ids, s.ID)
	}
	links, err := subjectTeachers(ctx, ext, ids)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing subject teachers")
	}
	for i := range subjects {
		subjects[i].TeacherIDs = orEmpty(links[subjects[i].ID])
	}
	return subjects, total, nil
}

// teachers

func (repo *schoolRepository) teacherSubjects(ctx context.Context, ext sqlx.ExtContext, teacherID string) ([]int, error) {
	ids := make([]int, 0)
	err := selectRows(ctx, ext, &ids, "SELECT subject_id FROM subject_teachers WHERE teacher_id = ? ORDER BY subject_id", teacherID)
	return ids, err
}

func (repo *schoolRepository) GetTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (school.Teacher, error) {
	ext := repo.getExec(exec)
	var row teacherRow
	if err := get(ctx, ext, &row, "SELECT "+teacherCols+" FROM teachers t WHERE t.id = ?", id); err != nil {
		return school.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	tchr := row.teacher()
	var err error
	if tchr.SubjectIDs, err = repo.teacherSubjects(ctx, ext, id); err != nil {
		return school.Teacher{}, errors.Wrap(err, "getting teacher subjects")
	}
	return tchr, nil
}

func (repo *schoolRepository) CountTeachers(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	var w where
	w.add("id = ANY(?)", pq.Array(ids))
	n, err := count(ctx, repo.getExec(exec), "teachers", w)
	return n, errors.Wrap(err, "counting teachers")
}

func (repo *schoolRepository) CreateTeacher(ctx context.Context, tchr school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	ext := repo.getExec(exec)
	err := get(ctx, ext, &tchr.CreatedAt,
		`INSERT INTO teachers (id, username, name, surname, email, phone, address, img, blood_type, sex, birthday)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING created_at`,
		tchr.ID, tchr.Username, tchr.Name, tchr.Surname, nullString(tchr.Email), nullString(tchr.Phone),
		tchr.Address, nullString(tchr.Img), tchr.BloodType, string(tchr.Sex), tchr.Birthday.UTC())
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	if err = repo.linkTeacherSubjects(ctx, ext, tchr); err != nil {
		return school.Teacher{}, err
	}
	return tchr, nil
}

func (repo *schoolRepository) UpdateTeacher(ctx context.Context, tchr school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	ext := repo.getExec(exec)
	err := get(ctx, ext, &tchr.CreatedAt,
		`UPDATE teachers SET username = ?, name = ?, surname = ?, email = ?, phone = ?, address = ?, img = ?,
		blood_type = ?, sex = ?, birthday = ? WHERE id = ? RETURNING created_at`,
		tchr.Username, tchr.Name, tchr.Surname, nullString(tchr.Email), nullString(tchr.Phone), tchr.Address,
		nullString(tchr.Img), tchr.BloodType, string(tchr.Sex), tchr.Birthday.UTC(), tchr.ID)
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if err = repo.linkTeacherSubjects(ctx, ext, tchr); err != nil {
		return school.Teacher{}, err
	}
	return tchr, nil
}

func (repo *schoolRepository) linkTeacherSubjects(ctx context.Context, ext sqlx.ExtContext, tchr school.Teacher) error {
	if _, err := run(ctx, ext, "DELETE FROM subject_teachers WHERE teacher_id = ?", tchr.ID); err != nil {
		return errors.Wrap(err, "unlinking teacher subjects")
	}
	if len(tchr.SubjectIDs) == 0 {
		return nil
	}
	_, err := run(ctx, ext,
		"INSERT INTO subject_teachers (subject_id, teacher_id) SELECT UNNEST(?::int[]), ?",
		pq.Array(tchr.SubjectIDs), tchr.ID)
	return errors.Wrap(err, "linking teacher subjects")
}

func (repo *schoolRepository) DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	if _, err := run(ctx, ext, "DELETE FROM subject_teachers WHERE teacher_id = ?", id); err != nil {
		return errors.Wrap(err, "unlinking teacher subjects")
	}
	return errors.Wrap(runOne(ctx, ext, "DELETE FROM teachers WHERE id = ?", id), "deleting teacher")
}

func (repo *schoolRepository) ClearClassSupervisor(ctx context.Context, teacherID string, exec ...core.DBExecutor) error {
	_, err := run(ctx, repo.getExec(exec), "UPDATE classes SET supervisor_id = NULL WHERE supervisor_id = ?", teacherID)
	return errors.Wrap(err, "clearing class supervisor")
}

func (repo *schoolRepository) TeacherTeachesClass(ctx context.Context, teacherID string, classID int, exec ...core.DBExecutor) (bool, error) {
	var teaches bool
	err := get(ctx, repo.getExec(exec), &teaches,
		"SELECT EXISTS (SELECT 1 FROM lessons WHERE teacher_id = ? AND class_id = ?)", teacherID, classID)
	return teaches, errors.Wrap(err, "checking teacher classes")
}

func (repo *schoolRepository) ListTeachers(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Teacher, int, error) {
	ext := repo.getExec(exec)
	var w where
	w.search(q.Search, "t.username", "t.name", "t.surname")
	if q.ClassID != 0 {
		w.add("t.id IN (SELECT teacher_id FROM lessons WHERE class_id = ? UNION SELECT supervisor_id FROM classes WHERE id = ? AND supervisor_id IS NOT NULL)",
			q.ClassID, q.ClassID)
	}

	var rows []teacherRow
	total, err := list(ctx, ext, &rows, teacherCols, "teachers t", w,
		core.OrderClause(q.Ordering, personOrdering("t"), "t.name ASC")+", t.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, row := range rows {
		tchr := row.teacher()
		if tchr.SubjectIDs, err = repo.teacherSubjects(ctx, ext, tchr.ID); err != nil {
			return nil, 0, errors.Wrap(err, "listing teacher subjects")
		}
		teachers = append(teachers, tchr)
	}
	return teachers, total, nil
}

// students

func (repo *schoolRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Student, error) {
	var row studentRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+studentCols+" FROM students st WHERE st.id = ?", id); err != nil {
		return school.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *schoolRepository) CountStudents(ctx context.Context, filter school.StudentFilter, exec ...core.DBExecutor) (int, error) {
	var w where
	if filter.ClassID != 0 {
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.ParentID != "" {
		w.add("parent_id = ?", filter.ParentID)
	}
	if filter.IDs != nil {
		w.add("id = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.HasParent != nil {
		if *filter.HasParent {
			w.add("parent_id IS NOT NULL")
		} else {
			w.add("parent_id IS NULL")
		}
	}
	if filter.ExcludeParentID != "" {
		w.add("parent_id IS DISTINCT FROM ?", filter.ExcludeParentID)
	}
	n, err := count(ctx, repo.getExec(exec), "students", w)
	return n, errors.Wrap(err, "counting students")
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	err := get(ctx, repo.getExec(exec), &std.CreatedAt,
		`INSERT INTO students (id, username, name, surname, email, phone, address, img, blood_type, sex, birthday,
		grade_id, class_id, parent_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING created_at`,
		std.ID, std.Username, std.Name, std.Surname, nullString(std.Email), nullString(std.Phone), std.Address,
		nullString(std.Img), std.BloodType, string(std.Sex), std.Birthday.UTC(), std.GradeID, std.ClassID,
		nullString(std.ParentID))
	if err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	err := get(ctx, repo.getExec(exec), &std.CreatedAt,
		`UPDATE students SET username = ?, name = ?, surname = ?, email = ?, phone = ?, address = ?, img = ?,
		blood_type = ?, sex = ?, birthday = ?, grade_id = ?, class_id = ?, parent_id = ? WHERE id = ? RETURNING created_at`,
		std.Username, std.Name, std.Surname, nullString(std.Email), nullString(std.Phone), std.Address,
		nullString(std.Img), std.BloodType, string(std.Sex), std.Birthday.UTC(), std.GradeID, std.ClassID,
		nullString(std.ParentID), std.ID)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	return std, nil
}

func (repo *schoolRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM students WHERE id = ?", id), "deleting student")
}

func (repo *schoolRepository) MoveStudents(ctx context.Context, from, to int, exec ...core.DBExecutor) error {
	_, err := run(ctx, repo.getExec(exec), "UPDATE students SET class_id = ? WHERE class_id = ?", to, from)
	return errors.Wrap(err, "moving students")
}

func (repo *schoolRepository) ListStudents(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Student, int, error) {
	var w where
	w.studentVisible(q.Scope, "st")
	w.search(q.Search, "st.username", "st.name", "st.surname")
	if q.ClassID != 0 {
		w.add("st.class_id = ?", q.ClassID)
	}
	if q.TeacherID != "" {
		w.add("st.class_id IN "+teacherClassesSQL, q.TeacherID, q.TeacherID)
	}

	var rows []studentRow
	total, err := list(ctx, repo.getExec(exec), &rows, studentCols, "students st", w,
		core.OrderClause(q.Ordering, personOrdering("st"), "st.name ASC")+", st.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, total, nil
}

// parents

func (repo *schoolRepository) parentStudents(ctx context.Context, ext sqlx.ExtContext, parentID string) ([]string, error) {
	ids := make([]string, 0)
	err := selectRows(ctx, ext, &ids, "SELECT id FROM students WHERE parent_id = ? ORDER BY id", parentID)
	return ids, err
}

func (repo *schoolRepository) GetParent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Parent, error) {
	ext := repo.getExec(exec)
	var row parentRow
	if err := get(ctx, ext, &row, "SELECT "+parentCols+" FROM parents p WHERE p.id = ?", id); err != nil {
		return school.Parent{}, errors.Wrap(err, "getting parent")
	}
	prt := row.parent()
	var err error
	if prt.StudentIDs, err = repo.parentStudents(ctx, ext, id); err != nil {
		return school.Parent{}, errors.Wrap(err, "getting parent students")
	}
	return prt, nil
}

func (repo *schoolRepository) CreateParent(ctx context.Context, prt school.Parent, exec ...core.DBExecutor) (school.Parent, error) {
	err := get(ctx, repo.getExec(exec), &prt.CreatedAt,
		`INSERT INTO parents (id, username, name, surname, email, phone, address)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING created_at`,
		prt.ID, prt.Username, prt.Name, prt.Surname, nullString(prt.Email), nullString(prt.Phone), prt.Address)
	if err != nil {
		return school.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return prt, nil
}

func (repo *schoolRepository) UpdateParent(ctx context.Context, prt school.Parent, exec ...core.DBExecutor) (school.Parent, error) {
	err := get(ctx, repo.getExec(exec), &prt.CreatedAt,
		"UPDATE parents SET username = ?, name = ?, surname = ?, email = ?, phone = ?, address = ? WHERE id = ? RETURNING created_at",
		prt.Username, prt.Name, prt.Surname, nullString(prt.Email), nullString(prt.Phone), prt.Address, prt.ID)
	if err != nil {
		return school.Parent{}, errors.Wrap(err, "updating parent")
	}
	return prt, nil
}

func (repo *schoolRepository) DeleteParent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM parents WHERE id = ?", id), "deleting parent")
}

func (repo *schoolRepository) SetParentStudents(ctx context.Context, parentID string, studentIDs []string, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	ids := pq.Array(orEmpty(studentIDs))
	if _, err := run(ctx, ext, "UPDATE students SET parent_id = NULL WHERE parent_id = ? AND NOT (id = ANY(?))", parentID, ids); err != nil {
		return errors.Wrap(err, "unlinking parent students")
	}
	_, err := run(ctx, ext, "UPDATE students SET parent_id = ? WHERE id = ANY(?)", parentID, ids)
	return errors.Wrap(err, "linking parent students")
}

func (repo *schoolRepository) ListParents(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Parent, int, error) {
	ext := repo.getExec(exec)
	var w where
	if sub, args, all := visibleClasses(q.Scope); !all {
		w.add("p.id IN (SELECT parent_id FROM students WHERE class_id IN "+sub+")", args...)
	}
	w.search(q.Search, "p.username", "p.name", "p.surname")
	if q.ClassID != 0 {
		w.add("p.id IN (SELECT parent_id FROM students WHERE class_id = ?)", q.ClassID)
	}
	if q.StudentID != "" {
		w.add("p.id IN (SELECT parent_id FROM students WHERE id = ?)", q.StudentID)
	}

	var rows []parentRow
	total, err := list(ctx, ext, &rows, parentCols, "parents p", w,
		core.OrderClause(q.Ordering, personOrdering("p"), "p.name ASC")+", p.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing parents")
	}
	parents := make([]school.Parent, 0, len(rows))
	for _, row := range rows {
		prt := row.parent()
		if prt.StudentIDs, err = repo.parentStudents(ctx, ext, prt.ID); err != nil {
			return nil, 0, errors.Wrap(err, "listing parent students")
		}
		parents = append(parents, prt)
	}
	return parents, total, nil
}

// classes

func (repo *schoolRepository) getClass(ctx context.Context, id int, lock bool, exec []core.DBExecutor) (school.Class, error) {
	query := "SELECT " + classCols + " FROM classes c WHERE c.id = ?"
	if lock {
		query += " FOR UPDATE"
	}
	var row classRow
	if err := get(ctx, repo.getExec(exec), &row, query, id); err != nil {
		return school.Class{}, errors.Wrap(err, "getting class")
	}
	return row.class(), nil
}

func (repo *schoolRepository) GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (school.Class, error) {
	return repo.getClass(ctx, id, false, exec)
}

func (repo *schoolRepository) LockClass(ctx context.Context, id int, exec ...core.DBExecutor) (school.Class, error) {
	return repo.getClass(ctx, id, len(exec) > 0, exec)
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class, exec ...core.DBExecutor) (school.Class, error) {
	err := get(ctx, repo.getExec(exec), &cls.ID,
		"INSERT INTO classes (name, capacity, grade_id, supervisor_id) VALUES (?, ?, ?, ?) RETURNING id",
		cls.Name, cls.Capacity, cls.GradeID, nullString(cls.SupervisorID))
	if err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo *schoolRepository) UpdateClass(ctx context.Context, cls school.Class, exec ...core.DBExecutor) (school.Class, error) {
	err := runOne(ctx, repo.getExec(exec),
		"UPDATE classes SET name = ?, capacity = ?, grade_id = ?, supervisor_id = ? WHERE id = ?",
		cls.Name, cls.Capacity, cls.GradeID, nullString(cls.SupervisorID), cls.ID)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "updating class")
	}
	return cls, nil
}

func (repo *schoolRepository) DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM classes WHERE id = ?", id), "deleting class")
}

func (repo *schoolRepository) ListClasses(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Class, int, error) {
	var w where
	w.classVisible(q.Scope, "c.id")
	w.search(q.Search, "c.name")
	if q.TeacherID != "" {
		w.add("c.id IN "+teacherClassesSQL, q.TeacherID, q.TeacherID)
	}

	var rows []classRow
	total, err := list(ctx, repo.getExec(exec), &rows, classCols, "classes c", w,
		core.OrderClause(q.Ordering, classOrdering, "c.name ASC")+", c.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class())
	}
	return classes, total, nil
}

func (repo *schoolRepository) GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (school.Grade, error) {
	var grd school.Grade
	err := get(ctx, repo.getExec(exec), &grd, "SELECT id, level FROM grades WHERE id = ?", id)
	return grd, errors.Wrap(err, "getting grade")
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
