package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

// admins

func (repo *schoolRepository) GetAdmin(ctx context.Context, id string, exec ...core.DBExecutor) (school.Admin, error) {
	var adm school.Admin
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if adm, ok = t.admins[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return adm, err
}

func (repo *schoolRepository) CreateAdmin(ctx context.Context, adm school.Admin, exec ...core.DBExecutor) (school.Admin, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.admins[adm.ID]; ok {
			return core.ErrUniqueViolation
		}
		for _, a := range t.admins {
			if a.Username == adm.Username {
				return core.ErrUniqueViolation
			}
		}
		t.admins[adm.ID] = adm
		return nil
	})
	return adm, err
}

// subjects

func (repo *schoolRepository) GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (school.Subject, error) {
	var subj school.Subject
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if subj, ok = t.subjects[id]; !ok {
			return core.ErrNotFound
		}
		subj.TeacherIDs = t.subjectTeacherIDs(id)
		return nil
	})
	return subj, err
}

func (repo *schoolRepository) CountSubjects(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.db.read(ctx, func(t *tables) error {
		for _, id := range ids {
			if _, ok := t.subjects[id]; ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	return repo.saveSubject(ctx, s, exec)
}

func (repo *schoolRepository) UpdateSubject(ctx context.Context, s school.Subject, exec ...core.DBExecutor) (school.Subject, error) {
	return repo.saveSubject(ctx, s, exec)
}

func (repo *schoolRepository) saveSubject(ctx context.Context, s school.Subject, exec []core.DBExecutor) (school.Subject, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if s.ID != 0 {
			if _, ok := t.subjects[s.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.subjects {
			if other.ID != s.ID && other.Name == s.Name {
				return core.ErrUniqueViolation
			}
		}
		for _, tid := range s.TeacherIDs {
			if _, ok := t.teachers[tid]; !ok {
				return core.ErrForeignKeyViolation
			}
		}

		if s.ID == 0 {
			s.ID = t.nextPK("subjects")
		}
		for link := range t.subjTeachers {
			if link.SubjectID == s.ID {
				delete(t.subjTeachers, link)
			}
		}
		for _, tid := range s.TeacherIDs {
			t.subjTeachers[subjectTeacher{SubjectID: s.ID, TeacherID: tid}] = true
		}
		stored := s
		stored.TeacherIDs = nil
		t.subjects[s.ID] = stored
		s.TeacherIDs = t.subjectTeacherIDs(s.ID)
		return nil
	})
	if err != nil {
		return school.Subject{}, err
	}
	return s, nil
}

func (repo *schoolRepository) DeleteSubject(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.subjects[id]; !ok {
			return core.ErrNotFound
		}
		for _, lsn := range t.lessons {
			if lsn.SubjectID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for _, asg := range t.assignments {
			if asg.SubjectID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for link := range t.subjTeachers {
			if link.SubjectID == id {
				delete(t.subjTeachers, link)
			}
		}
		delete(t.subjects, id)
		return nil
	})
}

func (repo *schoolRepository) ListSubjects(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Subject, int, error) {
	var (
		rows  []school.Subject
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		for _, subj := range t.subjects {
			if q.Search != "" && !containsFold(q.Search, subj.Name) {
				continue
			}
			subj.TeacherIDs = t.subjectTeacherIDs(subj.ID)
			if q.TeacherID != "" && !containsString(subj.TeacherIDs, q.TeacherID) {
				continue
			}
			rows = append(rows, subj)
		}
		rows, total = page(rows, q, columns[school.Subject]{
			"id":   func(s school.Subject) interface{} { return s.ID },
			"name": func(s school.Subject) interface{} { return s.Name },
		}, core.DBOrdering{Field: "id", Ascending: true})
		return nil
	})
	return rows, total, err
}

// teachers

func (repo *schoolRepository) GetTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (school.Teacher, error) {
	var tchr school.Teacher
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if tchr, ok = t.teachers[id]; !ok {
			return core.ErrNotFound
		}
		tchr.SubjectIDs = t.teacherSubjectIDs(id)
		return nil
	})
	return tchr, err
}

func (repo *schoolRepository) CountTeachers(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.db.read(ctx, func(t *tables) error {
		for _, id := range ids {
			if _, ok := t.teachers[id]; ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (repo *schoolRepository) CreateTeacher(ctx context.Context, tchr school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	return repo.saveTeacher(ctx, tchr, true, exec)
}

func (repo *schoolRepository) UpdateTeacher(ctx context.Context, tchr school.Teacher, exec ...core.DBExecutor) (school.Teacher, error) {
	return repo.saveTeacher(ctx, tchr, false, exec)
}

func (repo *schoolRepository) saveTeacher(ctx context.Context, tchr school.Teacher, creating bool, exec []core.DBExecutor) (school.Teacher, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		old, exists := t.teachers[tchr.ID]
		switch {
		case creating && exists:
			return core.ErrUniqueViolation
		case !creating && !exists:
			return core.ErrNotFound
		}
		for _, other := range t.teachers {
			if other.ID == tchr.ID {
				continue
			}
			if other.Username == tchr.Username ||
				(tchr.Email != "" && other.Email == tchr.Email) ||
				(tchr.Phone != "" && other.Phone == tchr.Phone) {
				return core.ErrUniqueViolation
			}
		}
		for _, sid := range tchr.SubjectIDs {
			if _, ok := t.subjects[sid]; !ok {
				return core.ErrForeignKeyViolation
			}
		}

		if creating {
			tchr.CreatedAt = time.Now().UTC()
		} else {
			tchr.CreatedAt = old.CreatedAt
		}
		for link := range t.subjTeachers {
			if link.TeacherID == tchr.ID {
				delete(t.subjTeachers, link)
			}
		}
		for _, sid := range tchr.SubjectIDs {
			t.subjTeachers[subjectTeacher{SubjectID: sid, TeacherID: tchr.ID}] = true
		}
		stored := tchr
		stored.SubjectIDs = nil
		t.teachers[tchr.ID] = stored
		tchr.SubjectIDs = t.teacherSubjectIDs(tchr.ID)
		return nil
	})
	if err != nil {
		return school.Teacher{}, err
	}
	return tchr, nil
}

func (repo *schoolRepository) DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.teachers[id]; !ok {
			return core.ErrNotFound
		}
		for _, lsn := range t.lessons {
			if lsn.TeacherID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for _, cls := range t.classes {
			if cls.SupervisorID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for link := range t.subjTeachers {
			if link.TeacherID == id {
				delete(t.subjTeachers, link)
			}
		}
		delete(t.teachers, id)
		return nil
	})
}

func (repo *schoolRepository) ClearClassSupervisor(ctx context.Context, teacherID string, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		for id, cls := range t.classes {
			if cls.SupervisorID == teacherID {
				cls.SupervisorID = ""
				t.classes[id] = cls
			}
		}
		return nil
	})
}

func (repo *schoolRepository) TeacherTeachesClass(ctx context.Context, teacherID string, classID int, exec ...core.DBExecutor) (bool, error) {
	var teaches bool
	err := repo.db.read(ctx, func(t *tables) error {
		for _, lsn := range t.lessons {
			if lsn.TeacherID == teacherID && lsn.ClassID == classID {
				teaches = true
				break
			}
		}
		return nil
	})
	return teaches, err
}

func (repo *schoolRepository) ListTeachers(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Teacher, int, error) {
	var (
		rows  []school.Teacher
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		for _, tchr := range t.teachers {
			if q.Search != "" && !containsFold(q.Search, tchr.Username, tchr.Name, tchr.Surname) {
				continue
			}
			if q.ClassID != 0 && !t.teacherClasses(tchr.ID)[q.ClassID] {
				continue
			}
			tchr.SubjectIDs = t.teacherSubjectIDs(tchr.ID)
			rows = append(rows, tchr)
		}
		rows, total = page(rows, q, personColumns(func(tc school.Teacher) person {
			return person{tc.ID, tc.Username, tc.Name, tc.Surname, tc.CreatedAt}
		}), core.DBOrdering{Field: "name", Ascending: true})
		return nil
	})
	return rows, total, err
}

// students

func (repo *schoolRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Student, error) {
	var std school.Student
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if std, ok = t.students[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return std, err
}

func (repo *schoolRepository) CountStudents(ctx context.Context, filter school.StudentFilter, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.db.read(ctx, func(t *tables) error {
		var ids map[string]bool
		if filter.IDs != nil {
			ids = make(map[string]bool, len(filter.IDs))
			for _, id := range filter.IDs {
				ids[id] = true
			}
		}
		for _, std := range t.students {
			switch {
			case filter.ClassID != 0 && std.ClassID != filter.ClassID,
				filter.ParentID != "" && std.ParentID != filter.ParentID,
				ids != nil && !ids[std.ID],
				filter.HasParent != nil && (std.ParentID != "") != *filter.HasParent,
				filter.ExcludeParentID != "" && std.ParentID == filter.ExcludeParentID:
				continue
			}
			n++
		}
		return nil
	})
	return n, err
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	return repo.saveStudent(ctx, std, true, exec)
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, std school.Student, exec ...core.DBExecutor) (school.Student, error) {
	return repo.saveStudent(ctx, std, false, exec)
}

func (repo *schoolRepository) saveStudent(ctx context.Context, std school.Student, creating bool, exec []core.DBExecutor) (school.Student, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		old, exists := t.students[std.ID]
		switch {
		case creating && exists:
			return core.ErrUniqueViolation
		case !creating && !exists:
			return core.ErrNotFound
		}
		for _, other := range t.students {
			if other.ID == std.ID {
				continue
			}
			if other.Username == std.Username ||
				(std.Email != "" && other.Email == std.Email) ||
				(std.Phone != "" && other.Phone == std.Phone) {
				return core.ErrUniqueViolation
			}
		}
		if _, ok := t.grades[std.GradeID]; !ok {
			return core.ErrForeignKeyViolation
		}
		if _, ok := t.classes[std.ClassID]; !ok {
			return core.ErrForeignKeyViolation
		}
		if std.ParentID != "" {
			if _, ok := t.parents[std.ParentID]; !ok {
				return core.ErrForeignKeyViolation
			}
		}

		if creating {
			std.CreatedAt = time.Now().UTC()
		} else {
			std.CreatedAt = old.CreatedAt
		}
		t.students[std.ID] = std
		return nil
	})
	if err != nil {
		return school.Student{}, err
	}
	return std, nil
}

func (repo *schoolRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.students[id]; !ok {
			return core.ErrNotFound
		}
		for _, res := range t.results {
			if res.StudentID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for _, att := range t.attendances {
			if att.StudentID == id {
				return core.ErrForeignKeyViolation
			}
		}
		delete(t.students, id)
		return nil
	})
}

func (repo *schoolRepository) MoveStudents(ctx context.Context, from, to int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.classes[to]; !ok {
			return core.ErrForeignKeyViolation
		}
		for id, std := range t.students {
			if std.ClassID == from {
				std.ClassID = to
				t.students[id] = std
			}
		}
		return nil
	})
}

func (repo *schoolRepository) ListStudents(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Student, int, error) {
	var (
		rows  []school.Student
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		var taught map[int]bool
		if q.TeacherID != "" {
			taught = t.teacherClasses(q.TeacherID)
		}
		for _, std := range t.students {
			switch {
			case !t.studentVisible(q.Scope, std.ID),
				q.Search != "" && !containsFold(q.Search, std.Username, std.Name, std.Surname),
				q.ClassID != 0 && std.ClassID != q.ClassID,
				taught != nil && !taught[std.ClassID]:
				continue
			}
			rows = append(rows, std)
		}
		rows, total = page(rows, q, personColumns(func(s school.Student) person {
			return person{s.ID, s.Username, s.Name, s.Surname, s.CreatedAt}
		}), core.DBOrdering{Field: "name", Ascending: true})
		return nil
	})
	return rows, total, err
}

// parents

func (repo *schoolRepository) GetParent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Parent, error) {
	var prt school.Parent
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if prt, ok = t.parents[id]; !ok {
			return core.ErrNotFound
		}
		prt.StudentIDs = t.parentStudentIDs(id)
		return nil
	})
	return prt, err
}

func (repo *schoolRepository) CreateParent(ctx context.Context, prt school.Parent, exec ...core.DBExecutor) (school.Parent, error) {
	return repo.saveParent(ctx, prt, true, exec)
}

func (repo *schoolRepository) UpdateParent(ctx context.Context, prt school.Parent, exec ...core.DBExecutor) (school.Parent, error) {
	return repo.saveParent(ctx, prt, false, exec)
}

func (repo *schoolRepository) saveParent(ctx context.Context, prt school.Parent, creating bool, exec []core.DBExecutor) (school.Parent, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		old, exists := t.parents[prt.ID]
		switch {
		case creating && exists:
			return core.ErrUniqueViolation
		case !creating && !exists:
			return core.ErrNotFound
		}
		for _, other := range t.parents {
			if other.ID == prt.ID {
				continue
			}
			if other.Username == prt.Username ||
				(prt.Email != "" && other.Email == prt.Email) ||
				(prt.Phone != "" && other.Phone == prt.Phone) {
				return core.ErrUniqueViolation
			}
		}
		if creating {
			prt.CreatedAt = time.Now().UTC()
		} else {
			prt.CreatedAt = old.CreatedAt
		}
		stored := prt
		stored.StudentIDs = nil
		t.parents[prt.ID] = stored
		prt.StudentIDs = t.parentStudentIDs(prt.ID)
		return nil
	})
	if err != nil {
		return school.Parent{}, err
	}
	return prt, nil
}

func (repo *schoolRepository) DeleteParent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.parents[id]; !ok {
			return core.ErrNotFound
		}
		for _, std := range t.students {
			if std.ParentID == id {
				return core.ErrForeignKeyViolation
			}
		}
		delete(t.parents, id)
		return nil
	})
}

func (repo *schoolRepository) SetParentStudents(ctx context.Context, parentID string, studentIDs []string, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.parents[parentID]; !ok {
			return core.ErrForeignKeyViolation
		}
		wanted := make(map[string]bool, len(studentIDs))
		for _, id := range studentIDs {
			if _, ok := t.students[id]; !ok {
				return core.ErrForeignKeyViolation
			}
			wanted[id] = true
		}
		for id, std := range t.students {
			switch {
			case wanted[id]:
				std.ParentID = parentID
			case std.ParentID == parentID:
				std.ParentID = ""
			default:
				continue
			}
			t.students[id] = std
		}
		return nil
	})
}

func (repo *schoolRepository) ListParents(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Parent, int, error) {
	var (
		rows  []school.Parent
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		classes, all := t.visibleClasses(q.Scope)
		for _, prt := range t.parents {
			if q.Search != "" && !containsFold(q.Search, prt.Username, prt.Name, prt.Surname) {
				continue
			}
			prt.StudentIDs = t.parentStudentIDs(prt.ID)
			visible, inClass := all, q.ClassID == 0
			for _, sid := range prt.StudentIDs {
				std := t.students[sid]
				visible = visible || classes[std.ClassID]
				inClass = inClass || std.ClassID == q.ClassID
			}
			if q.StudentID != "" && !containsString(prt.StudentIDs, q.StudentID) {
				continue
			}
			if visible && inClass {
				rows = append(rows, prt)
			}
		}
		rows, total = page(rows, q, personColumns(func(p school.Parent) person {
			return person{p.ID, p.Username, p.Name, p.Surname, p.CreatedAt}
		}), core.DBOrdering{Field: "name", Ascending: true})
		return nil
	})
	return rows, total, err
}

// classes

func (repo *schoolRepository) GetClass(ctx context.Context, id int, exec ...core.DBExecutor) (school.Class, error) {
	var cls school.Class
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if cls, ok = t.classes[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return cls, err
}

// LockClass is GetClass: RunInTx already holds the writer slot for the whole transaction.
func (repo *schoolRepository) LockClass(ctx context.Context, id int, exec ...core.DBExecutor) (school.Class, error) {
	return repo.GetClass(ctx, id, exec...)
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class, exec ...core.DBExecutor) (school.Class, error) {
	return repo.saveClass(ctx, cls, exec)
}

func (repo *schoolRepository) UpdateClass(ctx context.Context, cls school.Class, exec ...core.DBExecutor) (school.Class, error) {
	return repo.saveClass(ctx, cls, exec)
}

func (repo *schoolRepository) saveClass(ctx context.Context, cls school.Class, exec []core.DBExecutor) (school.Class, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if cls.ID != 0 {
			if _, ok := t.classes[cls.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.classes {
			if other.ID != cls.ID && other.Name == cls.Name {
				return core.ErrUniqueViolation
			}
		}
		if _, ok := t.grades[cls.GradeID]; !ok {
			return core.ErrForeignKeyViolation
		}
		if cls.SupervisorID != "" {
			if _, ok := t.teachers[cls.SupervisorID]; !ok {
				return core.ErrForeignKeyViolation
			}
		}
		if cls.ID == 0 {
			cls.ID = t.nextPK("classes")
		}
		t.classes[cls.ID] = cls
		return nil
	})
	if err != nil {
		return school.Class{}, err
	}
	return cls, nil
}

func (repo *schoolRepository) DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.classes[id]; !ok {
			return core.ErrNotFound
		}
		for _, std := range t.students {
			if std.ClassID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for _, lsn := range t.lessons {
			if lsn.ClassID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for _, ev := range t.events {
			if ev.ClassID == id {
				return core.ErrForeignKeyViolation
			}
		}
		for _, ann := range t.announcements {
			if ann.ClassID == id {
				return core.ErrForeignKeyViolation
			}
		}
		delete(t.classes, id)
		return nil
	})
}

func (repo *schoolRepository) ListClasses(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Class, int, error) {
	var (
		rows  []school.Class
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		classes, all := t.visibleClasses(q.Scope)
		var taught map[int]bool
		if q.TeacherID != "" {
			taught = t.teacherClasses(q.TeacherID)
		}
		for _, cls := range t.classes {
			switch {
			case !all && !classes[cls.ID],
				q.Search != "" && !containsFold(q.Search, cls.Name),
				taught != nil && !taught[cls.ID]:
				continue
			}
			rows = append(rows, cls)
		}
		rows, total = page(rows, q, columns[school.Class]{
			"id":       func(c school.Class) interface{} { return c.ID },
			"name":     func(c school.Class) interface{} { return c.Name },
			"capacity": func(c school.Class) interface{} { return c.Capacity },
			"grade":    func(c school.Class) interface{} { return t.grades[c.GradeID].Level },
		}, core.DBOrdering{Field: "name", Ascending: true})
		return nil
	})
	return rows, total, err
}

func (repo *schoolRepository) GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (school.Grade, error) {
	var grd school.Grade
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if grd, ok = t.grades[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return grd, err
}

// person is the orderable part of teachers, students and parents.
type person struct {
	ID        string
	Username  string
	Name      string
	Surname   string
	CreatedAt time.Time
}

func personColumns[T any](get func(T) person) columns[T] {
	return columns[T]{
		"id":        func(r T) interface{} { return get(r).ID },
		"username":  func(r T) interface{} { return get(r).Username },
		"name":      func(r T) interface{} { return get(r).Name },
		"surname":   func(r T) interface{} { return get(r).Surname },
		"createdAt": func(r T) interface{} { return get(r).CreatedAt },
	}
}

func containsString(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}
