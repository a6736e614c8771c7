package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

const seedPassword = "password123"

var (
	seedCaller   = core.Caller{ID: "seed", Username: "seed", Role: core.RoleAdmin}
	seedSubjects = []string{
		"Mathematics", "Science", "English", "History", "Geography",
		"Physics", "Chemistry", "Biology", "Computer Science", "Art",
	}
	seedBloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
)

// seeder fills an empty school through the entity actions, so every row it writes passes the same checks as user input.
type seeder struct {
	svcs *school.Services
	ctx  context.Context
	now  time.Time

	subjects []int
	teachers []string
	parents  []string
	classes  []school.Class
	lessons  []school.Lesson
	students map[int][]string // by class
}

func (cli *commandLine) seed() error {
	s := &seeder{
		svcs:     cli.svcs,
		ctx:      context.Background(),
		now:      time.Now().UTC(),
		students: make(map[int][]string),
	}

	res, err := s.svcs.List(s.ctx, seedCaller, core.EntitySubject, school.ListQuery{})
	if err != nil {
		return err
	}
	if res.Count > 0 {
		return errors.New("the database already holds school data")
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"subjects", s.seedSubjects},
		{"teachers", s.seedTeachers},
		{"classes", s.seedClasses},
		{"lessons", s.seedLessons},
		{"parents", s.seedParents},
		{"students", s.seedStudents},
		{"exams and results", s.seedExams},
		{"assignments", s.seedAssignments},
		{"attendance", s.seedAttendance},
		{"events", s.seedEvents},
		{"announcements", s.seedAnnouncements},
	}
	for _, step := range steps {
		if err = step.run(); err != nil {
			return errors.Wrapf(err, "seeding %s", step.name)
		}
		fmt.Printf("seeded %s\n", step.name)
	}
	return nil
}

func check(out core.Outcome) (string, error) {
	if !out.Success {
		msg := out.Message
		if len(out.Fields) > 0 {
			fields := make([]string, 0, len(out.Fields))
			for f, e := range out.Fields {
				fields = append(fields, f+": "+e)
			}
			sort.Strings(fields)
			msg += " (" + strings.Join(fields, "; ") + ")"
		}
		return "", errors.Errorf("%s: %s", out.Kind, msg)
	}
	return out.ID, nil
}

func checkInt(out core.Outcome) (int, error) {
	id, err := check(out)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(id)
}

func clock(hour, min int) time.Time {
	return time.Date(2000, time.January, 1, hour, min, 0, 0, time.UTC)
}

// at returns the clock of t on day.
func at(day, t time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// nextOn returns the first date on or after from that falls on d.
func nextOn(from time.Time, d school.Day) time.Time {
	for i := 0; i < 7; i++ {
		if day, ok := school.DayOf(from.AddDate(0, 0, i)); ok && day == d {
			return from.AddDate(0, 0, i)
		}
	}
	return from
}

func (s *seeder) seedSubjects() error {
	for _, name := range seedSubjects {
		id, err := checkInt(s.svcs.Subjects.Create(s.ctx, seedCaller, school.SubjectInput{Name: name}))
		if err != nil {
			return err
		}
		s.subjects = append(s.subjects, id)
	}
	return nil
}

func (s *seeder) seedTeachers() error {
	for i := 1; i <= 15; i++ {
		sex := school.Male
		if i%2 == 0 {
			sex = school.Female
		}
		id, err := check(s.svcs.Teachers.Create(s.ctx, seedCaller, school.TeacherInput{
			Username:   fmt.Sprintf("teacher%d", i),
			Password:   seedPassword,
			Name:       fmt.Sprintf("TName%d", i),
			Surname:    fmt.Sprintf("TSurname%d", i),
			Email:      fmt.Sprintf("teacher%d@example.com", i),
			Phone:      fmt.Sprintf("123-456-78%02d", i),
			Address:    fmt.Sprintf("Address%d", i),
			BloodType:  "A+",
			Sex:        string(sex),
			Birthday:   s.now.AddDate(-30, 0, 0),
			SubjectIDs: []int{s.subjects[(i-1)%len(s.subjects)]},
		}))
		if err != nil {
			return err
		}
		s.teachers = append(s.teachers, id)
	}
	return nil
}

// seedClasses adds one class per grade beside the default class.
func (s *seeder) seedClasses() error {
	for grade := 2; grade <= 6; grade++ {
		_, err := check(s.svcs.Classes.Create(s.ctx, seedCaller, school.ClassInput{
			Name:         fmt.Sprintf("%dA", grade),
			Capacity:     20,
			GradeID:      grade,
			SupervisorID: s.teachers[grade%len(s.teachers)],
		}))
		if err != nil {
			return err
		}
	}

	res, err := s.svcs.List(s.ctx, seedCaller, core.EntityClass, school.ListQuery{Page: core.Page{PerPage: 100}})
	if err != nil {
		return err
	}
	s.classes = res.Data.([]school.Class)
	return nil
}

func (s *seeder) seedLessons() error {
	slots := [][2]time.Time{
		{clock(9, 0), clock(10, 0)},
		{clock(10, 0), clock(11, 0)},
	}
	n := 0
	for _, cls := range s.classes {
		for d, day := range school.Days {
			for i, slot := range slots {
				subj := s.subjects[(d*len(slots)+i)%len(s.subjects)]
				in := school.LessonInput{
					Name:      fmt.Sprintf("Lesson%d", n+1),
					Day:       day,
					StartTime: slot[0],
					EndTime:   slot[1],
					SubjectID: subj,
					ClassID:   cls.ID,
					TeacherID: s.teachers[n%len(s.teachers)],
				}
				id, err := checkInt(s.svcs.Lessons.Create(s.ctx, seedCaller, in))
				if err != nil {
					return err
				}
				s.lessons = append(s.lessons, school.Lesson{
					ID: id, Name: in.Name, Day: day, StartTime: slot[0], EndTime: slot[1],
					SubjectID: subj, ClassID: cls.ID, TeacherID: in.TeacherID,
				})
				n++
			}
		}
	}
	return nil
}

func (s *seeder) seedParents() error {
	for i := 1; i <= 25; i++ {
		id, err := check(s.svcs.Parents.Create(s.ctx, seedCaller, school.ParentInput{
			Username: fmt.Sprintf("parent%d", i),
			Password: seedPassword,
			Name:     fmt.Sprintf("PName%d", i),
			Surname:  fmt.Sprintf("PSurname%d", i),
			Email:    fmt.Sprintf("parent%d@example.com", i),
			Phone:    fmt.Sprintf("123-456-79%02d", i),
			Address:  fmt.Sprintf("Address%d", i),
		}))
		if err != nil {
			return err
		}
		s.parents = append(s.parents, id)
	}
	return nil
}

func (s *seeder) seedStudents() error {
	for i := 1; i <= 50; i++ {
		cls := s.classes[(i-1)%len(s.classes)]
		sex := school.Male
		if i%2 == 0 {
			sex = school.Female
		}
		id, err := check(s.svcs.Students.Create(s.ctx, seedCaller, school.StudentInput{
			Username:  fmt.Sprintf("student%d", i),
			Password:  seedPassword,
			Name:      fmt.Sprintf("SName%d", i),
			Surname:   fmt.Sprintf("SSurname%d", i),
			Email:     fmt.Sprintf("student%d@example.com", i),
			Phone:     fmt.Sprintf("987-654-32%02d", i),
			Address:   fmt.Sprintf("Address%d", i),
			BloodType: seedBloodTypes[len(seedBloodTypes)-1],
			Sex:       string(sex),
			Birthday:  s.now.AddDate(-10, 0, 0),
			GradeID:   cls.GradeID,
			ClassID:   cls.ID,
			ParentID:  s.parents[(i-1)%len(s.parents)],
		}))
		if err != nil {
			return err
		}
		s.students[cls.ID] = append(s.students[cls.ID], id)
	}
	return nil
}

// seedExams schedules one exam next week for the first lessons, graded for their whole class.
func (s *seeder) seedExams() error {
	for i, lsn := range s.lessons[:10] {
		day := nextOn(s.now.AddDate(0, 0, 7), lsn.Day)
		examID, err := checkInt(s.svcs.Exams.Create(s.ctx, seedCaller, school.ExamInput{
			Title:     fmt.Sprintf("Exam %d", i+1),
			StartTime: at(day, lsn.StartTime),
			EndTime:   at(day, lsn.EndTime),
			LessonID:  lsn.ID,
		}))
		if err != nil {
			return err
		}
		for j, student := range s.students[lsn.ClassID] {
			_, err = check(s.svcs.Results.Create(s.ctx, seedCaller, school.ResultInput{
				Score:     50 + (i*7+j*11)%51,
				StudentID: student,
				ExamID:    examID,
			}))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) seedAssignments() error {
	for i, lsn := range s.lessons[:10] {
		_, err := check(s.svcs.Assignments.Create(s.ctx, seedCaller, school.AssignmentInput{
			Title:     fmt.Sprintf("Assignment %d", i+1),
			StartDate: s.now,
			DueDate:   s.now.AddDate(0, 0, 14),
			SubjectID: lsn.SubjectID,
			LessonID:  lsn.ID,
		}))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedAttendance() error {
	for _, lsn := range s.lessons[:10] {
		for j, student := range s.students[lsn.ClassID] {
			_, err := check(s.svcs.Attendances.Create(s.ctx, seedCaller, school.AttendanceInput{
				Date:      s.now,
				Present:   j%3 != 0,
				StudentID: student,
				LessonID:  lsn.ID,
			}))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) seedEvents() error {
	for i := 1; i <= 5; i++ {
		start := s.now.AddDate(0, 0, i).Truncate(time.Hour)
		in := school.EventInput{
			Title:       fmt.Sprintf("Event %d", i),
			Description: fmt.Sprintf("Description for Event %d", i),
			StartTime:   start,
			EndTime:     start.Add(2 * time.Hour),
		}
		if i%2 == 0 { // every other event is school-wide
			in.ClassID = s.classes[i%len(s.classes)].ID
		}
		if _, err := check(s.svcs.Events.Create(s.ctx, seedCaller, in)); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedAnnouncements() error {
	for i := 1; i <= 5; i++ {
		in := school.AnnouncementInput{
			Title:       fmt.Sprintf("Announcement %d", i),
			Description: fmt.Sprintf("Description for Announcement %d", i),
			Date:        s.now.AddDate(0, 0, i-1),
		}
		if i%2 == 0 {
			in.ClassID = s.classes[i%len(s.classes)].ID
		}
		if _, err := check(s.svcs.Announcements.Create(s.ctx, seedCaller, in)); err != nil {
			return err
		}
	}
	return nil
}
