package sqlxrepos_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/tests"
)

var admin = core.Caller{ID: "root", Username: "root", Role: core.RoleAdmin}

// setup resets the TEST_DATABASE_NAME database and opens stores over it.
func setup(t *testing.T) storage.Stores {
	t.Helper()
	if os.Getenv("TEST_DATABASE_NAME") == "" {
		t.Skip("TEST_DATABASE_NAME is not set")
	}
	conf := core.NewTestConfig()
	conf.Database.Engine = "postgres"

	require.NoError(t, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, "reset"))
	require.NoError(t, db.Close())

	stores, err := storage.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })
	return stores
}

func TestUserRepository(t *testing.T) {
	stores := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, stores.Users, "Jane", "jane", "jane@school.cd", "password123", core.RoleAdmin, true)
	require.NotEmpty(t, usr.ID)

	got, err := stores.Users.GetUser(ctx, user.GetFilter{UsernameOrEmail: "jane@school.cd"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	err = stores.Users.CheckUniqueness(ctx, "jane", "", nil)
	assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))
	assert.NoError(t, stores.Users.CheckUniqueness(ctx, "jane", "jane@school.cd", []string{usr.ID}))

	require.NoError(t, stores.Users.DeleteUser(ctx, usr.ID))
	_, err = stores.Users.GetUser(ctx, user.GetFilter{ID: usr.ID})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestSchoolRepository(t *testing.T) {
	stores := setup(t)
	ctx := context.Background()
	repo := stores.School

	cls, err := repo.GetClass(ctx, 1)
	require.NoError(t, err, "default class is seeded")
	assert.Equal(t, "1A", cls.Name)

	subj, err := repo.CreateSubject(ctx, school.Subject{Name: "Physics"})
	require.NoError(t, err)
	_, err = repo.CreateSubject(ctx, school.Subject{Name: "Physics"})
	assert.Equal(t, core.ErrUniqueViolation, errors.Cause(err))
	_, err = repo.CreateSubject(ctx, school.Subject{Name: "Art", TeacherIDs: []string{"ghost"}})
	assert.Equal(t, core.ErrForeignKeyViolation, errors.Cause(err))

	t.Run("rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := stores.Tx.RunInTx(ctx, func(exec core.DBExecutor) error {
			if _, err := repo.LockClass(ctx, 1, exec); err != nil {
				return err
			}
			if err := repo.DeleteSubject(ctx, subj.ID, exec); err != nil {
				return err
			}
			return boom
		})
		assert.Equal(t, boom, errors.Cause(err))
		_, err = repo.GetSubject(ctx, subj.ID)
		assert.NoError(t, err)
	})
}

func TestServicesOnPostgres(t *testing.T) {
	stores := setup(t)
	ctx := context.Background()
	svcs := testutil.NewServices(t, stores, nil)
	now := time.Date(2030, time.January, 7, 8, 0, 0, 0, time.UTC)
	svcs.SetNow(func() time.Time { return now })

	ok := func(out core.Outcome) string {
		t.Helper()
		require.True(t, out.Success, "%s %v", out.Message, out.Fields)
		return out.ID
	}

	tchr := ok(svcs.Teachers.Create(ctx, admin, school.TeacherInput{
		Username: "mrsmith", Password: "password123", Name: "John", Surname: "Smith",
		Address: "1 School Rd", BloodType: "A+", Birthday: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	subj := ok(svcs.Subjects.Create(ctx, admin, school.SubjectInput{Name: "Mathematics", TeacherIDs: []string{tchr}}))

	out := svcs.Classes.Create(ctx, admin, school.ClassInput{Name: "2A", Capacity: 1, GradeID: 2, SupervisorID: tchr})
	classID := ok(out)

	res, err := svcs.List(ctx, admin, core.EntitySubject, school.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	lesson := func(from, to int) school.LessonInput {
		return school.LessonInput{
			Name: "Maths", Day: school.Monday,
			StartTime: time.Date(2000, 1, 1, from, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2000, 1, 1, to, 0, 0, 0, time.UTC),
			SubjectID: atoi(t, subj), ClassID: atoi(t, classID), TeacherID: tchr,
		}
	}
	ok(svcs.Lessons.Create(ctx, admin, lesson(9, 10)))
	overlap := lesson(9, 11)
	overlap.Name = "Maths 2"
	out = svcs.Lessons.Create(ctx, admin, overlap)
	assert.Equal(t, core.KindConflict, out.Kind)

	student := func(uname string) school.StudentInput {
		return school.StudentInput{
			Username: uname, Password: "password123", Name: "S", Surname: uname, Address: "2 Home St",
			BloodType: "O-", Sex: "FEMALE", Birthday: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			GradeID: 2, ClassID: atoi(t, classID),
		}
	}
	ok(svcs.Students.Create(ctx, admin, student("kid1")))
	out = svcs.Students.Create(ctx, admin, student("kid2"))
	assert.Equal(t, core.KindInvariant, out.Kind)
	assert.Equal(t, "Class capacity is full. Cannot add more students to this class.", out.Message)

	out = svcs.Delete(ctx, admin, core.EntityClass, classID)
	require.True(t, out.Success, out.Message)
	res, err = svcs.List(ctx, admin, core.EntityStudent, school.ListQuery{ClassID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count, "students move to the default class")
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
