package school

import (
	"context"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// user-facing failure messages
const (
	msgInvalidData = "Invalid data provided. Please check all required fields."
	msgInUse       = "This information is already in use. Please use different details."
	msgRelated     = "Cannot perform this action because related data is missing or invalid."
	msgNotFound    = "The item you are trying to update or delete was not found."
	msgTimeout     = "The operation took too long. Please try again."
	msgUnexpected  = "Something went wrong. Please try again."
	msgAccountFail = "Failed to create user account. Please check the provided information."
)

// deps is shared by every entity service.
type deps struct {
	repo       Repository
	tx         core.TxRunner
	idp        IdentityProvider
	policy     Policy
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
	conf       core.Policy

	defaultClassID int
	itemsPerPage   int
	now            func() time.Time // mockable
}

// Services are the entity actions of the school domain. Every action reports through a core.Outcome;
// errors never escape it.
type Services struct {
	Subjects      *SubjectService
	Teachers      *TeacherService
	Students      *StudentService
	Parents       *ParentService
	Classes       *ClassService
	Lessons       *LessonService
	Exams         *ExamService
	Assignments   *AssignmentService
	Results       *ResultService
	Attendances   *AttendanceService
	Events        *EventService
	Announcements *AnnouncementService

	*deps
}

func NewServices(
	repo Repository,
	tx core.TxRunner,
	idp IdentityProvider,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
	conf *core.Config,
) *Services {
	d := &deps{
		repo:           repo,
		tx:             tx,
		idp:            idp,
		policy:         NewPolicy(repo),
		validate:       validate,
		translator:     translator,
		logger:         logger,
		conf:           conf.Policy,
		defaultClassID: conf.DefaultClassID,
		itemsPerPage:   conf.ItemsPerPage,
		now:            time.Now,
	}
	if d.defaultClassID <= 0 {
		d.defaultClassID = 1
	}
	return &Services{
		Subjects:      &SubjectService{d},
		Teachers:      &TeacherService{d},
		Students:      &StudentService{d},
		Parents:       &ParentService{d},
		Classes:       &ClassService{d},
		Lessons:       &LessonService{d},
		Exams:         &ExamService{d},
		Assignments:   &AssignmentService{d},
		Results:       &ResultService{d},
		Attendances:   &AttendanceService{d},
		Events:        &EventService{d},
		Announcements: &AnnouncementService{d},
		deps:          d,
	}
}

// SetNow overrides the clock used by past-date checks.
func (svcs *Services) SetNow(now func() time.Time) {
	svcs.now = now
}

// Delete dispatches a delete action on kind. Integer-keyed kinds expect a decimal id.
func (svcs *Services) Delete(ctx context.Context, caller core.Caller, kind core.EntityKind, id string) core.Outcome {
	if kind.IdentityBearing() {
		switch kind {
		case core.EntityTeacher:
			return svcs.Teachers.Delete(ctx, caller, id)
		case core.EntityStudent:
			return svcs.Students.Delete(ctx, caller, id)
		case core.EntityParent:
			return svcs.Parents.Delete(ctx, caller, id)
		}
	}

	intID, err := strconv.Atoi(id)
	if err != nil || intID <= 0 {
		return core.Failed(core.KindValidation, "Invalid "+kind.String()+" id.")
	}
	switch kind {
	case core.EntitySubject:
		return svcs.Subjects.Delete(ctx, caller, intID)
	case core.EntityClass:
		return svcs.Classes.Delete(ctx, caller, intID)
	case core.EntityLesson:
		return svcs.Lessons.Delete(ctx, caller, intID)
	case core.EntityExam:
		return svcs.Exams.Delete(ctx, caller, intID)
	case core.EntityAssignment:
		return svcs.Assignments.Delete(ctx, caller, intID)
	case core.EntityResult:
		return svcs.Results.Delete(ctx, caller, intID)
	case core.EntityAttendance:
		return svcs.Attendances.Delete(ctx, caller, intID)
	case core.EntityEvent:
		return svcs.Events.Delete(ctx, caller, intID)
	case core.EntityAnnouncement:
		return svcs.Announcements.Delete(ctx, caller, intID)
	case core.EntityTeacher, core.EntityStudent, core.EntityParent:
		// handled above
	}
	return core.Failed(core.KindValidation, "Unknown entity kind.")
}

// List runs a role-scoped paginated read of kind.
func (svcs *Services) List(ctx context.Context, caller core.Caller, kind core.EntityKind, q ListQuery) (ListResult, error) {
	if err := svcs.policy.CanList(caller, kind); err != nil {
		return ListResult{}, err
	}
	q.Clean()
	q.Scope = svcs.policy.ReadScope(caller)
	if q.Page.PerPage <= 0 {
		q.Page.PerPage = svcs.itemsPerPage
	}
	if q.Page.Number <= 0 {
		q.Page.Number = 1
	}

	var (
		data  interface{}
		count int
		err   error
	)
	switch kind {
	case core.EntitySubject:
		data, count, err = svcs.repo.ListSubjects(ctx, q)
	case core.EntityTeacher:
		data, count, err = svcs.repo.ListTeachers(ctx, q)
	case core.EntityStudent:
		data, count, err = svcs.repo.ListStudents(ctx, q)
	case core.EntityParent:
		data, count, err = svcs.repo.ListParents(ctx, q)
	case core.EntityClass:
		data, count, err = svcs.repo.ListClasses(ctx, q)
	case core.EntityLesson:
		data, count, err = svcs.repo.ListLessons(ctx, q)
	case core.EntityExam:
		data, count, err = svcs.repo.ListExams(ctx, q)
	case core.EntityAssignment:
		data, count, err = svcs.repo.ListAssignments(ctx, q)
	case core.EntityResult:
		data, count, err = svcs.repo.ListResults(ctx, q)
	case core.EntityAttendance:
		data, count, err = svcs.repo.ListAttendances(ctx, q)
	case core.EntityEvent:
		data, count, err = svcs.repo.ListEvents(ctx, q)
	case core.EntityAnnouncement:
		data, count, err = svcs.repo.ListAnnouncements(ctx, q)
	default:
		return ListResult{}, core.Reject(core.KindValidation, "Unknown entity kind.")
	}
	if err != nil {
		return ListResult{}, errors.Wrapf(err, "listing %s", kind.Plural())
	}
	return ListResult{Data: data, Count: count, Page: q.Page.Number}, nil
}

// LatestAnnouncements returns the 3 newest announcements visible to caller, optionally on day only.
func (svcs *Services) LatestAnnouncements(ctx context.Context, caller core.Caller, day time.Time) ([]Announcement, error) {
	anns, err := svcs.repo.LatestAnnouncements(ctx, svcs.policy.ReadScope(caller), truncateDay(day), 3)
	if err != nil {
		return nil, errors.Wrap(err, "latest announcements")
	}
	return anns, nil
}

// ResolveRole finds which role table id belongs to, looking at admins, teachers, students then parents.
func (svcs *Services) ResolveRole(ctx context.Context, id string) (core.Role, error) {
	if _, err := svcs.repo.GetAdmin(ctx, id); err == nil {
		return core.RoleAdmin, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return "", err
	}
	if _, err := svcs.repo.GetTeacher(ctx, id); err == nil {
		return core.RoleTeacher, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return "", err
	}
	if _, err := svcs.repo.GetStudent(ctx, id); err == nil {
		return core.RoleStudent, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return "", err
	}
	if _, err := svcs.repo.GetParent(ctx, id); err == nil {
		return core.RoleParent, nil
	} else if errors.Cause(err) != core.ErrNotFound {
		return "", err
	}
	return "", core.ErrNotFound
}

// failure turns err into a failed Outcome. uniqueMsg replaces the generic uniqueness message when set.
func (d *deps) failure(op string, caller core.Caller, err error, uniqueMsg string) core.Outcome {
	if aErr, ok := core.AsActionError(err); ok {
		return core.Failed(aErr.Kind, aErr.Message)
	}

	cause := errors.Cause(err)
	switch cErr := cause.(type) {
	case validator.ValidationErrors:
		return d.validationFailure(core.TranslateValidationErrors(cErr, d.translator))
	case *core.ValidationError:
		return d.validationFailure(cErr)
	}

	switch cause {
	case core.ErrUniqueViolation:
		if uniqueMsg == "" {
			uniqueMsg = msgInUse
		}
		return core.Failed(core.KindConflict, uniqueMsg)
	case core.ErrForeignKeyViolation:
		return core.Failed(core.KindConflict, msgRelated)
	case core.ErrNotFound:
		return core.Failed(core.KindNotFound, msgNotFound)
	case core.ErrTimeout, context.DeadlineExceeded:
		return core.Failed(core.KindTimeout, msgTimeout)
	}

	d.logger.Error(op, err, caller)
	return core.Failed(core.KindUnknown, msgUnexpected)
}

func (d *deps) validationFailure(vErr *core.ValidationError) core.Outcome {
	out := core.Failed(core.KindValidation, msgInvalidData)
	if len(vErr.Fields) > 0 {
		out.Fields = make(map[string]string, len(vErr.Fields))
		for _, fe := range vErr.Fields {
			out.Fields[fe.Field] = fe.Error
		}
	} else if vErr.Err != nil {
		out.Message = vErr.Error()
	}
	return out
}

// notFound maps core.ErrNotFound to a NotFound rejection with msg.
func notFound(err error, msg string) error {
	if errors.Cause(err) == core.ErrNotFound {
		return core.Reject(core.KindNotFound, msg)
	}
	return err
}

// syncIdentity runs a best-effort identity call after the datastore change is committed.
func (d *deps) syncIdentity(op string, caller core.Caller, kind core.EntityKind, id string, call func() error) core.SyncState {
	if err := call(); err != nil {
		d.logger.Error(op+": identity sync failed", err, caller, map[string]interface{}{"kind": kind.String(), "id": id})
		return core.IdentitySyncFailed
	}
	return core.CommittedLocally
}

// createAccount issues the identity account of a new entity.
func (d *deps) createAccount(ctx context.Context, acc NewAccount, existsMsg string) (string, error) {
	id, err := d.idp.CreateUser(ctx, acc)
	if err != nil {
		if errors.Cause(err) == ErrAccountExists {
			return "", core.Reject(core.KindConflict, existsMsg)
		}
		return "", &core.ActionError{Kind: core.KindExternal, Message: msgAccountFail, Err: err}
	}
	return id, nil
}

// compensate removes an identity account whose entity could not be stored.
func (d *deps) compensate(op string, caller core.Caller, id string) {
	if err := d.idp.DeleteUser(context.Background(), id); err != nil {
		d.logger.Error(op+": compensating identity delete failed", err, caller, map[string]interface{}{"id": id})
		return
	}
	d.logger.Warn(op+": identity account removed after datastore failure", caller, map[string]interface{}{"id": id})
}

// authorizeVia checks caller against the lesson an existing entity of kind hangs off.
func (d *deps) authorizeVia(ctx context.Context, caller core.Caller, lessonID int, kind core.EntityKind, action Action, exec ...core.DBExecutor) error {
	if caller.IsAdmin() {
		return nil
	}
	lsn, err := d.repo.GetLesson(ctx, lessonID, exec...)
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	return d.policy.AuthorizeLesson(caller, lsn, kind, action)
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
