package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgLessonExists = "A lesson with this name already exists for this class and day."

type LessonService struct {
	*deps
}

func (svc *LessonService) Create(ctx context.Context, caller core.Caller, in LessonInput) core.Outcome {
	lsn, err := svc.save(ctx, caller, 0, in)
	if err != nil {
		return svc.failure("creating lesson", caller, err, msgLessonExists)
	}
	return core.Succeeded(itoa(lsn.ID), core.SyncNone)
}

func (svc *LessonService) Update(ctx context.Context, caller core.Caller, id int, in LessonInput) core.Outcome {
	if _, err := svc.save(ctx, caller, id, in); err != nil {
		return svc.failure("updating lesson", caller, err, msgLessonExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

// save creates (id 0) or updates a lesson. The overlap check and the write run under the class lock.
func (svc *LessonService) save(ctx context.Context, caller core.Caller, id int, in LessonInput) (Lesson, error) {
	action := ActionCreate
	if id != 0 {
		action = ActionUpdate
	}
	if err := svc.policy.CanMutate(caller, core.EntityLesson); err != nil {
		return Lesson{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	if clockMinutes(in.StartTime) >= clockMinutes(in.EndTime) {
		return Lesson{}, core.Reject(core.KindInvariant, "Lesson end time must be after start time.")
	}

	var saved Lesson
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if id != 0 {
			old, err := svc.repo.GetLesson(ctx, id, exec)
			if err != nil {
				return notFound(err, "Lesson not found. The lesson may have been deleted.")
			}
			if err = svc.policy.AuthorizeLesson(caller, old, core.EntityLesson, action); err != nil {
				return err
			}
		}
		lsn := Lesson{
			ID:        id,
			Name:      in.Name,
			Day:       in.Day,
			StartTime: in.StartTime.UTC(),
			EndTime:   in.EndTime.UTC(),
			SubjectID: in.SubjectID,
			ClassID:   in.ClassID,
			TeacherID: in.TeacherID,
		}
		if err := svc.policy.AuthorizeLesson(caller, lsn, core.EntityLesson, action); err != nil {
			return err
		}
		if err := svc.checkRefs(ctx, lsn, exec); err != nil {
			return err
		}
		if err := svc.checkOverlap(ctx, lsn, exec); err != nil {
			return err
		}

		var err error
		if id == 0 {
			saved, err = svc.repo.CreateLesson(ctx, lsn, exec)
		} else {
			saved, err = svc.repo.UpdateLesson(ctx, lsn, exec)
		}
		return err
	})
	return saved, err
}

func (svc *LessonService) checkRefs(ctx context.Context, lsn Lesson, exec core.DBExecutor) error {
	if _, err := svc.repo.GetSubject(ctx, lsn.SubjectID, exec); err != nil {
		return notFound(err, "Selected subject does not exist.")
	}
	if _, err := svc.repo.LockClass(ctx, lsn.ClassID, exec); err != nil {
		return notFound(err, msgClassMissing)
	}
	if _, err := svc.repo.GetTeacher(ctx, lsn.TeacherID, exec); err != nil {
		return notFound(err, "Selected teacher does not exist.")
	}
	return nil
}

// checkOverlap rejects lsn when it intersects another lesson of its class on the same day.
func (svc *LessonService) checkOverlap(ctx context.Context, lsn Lesson, exec core.DBExecutor) error {
	others, err := svc.repo.FindLessons(ctx, LessonFilter{ClassID: lsn.ClassID, Day: lsn.Day, ExcludeID: lsn.ID}, exec)
	if err != nil {
		return errors.Wrap(err, "finding lessons")
	}
	for _, other := range others {
		if overlaps(lsn.StartTime, lsn.EndTime, other.StartTime, other.EndTime) {
			return core.Rejectf(core.KindConflict, "Time conflict with another lesson in this class on %s.", lsn.Day)
		}
	}
	return nil
}

// Delete removes a lesson that nothing depends on anymore.
func (svc *LessonService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting lesson", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *LessonService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntityLesson); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		lsn, err := svc.repo.GetLesson(ctx, id, exec)
		if err != nil {
			return notFound(err, "Lesson not found. The lesson may have already been deleted.")
		}
		if err = svc.policy.AuthorizeLesson(caller, lsn, core.EntityLesson, ActionDelete); err != nil {
			return err
		}

		attendance, err := svc.repo.CountAttendances(ctx, AttendanceFilter{LessonID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting attendance")
		}
		exams, err := svc.repo.CountExams(ctx, ExamFilter{LessonID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting exams")
		}
		assignments, err := svc.repo.CountAssignments(ctx, AssignmentFilter{LessonID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting assignments")
		}
		if attendance+exams+assignments > 0 {
			return core.Rejectf(core.KindInvariant,
				"Cannot delete lesson. It has %d attendance records, %d exams, and %d assignments associated with it. Please remove these first.",
				attendance, exams, assignments)
		}
		return svc.repo.DeleteLesson(ctx, id, exec)
	})
}
