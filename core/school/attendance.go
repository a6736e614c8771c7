package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgAttendanceExists = "Attendance for this student, lesson and date is already recorded."

type AttendanceService struct {
	*deps
}

// Create records whether a student attended a lesson on a date. One record per (student, lesson, date).
func (svc *AttendanceService) Create(ctx context.Context, caller core.Caller, in AttendanceInput) core.Outcome {
	att, err := svc.create(ctx, caller, in)
	if err != nil {
		return svc.failure("creating attendance", caller, err, msgAttendanceExists)
	}
	return core.Succeeded(itoa(att.ID), core.SyncNone)
}

func (svc *AttendanceService) create(ctx context.Context, caller core.Caller, in AttendanceInput) (Attendance, error) {
	if err := svc.policy.CanMutate(caller, core.EntityAttendance); err != nil {
		return Attendance{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Attendance{}, err
	}

	var saved Attendance
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		std, err := svc.repo.GetStudent(ctx, in.StudentID, exec)
		if err != nil {
			return notFound(err, "Selected student does not exist.")
		}
		lsn, err := svc.repo.GetLesson(ctx, in.LessonID, exec)
		if err != nil {
			return notFound(err, "Selected lesson does not exist.")
		}
		if err = svc.policy.AuthorizeLesson(caller, lsn, core.EntityAttendance, ActionCreate); err != nil {
			return err
		}
		if std.ClassID != lsn.ClassID {
			return core.Reject(core.KindInvariant, "Student is not enrolled in the class for this lesson.")
		}

		dups, err := svc.repo.CountAttendances(ctx, AttendanceFilter{StudentID: in.StudentID, LessonID: in.LessonID, Date: in.Date}, exec)
		if err != nil {
			return errors.Wrap(err, "counting attendance")
		}
		if dups > 0 {
			return core.Reject(core.KindConflict, msgAttendanceExists)
		}

		saved, err = svc.repo.CreateAttendance(ctx, Attendance{
			Date:      in.Date,
			Present:   in.Present,
			StudentID: in.StudentID,
			LessonID:  in.LessonID,
		}, exec)
		return err
	})
	return saved, err
}

func (svc *AttendanceService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting attendance", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *AttendanceService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntityAttendance); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		att, err := svc.repo.GetAttendance(ctx, id, exec)
		if err != nil {
			return notFound(err, "Attendance not found. It may have already been deleted.")
		}
		if err = svc.authorizeVia(ctx, caller, att.LessonID, core.EntityAttendance, ActionDelete, exec); err != nil {
			return err
		}
		return svc.repo.DeleteAttendance(ctx, id, exec)
	})
}
