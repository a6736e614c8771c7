package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgExamExists = "An exam with this title already exists for this lesson."

type ExamService struct {
	*deps
}

func (svc *ExamService) Create(ctx context.Context, caller core.Caller, in ExamInput) core.Outcome {
	exam, err := svc.save(ctx, caller, 0, in)
	if err != nil {
		return svc.failure("creating exam", caller, err, msgExamExists)
	}
	return core.Succeeded(itoa(exam.ID), core.SyncNone)
}

func (svc *ExamService) Update(ctx context.Context, caller core.Caller, id int, in ExamInput) core.Outcome {
	if _, err := svc.save(ctx, caller, id, in); err != nil {
		return svc.failure("updating exam", caller, err, msgExamExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

// save creates (id 0) or updates an exam, which must fit in the time window of its lesson.
func (svc *ExamService) save(ctx context.Context, caller core.Caller, id int, in ExamInput) (Exam, error) {
	action := ActionCreate
	if id != 0 {
		action = ActionUpdate
	}
	if err := svc.policy.CanMutate(caller, core.EntityExam); err != nil {
		return Exam{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Exam{}, err
	}
	if !in.EndTime.After(in.StartTime) {
		return Exam{}, core.Reject(core.KindInvariant, "Exam end time must be after start time.")
	}
	if id == 0 && in.StartTime.Before(svc.now()) {
		return Exam{}, core.Reject(core.KindInvariant, "Exam start time cannot be in the past.")
	}

	if id != 0 {
		old, err := svc.repo.GetExam(ctx, id)
		if err != nil {
			return Exam{}, notFound(err, "Exam not found. The exam may have been deleted.")
		}
		if err = svc.authorizeVia(ctx, caller, old.LessonID, core.EntityExam, action); err != nil {
			return Exam{}, err
		}
	}

	lsn, err := svc.repo.GetLesson(ctx, in.LessonID)
	if err != nil {
		return Exam{}, notFound(err, "Selected lesson does not exist.")
	}
	if err = svc.policy.AuthorizeLesson(caller, lsn, core.EntityExam, action); err != nil {
		return Exam{}, err
	}
	if !sameDate(in.StartTime, in.EndTime) {
		return Exam{}, core.Reject(core.KindInvariant, "Exam must start and end on the same day.")
	}
	if day, ok := DayOf(in.StartTime); !ok || day != lsn.Day {
		return Exam{}, core.Rejectf(core.KindInvariant, "Exam must take place on a %s, the day of its lesson.", lsn.Day)
	}
	if !within(in.StartTime, in.EndTime, lsn.StartTime, lsn.EndTime) {
		return Exam{}, core.Rejectf(core.KindInvariant, "Exam time must be within lesson time (%s - %s).",
			clockString(lsn.StartTime), clockString(lsn.EndTime))
	}

	exam := Exam{
		ID:        id,
		Title:     in.Title,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		LessonID:  in.LessonID,
	}
	if id == 0 {
		return svc.repo.CreateExam(ctx, exam)
	}
	return svc.repo.UpdateExam(ctx, exam)
}

// Delete removes an exam no result refers to.
func (svc *ExamService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting exam", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *ExamService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntityExam); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		exam, err := svc.repo.GetExam(ctx, id, exec)
		if err != nil {
			return notFound(err, "Exam not found. The exam may have already been deleted.")
		}
		if err = svc.authorizeVia(ctx, caller, exam.LessonID, core.EntityExam, ActionDelete, exec); err != nil {
			return err
		}
		results, err := svc.repo.CountResults(ctx, ResultFilter{ExamID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting results")
		}
		if results > 0 {
			return core.Rejectf(core.KindInvariant,
				"Cannot delete exam. It has %d student result(s) associated with it. Please remove the results first.", results)
		}
		return svc.repo.DeleteExam(ctx, id, exec)
	})
}
