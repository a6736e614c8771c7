package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgResultExists = "A result already exists for this student and assessment."

type ResultService struct {
	*deps
}

func (svc *ResultService) Create(ctx context.Context, caller core.Caller, in ResultInput) core.Outcome {
	res, err := svc.save(ctx, caller, 0, in)
	if err != nil {
		return svc.failure("creating result", caller, err, msgResultExists)
	}
	return core.Succeeded(itoa(res.ID), core.SyncNone)
}

func (svc *ResultService) Update(ctx context.Context, caller core.Caller, id int, in ResultInput) core.Outcome {
	if _, err := svc.save(ctx, caller, id, in); err != nil {
		return svc.failure("updating result", caller, err, msgResultExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

// save creates (id 0) or updates a result. The student must sit in the class of the assessed lesson
// and has at most one result per assessment.
func (svc *ResultService) save(ctx context.Context, caller core.Caller, id int, in ResultInput) (Result, error) {
	action := ActionCreate
	if id != 0 {
		action = ActionUpdate
	}
	if err := svc.policy.CanMutate(caller, core.EntityResult); err != nil {
		return Result{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Result{}, err
	}

	var saved Result
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if id != 0 {
			old, err := svc.repo.GetResult(ctx, id, exec)
			if err != nil {
				return notFound(err, "Result not found. The result may have been deleted.")
			}
			lsn, err := svc.lessonOf(ctx, old, exec)
			if err != nil {
				return err
			}
			if err = svc.policy.AuthorizeLesson(caller, lsn, core.EntityResult, action); err != nil {
				return err
			}
		}

		std, err := svc.repo.GetStudent(ctx, in.StudentID, exec)
		if err != nil {
			return notFound(err, "Selected student does not exist.")
		}
		res := Result{ID: id, Score: in.Score, StudentID: in.StudentID, ExamID: in.ExamID, AssignmentID: in.AssignmentID}
		lsn, err := svc.lessonOf(ctx, res, exec)
		if err != nil {
			return err
		}
		if lsn.ClassID != std.ClassID {
			if res.ExamID != 0 {
				return core.Reject(core.KindInvariant, "Student is not enrolled in the class for this exam.")
			}
			return core.Reject(core.KindInvariant, "Student is not enrolled in the class for this assignment.")
		}
		if err = svc.policy.AuthorizeLesson(caller, lsn, core.EntityResult, action); err != nil {
			return err
		}

		dups, err := svc.repo.CountResults(ctx, ResultFilter{
			StudentID:    res.StudentID,
			ExamID:       res.ExamID,
			AssignmentID: res.AssignmentID,
			ExcludeID:    id,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "counting results")
		}
		if dups > 0 {
			return core.Reject(core.KindConflict, msgResultExists)
		}

		if id == 0 {
			saved, err = svc.repo.CreateResult(ctx, res, exec)
		} else {
			saved, err = svc.repo.UpdateResult(ctx, res, exec)
		}
		return err
	})
	return saved, err
}

// lessonOf resolves the lesson behind the exam or assignment of a result.
func (svc *ResultService) lessonOf(ctx context.Context, res Result, exec ...core.DBExecutor) (Lesson, error) {
	var lessonID int
	if res.ExamID != 0 {
		exam, err := svc.repo.GetExam(ctx, res.ExamID, exec...)
		if err != nil {
			return Lesson{}, notFound(err, "Selected exam does not exist.")
		}
		lessonID = exam.LessonID
	} else {
		asg, err := svc.repo.GetAssignment(ctx, res.AssignmentID, exec...)
		if err != nil {
			return Lesson{}, notFound(err, "Selected assignment does not exist.")
		}
		lessonID = asg.LessonID
	}
	lsn, err := svc.repo.GetLesson(ctx, lessonID, exec...)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return lsn, nil
}

func (svc *ResultService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting result", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *ResultService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntityResult); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		res, err := svc.repo.GetResult(ctx, id, exec)
		if err != nil {
			return notFound(err, "Result not found. The result may have already been deleted.")
		}
		if !caller.IsAdmin() {
			lsn, err := svc.lessonOf(ctx, res, exec)
			if err != nil {
				return err
			}
			if err = svc.policy.AuthorizeLesson(caller, lsn, core.EntityResult, ActionDelete); err != nil {
				return err
			}
		}
		return svc.repo.DeleteResult(ctx, id, exec)
	})
}
