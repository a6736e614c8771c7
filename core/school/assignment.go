package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgAssignmentExists = "An assignment with this title already exists for this subject."

type AssignmentService struct {
	*deps
}

func (svc *AssignmentService) Create(ctx context.Context, caller core.Caller, in AssignmentInput) core.Outcome {
	asg, err := svc.save(ctx, caller, 0, in)
	if err != nil {
		return svc.failure("creating assignment", caller, err, msgAssignmentExists)
	}
	return core.Succeeded(itoa(asg.ID), core.SyncNone)
}

func (svc *AssignmentService) Update(ctx context.Context, caller core.Caller, id int, in AssignmentInput) core.Outcome {
	if _, err := svc.save(ctx, caller, id, in); err != nil {
		return svc.failure("updating assignment", caller, err, msgAssignmentExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *AssignmentService) save(ctx context.Context, caller core.Caller, id int, in AssignmentInput) (Assignment, error) {
	action := ActionCreate
	if id != 0 {
		action = ActionUpdate
	}
	if err := svc.policy.CanMutate(caller, core.EntityAssignment); err != nil {
		return Assignment{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Assignment{}, err
	}
	if !in.DueDate.After(in.StartDate) {
		return Assignment{}, core.Reject(core.KindInvariant, "Due date must be after the start date.")
	}
	if id == 0 && in.DueDate.Before(svc.now()) {
		return Assignment{}, core.Reject(core.KindInvariant, "Due date cannot be in the past.")
	}

	if id != 0 {
		old, err := svc.repo.GetAssignment(ctx, id)
		if err != nil {
			return Assignment{}, notFound(err, "Assignment not found. The assignment may have been deleted.")
		}
		if err = svc.authorizeVia(ctx, caller, old.LessonID, core.EntityAssignment, action); err != nil {
			return Assignment{}, err
		}
	}

	if _, err := svc.repo.GetSubject(ctx, in.SubjectID); err != nil {
		return Assignment{}, notFound(err, "Selected subject does not exist.")
	}
	lsn, err := svc.resolveLesson(ctx, in, id == 0)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.policy.AuthorizeLesson(caller, lsn, core.EntityAssignment, action); err != nil {
		return Assignment{}, err
	}

	asg := Assignment{
		ID:        id,
		Title:     in.Title,
		StartDate: in.StartDate.UTC(),
		DueDate:   in.DueDate.UTC(),
		SubjectID: in.SubjectID,
		LessonID:  lsn.ID,
	}
	if id == 0 {
		return svc.repo.CreateAssignment(ctx, asg)
	}
	return svc.repo.UpdateAssignment(ctx, asg)
}

// resolveLesson finds the lesson an assignment is anchored to.
func (svc *AssignmentService) resolveLesson(ctx context.Context, in AssignmentInput, creating bool) (Lesson, error) {
	if in.LessonID != 0 {
		lsn, err := svc.repo.GetLesson(ctx, in.LessonID)
		if err != nil {
			return Lesson{}, notFound(err, "Selected lesson does not exist.")
		}
		return lsn, nil
	}

	lessons, err := svc.repo.FindLessons(ctx, LessonFilter{SubjectID: in.SubjectID, ClassID: in.ClassID})
	if err != nil {
		return Lesson{}, errors.Wrap(err, "finding lessons")
	}
	if len(lessons) == 0 {
		if creating {
			return Lesson{}, core.Reject(core.KindNotFound,
				"No lessons found for this subject and class combination. Please create a lesson first.")
		}
		return Lesson{}, core.Reject(core.KindNotFound,
			"No lessons found for this subject and class combination. Please ensure the subject has associated lessons for the selected class.")
	}
	return lessons[0], nil
}

// Delete removes an assignment no result refers to.
func (svc *AssignmentService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting assignment", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *AssignmentService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntityAssignment); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		asg, err := svc.repo.GetAssignment(ctx, id, exec)
		if err != nil {
			return notFound(err, "Assignment not found. The assignment may have already been deleted.")
		}
		if err = svc.authorizeVia(ctx, caller, asg.LessonID, core.EntityAssignment, ActionDelete, exec); err != nil {
			return err
		}
		results, err := svc.repo.CountResults(ctx, ResultFilter{AssignmentID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting results")
		}
		if results > 0 {
			return core.Rejectf(core.KindInvariant,
				"Cannot delete assignment. It has %d student result(s) associated with it. Please remove the results first.", results)
		}
		return svc.repo.DeleteAssignment(ctx, id, exec)
	})
}
