package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgSubjectExists = "A subject with this name already exists."

type SubjectService struct {
	*deps
}

func (svc *SubjectService) Create(ctx context.Context, caller core.Caller, in SubjectInput) core.Outcome {
	sub, err := svc.create(ctx, caller, in)
	if err != nil {
		return svc.failure("creating subject", caller, err, msgSubjectExists)
	}
	return core.Succeeded(itoa(sub.ID), core.SyncNone)
}

func (svc *SubjectService) create(ctx context.Context, caller core.Caller, in SubjectInput) (Subject, error) {
	if err := svc.policy.CanMutate(caller, core.EntitySubject); err != nil {
		return Subject{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Subject{}, err
	}
	var sub Subject
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.checkTeachers(ctx, in.TeacherIDs, exec); err != nil {
			return err
		}
		var err error
		sub, err = svc.repo.CreateSubject(ctx, Subject{Name: in.Name, TeacherIDs: in.TeacherIDs}, exec)
		return err
	})
	return sub, err
}

func (svc *SubjectService) Update(ctx context.Context, caller core.Caller, id int, in SubjectInput) core.Outcome {
	if err := svc.update(ctx, caller, id, in); err != nil {
		return svc.failure("updating subject", caller, err, msgSubjectExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *SubjectService) update(ctx context.Context, caller core.Caller, id int, in SubjectInput) error {
	if err := svc.policy.CanMutate(caller, core.EntitySubject); err != nil {
		return err
	}
	if err := in.Validate(svc.validate); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		sub, err := svc.repo.GetSubject(ctx, id, exec)
		if err != nil {
			return notFound(err, "Subject not found. The subject may have been deleted.")
		}
		if err = svc.checkTeachers(ctx, in.TeacherIDs, exec); err != nil {
			return err
		}
		sub.Name = in.Name
		sub.TeacherIDs = in.TeacherIDs
		_, err = svc.repo.UpdateSubject(ctx, sub, exec)
		return err
	})
}

func (svc *SubjectService) checkTeachers(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := svc.repo.CountTeachers(ctx, ids, exec...)
	if err != nil {
		return errors.Wrap(err, "counting teachers")
	}
	if n != len(ids) {
		return core.Reject(core.KindNotFound, "One or more selected teachers do not exist.")
	}
	return nil
}

// Delete removes a subject with its lessons and assignments, unless it has too many of them.
func (svc *SubjectService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting subject", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *SubjectService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntitySubject); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetSubject(ctx, id, exec); err != nil {
			return notFound(err, "Subject not found. The subject may have already been deleted.")
		}
		lessons, err := svc.repo.FindLessons(ctx, LessonFilter{SubjectID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "finding lessons")
		}
		assignments, err := svc.repo.CountAssignments(ctx, AssignmentFilter{SubjectID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting assignments")
		}
		if n := len(lessons) + assignments; n > svc.conf.SubjectDeleteThreshold {
			return core.Rejectf(core.KindInvariant,
				"Cannot delete subject. It has %d associated lessons and assignments. Please remove them first.", n)
		}

		if err = svc.repo.DeleteAssignments(ctx, AssignmentFilter{SubjectID: id}, exec); err != nil {
			return errors.Wrap(err, "deleting assignments")
		}
		if err = svc.repo.DeleteLessons(ctx, LessonFilter{SubjectID: id}, exec); err != nil {
			return errors.Wrap(err, "deleting lessons")
		}
		return svc.repo.DeleteSubject(ctx, id, exec)
	})
}
