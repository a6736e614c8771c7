package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgClassExists = "A class with this name already exists."

type ClassService struct {
	*deps
}

func (svc *ClassService) Create(ctx context.Context, caller core.Caller, in ClassInput) core.Outcome {
	cls, err := svc.create(ctx, caller, in)
	if err != nil {
		return svc.failure("creating class", caller, err, msgClassExists)
	}
	return core.Succeeded(itoa(cls.ID), core.SyncNone)
}

func (svc *ClassService) create(ctx context.Context, caller core.Caller, in ClassInput) (Class, error) {
	if err := svc.policy.CanMutate(caller, core.EntityClass); err != nil {
		return Class{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Class{}, err
	}
	if err := svc.checkInput(ctx, in); err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, Class{
		Name:         in.Name,
		Capacity:     in.Capacity,
		GradeID:      in.GradeID,
		SupervisorID: in.SupervisorID,
	})
}

// Update stores the class. Capacity cannot go below the current enrolment.
func (svc *ClassService) Update(ctx context.Context, caller core.Caller, id int, in ClassInput) core.Outcome {
	if err := svc.update(ctx, caller, id, in); err != nil {
		return svc.failure("updating class", caller, err, msgClassExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *ClassService) update(ctx context.Context, caller core.Caller, id int, in ClassInput) error {
	if err := svc.policy.CanMutate(caller, core.EntityClass); err != nil {
		return err
	}
	if err := in.Validate(svc.validate); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.repo.LockClass(ctx, id, exec)
		if err != nil {
			return notFound(err, "Class not found. The class may have been deleted.")
		}
		if err = svc.checkInput(ctx, in, exec); err != nil {
			return err
		}
		enrolled, err := svc.repo.CountStudents(ctx, StudentFilter{ClassID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting students")
		}
		if in.Capacity < enrolled {
			return core.Rejectf(core.KindInvariant,
				"Cannot reduce capacity to %d. Class currently has %d students enrolled.", in.Capacity, enrolled)
		}

		cls.Name = in.Name
		cls.Capacity = in.Capacity
		cls.GradeID = in.GradeID
		cls.SupervisorID = in.SupervisorID
		_, err = svc.repo.UpdateClass(ctx, cls, exec)
		return err
	})
}

// checkInput resolves the grade and supervisor and bounds the capacity.
func (svc *ClassService) checkInput(ctx context.Context, in ClassInput, exec ...core.DBExecutor) error {
	if _, err := svc.repo.GetGrade(ctx, in.GradeID, exec...); err != nil {
		return notFound(err, "Selected grade does not exist.")
	}
	if in.SupervisorID != "" {
		if _, err := svc.repo.GetTeacher(ctx, in.SupervisorID, exec...); err != nil {
			return notFound(err, "Selected supervisor (teacher) does not exist.")
		}
	}
	if limit := svc.conf.MaxClassCapacity; limit > 0 && (in.Capacity < 1 || in.Capacity > limit) {
		return core.Rejectf(core.KindValidation, "Capacity must be between 1 and %d.", limit)
	}
	return nil
}

// Delete removes a class with its lessons, events and announcements; its students move to the
// default class. The default class itself can never be deleted.
func (svc *ClassService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting class", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *ClassService) delete(ctx context.Context, caller core.Caller, id int) error {
	if id == svc.defaultClassID {
		return core.Reject(core.KindForbidden, "Cannot delete the default class. This class is used as a fallback for students.")
	}
	if err := svc.policy.CanMutate(caller, core.EntityClass); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.LockClass(ctx, id, exec); err != nil {
			return notFound(err, "Class not found. The class may have already been deleted.")
		}
		enrolled, err := svc.repo.CountStudents(ctx, StudentFilter{ClassID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "counting students")
		}
		if enrolled > svc.conf.ClassDeleteThreshold {
			return core.Rejectf(core.KindInvariant,
				"Cannot delete class. It has %d students enrolled. Please move students to other classes first.", enrolled)
		}
		if _, err = svc.repo.LockClass(ctx, svc.defaultClassID, exec); err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return core.Rejectf(core.KindInvariant,
					"Cannot delete class. Default class (ID: %d) not found. Please ensure a default class exists.", svc.defaultClassID)
			}
			return err
		}

		if err = svc.repo.DeleteLessons(ctx, LessonFilter{ClassID: id}, exec); err != nil {
			return errors.Wrap(err, "deleting lessons")
		}
		if err = svc.repo.MoveStudents(ctx, id, svc.defaultClassID, exec); err != nil {
			return errors.Wrap(err, "moving students")
		}
		if err = svc.repo.DeleteClassAnnouncements(ctx, id, exec); err != nil {
			return errors.Wrap(err, "deleting announcements")
		}
		if err = svc.repo.DeleteClassEvents(ctx, id, exec); err != nil {
			return errors.Wrap(err, "deleting events")
		}
		return svc.repo.DeleteClass(ctx, id, exec)
	})
}
