package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const (
	msgStudentExists = "A student with this username or email already exists."
	msgClassFull     = "Class capacity is full. Cannot add more students to this class."
	msgClassMissing  = "Selected class does not exist."
)

type StudentService struct {
	*deps
}

// Create issues the student's identity account then enrolls the student,
// holding the class lock while checking its capacity.
func (svc *StudentService) Create(ctx context.Context, caller core.Caller, in StudentInput) core.Outcome {
	id, err := svc.create(ctx, caller, in)
	if err != nil {
		return svc.failure("creating student", caller, err, msgStudentExists)
	}
	return core.Succeeded(id, core.CommittedLocally)
}

func (svc *StudentService) create(ctx context.Context, caller core.Caller, in StudentInput) (string, error) {
	if err := svc.policy.CanMutate(caller, core.EntityStudent); err != nil {
		return "", err
	}
	if err := in.Validate(svc.validate, true /* creating */); err != nil {
		return "", err
	}
	if err := svc.checkRefs(ctx, in); err != nil {
		return "", err
	}
	// fail fast before creating an account; the check is repeated under lock
	if err := svc.checkCapacity(ctx, in.ClassID, msgClassFull); err != nil {
		return "", err
	}

	id, err := svc.createAccount(ctx, NewAccount{
		Username: in.Username,
		Password: in.Password,
		Name:     in.Name,
		Surname:  in.Surname,
		Email:    in.Email,
		Role:     core.RoleStudent,
	}, msgStudentExists)
	if err != nil {
		return "", err
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.checkCapacity(ctx, in.ClassID, msgClassFull, exec); err != nil {
			return err
		}
		_, err := svc.repo.CreateStudent(ctx, Student{
			ID:        id,
			Username:  in.Username,
			Name:      in.Name,
			Surname:   in.Surname,
			Email:     in.Email,
			Phone:     in.Phone,
			Address:   in.Address,
			Img:       in.Img,
			BloodType: in.BloodType,
			Sex:       Sex(in.Sex),
			Birthday:  in.Birthday,
			GradeID:   in.GradeID,
			ClassID:   in.ClassID,
			ParentID:  in.ParentID,
			CreatedAt: svc.now().UTC(),
		}, exec)
		return err
	})
	if err != nil {
		svc.compensate("creating student", caller, id)
		return "", err
	}
	return id, nil
}

// Update stores the student, re-checking capacity when the student changes class,
// then syncs the identity account when an account field changed.
func (svc *StudentService) Update(ctx context.Context, caller core.Caller, id string, in StudentInput) core.Outcome {
	old, err := svc.update(ctx, caller, id, in)
	if err != nil {
		return svc.failure("updating student", caller, err, msgStudentExists)
	}

	upd := AccountUpdate{
		Username: in.Username,
		Password: in.Password,
		Name:     in.Name,
		Surname:  in.Surname,
		Email:    in.Email,
	}.changedFrom(AccountUpdate{Username: old.Username, Name: old.Name, Surname: old.Surname, Email: old.Email})
	if upd.IsEmpty() {
		return core.Succeeded(id, core.IdentitySyncPending)
	}
	sync := svc.syncIdentity("updating student", caller, core.EntityStudent, id, func() error {
		return svc.idp.UpdateUser(ctx, id, upd)
	})
	return core.Succeeded(id, sync)
}

func (svc *StudentService) update(ctx context.Context, caller core.Caller, id string, in StudentInput) (Student, error) {
	if err := svc.policy.CanMutate(caller, core.EntityStudent); err != nil {
		return Student{}, err
	}
	if err := in.Validate(svc.validate, false /* creating */); err != nil {
		return Student{}, err
	}

	var old Student
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if old, err = svc.repo.GetStudent(ctx, id, exec); err != nil {
			return notFound(err, "Student not found. The student may have been deleted.")
		}
		if err = svc.checkRefs(ctx, in, exec); err != nil {
			return err
		}
		if in.ClassID != old.ClassID {
			if err = svc.checkCapacity(ctx, in.ClassID, "Cannot move student to this class. Class capacity is full.", exec); err != nil {
				return err
			}
		}

		std := old
		std.Username = in.Username
		std.Name = in.Name
		std.Surname = in.Surname
		std.Email = in.Email
		std.Phone = in.Phone
		std.Address = in.Address
		std.Img = in.Img
		std.BloodType = in.BloodType
		std.Sex = Sex(in.Sex)
		std.Birthday = in.Birthday
		std.GradeID = in.GradeID
		std.ClassID = in.ClassID
		std.ParentID = in.ParentID
		_, err = svc.repo.UpdateStudent(ctx, std, exec)
		return err
	})
	return old, err
}

// checkRefs resolves the grade, class and parent of a student input.
func (svc *StudentService) checkRefs(ctx context.Context, in StudentInput, exec ...core.DBExecutor) error {
	if _, err := svc.repo.GetGrade(ctx, in.GradeID, exec...); err != nil {
		return notFound(err, "Selected grade does not exist.")
	}
	if _, err := svc.repo.GetClass(ctx, in.ClassID, exec...); err != nil {
		return notFound(err, msgClassMissing)
	}
	if in.ParentID != "" {
		if _, err := svc.repo.GetParent(ctx, in.ParentID, exec...); err != nil {
			return notFound(err, "Selected parent does not exist.")
		}
	}
	return nil
}

// checkCapacity rejects with msg when the class has no seat left.
// Inside a transaction the class stays locked until it ends.
func (svc *StudentService) checkCapacity(ctx context.Context, classID int, msg string, exec ...core.DBExecutor) error {
	var (
		cls Class
		err error
	)
	if len(exec) > 0 {
		cls, err = svc.repo.LockClass(ctx, classID, exec...)
	} else {
		cls, err = svc.repo.GetClass(ctx, classID)
	}
	if err != nil {
		return notFound(err, msgClassMissing)
	}
	enrolled, err := svc.repo.CountStudents(ctx, StudentFilter{ClassID: classID}, exec...)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	if enrolled >= cls.Capacity {
		return core.Reject(core.KindInvariant, msg)
	}
	return nil
}

// Delete removes the student with their attendance and results, then their identity account.
func (svc *StudentService) Delete(ctx context.Context, caller core.Caller, id string) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting student", caller, err, "")
	}
	sync := svc.syncIdentity("deleting student", caller, core.EntityStudent, id, func() error {
		return svc.idp.DeleteUser(ctx, id)
	})
	return core.Succeeded(id, sync)
}

func (svc *StudentService) delete(ctx context.Context, caller core.Caller, id string) error {
	if err := svc.policy.CanMutate(caller, core.EntityStudent); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetStudent(ctx, id, exec); err != nil {
			return notFound(err, "Student not found. It may have already been deleted.")
		}
		if err := svc.repo.DeleteAttendances(ctx, AttendanceFilter{StudentID: id}, exec); err != nil {
			return errors.Wrap(err, "deleting attendance")
		}
		if err := svc.repo.DeleteResults(ctx, ResultFilter{StudentID: id}, exec); err != nil {
			return errors.Wrap(err, "deleting results")
		}
		return svc.repo.DeleteStudent(ctx, id, exec)
	})
}
