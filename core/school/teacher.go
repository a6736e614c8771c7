package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgTeacherExists = "A teacher with this username or email already exists."

type TeacherService struct {
	*deps
}

// Create issues the teacher's identity account then stores the teacher.
// The account is removed again when the teacher cannot be stored.
func (svc *TeacherService) Create(ctx context.Context, caller core.Caller, in TeacherInput) core.Outcome {
	id, err := svc.create(ctx, caller, in)
	if err != nil {
		return svc.failure("creating teacher", caller, err, msgTeacherExists)
	}
	return core.Succeeded(id, core.CommittedLocally)
}

func (svc *TeacherService) create(ctx context.Context, caller core.Caller, in TeacherInput) (string, error) {
	if err := svc.policy.CanMutate(caller, core.EntityTeacher); err != nil {
		return "", err
	}
	if err := in.Validate(svc.validate, true /* creating */); err != nil {
		return "", err
	}
	if err := svc.checkSubjects(ctx, in.SubjectIDs); err != nil {
		return "", err
	}

	id, err := svc.createAccount(ctx, NewAccount{
		Username: in.Username,
		Password: in.Password,
		Name:     in.Name,
		Surname:  in.Surname,
		Email:    in.Email,
		Role:     core.RoleTeacher,
	}, msgTeacherExists)
	if err != nil {
		return "", err
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		_, err := svc.repo.CreateTeacher(ctx, Teacher{
			ID:         id,
			Username:   in.Username,
			Name:       in.Name,
			Surname:    in.Surname,
			Email:      in.Email,
			Phone:      in.Phone,
			Address:    in.Address,
			Img:        in.Img,
			BloodType:  in.BloodType,
			Sex:        in.sex(),
			Birthday:   in.Birthday,
			SubjectIDs: in.SubjectIDs,
			CreatedAt:  svc.now().UTC(),
		}, exec)
		return err
	})
	if err != nil {
		svc.compensate("creating teacher", caller, id)
		return "", err
	}
	return id, nil
}

// Update stores the teacher then syncs the identity account when an account field changed.
func (svc *TeacherService) Update(ctx context.Context, caller core.Caller, id string, in TeacherInput) core.Outcome {
	if err := svc.policy.CanMutate(caller, core.EntityTeacher); err != nil {
		return svc.failure("updating teacher", caller, err, "")
	}
	if err := in.Validate(svc.validate, false /* creating */); err != nil {
		return svc.failure("updating teacher", caller, err, "")
	}

	var old Teacher
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if old, err = svc.repo.GetTeacher(ctx, id, exec); err != nil {
			return notFound(err, "Teacher not found. The teacher may have been deleted.")
		}
		if err = svc.checkSubjects(ctx, in.SubjectIDs, exec); err != nil {
			return err
		}

		tchr := old
		tchr.Username = in.Username
		tchr.Name = in.Name
		tchr.Surname = in.Surname
		tchr.Email = in.Email
		tchr.Phone = in.Phone
		tchr.Address = in.Address
		tchr.Img = in.Img
		tchr.BloodType = in.BloodType
		tchr.Sex = in.sex()
		tchr.Birthday = in.Birthday
		tchr.SubjectIDs = in.SubjectIDs
		_, err = svc.repo.UpdateTeacher(ctx, tchr, exec)
		return err
	})
	if err != nil {
		return svc.failure("updating teacher", caller, err, msgTeacherExists)
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
	sync := svc.syncIdentity("updating teacher", caller, core.EntityTeacher, id, func() error {
		return svc.idp.UpdateUser(ctx, id, upd)
	})
	return core.Succeeded(id, sync)
}

func (svc *TeacherService) checkSubjects(ctx context.Context, ids []int, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := svc.repo.CountSubjects(ctx, ids, exec...)
	if err != nil {
		return errors.Wrap(err, "counting subjects")
	}
	if n != len(ids) {
		return core.Reject(core.KindNotFound, "One or more selected subjects do not exist.")
	}
	return nil
}

// Delete detaches the teacher from subjects and classes, removes the lessons they teach with
// everything hanging off them, then the teacher. The whole transaction is time-bounded.
func (svc *TeacherService) Delete(ctx context.Context, caller core.Caller, id string) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting teacher", caller, err, "")
	}
	sync := svc.syncIdentity("deleting teacher", caller, core.EntityTeacher, id, func() error {
		return svc.idp.DeleteUser(ctx, id)
	})
	return core.Succeeded(id, sync)
}

func (svc *TeacherService) delete(ctx context.Context, caller core.Caller, id string) error {
	if err := svc.policy.CanMutate(caller, core.EntityTeacher); err != nil {
		return err
	}

	timeout := svc.conf.TeacherDeleteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := svc.tx.RunInTx(tctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetTeacher(tctx, id, exec); err != nil {
			return notFound(err, "Teacher not found. The teacher may have already been deleted.")
		}
		if err := svc.repo.ClearClassSupervisor(tctx, id, exec); err != nil {
			return errors.Wrap(err, "clearing supervised classes")
		}
		if err := svc.repo.DeleteLessons(tctx, LessonFilter{TeacherID: id}, exec); err != nil {
			return errors.Wrap(err, "deleting lessons")
		}
		return svc.repo.DeleteTeacher(tctx, id, exec)
	})
	if err != nil && isTimeout(tctx, err) {
		return &core.ActionError{Kind: core.KindTimeout, Message: "Deletion timed out. Please try again.", Err: err}
	}
	return err
}

func isTimeout(ctx context.Context, err error) bool {
	switch errors.Cause(err) {
	case core.ErrTimeout, context.DeadlineExceeded:
		return true
	}
	return ctx.Err() == context.DeadlineExceeded
}
