package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const msgParentExists = "A parent with this username or email already exists."

type ParentService struct {
	*deps
}

func (svc *ParentService) Create(ctx context.Context, caller core.Caller, in ParentInput) core.Outcome {
	id, err := svc.create(ctx, caller, in)
	if err != nil {
		return svc.failure("creating parent", caller, err, msgParentExists)
	}
	return core.Succeeded(id, core.CommittedLocally)
}

func (svc *ParentService) create(ctx context.Context, caller core.Caller, in ParentInput) (string, error) {
	if err := svc.policy.CanMutate(caller, core.EntityParent); err != nil {
		return "", err
	}
	if err := in.Validate(svc.validate, true /* creating */); err != nil {
		return "", err
	}
	if err := svc.checkStudents(ctx, "", in.StudentIDs,
		"Some selected students already have parents assigned. Please choose students without parents or remove them from other parents first."); err != nil {
		return "", err
	}

	id, err := svc.createAccount(ctx, NewAccount{
		Username: in.Username,
		Password: in.Password,
		Name:     in.Name,
		Surname:  in.Surname,
		Email:    in.Email,
		Role:     core.RoleParent,
	}, msgParentExists)
	if err != nil {
		return "", err
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		_, err := svc.repo.CreateParent(ctx, Parent{
			ID:        id,
			Username:  in.Username,
			Name:      in.Name,
			Surname:   in.Surname,
			Email:     in.Email,
			Phone:     in.Phone,
			Address:   in.Address,
			CreatedAt: svc.now().UTC(),
		}, exec)
		if err != nil {
			return err
		}
		return svc.repo.SetParentStudents(ctx, id, in.StudentIDs, exec)
	})
	if err != nil {
		svc.compensate("creating parent", caller, id)
		return "", err
	}
	return id, nil
}

// Update stores the parent and replaces their children, then syncs the identity account
// when an account field changed.
func (svc *ParentService) Update(ctx context.Context, caller core.Caller, id string, in ParentInput) core.Outcome {
	old, err := svc.update(ctx, caller, id, in)
	if err != nil {
		return svc.failure("updating parent", caller, err, msgParentExists)
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
	sync := svc.syncIdentity("updating parent", caller, core.EntityParent, id, func() error {
		return svc.idp.UpdateUser(ctx, id, upd)
	})
	return core.Succeeded(id, sync)
}

func (svc *ParentService) update(ctx context.Context, caller core.Caller, id string, in ParentInput) (Parent, error) {
	if err := svc.policy.CanMutate(caller, core.EntityParent); err != nil {
		return Parent{}, err
	}
	if err := in.Validate(svc.validate, false /* creating */); err != nil {
		return Parent{}, err
	}

	var old Parent
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if old, err = svc.repo.GetParent(ctx, id, exec); err != nil {
			return notFound(err, "Parent not found. The parent may have been deleted.")
		}
		if err = svc.checkStudents(ctx, id, in.StudentIDs,
			"Some selected students already have other parents assigned. Please choose students without parents or remove them from other parents first.",
			exec); err != nil {
			return err
		}

		prnt := old
		prnt.Username = in.Username
		prnt.Name = in.Name
		prnt.Surname = in.Surname
		prnt.Email = in.Email
		prnt.Phone = in.Phone
		prnt.Address = in.Address
		if _, err = svc.repo.UpdateParent(ctx, prnt, exec); err != nil {
			return err
		}
		return svc.repo.SetParentStudents(ctx, id, in.StudentIDs, exec)
	})
	return old, err
}

// checkStudents verifies that every student exists and that none belongs to a parent other than parentID.
func (svc *ParentService) checkStudents(ctx context.Context, parentID string, ids []string, takenMsg string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := svc.repo.CountStudents(ctx, StudentFilter{IDs: ids}, exec...)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	if n != len(ids) {
		return core.Reject(core.KindNotFound, "One or more selected students do not exist.")
	}

	hasParent := true
	taken, err := svc.repo.CountStudents(ctx, StudentFilter{IDs: ids, HasParent: &hasParent, ExcludeParentID: parentID}, exec...)
	if err != nil {
		return errors.Wrap(err, "counting students with parents")
	}
	if taken > 0 {
		return core.Reject(core.KindConflict, takenMsg)
	}
	return nil
}

// Delete removes the parent unconditionally; their children are kept without a parent.
func (svc *ParentService) Delete(ctx context.Context, caller core.Caller, id string) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting parent", caller, err, "")
	}
	sync := svc.syncIdentity("deleting parent", caller, core.EntityParent, id, func() error {
		return svc.idp.DeleteUser(ctx, id)
	})
	return core.Succeeded(id, sync)
}

func (svc *ParentService) delete(ctx context.Context, caller core.Caller, id string) error {
	if err := svc.policy.CanMutate(caller, core.EntityParent); err != nil {
		return err
	}
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetParent(ctx, id, exec); err != nil {
			return notFound(err, "Parent not found. The parent may have already been deleted.")
		}
		if err := svc.repo.SetParentStudents(ctx, id, nil, exec); err != nil {
			return errors.Wrap(err, "detaching students")
		}
		return svc.repo.DeleteParent(ctx, id, exec)
	})
}
