package school

import (
	"context"

	"github.com/trezcool/shule/core"
)

const msgAnnouncementExists = "An announcement with this title and date already exists."

type AnnouncementService struct {
	*deps
}

func (svc *AnnouncementService) Create(ctx context.Context, caller core.Caller, in AnnouncementInput) core.Outcome {
	ann, err := svc.save(ctx, caller, 0, in)
	if err != nil {
		return svc.failure("creating announcement", caller, err, msgAnnouncementExists)
	}
	return core.Succeeded(itoa(ann.ID), core.SyncNone)
}

func (svc *AnnouncementService) Update(ctx context.Context, caller core.Caller, id int, in AnnouncementInput) core.Outcome {
	if _, err := svc.save(ctx, caller, id, in); err != nil {
		return svc.failure("updating announcement", caller, err, msgAnnouncementExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *AnnouncementService) save(ctx context.Context, caller core.Caller, id int, in AnnouncementInput) (Announcement, error) {
	action := ActionCreate
	if id != 0 {
		action = ActionUpdate
	}
	if err := svc.policy.CanMutate(caller, core.EntityAnnouncement); err != nil {
		return Announcement{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Announcement{}, err
	}

	if id != 0 {
		old, err := svc.repo.GetAnnouncement(ctx, id)
		if err != nil {
			return Announcement{}, notFound(err, "Announcement not found. The announcement may have been deleted.")
		}
		if err = svc.policy.AuthorizeClass(ctx, caller, old.ClassID, core.EntityAnnouncement, action); err != nil {
			return Announcement{}, err
		}
	}
	if in.ClassID != 0 {
		if _, err := svc.repo.GetClass(ctx, in.ClassID); err != nil {
			return Announcement{}, notFound(err, msgClassMissing)
		}
	}
	if err := svc.policy.AuthorizeClass(ctx, caller, in.ClassID, core.EntityAnnouncement, action); err != nil {
		return Announcement{}, err
	}

	ann := Announcement{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date.UTC(),
		ClassID:     in.ClassID,
	}
	if id == 0 {
		return svc.repo.CreateAnnouncement(ctx, ann)
	}
	return svc.repo.UpdateAnnouncement(ctx, ann)
}

func (svc *AnnouncementService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting announcement", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *AnnouncementService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntityAnnouncement); err != nil {
		return err
	}
	ann, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return notFound(err, "Announcement not found. The announcement may have already been deleted.")
	}
	if err = svc.policy.AuthorizeClass(ctx, caller, ann.ClassID, core.EntityAnnouncement, ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteAnnouncement(ctx, id)
}
