package school

import (
	"context"

	"github.com/trezcool/shule/core"
)

const msgEventExists = "An event with this title and time already exists."

type EventService struct {
	*deps
}

func (svc *EventService) Create(ctx context.Context, caller core.Caller, in EventInput) core.Outcome {
	ev, err := svc.save(ctx, caller, 0, in)
	if err != nil {
		return svc.failure("creating event", caller, err, msgEventExists)
	}
	return core.Succeeded(itoa(ev.ID), core.SyncNone)
}

func (svc *EventService) Update(ctx context.Context, caller core.Caller, id int, in EventInput) core.Outcome {
	if _, err := svc.save(ctx, caller, id, in); err != nil {
		return svc.failure("updating event", caller, err, msgEventExists)
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *EventService) save(ctx context.Context, caller core.Caller, id int, in EventInput) (Event, error) {
	action := ActionCreate
	if id != 0 {
		action = ActionUpdate
	}
	if err := svc.policy.CanMutate(caller, core.EntityEvent); err != nil {
		return Event{}, err
	}
	if err := in.Validate(svc.validate); err != nil {
		return Event{}, err
	}
	if !in.EndTime.After(in.StartTime) {
		return Event{}, core.Reject(core.KindInvariant, "End time must be after start time.")
	}
	if id == 0 && in.StartTime.Before(svc.now()) {
		return Event{}, core.Reject(core.KindInvariant, "Start time cannot be in the past.")
	}

	if id != 0 {
		old, err := svc.repo.GetEvent(ctx, id)
		if err != nil {
			return Event{}, notFound(err, "Event not found. The event may have been deleted.")
		}
		if err = svc.policy.AuthorizeClass(ctx, caller, old.ClassID, core.EntityEvent, action); err != nil {
			return Event{}, err
		}
	}
	if in.ClassID != 0 {
		if _, err := svc.repo.GetClass(ctx, in.ClassID); err != nil {
			return Event{}, notFound(err, msgClassMissing)
		}
	}
	if err := svc.policy.AuthorizeClass(ctx, caller, in.ClassID, core.EntityEvent, action); err != nil {
		return Event{}, err
	}

	ev := Event{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		ClassID:     in.ClassID,
	}
	if id == 0 {
		return svc.repo.CreateEvent(ctx, ev)
	}
	return svc.repo.UpdateEvent(ctx, ev)
}

func (svc *EventService) Delete(ctx context.Context, caller core.Caller, id int) core.Outcome {
	if err := svc.delete(ctx, caller, id); err != nil {
		return svc.failure("deleting event", caller, err, "")
	}
	return core.Succeeded(itoa(id), core.SyncNone)
}

func (svc *EventService) delete(ctx context.Context, caller core.Caller, id int) error {
	if err := svc.policy.CanMutate(caller, core.EntityEvent); err != nil {
		return err
	}
	ev, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return notFound(err, "Event not found. The event may have already been deleted.")
	}
	if err = svc.policy.AuthorizeClass(ctx, caller, ev.ClassID, core.EntityEvent, ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, id)
}
