package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// noticeVisible: school-wide notices (class 0) reach everyone, class notices the scope's classes.
func (t *tables) noticeVisible(scope school.Scope, classID int) bool {
	if classID == 0 {
		return true
	}
	classes, all := t.visibleClasses(scope)
	return all || classes[classID]
}

// events

func (repo *schoolRepository) GetEvent(ctx context.Context, id int, exec ...core.DBExecutor) (school.Event, error) {
	var ev school.Event
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if ev, ok = t.events[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return ev, err
}

func (repo *schoolRepository) CreateEvent(ctx context.Context, ev school.Event, exec ...core.DBExecutor) (school.Event, error) {
	return repo.saveEvent(ctx, ev, exec)
}

func (repo *schoolRepository) UpdateEvent(ctx context.Context, ev school.Event, exec ...core.DBExecutor) (school.Event, error) {
	return repo.saveEvent(ctx, ev, exec)
}

func (repo *schoolRepository) saveEvent(ctx context.Context, ev school.Event, exec []core.DBExecutor) (school.Event, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if ev.ID != 0 {
			if _, ok := t.events[ev.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.events {
			if other.ID != ev.ID && other.Title == ev.Title && other.StartTime.Equal(ev.StartTime) {
				return core.ErrUniqueViolation
			}
		}
		if _, ok := t.classes[ev.ClassID]; ev.ClassID != 0 && !ok {
			return core.ErrForeignKeyViolation
		}
		if ev.ID == 0 {
			ev.ID = t.nextPK("events")
		}
		t.events[ev.ID] = ev
		return nil
	})
	if err != nil {
		return school.Event{}, err
	}
	return ev, nil
}

func (repo *schoolRepository) DeleteEvent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.events[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.events, id)
		return nil
	})
}

func (repo *schoolRepository) DeleteClassEvents(ctx context.Context, classID int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		for id, ev := range t.events {
			if ev.ClassID == classID {
				delete(t.events, id)
			}
		}
		return nil
	})
}

func (repo *schoolRepository) ListEvents(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Event, int, error) {
	var (
		rows  []school.Event
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		for _, ev := range t.events {
			switch {
			case !t.noticeVisible(q.Scope, ev.ClassID),
				q.ClassID != 0 && ev.ClassID != q.ClassID,
				!q.Date.IsZero() && !sameDay(ev.StartTime, q.Date),
				q.Search != "" && !containsFold(q.Search, ev.Title):
				continue
			}
			rows = append(rows, ev)
		}
		rows, total = page(rows, q, columns[school.Event]{
			"id":        func(e school.Event) interface{} { return e.ID },
			"title":     func(e school.Event) interface{} { return e.Title },
			"startTime": func(e school.Event) interface{} { return e.StartTime },
		}, core.DBOrdering{Field: "startTime", Ascending: false})
		return nil
	})
	return rows, total, err
}

// announcements

func (repo *schoolRepository) GetAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) (school.Announcement, error) {
	var ann school.Announcement
	err := repo.db.read(ctx, func(t *tables) error {
		var ok bool
		if ann, ok = t.announcements[id]; !ok {
			return core.ErrNotFound
		}
		return nil
	})
	return ann, err
}

func (repo *schoolRepository) CreateAnnouncement(ctx context.Context, ann school.Announcement, exec ...core.DBExecutor) (school.Announcement, error) {
	return repo.saveAnnouncement(ctx, ann, exec)
}

func (repo *schoolRepository) UpdateAnnouncement(ctx context.Context, ann school.Announcement, exec ...core.DBExecutor) (school.Announcement, error) {
	return repo.saveAnnouncement(ctx, ann, exec)
}

func (repo *schoolRepository) saveAnnouncement(ctx context.Context, ann school.Announcement, exec []core.DBExecutor) (school.Announcement, error) {
	err := repo.db.write(ctx, exec, func(t *tables) error {
		if ann.ID != 0 {
			if _, ok := t.announcements[ann.ID]; !ok {
				return core.ErrNotFound
			}
		}
		for _, other := range t.announcements {
			if other.ID != ann.ID && other.Title == ann.Title && other.Date.Equal(ann.Date) {
				return core.ErrUniqueViolation
			}
		}
		if _, ok := t.classes[ann.ClassID]; ann.ClassID != 0 && !ok {
			return core.ErrForeignKeyViolation
		}
		if ann.ID == 0 {
			ann.ID = t.nextPK("announcements")
		}
		t.announcements[ann.ID] = ann
		return nil
	})
	if err != nil {
		return school.Announcement{}, err
	}
	return ann, nil
}

func (repo *schoolRepository) DeleteAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		if _, ok := t.announcements[id]; !ok {
			return core.ErrNotFound
		}
		delete(t.announcements, id)
		return nil
	})
}

func (repo *schoolRepository) DeleteClassAnnouncements(ctx context.Context, classID int, exec ...core.DBExecutor) error {
	return repo.db.write(ctx, exec, func(t *tables) error {
		for id, ann := range t.announcements {
			if ann.ClassID == classID {
				delete(t.announcements, id)
			}
		}
		return nil
	})
}

func (repo *schoolRepository) ListAnnouncements(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Announcement, int, error) {
	var (
		rows  []school.Announcement
		total int
	)
	err := repo.db.read(ctx, func(t *tables) error {
		rows = t.announcementsIn(q.Scope, q.Date)
		filtered := rows[:0]
		for _, ann := range rows {
			switch {
			case q.ClassID != 0 && ann.ClassID != q.ClassID,
				q.Search != "" && !containsFold(q.Search, ann.Title):
				continue
			}
			filtered = append(filtered, ann)
		}
		rows, total = page(filtered, q, announcementColumns, core.DBOrdering{Field: "date", Ascending: false})
		return nil
	})
	return rows, total, err
}

func (repo *schoolRepository) LatestAnnouncements(ctx context.Context, scope school.Scope, day time.Time, limit int, exec ...core.DBExecutor) ([]school.Announcement, error) {
	var rows []school.Announcement
	err := repo.db.read(ctx, func(t *tables) error {
		rows = t.announcementsIn(scope, day)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].ID > rows[j].ID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (t *tables) announcementsIn(scope school.Scope, day time.Time) []school.Announcement {
	rows := make([]school.Announcement, 0)
	for _, ann := range t.announcements {
		if !t.noticeVisible(scope, ann.ClassID) {
			continue
		}
		if !day.IsZero() && !sameDay(ann.Date, day) {
			continue
		}
		rows = append(rows, ann)
	}
	return rows
}

var announcementColumns = columns[school.Announcement]{
	"id":    func(a school.Announcement) interface{} { return a.ID },
	"title": func(a school.Announcement) interface{} { return a.Title },
	"date":  func(a school.Announcement) interface{} { return a.Date },
}
