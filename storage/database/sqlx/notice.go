package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

var (
	eventOrdering        = map[string]string{"id": "ev.id", "title": "ev.title", "startTime": "ev.start_time"}
	announcementOrdering = map[string]string{"id": "an.id", "title": "an.title", "date": "an.date"}
)

// noticeVisible: school-wide notices (no class) reach everyone, class notices the scope's classes.
func (w *where) noticeVisible(scope school.Scope, col string) {
	if sub, args, all := visibleClasses(scope); !all {
		w.add("("+col+" IS NULL OR "+col+" IN "+sub+")", args...)
	}
}

// events

func (repo *schoolRepository) GetEvent(ctx context.Context, id int, exec ...core.DBExecutor) (school.Event, error) {
	var row eventRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+eventCols+" FROM events ev WHERE ev.id = ?", id); err != nil {
		return school.Event{}, errors.Wrap(err, "getting event")
	}
	return row.event(), nil
}

func (repo *schoolRepository) CreateEvent(ctx context.Context, ev school.Event, exec ...core.DBExecutor) (school.Event, error) {
	err := get(ctx, repo.getExec(exec), &ev.ID,
		"INSERT INTO events (title, description, start_time, end_time, class_id) VALUES (?, ?, ?, ?, ?) RETURNING id",
		ev.Title, ev.Description, ev.StartTime.UTC(), ev.EndTime.UTC(), nullInt(ev.ClassID))
	if err != nil {
		return school.Event{}, errors.Wrap(err, "inserting event")
	}
	return ev, nil
}

func (repo *schoolRepository) UpdateEvent(ctx context.Context, ev school.Event, exec ...core.DBExecutor) (school.Event, error) {
	err := runOne(ctx, repo.getExec(exec),
		"UPDATE events SET title = ?, description = ?, start_time = ?, end_time = ?, class_id = ? WHERE id = ?",
		ev.Title, ev.Description, ev.StartTime.UTC(), ev.EndTime.UTC(), nullInt(ev.ClassID), ev.ID)
	if err != nil {
		return school.Event{}, errors.Wrap(err, "updating event")
	}
	return ev, nil
}

func (repo *schoolRepository) DeleteEvent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM events WHERE id = ?", id), "deleting event")
}

func (repo *schoolRepository) DeleteClassEvents(ctx context.Context, classID int, exec ...core.DBExecutor) error {
	_, err := run(ctx, repo.getExec(exec), "DELETE FROM events WHERE class_id = ?", classID)
	return errors.Wrap(err, "deleting class events")
}

func (repo *schoolRepository) ListEvents(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Event, int, error) {
	var w where
	w.noticeVisible(q.Scope, "ev.class_id")
	if q.ClassID != 0 {
		w.add("ev.class_id = ?", q.ClassID)
	}
	if !q.Date.IsZero() {
		w.add("ev.start_time::date = ?::date", q.Date.UTC().Format("2006-01-02"))
	}
	w.search(q.Search, "ev.title")

	var rows []eventRow
	total, err := list(ctx, repo.getExec(exec), &rows, eventCols, "events ev", w,
		core.OrderClause(q.Ordering, eventOrdering, "ev.start_time DESC")+", ev.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing events")
	}
	events := make([]school.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, total, nil
}

// announcements

func (repo *schoolRepository) GetAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) (school.Announcement, error) {
	var row announcementRow
	if err := get(ctx, repo.getExec(exec), &row, "SELECT "+announcementCols+" FROM announcements an WHERE an.id = ?", id); err != nil {
		return school.Announcement{}, errors.Wrap(err, "getting announcement")
	}
	return row.announcement(), nil
}

func (repo *schoolRepository) CreateAnnouncement(ctx context.Context, ann school.Announcement, exec ...core.DBExecutor) (school.Announcement, error) {
	err := get(ctx, repo.getExec(exec), &ann.ID,
		"INSERT INTO announcements (title, description, date, class_id) VALUES (?, ?, ?, ?) RETURNING id",
		ann.Title, ann.Description, ann.Date.UTC(), nullInt(ann.ClassID))
	if err != nil {
		return school.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo *schoolRepository) UpdateAnnouncement(ctx context.Context, ann school.Announcement, exec ...core.DBExecutor) (school.Announcement, error) {
	err := runOne(ctx, repo.getExec(exec),
		"UPDATE announcements SET title = ?, description = ?, date = ?, class_id = ? WHERE id = ?",
		ann.Title, ann.Description, ann.Date.UTC(), nullInt(ann.ClassID), ann.ID)
	if err != nil {
		return school.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	return ann, nil
}

func (repo *schoolRepository) DeleteAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.Wrap(runOne(ctx, repo.getExec(exec), "DELETE FROM announcements WHERE id = ?", id), "deleting announcement")
}

func (repo *schoolRepository) DeleteClassAnnouncements(ctx context.Context, classID int, exec ...core.DBExecutor) error {
	_, err := run(ctx, repo.getExec(exec), "DELETE FROM announcements WHERE class_id = ?", classID)
	return errors.Wrap(err, "deleting class announcements")
}

func announcementWhere(scope school.Scope, day time.Time) where {
	var w where
	w.noticeVisible(scope, "an.class_id")
	if !day.IsZero() {
		w.add("an.date::date = ?::date", day.UTC().Format("2006-01-02"))
	}
	return w
}

func (repo *schoolRepository) ListAnnouncements(ctx context.Context, q school.ListQuery, exec ...core.DBExecutor) ([]school.Announcement, int, error) {
	w := announcementWhere(q.Scope, q.Date)
	if q.ClassID != 0 {
		w.add("an.class_id = ?", q.ClassID)
	}
	w.search(q.Search, "an.title")

	var rows []announcementRow
	total, err := list(ctx, repo.getExec(exec), &rows, announcementCols, "announcements an", w,
		core.OrderClause(q.Ordering, announcementOrdering, "an.date DESC")+", an.id ASC", q.Page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing announcements")
	}
	return announcements(rows), total, nil
}

func (repo *schoolRepository) LatestAnnouncements(ctx context.Context, scope school.Scope, day time.Time, limit int, exec ...core.DBExecutor) ([]school.Announcement, error) {
	w := announcementWhere(scope, day)
	var rows []announcementRow
	query := "SELECT " + announcementCols + " FROM announcements an" + w.String() + " ORDER BY an.date DESC, an.id DESC LIMIT ?"
	if err := selectRows(ctx, repo.getExec(exec), &rows, query, append(w.args, limit)...); err != nil {
		return nil, errors.Wrap(err, "latest announcements")
	}
	return announcements(rows), nil
}

func announcements(rows []announcementRow) []school.Announcement {
	anns := make([]school.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, row.announcement())
	}
	return anns
}
