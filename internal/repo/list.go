package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"portaria/internal/domain"
)

type ActFilters struct {
	Status         domain.Status
	Category       domain.Category
	InstrumentKind domain.InstrumentKind
	Year           int
	Supersedes     string
	Limit          int
	// Composite cursor: rows strictly older than (CursorCreatedAt, CursorID).
	CursorCreatedAt string
	CursorID        string
}

// ListActs returns acts newest first.
func (r Repo) ListActs(ctx context.Context, f ActFilters) ([]domain.Act, error) {
	b := sq.Select(actColumns).From("acts")
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if f.InstrumentKind != "" {
		b = b.Where(sq.Eq{"instrument_kind": f.InstrumentKind})
	}
	if f.Year != 0 {
		b = b.Where(sq.Eq{"year": f.Year})
	}
	if f.Supersedes != "" {
		b = b.Where(sq.Eq{"supersedes": f.Supersedes})
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		b = b.Where(sq.Or{
			sq.Lt{"created_at": f.CursorCreatedAt},
			sq.And{sq.Eq{"created_at": f.CursorCreatedAt}, sq.Lt{"id": f.CursorID}},
		})
	}
	b = b.OrderBy("created_at DESC", "id DESC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list acts")
	}
	defer rows.Close()
	res := []domain.Act{}
	var ids []string
	for rows.Next() {
		a, err := scanAct(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list acts")
	}
	rows.Close()

	subjects, err := loadSubjects(ctx, r.DB, ids)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Subjects = subjects[res[i].ID]
		if res[i].Subjects == nil {
			res[i].Subjects = []domain.Subject{}
		}
	}
	return res, nil
}

// Retifications lists the correction instruments citing id.
func (r Repo) Retifications(ctx context.Context, id string) ([]domain.Act, error) {
	return r.ListActs(ctx, ActFilters{Supersedes: id})
}

type EventFilters struct {
	Type     string
	EntityID string
	// Before returns only events with a smaller id.
	Before int64
	Limit  int
}

// LatestEvents returns events newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	b := sq.Select("id", "ts", "type", "entity_kind", "entity_id", "actor_id", "payload_json").From("events")
	if f.Type != "" {
		b = b.Where(sq.Eq{"type": f.Type})
	}
	if f.EntityID != "" {
		b = b.Where(sq.Eq{"entity_id": f.EntityID})
	}
	if f.Before > 0 {
		b = b.Where(sq.Lt{"id": f.Before})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	return r.queryEvents(ctx, b.OrderBy("id DESC").Limit(uint64(limit)))
}

// EventsAfter returns up to limit events with id > after, oldest first.
func (r Repo) EventsAfter(ctx context.Context, after int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	b := sq.Select("id", "ts", "type", "entity_kind", "entity_id", "actor_id", "payload_json").
		From("events").
		Where(sq.Gt{"id": after}).
		OrderBy("id ASC").
		Limit(uint64(limit))
	return r.queryEvents(ctx, b)
}

// LatestEventID is 0 when the log is empty.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&id); err != nil {
		return 0, mapError(err, "latest event id")
	}
	return id.Int64, nil
}

func (r Repo) queryEvents(ctx context.Context, b sq.SelectBuilder) ([]domain.Event, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list events")
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var entityID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &e.Payload); err != nil {
			return nil, mapError(err, "scan event")
		}
		e.EntityID = entityID.String
		res = append(res, e)
	}
	return res, rows.Err()
}
