package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"portaria/internal/db"
	"portaria/internal/domain"
	"portaria/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	var seq atomic.Int64
	return Repo{
		DB:    conn,
		Now:   func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) },
		NewID: func() string { return fmt.Sprintf("act-%03d", seq.Add(1)) },
	}
}

func draft(kind domain.InstrumentKind, date string) domain.Act {
	return domain.Act{
		InstrumentKind: kind,
		Category:       domain.CategoryAppointment,
		Status:         domain.StatusDraft,
		DocumentDate:   date,
		SummaryText:    "Appoints.",
		Subjects: []domain.Subject{
			{SubjectID: "s-b", FullName: "Bruno", TaxID: "2"},
			{SubjectID: "s-a", FullName: "Ana", TaxID: "1"},
		},
	}
}

func TestCreateAssignsNumbersPerKindAndYear(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	a1, err := r.Create(ctx, nil, draft(domain.InstrumentPortaria, "2025-01-10"))
	require.NoError(t, err)
	a2, err := r.Create(ctx, nil, draft(domain.InstrumentPortaria, "2025-02-10"))
	require.NoError(t, err)
	d1, err := r.Create(ctx, nil, draft("decreto", "2025-02-10"))
	require.NoError(t, err)
	p26, err := r.Create(ctx, nil, draft(domain.InstrumentPortaria, "2026-01-02"))
	require.NoError(t, err)

	assert.Equal(t, "001/2025", a1.Number)
	assert.Equal(t, "002/2025", a2.Number)
	assert.Equal(t, "001/2025", d1.Number)
	assert.Equal(t, "001/2026", p26.Number)
	assert.Equal(t, int64(1), a1.Version)
	assert.Equal(t, 2025, a1.Year)
}

func TestLoadPreservesSubjectOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	created, err := r.Create(ctx, nil, draft(domain.InstrumentPortaria, "2025-01-10"))
	require.NoError(t, err)

	got, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Subjects, got.Subjects)
	assert.Equal(t, "Bruno", got.Subjects[0].FullName)
	assert.Nil(t, got.Gazette)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommitEnforcesVersion(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	act, err := r.Create(ctx, nil, draft(domain.InstrumentPortaria, "2025-01-10"))
	require.NoError(t, err)

	act.Status = domain.StatusAwaitingSignature
	act.Gazette = &domain.Gazette{Number: "10", Date: "2025-01-12"}
	act.Subjects = act.Subjects[:1]
	committed, err := r.Commit(ctx, nil, act, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), committed.Version)

	stored, err := r.Get(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingSignature, stored.Status)
	assert.Equal(t, "10", stored.Gazette.Number)
	assert.Len(t, stored.Subjects, 1)

	_, err = r.Commit(ctx, nil, act, 1)
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(2), ce.Actual)

	act.ID = "missing"
	_, err = r.Commit(ctx, nil, act, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentCommitsSameVersionOneWins(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	act, err := r.Create(ctx, nil, draft(domain.InstrumentPortaria, "2025-01-10"))
	require.NoError(t, err)

	const writers = 8
	var wins, conflicts atomic.Int32
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		g.Go(func() error {
			next := act.Clone()
			next.SummaryText = fmt.Sprintf("writer %d", i)
			_, err := r.Commit(ctx, nil, next, act.Version)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(writers-1), conflicts.Load())
}

func TestListActsFiltersAndCursor(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		a, err := r.Create(ctx, nil, draft(domain.InstrumentPortaria, "2025-01-10"))
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}
	orig := ids[0]
	ret := draft(domain.InstrumentPortaria, "2025-04-01")
	ret.Category = domain.CategoryNormative
	ret.Supersedes = &orig
	retified, err := r.Create(ctx, nil, ret)
	require.NoError(t, err)

	page, err := r.ListActs(ctx, ActFilters{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, retified.ID, page[0].ID)
	assert.Len(t, page[0].Subjects, 2)

	rest, err := r.ListActs(ctx, ActFilters{CursorCreatedAt: page[1].CreatedAt, CursorID: page[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1], ids[0]}, []string{rest[0].ID, rest[1].ID})

	children, err := r.Retifications(ctx, orig)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, retified.ID, children[0].ID)

	normative, err := r.ListActs(ctx, ActFilters{Category: domain.CategoryNormative, Year: 2025})
	require.NoError(t, err)
	assert.Len(t, normative, 1)
}

func TestCreateMapsDriverErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	r := Repo{DB: conn, NewID: func() string { return "act-1" }}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO act_sequences`)).
		WithArgs("portaria", int64(2025)).
		WillReturnRows(sqlmock.NewRows([]string{"last"}).AddRow(14))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO acts(`)).
		WillReturnError(errors.New("UNIQUE constraint failed: acts.instrument_kind, acts.year, acts.number"))
	mock.ExpectRollback()

	_, err = r.Create(context.Background(), nil, draft(domain.InstrumentPortaria, "2025-03-01"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitSurfacesDriverFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	r := Repo{DB: conn}

	boom := errors.New("database is locked")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE acts SET`)).WillReturnError(boom)
	mock.ExpectRollback()

	_, err = r.Commit(context.Background(), nil, draft(domain.InstrumentPortaria, "2025-03-01"), 3)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitRollsBackWhenSubjectsFail(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	r := Repo{DB: conn}

	act := draft(domain.InstrumentPortaria, "2025-03-01")
	act.ID = "act-1"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE acts SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM act_subjects`)).WithArgs("act-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO act_subjects`)).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = r.Commit(context.Background(), nil, act, 1)
	assert.ErrorContains(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMapsMissingRow(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	r := Repo{DB: conn}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + actColumns + ` FROM acts WHERE id=?`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err = r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventsAfterReadsForward(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	latest, err := r.LatestEventID(ctx)
	require.NoError(t, err)
	assert.Zero(t, latest)

	for _, typ := range []string{"act.created", "act.transitioned", "act.revoked"} {
		_, err := r.DB.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
			"2025-03-01T09:00:00Z", typ, "act", "act-001", "clerk", "{}")
		require.NoError(t, err)
	}
	latest, err = r.LatestEventID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, latest)

	evts, err := r.EventsAfter(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "act.transitioned", evts[0].Type)
	assert.Equal(t, "act.revoked", evts[1].Type)

	evts, err = r.EventsAfter(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.EqualValues(t, 1, evts[0].ID)
}
