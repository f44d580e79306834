package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"portaria/internal/domain"
)

// Querier is satisfied by *sql.DB and *sql.Tx, so every method can run
// inside the caller's transaction or standalone.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo is the only component that talks to the store.
type Repo struct {
	DB    *sql.DB
	Now   func() time.Time
	NewID func() string
	// NumberFormat renders (sequence, year) into an act number.
	NumberFormat string
}

var ErrNotFound = domain.ErrNotFound

const defaultNumberFormat = "%03d/%d"

const actColumns = `id,number,year,instrument_kind,category,status,document_date,summary_text,related_position,related_unit,gazette_number,gazette_date,supersedes,revocation_reason,revoked_at,notes,version,created_at,updated_at`

func (r Repo) q(q Querier) Querier {
	if q != nil {
		return q
	}
	return r.DB
}

// inTx runs fn on q, or on a transaction of its own when q is nil, so the act
// row and its subject rows are written together.
func (r Repo) inTx(ctx context.Context, q Querier, fn func(Querier) error) error {
	if q != nil {
		return fn(q)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, "begin")
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return mapError(tx.Commit(), "commit")
}

func (r Repo) now() string {
	if r.Now == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return r.Now().UTC().Format(time.RFC3339)
}

func (r Repo) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

// Create assigns id, number and version 1 to a validated draft and stores it.
func (r Repo) Create(ctx context.Context, q Querier, act domain.Act) (domain.Act, error) {
	var created domain.Act
	err := r.inTx(ctx, q, func(q Querier) error {
		var err error
		created, err = r.create(ctx, q, act)
		return err
	})
	return created, err
}

func (r Repo) create(ctx context.Context, q Querier, act domain.Act) (domain.Act, error) {
	dd, err := time.Parse("2006-01-02", act.DocumentDate)
	if err != nil {
		return domain.Act{}, domain.NewValidationError("document_date", "must be a date (YYYY-MM-DD)")
	}
	act = act.Clone()
	act.ID = r.newID()
	act.Year = dd.Year()
	seq, err := r.nextSequence(ctx, q, act.InstrumentKind, act.Year)
	if err != nil {
		return domain.Act{}, err
	}
	format := r.NumberFormat
	if format == "" {
		format = defaultNumberFormat
	}
	act.Number = fmt.Sprintf(format, seq, act.Year)
	act.Version = 1
	act.CreatedAt = r.now()
	act.UpdatedAt = act.CreatedAt

	gn, gd := gazetteColumns(act.Gazette)
	rr, ra := revocationColumns(act.Revocation)
	_, err = q.ExecContext(ctx, `INSERT INTO acts(`+actColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		act.ID, act.Number, act.Year, act.InstrumentKind, act.Category, act.Status, act.DocumentDate, act.SummaryText,
		nullableStringPtr(act.RelatedPosition), nullableStringPtr(act.RelatedUnit), gn, gd,
		nullableStringPtr(act.Supersedes), rr, ra, act.Notes, act.Version, act.CreatedAt, act.UpdatedAt)
	if err != nil {
		return domain.Act{}, mapError(err, "insert act")
	}
	if err := insertSubjects(ctx, q, act.ID, act.Subjects); err != nil {
		return domain.Act{}, err
	}
	if act.Subjects == nil {
		act.Subjects = []domain.Subject{}
	}
	return act, nil
}

func (r Repo) nextSequence(ctx context.Context, q Querier, kind domain.InstrumentKind, year int) (int, error) {
	var last int
	err := q.QueryRowContext(ctx, `INSERT INTO act_sequences(instrument_kind,year,last) VALUES (?,?,1)
		ON CONFLICT(instrument_kind,year) DO UPDATE SET last=last+1 RETURNING last`, kind, year).Scan(&last)
	if err != nil {
		return 0, mapError(err, "next act number")
	}
	return last, nil
}

func insertSubjects(ctx context.Context, q Querier, actID string, subjects []domain.Subject) error {
	for i, s := range subjects {
		_, err := q.ExecContext(ctx, `INSERT INTO act_subjects(act_id,ordinal,subject_id,full_name,tax_id,position_label,position_code) VALUES (?,?,?,?,?,?,?)`,
			actID, i, s.SubjectID, s.FullName, s.TaxID, s.PositionLabel, s.PositionCode)
		if err != nil {
			return mapError(err, "insert subject")
		}
	}
	return nil
}

// Load reads an act with its subjects and current version.
func (r Repo) Load(ctx context.Context, q Querier, id string) (domain.Act, error) {
	q = r.q(q)
	act, err := scanAct(q.QueryRowContext(ctx, `SELECT `+actColumns+` FROM acts WHERE id=?`, id))
	if err != nil {
		return domain.Act{}, err
	}
	subjects, err := loadSubjects(ctx, q, []string{id})
	if err != nil {
		return domain.Act{}, err
	}
	act.Subjects = subjects[id]
	if act.Subjects == nil {
		act.Subjects = []domain.Subject{}
	}
	return act, nil
}

// Get is Load outside any transaction.
func (r Repo) Get(ctx context.Context, id string) (domain.Act, error) {
	return r.Load(ctx, nil, id)
}

// Commit persists the mutable fields of act if the stored version still equals
// expected. The returned act carries the new version. Number, instrument kind,
// category and supersedes are never rewritten.
func (r Repo) Commit(ctx context.Context, q Querier, act domain.Act, expected int64) (domain.Act, error) {
	var saved domain.Act
	err := r.inTx(ctx, q, func(q Querier) error {
		var err error
		saved, err = r.commit(ctx, q, act, expected)
		return err
	})
	return saved, err
}

func (r Repo) commit(ctx context.Context, q Querier, act domain.Act, expected int64) (domain.Act, error) {
	act = act.Clone()
	act.UpdatedAt = r.now()
	gn, gd := gazetteColumns(act.Gazette)
	rr, ra := revocationColumns(act.Revocation)
	res, err := q.ExecContext(ctx, `UPDATE acts SET status=?,document_date=?,summary_text=?,related_position=?,related_unit=?,gazette_number=?,gazette_date=?,revocation_reason=?,revoked_at=?,notes=?,version=version+1,updated_at=? WHERE id=? AND version=?`,
		act.Status, act.DocumentDate, act.SummaryText, nullableStringPtr(act.RelatedPosition), nullableStringPtr(act.RelatedUnit),
		gn, gd, rr, ra, act.Notes, act.UpdatedAt, act.ID, expected)
	if err != nil {
		return domain.Act{}, mapError(err, "update act")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Act{}, mapError(err, "update act")
	}
	if affected == 0 {
		var stored int64
		err := q.QueryRowContext(ctx, `SELECT version FROM acts WHERE id=?`, act.ID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Act{}, fmt.Errorf("act %s: %w", act.ID, ErrNotFound)
		}
		if err != nil {
			return domain.Act{}, mapError(err, "read act version")
		}
		return domain.Act{}, &domain.ConflictError{ActID: act.ID, Expected: expected, Actual: stored}
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM act_subjects WHERE act_id=?`, act.ID); err != nil {
		return domain.Act{}, mapError(err, "replace subjects")
	}
	if err := insertSubjects(ctx, q, act.ID, act.Subjects); err != nil {
		return domain.Act{}, err
	}
	act.Version = expected + 1
	if act.Subjects == nil {
		act.Subjects = []domain.Subject{}
	}
	return act, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAct(row rowScanner) (domain.Act, error) {
	var (
		a                                      domain.Act
		position, unit, gNumber, gDate, supers sql.NullString
		revReason, revAt                       sql.NullString
	)
	err := row.Scan(&a.ID, &a.Number, &a.Year, &a.InstrumentKind, &a.Category, &a.Status, &a.DocumentDate, &a.SummaryText,
		&position, &unit, &gNumber, &gDate, &supers, &revReason, &revAt, &a.Notes, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, mapError(err, "scan act")
	}
	if position.Valid {
		a.RelatedPosition = &position.String
	}
	if unit.Valid {
		a.RelatedUnit = &unit.String
	}
	if supers.Valid {
		a.Supersedes = &supers.String
	}
	if gNumber.Valid || gDate.Valid {
		a.Gazette = &domain.Gazette{Number: gNumber.String, Date: gDate.String}
	}
	if revReason.Valid {
		a.Revocation = &domain.Revocation{Reason: revReason.String, RevokedAt: revAt.String}
	}
	return a, nil
}

func loadSubjects(ctx context.Context, q Querier, actIDs []string) (map[string][]domain.Subject, error) {
	out := make(map[string][]domain.Subject, len(actIDs))
	if len(actIDs) == 0 {
		return out, nil
	}
	query, args, err := sq.Select("act_id", "subject_id", "full_name", "tax_id", "position_label", "position_code").
		From("act_subjects").
		Where(sq.Eq{"act_id": actIDs}).
		OrderBy("act_id", "ordinal").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "load subjects")
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var s domain.Subject
		if err := rows.Scan(&id, &s.SubjectID, &s.FullName, &s.TaxID, &s.PositionLabel, &s.PositionCode); err != nil {
			return nil, mapError(err, "scan subject")
		}
		out[id] = append(out[id], s)
	}
	return out, rows.Err()
}

func gazetteColumns(g *domain.Gazette) (any, any) {
	if g == nil {
		return nil, nil
	}
	return nullable(g.Number), nullable(g.Date)
}

func revocationColumns(rv *domain.Revocation) (any, any) {
	if rv == nil {
		return nil, nil
	}
	return rv.Reason, nullable(rv.RevokedAt)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// mapError wraps driver errors, turning uniqueness violations into conflicts.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
