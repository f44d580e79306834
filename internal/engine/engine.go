package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"portaria/internal/config"
	"portaria/internal/domain"
	"portaria/internal/events"
	"portaria/internal/lifecycle"
	"portaria/internal/render"
	"portaria/internal/repo"
)

// Engine runs every act operation as load, pure lifecycle step, single commit
// and event append inside one transaction.
type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Rules    lifecycle.Rules
	Config   *config.Config
	Log      *slog.Logger
	Now      func() time.Time
	Location *time.Location
}

func New(db *sql.DB, cfg *config.Config, log *slog.Logger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = l
		} else {
			log.Warn("unknown timezone, using UTC", slog.String("timezone", cfg.Timezone))
		}
	}
	e := Engine{
		DB:       db,
		Events:   events.Writer{},
		Rules:    cfg.LifecycleRules(),
		Config:   cfg,
		Log:      log.With("component", "engine"),
		Now:      time.Now,
		Location: loc,
	}
	e.Repo = repo.Repo{DB: db, NumberFormat: cfg.Numbering.Format}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// store and writer share the engine clock so tests only override Now.
func (e Engine) store() repo.Repo {
	r := e.Repo
	r.Now = e.now
	return r
}

func (e Engine) writer() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func (e Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e Engine) today() string {
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	return e.now().In(loc).Format(lifecycle.DateLayout)
}

// CreateOptions are parameters for creating a single draft act.
type CreateOptions struct {
	Act     domain.Act
	ActorID string
}

// CreateDraft validates the creation fields and stores a new draft with its
// id and number assigned.
func (e Engine) CreateDraft(ctx context.Context, opts CreateOptions) (domain.Act, error) {
	draft, err := e.Rules.PrepareDraft(opts.Act)
	if err != nil {
		return domain.Act{}, err
	}
	if draft.Supersedes != nil {
		return domain.Act{}, domain.NewValidationError("supersedes", "only retification sets supersedes")
	}
	return e.insert(ctx, draft, events.ActCreated, opts.ActorID, events.EventPayload{})
}

func (e Engine) insert(ctx context.Context, draft domain.Act, evtType, actorID string, payload events.EventPayload) (domain.Act, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Act{}, err
	}
	defer tx.Rollback()

	act, err := e.store().Create(ctx, tx, draft)
	if err != nil {
		return domain.Act{}, err
	}
	payload["number"] = act.Number
	payload["instrument_kind"] = act.InstrumentKind
	payload["category"] = act.Category
	payload["subjects"] = len(act.Subjects)
	if err := e.writer().Append(ctx, tx, evtType, events.EntityAct, act.ID, actorID, payload); err != nil {
		return domain.Act{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Act{}, err
	}
	e.log().InfoContext(ctx, "act created",
		slog.String("act_id", act.ID),
		slog.String("number", act.Number),
		slog.String("category", string(act.Category)),
		slog.String("event", evtType))
	return act, nil
}

// GetAct loads an act by id.
func (e Engine) GetAct(ctx context.Context, id string) (domain.Act, error) {
	return e.Repo.Get(ctx, id)
}

func (e Engine) ListActs(ctx context.Context, f repo.ActFilters) ([]domain.Act, error) {
	return e.Repo.ListActs(ctx, f)
}

// Retifications lists the acts that supersede id.
func (e Engine) Retifications(ctx context.Context, id string) ([]domain.Act, error) {
	if _, err := e.Repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return e.Repo.Retifications(ctx, id)
}

func (e Engine) LatestEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}

// mutation is a pure step over the loaded act.
type mutation func(cur domain.Act) (domain.Act, events.EventPayload, error)

// mutate loads id, checks the caller's version token (0 accepts the loaded
// one), applies fn and commits against the loaded version. A rejected step
// leaves the stored act untouched.
func (e Engine) mutate(ctx context.Context, op, id string, expected int64, actorID, evtType string, fn mutation) (domain.Act, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Act{}, err
	}
	defer tx.Rollback()

	cur, err := e.store().Load(ctx, tx, id)
	if err != nil {
		return domain.Act{}, err
	}
	if expected != 0 && expected != cur.Version {
		return domain.Act{}, &domain.ConflictError{ActID: id, Expected: expected, Actual: cur.Version}
	}
	next, payload, err := fn(cur)
	if err != nil {
		e.log().DebugContext(ctx, "act operation rejected",
			slog.String("op", op),
			slog.String("act_id", id),
			slog.String("status", string(cur.Status)),
			slog.String("error", err.Error()))
		return domain.Act{}, err
	}
	saved, err := e.store().Commit(ctx, tx, next, cur.Version)
	if err != nil {
		return domain.Act{}, err
	}
	if payload == nil {
		payload = events.EventPayload{}
	}
	payload["version"] = saved.Version
	if err := e.writer().Append(ctx, tx, evtType, events.EntityAct, id, actorID, payload); err != nil {
		return domain.Act{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Act{}, err
	}
	e.log().InfoContext(ctx, "act "+op,
		slog.String("act_id", saved.ID),
		slog.String("number", saved.Number),
		slog.String("from", string(cur.Status)),
		slog.String("to", string(saved.Status)),
		slog.Int64("version", saved.Version))
	return saved, nil
}

// TransitionOptions request one forward step.
type TransitionOptions struct {
	ID              string
	To              domain.Status
	ExpectedVersion int64
	ActorID         string
}

// Transition moves an act along one declared edge.
func (e Engine) Transition(ctx context.Context, opts TransitionOptions) (domain.Act, error) {
	return e.mutate(ctx, "transitioned", opts.ID, opts.ExpectedVersion, opts.ActorID, events.ActTransitioned,
		func(cur domain.Act) (domain.Act, events.EventPayload, error) {
			next, err := e.Rules.Transition(cur, opts.To)
			if err != nil {
				return domain.Act{}, nil, err
			}
			return next, events.EventPayload{"from": cur.Status, "to": next.Status}, nil
		})
}

// RevokeOptions request revocation of an act.
type RevokeOptions struct {
	ID              string
	Reason          string
	ExpectedVersion int64
	ActorID         string
}

func (e Engine) Revoke(ctx context.Context, opts RevokeOptions) (domain.Act, error) {
	return e.mutate(ctx, "revoked", opts.ID, opts.ExpectedVersion, opts.ActorID, events.ActRevoked,
		func(cur domain.Act) (domain.Act, events.EventPayload, error) {
			next, err := lifecycle.Revoke(cur, opts.Reason, e.now())
			if err != nil {
				return domain.Act{}, nil, err
			}
			if cur.Status == domain.StatusAwaitingSignature {
				e.log().WarnContext(ctx, "revoking an act that was never signed",
					slog.String("act_id", cur.ID),
					slog.String("number", cur.Number))
			}
			return next, events.EventPayload{"from": cur.Status, "reason": next.Revocation.Reason}, nil
		})
}

// GazetteOptions record the official publication reference.
type GazetteOptions struct {
	ID              string
	Gazette         domain.Gazette
	ExpectedVersion int64
	ActorID         string
}

func (e Engine) SetGazette(ctx context.Context, opts GazetteOptions) (domain.Act, error) {
	return e.mutate(ctx, "gazette recorded", opts.ID, opts.ExpectedVersion, opts.ActorID, events.ActGazetteRecorded,
		func(cur domain.Act) (domain.Act, events.EventPayload, error) {
			next, err := lifecycle.SetGazette(cur, opts.Gazette)
			if err != nil {
				return domain.Act{}, nil, err
			}
			return next, events.EventPayload{"gazette_number": next.Gazette.Number, "gazette_date": next.Gazette.Date}, nil
		})
}

// UpdateDraftOptions edit a draft. The version token is mandatory here.
type UpdateDraftOptions struct {
	ID              string
	Patch           lifecycle.DraftPatch
	ExpectedVersion int64
	ActorID         string
}

func (e Engine) UpdateDraft(ctx context.Context, opts UpdateDraftOptions) (domain.Act, error) {
	if opts.ExpectedVersion <= 0 {
		return domain.Act{}, domain.NewValidationError("version", "required when editing a draft")
	}
	return e.mutate(ctx, "updated", opts.ID, opts.ExpectedVersion, opts.ActorID, events.ActUpdated,
		func(cur domain.Act) (domain.Act, events.EventPayload, error) {
			next, err := e.Rules.UpdateDraft(cur, opts.Patch)
			if err != nil {
				return domain.Act{}, nil, err
			}
			return next, events.EventPayload{"fields": patchedFields(opts.Patch)}, nil
		})
}

func patchedFields(p lifecycle.DraftPatch) []string {
	var out []string
	if p.SummaryText != nil {
		out = append(out, "summary_text")
	}
	if p.Subjects != nil {
		out = append(out, "subjects")
	}
	if p.RelatedPosition != nil {
		out = append(out, "related_position")
	}
	if p.RelatedUnit != nil {
		out = append(out, "related_unit")
	}
	if p.Notes != nil {
		out = append(out, "notes")
	}
	if p.DocumentDate != nil {
		out = append(out, "document_date")
	}
	return out
}

// RetifyOptions describe a correction of a published act.
type RetifyOptions struct {
	OriginalID    string
	Corrections   domain.Corrections
	Justification string
	// DocumentDate of the new instrument; today when empty.
	DocumentDate string
	ActorID      string
}

// Retify creates a new draft superseding the original. The original is read
// without locking and never written; its citation is a snapshot.
func (e Engine) Retify(ctx context.Context, opts RetifyOptions) (domain.Act, error) {
	original, err := e.Repo.Get(ctx, opts.OriginalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Act{}, fmt.Errorf("original act %s: %w", opts.OriginalID, err)
		}
		return domain.Act{}, err
	}
	date := opts.DocumentDate
	if date == "" {
		date = e.today()
	}
	draft, err := e.Rules.Retify(original, opts.Corrections, opts.Justification, date)
	if err != nil {
		e.log().DebugContext(ctx, "retification rejected",
			slog.String("original_id", original.ID),
			slog.String("status", string(original.Status)),
			slog.String("error", err.Error()))
		return domain.Act{}, err
	}
	if err := e.Rules.ValidateDraft(draft).Err(); err != nil {
		return domain.Act{}, err
	}
	return e.insert(ctx, draft, events.ActRetified, opts.ActorID, events.EventPayload{
		"supersedes":        original.ID,
		"supersedes_number": original.Number,
	})
}

// CollectiveOptions describe one instrument binding many subjects.
type CollectiveOptions struct {
	Request lifecycle.CollectiveRequest
	ActorID string
}

func (e Engine) ComposeCollective(ctx context.Context, opts CollectiveOptions) (domain.Act, error) {
	draft, err := e.Rules.ComposeCollective(opts.Request)
	if err != nil {
		return domain.Act{}, err
	}
	return e.insert(ctx, draft, events.ActCollectiveCompose, opts.ActorID, events.EventPayload{})
}

// Check is a dry run of the validation for entering target.
func (e Engine) Check(ctx context.Context, id string, target domain.Status) (lifecycle.Result, error) {
	act, err := e.Repo.Get(ctx, id)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if !target.Valid() {
		return lifecycle.Result{}, domain.NewValidationError("target", fmt.Sprintf("unknown status %q", target))
	}
	if target == domain.StatusRevoked {
		if !lifecycle.CanRevoke(act.Status) {
			return lifecycle.Result{}, &domain.OperationError{Op: "revoke", Status: act.Status}
		}
		return lifecycle.Result{}, nil
	}
	if !lifecycle.CanTransition(act.Status, target) {
		return lifecycle.Result{}, &domain.TransitionError{From: act.Status, To: target}
	}
	return e.Rules.Validate(act, target), nil
}

// Allowed returns the act with the edges leaving its current status.
func (e Engine) Allowed(ctx context.Context, id string) (domain.Act, []lifecycle.Edge, error) {
	act, err := e.Repo.Get(ctx, id)
	if err != nil {
		return domain.Act{}, nil, err
	}
	return act, lifecycle.Allowed(act.Status), nil
}

// Document renders the act with the institute settings.
func (e Engine) Document(ctx context.Context, id string) ([]byte, error) {
	act, err := e.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return render.Render(act, e.RenderOptions())
}

func (e Engine) RenderOptions() render.Options {
	opts := render.Options{KindLabel: e.Rules.KindLabel}
	if e.Config != nil {
		opts.Institute = e.Config.Institute.Name
		opts.Signatory = e.Config.Institute.Signatory
	}
	return opts
}
