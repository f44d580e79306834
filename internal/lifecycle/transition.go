package lifecycle

import (
	"strings"
	"time"

	"portaria/internal/domain"
)

// Transition moves act one declared forward edge to target and returns the
// mutated copy. The input act is left untouched.
func (r Rules) Transition(act domain.Act, target domain.Status) (domain.Act, error) {
	if !CanTransition(act.Status, target) {
		return domain.Act{}, &domain.TransitionError{From: act.Status, To: target}
	}
	if err := r.Validate(act, target).Err(); err != nil {
		return domain.Act{}, err
	}
	next := act.Clone()
	next.Status = target
	if target == domain.StatusPublished {
		// Gazette is sealed from here on; trim what was recorded.
		next.Gazette = &domain.Gazette{
			Number: strings.TrimSpace(act.Gazette.Number),
			Date:   strings.TrimSpace(act.Gazette.Date),
		}
	}
	return next, nil
}

// Revoke flips act to revoked. The status guard runs before the reason check
// so revoking a revoked act always reports an invalid operation.
func Revoke(act domain.Act, reason string, now time.Time) (domain.Act, error) {
	if !CanRevoke(act.Status) {
		return domain.Act{}, &domain.OperationError{Op: "revoke", Status: act.Status}
	}
	if err := ValidateRevocation(reason).Err(); err != nil {
		return domain.Act{}, err
	}
	next := act.Clone()
	next.Status = domain.StatusRevoked
	next.Revocation = &domain.Revocation{
		Reason:    strings.TrimSpace(reason),
		RevokedAt: now.UTC().Format(time.RFC3339),
	}
	return next, nil
}

// SetGazette records the publication reference on an act that is past draft
// and not yet published.
func SetGazette(act domain.Act, g domain.Gazette) (domain.Act, error) {
	switch act.Status {
	case domain.StatusDraft:
		return domain.Act{}, &domain.OperationError{Op: "record gazette for", Status: act.Status, Reason: "act is still a draft"}
	case domain.StatusPublished, domain.StatusInForce:
		return domain.Act{}, &domain.OperationError{Op: "record gazette for", Status: act.Status, Reason: "gazette is sealed once published"}
	case domain.StatusRevoked:
		return domain.Act{}, &domain.OperationError{Op: "record gazette for", Status: act.Status}
	}
	if err := ValidateGazette(g).Err(); err != nil {
		return domain.Act{}, err
	}
	next := act.Clone()
	next.Gazette = &domain.Gazette{Number: strings.TrimSpace(g.Number), Date: strings.TrimSpace(g.Date)}
	return next, nil
}

// DraftPatch holds the editable fields of a draft. Nil leaves a field as is.
type DraftPatch struct {
	SummaryText     *string
	Subjects        *[]domain.Subject
	RelatedPosition *string
	RelatedUnit     *string
	Notes           *string
	DocumentDate    *string
}

// UpdateDraft applies p to a draft act. Acts past draft are corrected by
// retification, never edited.
func (r Rules) UpdateDraft(act domain.Act, p DraftPatch) (domain.Act, error) {
	if act.Status != domain.StatusDraft {
		return domain.Act{}, &domain.OperationError{Op: "edit", Status: act.Status, Reason: "only drafts are editable"}
	}
	next := act.Clone()
	if p.SummaryText != nil {
		next.SummaryText = strings.TrimSpace(*p.SummaryText)
	}
	if p.Subjects != nil {
		next.Subjects = NormalizeSubjects(*p.Subjects)
	}
	if p.RelatedPosition != nil {
		next.RelatedPosition = normalizeOptional(p.RelatedPosition)
	}
	if p.RelatedUnit != nil {
		next.RelatedUnit = normalizeOptional(p.RelatedUnit)
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.DocumentDate != nil {
		next.DocumentDate = strings.TrimSpace(*p.DocumentDate)
	}
	if err := r.ValidateDraft(next).Err(); err != nil {
		return domain.Act{}, err
	}
	return next, nil
}

// PrepareDraft normalizes a caller-supplied act and checks the creation
// requirements. Status is forced to draft.
func (r Rules) PrepareDraft(act domain.Act) (domain.Act, error) {
	next := act.Clone()
	next.Status = domain.StatusDraft
	next.InstrumentKind = domain.InstrumentKind(strings.TrimSpace(string(act.InstrumentKind)))
	if next.InstrumentKind == "" {
		next.InstrumentKind = domain.InstrumentPortaria
	}
	next.Category = domain.Category(strings.TrimSpace(string(act.Category)))
	next.DocumentDate = strings.TrimSpace(act.DocumentDate)
	next.SummaryText = strings.TrimSpace(act.SummaryText)
	next.Subjects = NormalizeSubjects(act.Subjects)
	next.RelatedPosition = normalizeOptional(act.RelatedPosition)
	next.RelatedUnit = normalizeOptional(act.RelatedUnit)
	next.Gazette = nil
	next.Revocation = nil
	if err := r.ValidateDraft(next).Err(); err != nil {
		return domain.Act{}, err
	}
	return next, nil
}

func Transition(act domain.Act, target domain.Status) (domain.Act, error) {
	return DefaultRules().Transition(act, target)
}
