package lifecycle

import (
	"strings"

	"portaria/internal/domain"
)

// CollectiveRequest describes one instrument binding many subjects.
type CollectiveRequest struct {
	InstrumentKind domain.InstrumentKind
	Category       domain.Category
	DocumentDate   string
	SummaryText    string
	Subjects       []domain.Subject
	RelatedUnit    *string
	Notes          string
}

// ComposeCollective builds a draft whose subjects keep the caller's order.
// Row numbers are derived from position when rendering and are not stored.
func (r Rules) ComposeCollective(req CollectiveRequest) (domain.Act, error) {
	if len(req.Subjects) == 0 {
		return domain.Act{}, domain.NewValidationError("subjects", "a collective act needs at least one subject")
	}
	kind := req.InstrumentKind
	if kind == "" {
		kind = domain.InstrumentPortaria
	}
	act := domain.Act{
		InstrumentKind: kind,
		Category:       req.Category,
		Status:         domain.StatusDraft,
		DocumentDate:   strings.TrimSpace(req.DocumentDate),
		SummaryText:    strings.TrimSpace(req.SummaryText),
		Subjects:       NormalizeSubjects(req.Subjects),
		RelatedUnit:    normalizeOptional(req.RelatedUnit),
		Notes:          req.Notes,
	}
	if err := r.ValidateDraft(act).Err(); err != nil {
		return domain.Act{}, err
	}
	return act, nil
}
