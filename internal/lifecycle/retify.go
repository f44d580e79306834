package lifecycle

import (
	"fmt"
	"strings"

	"portaria/internal/domain"
)

// RetificationMarker prefixes the notes of every retification instrument.
const RetificationMarker = "[RETIFICATION] original act id: "

type slot struct {
	label string
	value *string
}

func correctionSlots(c domain.Corrections, subjectLabel string) []slot {
	return []slot{
		{"position", c.Position},
		{"unit", c.Unit},
		{subjectLabel, c.SubjectName},
		{"effective date", c.EffectiveDate},
	}
}

// subjectRow resolves which subject of original a name correction targets.
// A single-subject act needs no row; a multi-subject act must name one.
func subjectRow(original domain.Act, c domain.Corrections) (int, error) {
	if c.SubjectName == nil {
		if c.SubjectRow != nil {
			return 0, domain.NewValidationError("corrections.subject_row", "only valid together with subject_name")
		}
		return 0, nil
	}
	n := len(original.Subjects)
	switch {
	case n == 0:
		return 0, domain.NewValidationError("corrections.subject_name", "original act binds no subjects; correct position or unit instead")
	case c.SubjectRow == nil && n > 1:
		return 0, domain.NewValidationError("corrections.subject_row", fmt.Sprintf("required: original act binds %d subjects", n))
	case c.SubjectRow == nil:
		return 1, nil
	case *c.SubjectRow < 1 || *c.SubjectRow > n:
		return 0, domain.NewValidationError("corrections.subject_row", fmt.Sprintf("must be between 1 and %d", n))
	}
	return *c.SubjectRow, nil
}

// Retify builds the draft of a correction instrument citing original.
// documentDate is the issuing date of the new instrument. The returned act
// has no id or number yet and original is never modified.
func (r Rules) Retify(original domain.Act, c domain.Corrections, justification, documentDate string) (domain.Act, error) {
	if !CanRetify(original.Status) {
		return domain.Act{}, &domain.OperationError{Op: "retify", Status: original.Status, Reason: "only published or in-force acts can be retified"}
	}

	row, err := subjectRow(original, c)
	if err != nil {
		return domain.Act{}, err
	}
	subjectLabel := "subject name"
	if len(original.Subjects) > 1 {
		subjectLabel = fmt.Sprintf("subject name (row %d)", row)
	}

	var clauses []string
	for _, s := range correctionSlots(c, subjectLabel) {
		if s.value == nil {
			continue
		}
		v := NormalizeText(*s.value)
		if v == "" {
			return domain.Act{}, domain.NewValidationError("corrections."+slotField(s.label), "must not be blank")
		}
		clauses = append(clauses, fmt.Sprintf("alters %s to %s", s.label, v))
	}
	if len(clauses) == 0 {
		return domain.Act{}, domain.NewValidationError("corrections", "nothing to retify")
	}
	if c.EffectiveDate != nil {
		if _, err := parseDate(*c.EffectiveDate); err != nil {
			return domain.Act{}, domain.NewValidationError("corrections.effective_date", "must be a date (YYYY-MM-DD)")
		}
	}

	src := original.Clone()
	draft := domain.Act{
		InstrumentKind:  src.InstrumentKind,
		Category:        r.RetificationCategory,
		Status:          domain.StatusDraft,
		DocumentDate:    strings.TrimSpace(documentDate),
		SummaryText:     r.citation(src) + strings.Join(clauses, "; ") + ".",
		Subjects:        src.Subjects,
		RelatedPosition: src.RelatedPosition,
		RelatedUnit:     src.RelatedUnit,
		Supersedes:      &src.ID,
		Notes:           RetificationMarker + src.ID,
	}
	if j := strings.TrimSpace(justification); j != "" {
		draft.Notes += "\n" + j
	}
	if c.Position != nil {
		draft.RelatedPosition = normalizeOptional(c.Position)
	}
	if c.Unit != nil {
		draft.RelatedUnit = normalizeOptional(c.Unit)
	}
	if row > 0 {
		draft.Subjects[row-1].FullName = NormalizeText(*c.SubjectName)
	}
	return draft, nil
}

func slotField(label string) string {
	if i := strings.Index(label, " ("); i >= 0 {
		label = label[:i]
	}
	return strings.ReplaceAll(label, " ", "_")
}

func (r Rules) citation(a domain.Act) string {
	s := fmt.Sprintf("Retifies %s %s", r.KindLabel(a.InstrumentKind), a.Number)
	if a.Gazette != nil && a.Gazette.Number != "" {
		s += fmt.Sprintf(", published in Gazette no. %s of %s", a.Gazette.Number, a.Gazette.Date)
	}
	return s + ", as follows: "
}

// OriginalID extracts the cited act id from retification notes.
func OriginalID(notes string) (string, bool) {
	if !strings.HasPrefix(notes, RetificationMarker) {
		return "", false
	}
	rest := strings.TrimPrefix(notes, RetificationMarker)
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}
