package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"portaria/internal/domain"
)

// DateLayout is the wire and storage format of every calendar date.
const DateLayout = "2006-01-02"

// Rules carries the institution-specific parts of validation.
type Rules struct {
	// InstrumentKinds maps each accepted instrument kind to its printed label.
	InstrumentKinds map[domain.InstrumentKind]string
	// SubjectBound categories must name at least one subject before signature.
	SubjectBound map[domain.Category]bool
	// RetificationCategory is the category given to correction instruments.
	RetificationCategory domain.Category
}

func DefaultRules() Rules {
	return Rules{
		InstrumentKinds: map[domain.InstrumentKind]string{
			domain.InstrumentPortaria: "Portaria",
			"decreto":                 "Decreto",
			"resolucao":               "Resolução",
			"instrucao_normativa":     "Instrução Normativa",
		},
		SubjectBound: map[domain.Category]bool{
			domain.CategoryAppointment:            true,
			domain.CategoryDismissal:              true,
			domain.CategoryDesignation:            true,
			domain.CategoryDismissalOfDesignation: true,
			domain.CategorySubstitution:           true,
			domain.CategoryLeave:                  true,
		},
		RetificationCategory: domain.CategoryNormative,
	}
}

// KindLabel returns the printed name of an instrument kind.
func (r Rules) KindLabel(k domain.InstrumentKind) string {
	if l, ok := r.InstrumentKinds[k]; ok && l != "" {
		return l
	}
	return string(k)
}

// Result is the outcome of a validation pass.
type Result struct {
	Violations []domain.FieldError `json:"violations"`
}

func (r Result) OK() bool { return len(r.Violations) == 0 }

// Err returns nil when there are no violations.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &domain.ValidationError{Errors: r.Violations}
}

func (r *Result) add(field, format string, args ...any) {
	r.Violations = append(r.Violations, domain.FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

// order gives each forward status its position; checks for a target apply
// to every later target as well.
var order = map[domain.Status]int{
	domain.StatusDraft:               0,
	domain.StatusAwaitingSignature:   1,
	domain.StatusSigned:              2,
	domain.StatusAwaitingPublication: 3,
	domain.StatusPublished:           4,
	domain.StatusInForce:             5,
}

func reaches(target, stage domain.Status) bool {
	t, ok := order[target]
	if !ok {
		return false
	}
	return t >= order[stage]
}

// Validate checks act against the requirements for entering target. It never
// mutates act.
func (r Rules) Validate(act domain.Act, target domain.Status) Result {
	var res Result
	if reaches(target, domain.StatusAwaitingSignature) {
		r.checkContext(act, &res)
		if strings.TrimSpace(act.SummaryText) == "" {
			res.add("summary_text", "required before signature")
		}
	}
	if reaches(target, domain.StatusPublished) {
		checkGazette(act.Gazette, &res)
	}
	if reaches(target, domain.StatusInForce) && act.Gazette != nil {
		gd, gerr := parseDate(act.Gazette.Date)
		dd, derr := parseDate(act.DocumentDate)
		if gerr == nil && derr == nil && gd.Before(dd) {
			res.add("gazette.date", "published %s, before document date %s", act.Gazette.Date, act.DocumentDate)
		}
	}
	return res
}

func (r Rules) checkContext(act domain.Act, res *Result) {
	if r.SubjectBound[act.Category] {
		if len(act.Subjects) == 0 {
			res.add("subjects", "category %s requires at least one subject", act.Category)
		}
	} else if len(act.Subjects) == 0 && act.RelatedPosition == nil && act.RelatedUnit == nil {
		res.add("subjects", "one of subjects, related_position or related_unit is required")
	}
	for i, s := range act.Subjects {
		if strings.TrimSpace(s.FullName) == "" {
			res.add(fmt.Sprintf("subjects[%d].full_name", i), "required")
		}
	}
}

func checkGazette(g *domain.Gazette, res *Result) {
	if g == nil {
		res.add("gazette", "required for publication")
		return
	}
	if strings.TrimSpace(g.Number) == "" {
		res.add("gazette.number", "required")
	}
	if _, err := parseDate(g.Date); err != nil {
		res.add("gazette.date", "must be a date (YYYY-MM-DD)")
	}
}

// ValidateDraft checks the fields every act must carry from creation.
func (r Rules) ValidateDraft(act domain.Act) Result {
	var res Result
	if act.InstrumentKind == "" {
		res.add("instrument_kind", "required")
	} else if _, ok := r.InstrumentKinds[act.InstrumentKind]; !ok {
		res.add("instrument_kind", "unknown instrument kind %q", act.InstrumentKind)
	}
	if act.Category == "" {
		res.add("category", "required")
	} else if !act.Category.Valid() {
		res.add("category", "unknown category %q", act.Category)
	}
	if act.DocumentDate == "" {
		res.add("document_date", "required")
	} else if _, err := parseDate(act.DocumentDate); err != nil {
		res.add("document_date", "must be a date (YYYY-MM-DD)")
	}
	if len(act.Subjects) == 0 && act.RelatedPosition == nil && act.RelatedUnit == nil {
		res.add("subjects", "one of subjects, related_position or related_unit is required")
	}
	checkDuplicates(act.Subjects, &res)
	return res
}

// ValidateGazette checks a gazette record on its own.
func ValidateGazette(g domain.Gazette) Result {
	var res Result
	checkGazette(&g, &res)
	return res
}

// ValidateRevocation checks the revocation payload.
func ValidateRevocation(reason string) Result {
	var res Result
	if strings.TrimSpace(reason) == "" {
		res.add("reason", "required")
	}
	return res
}

// checkDuplicates rejects a subject whose servant id or tax id was already
// used by an earlier row; either one identifies the person.
func checkDuplicates(subjects []domain.Subject, res *Result) {
	byID := make(map[string]int, len(subjects))
	byTax := make(map[string]int, len(subjects))
	for i, s := range subjects {
		s = NormalizeSubject(s)
		field := fmt.Sprintf("subjects[%d]", i)
		if s.SubjectID == "" && s.TaxID == "" {
			res.add(field, "subject_id or tax_id is required")
			continue
		}
		if first, ok := byID[s.SubjectID]; ok && s.SubjectID != "" {
			res.add(field, "duplicate of subjects[%d]", first)
			continue
		}
		if first, ok := byTax[s.TaxID]; ok && s.TaxID != "" {
			res.add(field, "duplicate of subjects[%d]", first)
			continue
		}
		if s.SubjectID != "" {
			byID[s.SubjectID] = i
		}
		if s.TaxID != "" {
			byTax[s.TaxID] = i
		}
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// Package-level shorthands over DefaultRules.

func Validate(act domain.Act, target domain.Status) Result {
	return DefaultRules().Validate(act, target)
}

func ValidateDraft(act domain.Act) Result {
	return DefaultRules().ValidateDraft(act)
}
