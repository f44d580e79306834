package lifecycle

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"portaria/internal/domain"
)

// NormalizeText trims, collapses inner whitespace and folds to NFC so that
// names typed with combining accents compare equal to precomposed ones.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// NormalizeTaxID keeps only letters and digits: "123.456.789-09" and
// "12345678909" identify the same person.
func NormalizeTaxID(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// NormalizeSubject returns a copy of s with every field normalized.
func NormalizeSubject(s domain.Subject) domain.Subject {
	return domain.Subject{
		SubjectID:     strings.TrimSpace(s.SubjectID),
		FullName:      NormalizeText(s.FullName),
		TaxID:         NormalizeTaxID(s.TaxID),
		PositionLabel: NormalizeText(s.PositionLabel),
		PositionCode:  strings.TrimSpace(s.PositionCode),
	}
}

// NormalizeSubjects normalizes a subject list in place order.
func NormalizeSubjects(in []domain.Subject) []domain.Subject {
	if in == nil {
		return nil
	}
	out := make([]domain.Subject, len(in))
	for i, s := range in {
		out[i] = NormalizeSubject(s)
	}
	return out
}

func normalizeOptional(p *string) *string {
	if p == nil {
		return nil
	}
	v := NormalizeText(*p)
	if v == "" {
		return nil
	}
	return &v
}
