package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"portaria/internal/domain"
	"portaria/internal/lifecycle"
)

type subjectFile struct {
	SubjectID     string `yaml:"subject_id"`
	FullName      string `yaml:"full_name"`
	TaxID         string `yaml:"tax_id"`
	PositionLabel string `yaml:"position_label"`
	PositionCode  string `yaml:"position_code"`
}

// actFile is the YAML shape accepted by 'act create -f' and 'act collective -f'.
type actFile struct {
	InstrumentKind  string        `yaml:"instrument_kind"`
	Category        string        `yaml:"category"`
	DocumentDate    string        `yaml:"document_date"`
	SummaryText     string        `yaml:"summary_text"`
	Subjects        []subjectFile `yaml:"subjects"`
	RelatedPosition *string       `yaml:"related_position"`
	RelatedUnit     *string       `yaml:"related_unit"`
	Notes           string        `yaml:"notes"`
}

func readActFile(path string) (actFile, error) {
	var f actFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

func (f actFile) subjects() []domain.Subject {
	out := make([]domain.Subject, 0, len(f.Subjects))
	for _, s := range f.Subjects {
		out = append(out, domain.Subject{
			SubjectID:     s.SubjectID,
			FullName:      s.FullName,
			TaxID:         s.TaxID,
			PositionLabel: s.PositionLabel,
			PositionCode:  s.PositionCode,
		})
	}
	return out
}

func (f actFile) act() domain.Act {
	kind := domain.InstrumentKind(f.InstrumentKind)
	if kind == "" {
		kind = domain.InstrumentPortaria
	}
	return domain.Act{
		InstrumentKind:  kind,
		Category:        domain.Category(f.Category),
		DocumentDate:    f.DocumentDate,
		SummaryText:     f.SummaryText,
		Subjects:        f.subjects(),
		RelatedPosition: f.RelatedPosition,
		RelatedUnit:     f.RelatedUnit,
		Notes:           f.Notes,
	}
}

func (f actFile) collective() lifecycle.CollectiveRequest {
	return lifecycle.CollectiveRequest{
		InstrumentKind: domain.InstrumentKind(f.InstrumentKind),
		Category:       domain.Category(f.Category),
		DocumentDate:   f.DocumentDate,
		SummaryText:    f.SummaryText,
		Subjects:       f.subjects(),
		RelatedUnit:    f.RelatedUnit,
		Notes:          f.Notes,
	}
}

// parseSubject reads "Full Name|tax id|position label|position code"; only
// the name is mandatory.
func parseSubject(s string) (domain.Subject, error) {
	parts := strings.Split(s, "|")
	if len(parts) > 4 {
		return domain.Subject{}, fmt.Errorf("subject %q: expected at most 4 fields separated by |", s)
	}
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	sub := domain.Subject{
		FullName:      strings.TrimSpace(parts[0]),
		TaxID:         strings.TrimSpace(parts[1]),
		PositionLabel: strings.TrimSpace(parts[2]),
		PositionCode:  strings.TrimSpace(parts[3]),
	}
	if sub.FullName == "" {
		return domain.Subject{}, fmt.Errorf("subject %q: name required", s)
	}
	return sub, nil
}

func parseSubjects(in []string) ([]domain.Subject, error) {
	out := make([]domain.Subject, 0, len(in))
	for _, s := range in {
		sub, err := parseSubject(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
