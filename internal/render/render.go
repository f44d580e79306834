// Package render produces the plain-text body of a finalized act. It never
// inspects or changes lifecycle state beyond refusing unsigned acts.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"portaria/internal/domain"
)

type Options struct {
	Institute string
	Signatory string
	// KindLabel prints an instrument kind; the raw kind is used when nil.
	KindLabel func(domain.InstrumentKind) string
}

// Render returns the document for act. Only signed-or-later snapshots are
// accepted.
func Render(act domain.Act, opts Options) ([]byte, error) {
	if !act.Status.Finalized() {
		return nil, &domain.OperationError{Op: "render", Status: act.Status, Reason: "act must be signed first"}
	}
	label := string(act.InstrumentKind)
	if opts.KindLabel != nil {
		label = opts.KindLabel(act.InstrumentKind)
	}

	var b bytes.Buffer
	if opts.Institute != "" {
		fmt.Fprintln(&b, strings.ToUpper(opts.Institute))
		fmt.Fprintln(&b)
	}
	fmt.Fprintf(&b, "%s Nº %s, DE %s\n\n", strings.ToUpper(label), act.Number, act.DocumentDate)
	if act.SummaryText != "" {
		fmt.Fprintln(&b, act.SummaryText)
		fmt.Fprintln(&b)
	}
	if len(act.Subjects) > 0 {
		b.WriteString(SubjectsTable(act.Subjects))
		b.WriteString("\n\n")
	}
	if act.RelatedPosition != nil {
		fmt.Fprintf(&b, "Position: %s\n", *act.RelatedPosition)
	}
	if act.RelatedUnit != nil {
		fmt.Fprintf(&b, "Unit: %s\n", *act.RelatedUnit)
	}
	if act.Gazette != nil && act.Gazette.Number != "" {
		fmt.Fprintf(&b, "Published in Gazette no. %s of %s.\n", act.Gazette.Number, act.Gazette.Date)
	}
	if act.Revocation != nil {
		fmt.Fprintf(&b, "REVOKED on %s: %s\n", act.Revocation.RevokedAt, act.Revocation.Reason)
	}
	if opts.Signatory != "" {
		fmt.Fprintf(&b, "\n%s\n", opts.Signatory)
	}
	return b.Bytes(), nil
}

// SubjectsTable prints subjects in stored order with a 1-based row index.
func SubjectsTable(subjects []domain.Subject) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "NAME", "TAX ID", "POSITION", "CODE"})
	for i, s := range subjects {
		tw.AppendRow(table.Row{i + 1, s.FullName, s.TaxID, s.PositionLabel, s.PositionCode})
	}
	return tw.Render()
}
