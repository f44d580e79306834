package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portaria/internal/domain"
)

func TestParseSubject(t *testing.T) {
	s, err := parseSubject("Ana Souza | 111.111.111-11 | Coordinator")
	require.NoError(t, err)
	assert.Equal(t, domain.Subject{FullName: "Ana Souza", TaxID: "111.111.111-11", PositionLabel: "Coordinator"}, s)

	_, err = parseSubject(" |123")
	assert.ErrorContains(t, err, "name required")
	_, err = parseSubject("a|b|c|d|e")
	assert.Error(t, err)
}

func TestReadActFileKeepsSubjectOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collective.yml")
	require.NoError(t, os.WriteFile(path, []byte(`category: designation
document_date: "2025-06-01"
summary_text: Designates the servants listed below.
related_unit: Campus Norte
subjects:
  - full_name: Carla Dias
    tax_id: "33333333333"
  - full_name: Ana Souza
    tax_id: "11111111111"
    position_code: FG-1
`), 0o644))

	f, err := readActFile(path)
	require.NoError(t, err)
	req := f.collective()
	assert.Equal(t, domain.CategoryDesignation, req.Category)
	require.Len(t, req.Subjects, 2)
	assert.Equal(t, "Carla Dias", req.Subjects[0].FullName)
	assert.Equal(t, "FG-1", req.Subjects[1].PositionCode)
	require.NotNil(t, req.RelatedUnit)

	act := f.act()
	assert.Equal(t, domain.InstrumentPortaria, act.InstrumentKind)
	assert.Equal(t, "2025-06-01", act.DocumentDate)
}

func TestReadActFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "act.yml")
	require.NoError(t, os.WriteFile(path, []byte("category: leave\nsubjcts: []\n"), 0o644))
	_, err := readActFile(path)
	assert.ErrorContains(t, err, "parse")
}
