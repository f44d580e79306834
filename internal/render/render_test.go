package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portaria/internal/domain"
)

func collective(status domain.Status) domain.Act {
	return domain.Act{
		Number:         "021/2025",
		InstrumentKind: domain.InstrumentPortaria,
		Category:       domain.CategoryAppointment,
		Status:         status,
		DocumentDate:   "2025-06-01",
		SummaryText:    "Appoints the servants listed below.",
		Subjects: []domain.Subject{
			{FullName: "Carla Dias", TaxID: "33333333333", PositionLabel: "Advisor", PositionCode: "FG-1"},
			{FullName: "Ana Souza", TaxID: "11111111111", PositionLabel: "Coordinator", PositionCode: "CD-3"},
		},
		Gazette: &domain.Gazette{Number: "4600", Date: "2025-06-03"},
	}
}

func TestRenderRefusesUnsignedActs(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusDraft, domain.StatusAwaitingSignature} {
		_, err := Render(collective(s), Options{})
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	}
}

func TestRenderNumbersRowsInOrder(t *testing.T) {
	out, err := Render(collective(domain.StatusPublished), Options{
		Institute: "Instituto",
		Signatory: "Diretor-Geral",
		KindLabel: func(domain.InstrumentKind) string { return "Portaria" },
	})
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, "INSTITUTO\n"))
	assert.Contains(t, doc, "PORTARIA Nº 021/2025, DE 2025-06-01")
	assert.Contains(t, doc, "Published in Gazette no. 4600 of 2025-06-03.")
	carla := strings.Index(doc, "Carla Dias")
	ana := strings.Index(doc, "Ana Souza")
	require.Positive(t, carla)
	assert.Less(t, carla, ana)
	assert.Regexp(t, `\|\s+1\s+\|\s+Carla Dias`, doc)
	assert.Regexp(t, `\|\s+2\s+\|\s+Ana Souza`, doc)
	assert.True(t, strings.HasSuffix(doc, "Diretor-Geral\n"))
}

func TestRenderRevokedShowsRevocation(t *testing.T) {
	act := collective(domain.StatusRevoked)
	act.Revocation = &domain.Revocation{Reason: "issued in error", RevokedAt: "2025-07-01T10:00:00Z"}
	out, err := Render(act, Options{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "REVOKED on 2025-07-01T10:00:00Z: issued in error")
	assert.True(t, strings.HasPrefix(string(out), "PORTARIA Nº"))
}
