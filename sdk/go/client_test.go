package portariasdk_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portaria/internal/config"
	"portaria/internal/db"
	"portaria/internal/engine"
	"portaria/internal/migrate"
	"portaria/internal/server"
	portariasdk "portaria/sdk/go"
)

func newClient(t *testing.T) *portariasdk.Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler, err := server.New(server.Config{
		Engine: engine.New(conn, config.Default(), quiet),
		Auth:   server.AuthConfig{AllowLegacyActorHeader: true, Logger: quiet},
		Logger: quiet,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := portariasdk.New(ts.URL)
	c.ActorID = "sdk"
	return c
}

func TestClientDrivesPublication(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	act, err := c.CreateAct(ctx, portariasdk.NewAct{
		Category:     "leave",
		DocumentDate: "2025-05-02",
		SummaryText:  "Grants leave.",
		Subjects:     []portariasdk.Subject{{FullName: "Bruno Lima", TaxID: "22222222222"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", act.Status)

	for _, to := range []string{"awaiting_signature", "signed", "awaiting_publication"} {
		act, err = c.Transition(ctx, act.ID, to, act.Version)
		require.NoError(t, err)
	}
	_, err = c.Transition(ctx, act.ID, "published", act.Version)
	assert.True(t, portariasdk.IsCode(err, "validation_failed"), "got %v", err)

	act, err = c.SetGazette(ctx, act.ID, portariasdk.Gazette{Number: "77", Date: "2025-05-05"}, act.Version)
	require.NoError(t, err)
	act, err = c.Transition(ctx, act.ID, "published", 0)
	require.NoError(t, err)

	pos := "Analyst"
	retif, err := c.Retify(ctx, act.ID, portariasdk.Corrections{Position: &pos}, "typo", "")
	require.NoError(t, err)
	require.NotNil(t, retif.Supersedes)
	assert.Equal(t, act.ID, *retif.Supersedes)

	list, err := c.Retifications(ctx, act.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	doc, err := c.Document(ctx, act.ID)
	require.NoError(t, err)
	assert.Contains(t, doc, "Published in Gazette no. 77 of 2025-05-05.")

	_, err = c.Document(ctx, retif.ID)
	assert.True(t, portariasdk.IsCode(err, "invalid_operation"), "got %v", err)

	page, err := c.EventsPage(ctx, act.ID, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, "sdk", page.Items[0].ActorID)
}

func TestClientListsWithFilters(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	unit := "Library"
	for _, cat := range []string{"placement", "placement", "other"} {
		_, err := c.CreateAct(ctx, portariasdk.NewAct{Category: cat, DocumentDate: "2024-11-20", RelatedUnit: &unit})
		require.NoError(t, err)
	}
	page, err := c.ListActs(ctx, portariasdk.ListOptions{Category: "placement", Year: 2024})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Empty(t, page.NextCursor)

	_, err = c.GetAct(ctx, "nope")
	assert.True(t, portariasdk.IsCode(err, "not_found"))
}
