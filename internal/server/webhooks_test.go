package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portaria/internal/config"
	"portaria/internal/db"
	"portaria/internal/domain"
	"portaria/internal/engine"
	"portaria/internal/migrate"
)

type delivery struct {
	event     string
	signature string
	body      []byte
}

type receiver struct {
	mu       sync.Mutex
	got      []delivery
	failures int
}

func (rc *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.failures > 0 {
		rc.failures--
		http.Error(w, "try later", http.StatusServiceUnavailable)
		return
	}
	rc.got = append(rc.got, delivery{
		event:     r.Header.Get("X-Portaria-Event"),
		signature: r.Header.Get("X-Portaria-Signature"),
		body:      body,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (rc *receiver) deliveries() []delivery {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]delivery(nil), rc.got...)
}

func newWebhookEngine(t *testing.T) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	return engine.New(conn, config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func createAppointment(t *testing.T, e engine.Engine) domain.Act {
	t.Helper()
	act, err := e.CreateDraft(context.Background(), engine.CreateOptions{
		ActorID: "clerk",
		Act: domain.Act{
			Category:     domain.CategoryAppointment,
			DocumentDate: "2025-03-10",
			SummaryText:  "Appoints Ana Souza as Coordinator.",
			Subjects:     []domain.Subject{{FullName: "Ana Souza", TaxID: "11111111111", PositionLabel: "Coordinator"}},
		},
	})
	require.NoError(t, err)
	return act
}

func TestDispatcherDeliversNewEventsOnly(t *testing.T) {
	ctx := context.Background()
	e := newWebhookEngine(t)
	all, filtered := &receiver{}, &receiver{}
	allSrv, filteredSrv := httptest.NewServer(all), httptest.NewServer(filtered)
	defer allSrv.Close()
	defer filteredSrv.Close()

	before := createAppointment(t, e)

	d := NewDispatcher(e, []config.WebhookConfig{
		{URL: allSrv.URL},
		{URL: filteredSrv.URL, Events: []string{"act.transitioned"}, Secret: "s3cret"},
	}, nil)
	require.NotNil(t, d)
	d.DispatchAll(ctx)
	assert.Empty(t, all.deliveries())

	_, err := e.Transition(ctx, engine.TransitionOptions{ID: before.ID, To: domain.StatusAwaitingSignature, ActorID: "director"})
	require.NoError(t, err)
	createAppointment(t, e)
	d.DispatchAll(ctx)

	got := all.deliveries()
	require.Len(t, got, 2)
	assert.Equal(t, "act.transitioned", got[0].event)
	assert.Equal(t, "act.created", got[1].event)
	assert.Empty(t, got[0].signature)

	signed := filtered.deliveries()
	require.Len(t, signed, 1)
	assert.Equal(t, "sha256="+Sign("s3cret", signed[0].body), signed[0].signature)
	var evt struct {
		Type     string         `json:"type"`
		EntityID string         `json:"entity_id"`
		ActorID  string         `json:"actor_id"`
		Payload  map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(signed[0].body, &evt))
	assert.Equal(t, before.ID, evt.EntityID)
	assert.Equal(t, "director", evt.ActorID)
	assert.Equal(t, "awaiting_signature", evt.Payload["to"])

	d.DispatchAll(ctx)
	assert.Len(t, all.deliveries(), 2)
}

func TestDispatcherRetriesFailedDelivery(t *testing.T) {
	ctx := context.Background()
	e := newWebhookEngine(t)
	rc := &receiver{failures: 1}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	d := NewDispatcher(e, []config.WebhookConfig{{URL: srv.URL}}, nil)
	d.DispatchAll(ctx)
	createAppointment(t, e)

	d.DispatchAll(ctx)
	assert.Empty(t, rc.deliveries())
	d.DispatchAll(ctx)
	require.Len(t, rc.deliveries(), 1)
}

func TestNewDispatcherSkipsDisabledHooks(t *testing.T) {
	off := false
	d := NewDispatcher(engine.Engine{}, []config.WebhookConfig{{URL: "http://x", Enabled: &off}, {URL: " "}}, nil)
	assert.Nil(t, d)
}

func TestRunStopsWithContext(t *testing.T) {
	e := newWebhookEngine(t)
	d := NewDispatcher(e, []config.WebhookConfig{{URL: "http://127.0.0.1:1"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, d.Run(ctx))
}
