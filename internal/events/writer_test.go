package events

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertEvent = `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`

func TestAppendWritesRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	w := Writer{Now: func() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, time.FixedZone("BRT", -3*3600)) }}
	mock.ExpectExec(regexp.QuoteMeta(insertEvent)).
		WithArgs("2025-03-05T13:00:00Z", ActRevoked, EntityAct, "act-1", "system", `{"reason":"error"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = w.Append(context.Background(), db, ActRevoked, EntityAct, "act-1", "", EventPayload{"reason": "error"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendWrapsDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk full")
	mock.ExpectExec(regexp.QuoteMeta(insertEvent)).WillReturnError(boom)

	err = Writer{}.Append(context.Background(), db, ActCreated, EntityAct, "", "u1", nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "append act.created event")
}
