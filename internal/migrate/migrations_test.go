package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portaria/internal/db"
)

func TestLoadOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/010_late.sql":  {Data: []byte("SELECT 1")},
		"sql/002_mid.sql":   {Data: []byte("SELECT 1")},
		"sql/001_first.sql": {Data: []byte("SELECT 1")},
	}
	ms, err := load(fsys, "sql")
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{ms[0].Version, ms[1].Version, ms[2].Version})
}

func TestLoadRejectsBadNames(t *testing.T) {
	_, err := load(fstest.MapFS{"sql/init.sql": {Data: []byte("")}}, "sql")
	assert.Error(t, err)

	_, err = load(fstest.MapFS{
		"sql/001_a.sql": {Data: []byte("")},
		"sql/001_b.sql": {Data: []byte("")},
	}, "sql")
	assert.ErrorContains(t, err, "share version 1")
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	v, err := Migrate(ctx, conn)
	require.NoError(t, err)
	embedded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, embedded[len(embedded)-1].Version, v)

	again, err := Migrate(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, v, again)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM acts`).Scan(&n))
	assert.Zero(t, n)
}
