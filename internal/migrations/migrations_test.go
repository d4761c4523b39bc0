package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/playperu/shapedrop/internal/database"
	"github.com/playperu/shapedrop/internal/migrations"
)

func TestMigrationsCreateKVTable(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, migrations.Run(db))

	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", "kv",
	).Scan(&name)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES ('a', '1')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES ('a', '2')`)
	require.Error(t, err, "key must be unique")
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, migrations.Run(db), "first run")
	require.NoError(t, migrations.Run(db), "second run should be a no-op")
}
