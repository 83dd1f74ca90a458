package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsgraph/engine/internal/repository"
	"github.com/wsgraph/engine/pkg/database"
)

func TestRunMigrationsIsRepeatable(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, database.Options{DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, runMigrations(ctx, db))
	require.NoError(t, runMigrations(ctx, db))

	for _, m := range repository.Models() {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex("scan_runs", "idx_scan_runs_latest"))
	assert.True(t, db.Migrator().HasIndex("graph_dependencies", "idx_graph_dependencies_edge"))
}
