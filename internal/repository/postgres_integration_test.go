//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/wsgraph/engine/pkg/database"
)

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

func init() {
	storeOpeners = append(storeOpeners, storeOpener{"postgres", openPostgres})
}

// postgresDSN starts one container for the whole package run. The reaper
// removes it when the test binary exits.
func postgresDSN(t *testing.T) string {
	t.Helper()
	pgOnce.Do(func() {
		ctx := context.Background()
		ctr, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("wsgraph"),
			postgres.WithUsername("wsgraph"),
			postgres.WithPassword("wsgraph"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			pgErr = err
			return
		}
		pgDSN, pgErr = ctr.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, pgErr)
	return pgDSN
}

func openPostgres(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, database.Options{Driver: database.DriverPostgres, DSN: postgresDSN(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, db.Migrator().DropTable(Models()...))
	store := NewGormStore(db)
	require.NoError(t, store.AutoMigrate(ctx))
	return store
}
