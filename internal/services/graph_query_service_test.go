package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsgraph/engine/internal/repository"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

func TestGraphQueryLatestRun(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		query, err := NewGraphQueryService(store, 8)
		require.NoError(t, err)

		run, err := query.LatestRun(ctx, "acme")
		require.NoError(t, err)
		assert.Nil(t, run)

		svc := newIngestion(store)
		_, err = svc.Ingest(ctx, newRequest("k1", portalSnapshot()))
		require.NoError(t, err)
		second, err := svc.Ingest(ctx, newRequest("k2", portalSnapshot()))
		require.NoError(t, err)

		run, err = query.LatestRun(ctx, "acme")
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, second.ScanRunID, run.ID.String())
		assert.Equal(t, 2, *run.GraphVersionNumber)
		assert.Equal(t, "main", run.Metadata.Data().Branch)
	})
}

func TestGraphQueryGetVersionRoundTrips(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repository.Store) {
		ctx := context.Background()
		query, err := NewGraphQueryService(store, 8)
		require.NoError(t, err)

		_, err = newIngestion(store).Ingest(ctx, newRequest("k1", portalSnapshot()))
		require.NoError(t, err)

		g, err := query.GetVersion(ctx, "acme", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, g.Version.Version)
		assert.Equal(t, 2, g.Version.ProjectCount)
		assert.Equal(t, 1, g.Version.LibCount)
		assert.Equal(t, portalSnapshot(), g.Snapshot)

		cached, err := query.GetVersion(ctx, "acme", 1)
		require.NoError(t, err)
		assert.Same(t, g, cached)

		_, err = query.GetVersion(ctx, "acme", 2)
		assert.Equal(t, appErr.CodeNotFound, appErr.CodeOf(err))

		versions, err := query.ListVersions(ctx, "acme")
		require.NoError(t, err)
		assert.Len(t, versions, 1)
	})
}

func TestGraphQueryLatestRunChecksLinkage(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	query, err := NewGraphQueryService(store, 0)
	require.NoError(t, err)

	_, err = newIngestion(store).Ingest(ctx, newRequest("k1", portalSnapshot()))
	require.NoError(t, err)

	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		run, err := tx.GetRunByKey("k1", true)
		if err != nil {
			return err
		}
		other := uuid.New()
		run.GraphVersionID = &other
		return tx.UpdateRun(run)
	}))
	_, err = query.LatestRun(ctx, "acme")
	assert.Equal(t, appErr.CodeDataIntegrity, appErr.CodeOf(err))

	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		run, err := tx.GetRunByKey("k1", true)
		if err != nil {
			return err
		}
		missing := 9
		run.GraphVersionNumber = &missing
		return tx.UpdateRun(run)
	}))
	_, err = query.LatestRun(ctx, "acme")
	assert.Equal(t, appErr.CodeDataIntegrity, appErr.CodeOf(err))
}
