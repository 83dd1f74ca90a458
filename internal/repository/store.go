package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/wsgraph/engine/internal/models"
)

// Store persists scan runs and the append-only version history.
type Store interface {
	// WithinTx runs fn in one transaction; any error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// LatestSucceededRun returns the most recently started succeeded run, or nil.
	LatestSucceededRun(ctx context.Context, workspaceID string) (*models.ScanRun, error)
	// GetRun returns the run for key, or nil.
	GetRun(ctx context.Context, idempotencyKey string) (*models.ScanRun, error)
	GetHead(ctx context.Context, workspaceID string) (*models.GraphHead, error)
	// GetVersion fails with NOT_FOUND when the version does not exist.
	GetVersion(ctx context.Context, workspaceID string, version int) (*models.GraphVersion, error)
	GetVersionRows(ctx context.Context, versionID uuid.UUID) (*models.GraphRows, error)
	// ListVersions returns committed versions, newest first.
	ListVersions(ctx context.Context, workspaceID string) ([]models.GraphVersion, error)

	Ping(ctx context.Context) error
}

// Tx is the transactional view used by the ingestion coordinator. Getters
// return nil without error when the record is absent. lock requests a row
// lock where the backend supports one.
type Tx interface {
	GetRunByKey(key string, lock bool) (*models.ScanRun, error)
	GetRunByID(id uuid.UUID, lock bool) (*models.ScanRun, error)
	// InsertRun reports false when a run with the same key already exists.
	InsertRun(run *models.ScanRun) (bool, error)
	UpdateRun(run *models.ScanRun) error

	// EnsureHead creates an empty head (version 0) when the workspace has none,
	// so the first commit has a row to lock.
	EnsureHead(workspaceID string) error
	GetHead(workspaceID string, lock bool) (*models.GraphHead, error)
	UpsertHead(head *models.GraphHead) error
	InsertVersion(version *models.GraphVersion, rows models.GraphRows) error
}
