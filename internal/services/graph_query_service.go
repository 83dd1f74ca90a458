package services

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/models"
	"github.com/wsgraph/engine/internal/repository"
	"github.com/wsgraph/engine/internal/snapshot"
	appErr "github.com/wsgraph/engine/pkg/errors"
	"github.com/wsgraph/engine/pkg/logger"
)

// GraphQueryService reads committed graphs.
type GraphQueryService interface {
	// LatestRun returns the newest succeeded run for a workspace, or nil.
	LatestRun(ctx context.Context, workspaceID string) (*models.ScanRun, error)
	ListVersions(ctx context.Context, workspaceID string) ([]models.GraphVersion, error)
	GetVersion(ctx context.Context, workspaceID string, version int) (*VersionGraph, error)
}

// VersionGraph is a committed version with its reconstructed snapshot.
type VersionGraph struct {
	Version  models.GraphVersion `json:"version"`
	Snapshot *snapshot.Snapshot  `json:"snapshot"`
}

type graphQueryService struct {
	store repository.Store
	// Versions never change once written, so entries are never invalidated.
	cache *lru.Cache[string, *VersionGraph]
}

// NewGraphQueryService creates a query service caching up to cacheSize versions.
func NewGraphQueryService(store repository.Store, cacheSize int) (GraphQueryService, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *VersionGraph](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create version cache: %w", err)
	}
	return &graphQueryService{store: store, cache: cache}, nil
}

func (s *graphQueryService) LatestRun(ctx context.Context, workspaceID string) (*models.ScanRun, error) {
	run, err := s.store.LatestSucceededRun(ctx, workspaceID)
	if err != nil || run == nil {
		return nil, err
	}
	if err := checkLinkage(run); err != nil {
		return nil, err
	}
	v, err := s.store.GetVersion(ctx, workspaceID, *run.GraphVersionNumber)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeDataIntegrity, "succeeded scan run points at a missing graph version").
				WithMeta("scanRunId", run.ID.String())
		}
		return nil, err
	}
	if v.ID != *run.GraphVersionID {
		return nil, appErr.New(appErr.CodeDataIntegrity, "scan run version linkage is inconsistent").
			WithMeta("scanRunId", run.ID.String()).
			WithMeta("graphVersionNumber", *run.GraphVersionNumber)
	}
	return run, nil
}

func (s *graphQueryService) ListVersions(ctx context.Context, workspaceID string) ([]models.GraphVersion, error) {
	return s.store.ListVersions(ctx, workspaceID)
}

func (s *graphQueryService) GetVersion(ctx context.Context, workspaceID string, version int) (*VersionGraph, error) {
	key := fmt.Sprintf("%s@%d", workspaceID, version)
	if g, ok := s.cache.Get(key); ok {
		return g, nil
	}

	v, err := s.store.GetVersion(ctx, workspaceID, version)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.GetVersionRows(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	g := &VersionGraph{Version: *v, Snapshot: rows.Snapshot(*v)}
	s.cache.Add(key, g)
	logger.L().Debug("graph version loaded",
		zap.String("workspace_id", workspaceID),
		zap.Int("version", version),
		zap.Int("projects", len(g.Snapshot.Projects)))
	return g, nil
}
