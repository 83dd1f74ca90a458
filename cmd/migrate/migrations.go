package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wsgraph/engine/internal/repository"
)

// runMigrations creates the store's tables, then applies what AutoMigrate can't express.
func runMigrations(ctx context.Context, db *gorm.DB) error {
	if err := repository.NewGormStore(db).AutoMigrate(ctx); err != nil {
		return err
	}
	return runCustomMigrations(db.WithContext(ctx))
}

func runCustomMigrations(db *gorm.DB) error {
	migrations := []struct {
		name string
		run  func(*gorm.DB) error
	}{
		{"latest_run_index", addLatestRunIndex},
		{"graph_dependency_edge_index", addDependencyEdgeIndex},
	}

	for _, m := range migrations {
		if err := m.run(db); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	return nil
}

// addLatestRunIndex serves the latest succeeded run lookup per workspace.
func addLatestRunIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_scan_runs_latest
		ON scan_runs(workspace_id, status, started_at DESC)
	`).Error
}

// addDependencyEdgeIndex keeps one row per edge within a version.
func addDependencyEdgeIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_graph_dependencies_edge
		ON graph_dependencies(version_id, source_project, target_project)
	`).Error
}
