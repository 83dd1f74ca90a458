package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wsgraph/engine/internal/models"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// GormStore implements Store on PostgreSQL or SQLite.
type GormStore struct {
	db *gorm.DB
	// lockRows is set for dialects supporting SELECT ... FOR UPDATE. SQLite
	// serializes writers on its own.
	lockRows bool
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, lockRows: db.Dialector.Name() == "postgres"}
}

// Models lists every table the store owns, in creation order.
func Models() []any {
	return []any{
		&models.ScanRun{},
		&models.GraphVersion{},
		&models.GraphHead{},
		&models.GraphProject{},
		&models.GraphComponent{},
		&models.GraphDependency{},
	}
}

// AutoMigrate creates or updates the schema.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "auto migrate failed")
	}
	return nil
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db, lockRows: s.lockRows})
	})
}

func (s *GormStore) LatestSucceededRun(ctx context.Context, workspaceID string) (*models.ScanRun, error) {
	return newRecords[models.ScanRun](s.db.WithContext(ctx), false).
		first("started_at DESC, created_at DESC", "workspace_id = ? AND status = ?", workspaceID, models.RunSucceeded)
}

func (s *GormStore) GetRun(ctx context.Context, idempotencyKey string) (*models.ScanRun, error) {
	return newRecords[models.ScanRun](s.db.WithContext(ctx), false).find(false, "idempotency_key = ?", idempotencyKey)
}

func (s *GormStore) GetHead(ctx context.Context, workspaceID string) (*models.GraphHead, error) {
	return newRecords[models.GraphHead](s.db.WithContext(ctx), false).find(false, "workspace_id = ?", workspaceID)
}

func (s *GormStore) GetVersion(ctx context.Context, workspaceID string, version int) (*models.GraphVersion, error) {
	v, err := newRecords[models.GraphVersion](s.db.WithContext(ctx), false).
		find(false, "workspace_id = ? AND version = ?", workspaceID, version)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, appErr.New(appErr.CodeNotFound, "graph version not found").
			WithMeta("workspaceId", workspaceID).
			WithMeta("version", version)
	}
	return v, nil
}

func (s *GormStore) GetVersionRows(ctx context.Context, versionID uuid.UUID) (*models.GraphRows, error) {
	db := s.db.WithContext(ctx)
	var rows models.GraphRows
	var err error
	if rows.Projects, err = newRecords[models.GraphProject](db, false).list("name ASC", "version_id = ?", versionID); err != nil {
		return nil, err
	}
	if rows.Components, err = newRecords[models.GraphComponent](db, false).
		list("project ASC, file_path ASC, name ASC", "version_id = ?", versionID); err != nil {
		return nil, err
	}
	if rows.Dependencies, err = newRecords[models.GraphDependency](db, false).
		list("source_project ASC, target_project ASC", "version_id = ?", versionID); err != nil {
		return nil, err
	}
	return &rows, nil
}

func (s *GormStore) ListVersions(ctx context.Context, workspaceID string) ([]models.GraphVersion, error) {
	return newRecords[models.GraphVersion](s.db.WithContext(ctx), false).list("version DESC", "workspace_id = ?", workspaceID)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type gormTx struct {
	db       *gorm.DB
	lockRows bool
}

func (t *gormTx) GetRunByKey(key string, lock bool) (*models.ScanRun, error) {
	return newRecords[models.ScanRun](t.db, t.lockRows).find(lock, "idempotency_key = ?", key)
}

func (t *gormTx) GetRunByID(id uuid.UUID, lock bool) (*models.ScanRun, error) {
	return newRecords[models.ScanRun](t.db, t.lockRows).find(lock, "id = ?", id)
}

func (t *gormTx) InsertRun(run *models.ScanRun) (bool, error) {
	res := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(run)
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "insert scan run failed")
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) UpdateRun(run *models.ScanRun) error {
	return newRecords[models.ScanRun](t.db, t.lockRows).save(run)
}

func (t *gormTx) GetHead(workspaceID string, lock bool) (*models.GraphHead, error) {
	return newRecords[models.GraphHead](t.db, t.lockRows).find(lock, "workspace_id = ?", workspaceID)
}

func (t *gormTx) EnsureHead(workspaceID string) error {
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}},
		DoNothing: true,
	}).Create(&models.GraphHead{WorkspaceID: workspaceID, UpdatedAt: time.Now().UTC()}).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "ensure graph head failed")
	}
	return nil
}

func (t *gormTx) UpsertHead(head *models.GraphHead) error {
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"latest_version", "graph_version_id", "updated_at"}),
	}).Create(head).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "upsert graph head failed")
	}
	return nil
}

func (t *gormTx) InsertVersion(version *models.GraphVersion, rows models.GraphRows) error {
	if err := newRecords[models.GraphVersion](t.db, t.lockRows).create(version); err != nil {
		return err
	}
	if err := newRecords[models.GraphProject](t.db, t.lockRows).createMany(rows.Projects); err != nil {
		return err
	}
	if err := newRecords[models.GraphComponent](t.db, t.lockRows).createMany(rows.Components); err != nil {
		return err
	}
	return newRecords[models.GraphDependency](t.db, t.lockRows).createMany(rows.Dependencies)
}
