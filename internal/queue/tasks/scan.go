package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/client"
	"github.com/wsgraph/engine/internal/ingest"
	"github.com/wsgraph/engine/internal/models"
	"github.com/wsgraph/engine/internal/scanner"
	"github.com/wsgraph/engine/internal/snapshot"
	appErr "github.com/wsgraph/engine/pkg/errors"
	"github.com/wsgraph/engine/pkg/logger"
)

// TypeWorkspaceScan scans a workspace and submits its snapshot.
const TypeWorkspaceScan = "workspace:scan"

// ScanPayload is the task payload for workspace scans.
type ScanPayload struct {
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceRoot string `json:"workspace_root"`
}

// NewWorkspaceScanTask builds a scan task. Retries are bounded and a scan of
// the same workspace is not enqueued twice while one is pending.
func NewWorkspaceScanTask(p ScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWorkspaceScan, data,
		asynq.MaxRetry(5),
		asynq.Timeout(15*time.Minute),
		asynq.Unique(time.Hour),
	), nil
}

// Snapshotter produces the snapshot of a workspace root.
type Snapshotter interface {
	Scan(ctx context.Context, root string) (*snapshot.Snapshot, error)
}

// Submitter delivers an ingestion request.
type Submitter interface {
	Submit(ctx context.Context, req *ingest.Request) (*ingest.Result, error)
}

// ScanTaskHandler handles scheduled workspace scans.
type ScanTaskHandler struct {
	scanner   Snapshotter
	submitter Submitter
}

func NewScanTaskHandler(s Snapshotter, sub Submitter) *ScanTaskHandler {
	return &ScanTaskHandler{scanner: s, submitter: sub}
}

func (h *ScanTaskHandler) HandleWorkspaceScan(ctx context.Context, t *asynq.Task) error {
	var p ScanPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid scan task payload", zap.Error(err))
		return fmt.Errorf("decode scan payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.WorkspaceID == "" || p.WorkspaceRoot == "" {
		return fmt.Errorf("scan payload needs workspace_id and workspace_root: %w", asynq.SkipRetry)
	}

	logger.L().Info("handling workspace scan",
		zap.String("workspace_id", p.WorkspaceID),
		zap.String("workspace_root", p.WorkspaceRoot))

	snap, err := h.scanner.Scan(ctx, p.WorkspaceRoot)
	if err != nil {
		logger.L().Error("workspace scan failed", zap.String("workspace_id", p.WorkspaceID), zap.Error(err))
		if structural(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	req := &ingest.Request{
		WorkspaceID: p.WorkspaceID,
		Source:      models.SourceScheduled,
		Scanner:     ingest.ScannerInfo{Name: scanner.Name, Version: scanner.Version},
		Snapshot:    snap,
	}
	hash, err := req.Digest()
	if err != nil {
		return fmt.Errorf("digest snapshot: %w", err)
	}
	// An unchanged tree maps to the same key and deduplicates.
	req.IdempotencyKey = fmt.Sprintf("scheduled:%s:%s", p.WorkspaceID, hash)

	res, err := h.submitter.Submit(ctx, req)
	if err != nil {
		logger.L().Error("scheduled submit failed", zap.String("workspace_id", p.WorkspaceID), zap.Error(err))
		var se *client.StatusError
		if errors.As(err, &se) && !se.Transient() {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.L().Info("scheduled scan submitted",
		zap.String("workspace_id", p.WorkspaceID),
		zap.String("status", string(res.Status)),
		zap.Bool("deduplicated", res.Deduplicated),
		zap.Intp("version", res.GraphVersionNumber))
	return nil
}

// structural reports scanner errors that a retry cannot fix.
func structural(err error) bool {
	ae, ok := appErr.As(err)
	if !ok {
		return false
	}
	switch ae.Code {
	case appErr.CodeWorkspaceNotFound, appErr.CodeWorkspaceParse, appErr.CodeWorkspaceProjects,
		appErr.CodeProjectConfigNotFound, appErr.CodeProjectConfigParse, appErr.CodeProjectConfigInvalid,
		appErr.CodeInvalidPath, appErr.CodeTSConfigParse:
		return true
	}
	return false
}
