package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/wsgraph/engine/internal/ingest"
	"github.com/wsgraph/engine/internal/models"
	"github.com/wsgraph/engine/internal/repository"
	appErr "github.com/wsgraph/engine/pkg/errors"
	"github.com/wsgraph/engine/pkg/logger"
)

// IngestionService gates graph commits behind idempotency keys.
type IngestionService interface {
	// Ingest validates, digests and commits a submission.
	Ingest(ctx context.Context, req *ingest.Request) (*ingest.Result, error)

	// Acquire decides what to do with a key and, for new or retried
	// attempts, moves the run to processing.
	Acquire(ctx context.Context, req *ingest.Request, payloadHash string) (*Acquisition, error)
	// Finalize commits the next graph version for an acquired run.
	Finalize(ctx context.Context, runID uuid.UUID, req *ingest.Request, payloadHash string) (*models.ScanRun, error)
	// MarkFailed records why an attempt failed, leaving the key retryable.
	MarkFailed(ctx context.Context, runID uuid.UUID, cause error) error
}

// Acquisition is the decision for a key plus the run it refers to.
type Acquisition struct {
	Decision ingest.Decision
	Run      *models.ScanRun
}

type ingestionService struct {
	store    repository.Store
	validate interface{ Struct(any) error }
	now      func() time.Time
}

// NewIngestionService creates the coordinator.
func NewIngestionService(store repository.Store, v interface{ Struct(any) error }) IngestionService {
	return &ingestionService{store: store, validate: v, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ingestionService) Ingest(ctx context.Context, req *ingest.Request) (*ingest.Result, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	hash, err := req.Digest()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "compute payload digest failed")
	}
	req.Snapshot.Canonicalize()

	acq, err := s.Acquire(ctx, req, hash)
	if err != nil {
		return nil, err
	}
	logger.L().Info("ingestion decided",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("workspace_id", req.WorkspaceID),
		zap.String("decision", ingest.Name(acq.Decision)),
		zap.String("payload_hash", hash))

	switch d := acq.Decision.(type) {
	case ingest.AcquireNew, ingest.AcquireRetry:
		run, err := s.Finalize(ctx, acq.Run.ID, req, hash)
		if err != nil {
			if !appErr.IsCode(err, appErr.CodePayloadMismatch) {
				if markErr := s.MarkFailed(context.WithoutCancel(ctx), acq.Run.ID, err); markErr != nil {
					logger.L().Error("mark run failed", zap.String("scan_run_id", acq.Run.ID.String()), zap.Error(markErr))
				}
			}
			return nil, err
		}
		res := ingest.SucceededResult(run, false)
		return &res, nil
	case ingest.DeduplicatedSuccess:
		if err := checkLinkage(d.Run); err != nil {
			return nil, err
		}
		res := ingest.SucceededResult(d.Run, true)
		return &res, nil
	case ingest.InProgress:
		res := ingest.ProcessingResult(d.Run)
		return &res, nil
	case ingest.Conflict:
		return nil, appErr.New(appErr.CodeIdempotencyKey, "idempotency key was already used with a different payload").
			WithMeta("idempotencyKey", req.IdempotencyKey)
	default:
		return nil, appErr.Newf(appErr.CodeInternal, "unhandled ingestion decision %T", d)
	}
}

func (s *ingestionService) check(req *ingest.Request) error {
	if req == nil {
		return appErr.New(appErr.CodeValidation, "request body is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return appErr.Wrap(err, appErr.CodeValidation, err.Error())
	}
	return req.Snapshot.Validate()
}

func (s *ingestionService) Acquire(ctx context.Context, req *ingest.Request, payloadHash string) (*Acquisition, error) {
	var out *Acquisition
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		// A lost insert race is re-read and decided once more.
		for attempt := 0; attempt < 2; attempt++ {
			existing, err := tx.GetRunByKey(req.IdempotencyKey, true)
			if err != nil {
				return err
			}
			switch d := ingest.Decide(existing, payloadHash).(type) {
			case ingest.AcquireNew:
				run := s.newRun(req, payloadHash)
				inserted, err := tx.InsertRun(run)
				if err != nil {
					return err
				}
				if !inserted {
					continue
				}
				out = &Acquisition{Decision: d, Run: run}
				return nil
			case ingest.AcquireRetry:
				run := *d.Run
				run.AttemptCount++
				run.Status = models.RunProcessing
				run.ErrorCode = nil
				run.ErrorMessage = nil
				run.GraphVersionID = nil
				run.GraphVersionNumber = nil
				run.CompletedAt = nil
				run.StartedAt = s.now()
				if err := tx.UpdateRun(&run); err != nil {
					return err
				}
				out = &Acquisition{Decision: ingest.AcquireRetry{Run: &run}, Run: &run}
				return nil
			case ingest.DeduplicatedSuccess:
				out = &Acquisition{Decision: d, Run: d.Run}
				return nil
			case ingest.InProgress:
				out = &Acquisition{Decision: d, Run: d.Run}
				return nil
			case ingest.Conflict:
				out = &Acquisition{Decision: d, Run: d.Run}
				return nil
			}
		}
		return appErr.New(appErr.CodeInternal, "idempotency key insert raced repeatedly").
			WithMeta("idempotencyKey", req.IdempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ingestionService) newRun(req *ingest.Request, payloadHash string) *models.ScanRun {
	counts := req.Snapshot.Counts()
	run := &models.ScanRun{
		ID:              uuid.New(),
		IdempotencyKey:  req.IdempotencyKey,
		PayloadHash:     payloadHash,
		WorkspaceID:     req.WorkspaceID,
		Source:          req.Source,
		ScannerName:     req.Scanner.Name,
		ScannerVersion:  req.Scanner.Version,
		Status:          models.RunProcessing,
		AttemptCount:    1,
		ProjectCount:    counts.Projects,
		LibCount:        counts.Libs,
		ComponentCount:  counts.Components,
		DependencyCount: counts.Dependencies,
		StartedAt:       s.now(),
	}
	if req.Metadata != nil {
		run.Metadata = datatypes.NewJSONType(*req.Metadata)
	}
	return run
}

func (s *ingestionService) Finalize(ctx context.Context, runID uuid.UUID, req *ingest.Request, payloadHash string) (*models.ScanRun, error) {
	var out *models.ScanRun
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		run, err := tx.GetRunByID(runID, true)
		if err != nil {
			return err
		}
		if run == nil {
			return appErr.New(appErr.CodeRunNotFound, "scan run not found").WithMeta("scanRunId", runID.String())
		}
		if run.WorkspaceID != req.WorkspaceID || run.PayloadHash != payloadHash {
			return appErr.New(appErr.CodePayloadMismatch, "scan run no longer matches the submitted payload").
				WithMeta("scanRunId", runID.String())
		}
		if run.Status == models.RunSucceeded {
			out = run
			return nil
		}

		if err := tx.EnsureHead(req.WorkspaceID); err != nil {
			return err
		}
		head, err := tx.GetHead(req.WorkspaceID, true)
		if err != nil {
			return err
		}
		next := 1
		if head != nil {
			next = head.LatestVersion + 1
		}

		now := s.now()
		snap := req.Snapshot
		counts := snap.Counts()
		version := &models.GraphVersion{
			ID:                  uuid.New(),
			WorkspaceID:         req.WorkspaceID,
			Version:             next,
			ScanRunID:           run.ID,
			PayloadHash:         payloadHash,
			SchemaVersion:       snap.SchemaVersion,
			WorkspaceConfigPath: snap.WorkspaceConfigPath,
			ProjectCount:        counts.Projects,
			LibCount:            counts.Libs,
			ComponentCount:      counts.Components,
			DependencyCount:     counts.Dependencies,
			CreatedAt:           now,
		}
		if err := tx.InsertVersion(version, models.RowsFromSnapshot(version.ID, snap)); err != nil {
			return err
		}
		if err := tx.UpsertHead(&models.GraphHead{
			WorkspaceID:    req.WorkspaceID,
			LatestVersion:  next,
			GraphVersionID: version.ID,
		}); err != nil {
			return err
		}

		run.Status = models.RunSucceeded
		run.GraphVersionID = &version.ID
		run.GraphVersionNumber = &next
		run.ErrorCode = nil
		run.ErrorMessage = nil
		run.CompletedAt = &now
		if err := tx.UpdateRun(run); err != nil {
			return err
		}
		out = run
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("graph version committed",
		zap.String("workspace_id", out.WorkspaceID),
		zap.String("scan_run_id", out.ID.String()),
		zap.Intp("version", out.GraphVersionNumber))
	return out, nil
}

func (s *ingestionService) MarkFailed(ctx context.Context, runID uuid.UUID, cause error) error {
	code, message := ingest.NormalizeFailure(cause)
	return s.store.WithinTx(ctx, func(tx repository.Tx) error {
		run, err := tx.GetRunByID(runID, true)
		if err != nil {
			return err
		}
		if run == nil {
			return appErr.New(appErr.CodeRunNotFound, "scan run not found").WithMeta("scanRunId", runID.String())
		}
		if run.Status == models.RunSucceeded {
			return nil
		}
		now := s.now()
		run.Status = models.RunFailed
		run.ErrorCode = &code
		run.ErrorMessage = &message
		run.GraphVersionID = nil
		run.GraphVersionNumber = nil
		run.CompletedAt = &now
		if err := tx.UpdateRun(run); err != nil {
			return err
		}
		logger.L().Warn("ingestion attempt failed",
			zap.String("scan_run_id", runID.String()),
			zap.String("error_code", code),
			zap.Int("attempt", run.AttemptCount))
		return nil
	})
}

// checkLinkage rejects succeeded runs without a consistent version reference.
func checkLinkage(run *models.ScanRun) error {
	if run.GraphVersionID == nil || run.GraphVersionNumber == nil || *run.GraphVersionID == uuid.Nil || *run.GraphVersionNumber < 1 {
		return appErr.New(appErr.CodeDataIntegrity, "succeeded scan run has no graph version").
			WithMeta("scanRunId", run.ID.String())
	}
	return nil
}
