package ingest

import (
	"github.com/wsgraph/engine/internal/digest"
	"github.com/wsgraph/engine/internal/models"
	"github.com/wsgraph/engine/internal/snapshot"
)

// ScannerInfo identifies the tool that produced a snapshot.
type ScannerInfo struct {
	Name    string `json:"name" validate:"required,max=128"`
	Version string `json:"version,omitempty" validate:"max=64"`
}

// Request is one graph submission.
type Request struct {
	IdempotencyKey string              `json:"idempotencyKey" validate:"required,max=255"`
	WorkspaceID    string              `json:"workspaceId" validate:"required,max=255"`
	Source         models.ScanSource   `json:"source" validate:"required,oneof=manual pipeline scheduled"`
	Scanner        ScannerInfo         `json:"scanner"`
	Metadata       *models.RunMetadata `json:"metadata,omitempty"`
	Snapshot       *snapshot.Snapshot  `json:"snapshot" validate:"required"`
}

// Digest fingerprints the request payload.
func (r *Request) Digest() (string, error) {
	return digest.Compute(r.WorkspaceID, r.Scanner.Name, r.Scanner.Version, r.Snapshot)
}

// Status is the externally visible state of a submission.
type Status string

const (
	StatusSucceeded  Status = "succeeded"
	StatusProcessing Status = "processing"
)

// Result is returned for every accepted submission.
type Result struct {
	Status             Status  `json:"status"`
	Deduplicated       bool    `json:"deduplicated"`
	ScanRunID          string  `json:"scanRunId"`
	GraphVersionID     *string `json:"graphVersionId"`
	GraphVersionNumber *int    `json:"graphVersionNumber"`
	AttemptCount       int     `json:"attemptCount"`
}

// SucceededResult describes a run linked to a committed version.
func SucceededResult(run *models.ScanRun, deduplicated bool) Result {
	res := Result{
		Status:             StatusSucceeded,
		Deduplicated:       deduplicated,
		ScanRunID:          run.ID.String(),
		GraphVersionNumber: run.GraphVersionNumber,
		AttemptCount:       run.AttemptCount,
	}
	if run.GraphVersionID != nil {
		id := run.GraphVersionID.String()
		res.GraphVersionID = &id
	}
	return res
}

// ProcessingResult describes a run another attempt still owns.
func ProcessingResult(run *models.ScanRun) Result {
	return Result{
		Status:       StatusProcessing,
		Deduplicated: true,
		ScanRunID:    run.ID.String(),
		AttemptCount: run.AttemptCount,
	}
}
