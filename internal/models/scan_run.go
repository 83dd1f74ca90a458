package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunStatus is the lifecycle state of a ScanRun.
type RunStatus string

const (
	RunProcessing RunStatus = "processing"
	RunSucceeded  RunStatus = "succeeded"
	RunFailed     RunStatus = "failed"
)

// ScanSource names what triggered a submission.
type ScanSource string

const (
	SourceManual    ScanSource = "manual"
	SourcePipeline  ScanSource = "pipeline"
	SourceScheduled ScanSource = "scheduled"
)

// RunMetadata is optional CI context attached to a run.
type RunMetadata struct {
	Branch    string `json:"branch,omitempty"`
	CommitSha string `json:"commitSha,omitempty"`
	RunID     string `json:"runId,omitempty"`
}

// ScanRun records one idempotency key and its latest attempt.
type ScanRun struct {
	ID                 uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	IdempotencyKey     string                          `gorm:"type:varchar(255);not null;uniqueIndex:idx_scan_runs_idempotency_key" json:"idempotencyKey"`
	PayloadHash        string                          `gorm:"type:varchar(64);not null" json:"payloadHash"`
	WorkspaceID        string                          `gorm:"type:varchar(255);not null;index" json:"workspaceId"`
	Source             ScanSource                      `gorm:"type:varchar(16);not null" json:"source"`
	ScannerName        string                          `gorm:"type:varchar(128);not null" json:"scannerName"`
	ScannerVersion     string                          `gorm:"type:varchar(64)" json:"scannerVersion,omitempty"`
	Status             RunStatus                       `gorm:"type:varchar(16);not null;index" json:"status"`
	AttemptCount       int                             `gorm:"not null;default:1" json:"attemptCount"`
	ProjectCount       int                             `gorm:"not null;default:0" json:"projectCount"`
	LibCount           int                             `gorm:"not null;default:0" json:"libCount"`
	ComponentCount     int                             `gorm:"not null;default:0" json:"componentCount"`
	DependencyCount    int                             `gorm:"not null;default:0" json:"dependencyCount"`
	Metadata           datatypes.JSONType[RunMetadata] `json:"metadata"`
	ErrorCode          *string                         `gorm:"type:varchar(64)" json:"errorCode"`
	ErrorMessage       *string                         `gorm:"type:text" json:"errorMessage"`
	GraphVersionID     *uuid.UUID                      `gorm:"type:uuid" json:"graphVersionId"`
	GraphVersionNumber *int                            `json:"graphVersionNumber"`
	StartedAt          time.Time                       `gorm:"not null;index" json:"startedAt"`
	CompletedAt        *time.Time                      `json:"completedAt"`
	CreatedAt          time.Time                       `json:"createdAt"`
	UpdatedAt          time.Time                       `json:"updatedAt"`
}

func (ScanRun) TableName() string { return "scan_runs" }

// BeforeCreate assigns the primary key in Go so every dialect gets one.
func (r *ScanRun) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
