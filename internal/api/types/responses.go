package types

import (
	"github.com/wsgraph/engine/internal/models"
)

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// LatestRunResponse describes the newest succeeded run of a workspace.
type LatestRunResponse struct {
	WorkspaceID string          `json:"workspaceId"`
	Run         *models.ScanRun `json:"run"`
}

// VersionListResponse lists committed versions, newest first.
type VersionListResponse struct {
	WorkspaceID   string                `json:"workspaceId"`
	LatestVersion int                   `json:"latestVersion"`
	Versions      []models.GraphVersion `json:"versions"`
}
