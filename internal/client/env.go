package client

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/wsgraph/engine/internal/ingest"
	"github.com/wsgraph/engine/internal/models"
	"github.com/wsgraph/engine/internal/scanner"
	"github.com/wsgraph/engine/internal/snapshot"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// firstSet returns the first non-empty variable among keys.
func firstSet(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// RequestFromEnv builds a submission for snap from GRAPH_* variables, falling
// back to the CI provider's variables for run metadata.
func RequestFromEnv(getenv func(string) string, snap *snapshot.Snapshot) (*ingest.Request, error) {
	ws := getenv("GRAPH_WORKSPACE_ID")
	if ws == "" {
		return nil, appErr.New(appErr.CodeValidation, "GRAPH_WORKSPACE_ID is required")
	}
	source := models.ScanSource(firstSet(getenv, "GRAPH_SOURCE"))
	switch source {
	case "":
		source = models.SourcePipeline
	case models.SourceManual, models.SourcePipeline, models.SourceScheduled:
	default:
		return nil, appErr.Newf(appErr.CodeValidation, "GRAPH_SOURCE %q is not one of manual, pipeline, scheduled", source)
	}

	meta := models.RunMetadata{
		Branch:    firstSet(getenv, "GRAPH_BRANCH", "GITHUB_REF_NAME"),
		CommitSha: firstSet(getenv, "GRAPH_COMMIT_SHA", "GITHUB_SHA"),
		RunID:     firstSet(getenv, "GRAPH_RUN_ID", "GITHUB_RUN_ID"),
	}
	key := getenv("GRAPH_IDEMPOTENCY_KEY")
	if key == "" {
		var err error
		if key, err = DeriveIdempotencyKey(ws, meta.CommitSha, meta.RunID); err != nil {
			return nil, err
		}
	}

	req := &ingest.Request{
		IdempotencyKey: key,
		WorkspaceID:    ws,
		Source:         source,
		Scanner:        ingest.ScannerInfo{Name: scanner.Name, Version: scanner.Version},
		Snapshot:       snap,
	}
	if meta != (models.RunMetadata{}) {
		req.Metadata = &meta
	}
	return req, nil
}

// DeriveIdempotencyKey makes reruns of one CI run share a key. Without a
// commit and run id the key is random and never deduplicates.
func DeriveIdempotencyKey(workspaceID, commitSha, runID string) (string, error) {
	if commitSha != "" && runID != "" {
		return fmt.Sprintf("%s:%s:%s", workspaceID, commitSha, runID), nil
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate idempotency key: %w", err)
	}
	return workspaceID + ":" + id, nil
}
