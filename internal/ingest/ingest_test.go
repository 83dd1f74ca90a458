package ingest

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsgraph/engine/internal/models"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

func run(status models.RunStatus, hash string) *models.ScanRun {
	return &models.ScanRun{ID: uuid.New(), PayloadHash: hash, Status: status, AttemptCount: 1}
}

func TestDecideTable(t *testing.T) {
	cases := []struct {
		name     string
		existing *models.ScanRun
		hash     string
		want     string
	}{
		{"virgin key", nil, "h1", "acquire_new"},
		{"succeeded same payload", run(models.RunSucceeded, "h1"), "h1", "deduplicated_success"},
		{"processing same payload", run(models.RunProcessing, "h1"), "h1", "in_progress"},
		{"failed same payload", run(models.RunFailed, "h1"), "h1", "acquire_retry"},
		{"succeeded other payload", run(models.RunSucceeded, "h1"), "h2", "conflict"},
		{"processing other payload", run(models.RunProcessing, "h1"), "h2", "conflict"},
		{"failed other payload", run(models.RunFailed, "h1"), "h2", "conflict"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.existing, tc.hash)
			assert.Equal(t, tc.want, Name(d))
		})
	}
}

func TestDecideCarriesExistingRun(t *testing.T) {
	r := run(models.RunFailed, "h")
	d, ok := Decide(r, "h").(AcquireRetry)
	require.True(t, ok)
	assert.Same(t, r, d.Run)
}

func TestNormalizeFailure(t *testing.T) {
	code, msg := NormalizeFailure(appErr.New(appErr.Code("graph version-conflict!"), "  two\n\tlines  "))
	assert.Equal(t, "GRAPH_VERSION_CONFLICT", code)
	assert.Equal(t, "graph version-conflict!: two lines", msg)

	code, msg = NormalizeFailure(fmt.Errorf("wrapped: %w", appErr.New(appErr.CodeDataIntegrity, "bad")))
	assert.Equal(t, "DATA_INTEGRITY_ERROR", code)
	assert.Contains(t, msg, "wrapped:")

	code, _ = NormalizeFailure(errors.New("plain"))
	assert.Equal(t, FallbackFailureCode, code)

	code, _ = NormalizeFailure(appErr.New(appErr.Code("!!!"), "x"))
	assert.Equal(t, FallbackFailureCode, code)

	_, msg = NormalizeFailure(errors.New(strings.Repeat("é", 800)))
	assert.Equal(t, 500, len([]rune(msg)))

	_, msg = NormalizeFailure(nil)
	assert.Equal(t, "ingestion failed", msg)
}
