package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsgraph/engine/internal/ingest"
	"github.com/wsgraph/engine/internal/models"
	"github.com/wsgraph/engine/internal/snapshot"
	"github.com/wsgraph/engine/pkg/utils"
)

var fastBackoff = utils.Backoff{MaxRetries: 4, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func sampleRequest() *ingest.Request {
	return &ingest.Request{
		IdempotencyKey: "acme:abc:1",
		WorkspaceID:    "acme",
		Source:         models.SourcePipeline,
		Scanner:        ingest.ScannerInfo{Name: "wsgraph-scanner"},
		Snapshot:       snapshot.Assemble("workspace.json", nil, nil, nil),
	}
}

// scripted answers successive requests with the given statuses, repeating the last.
func scripted(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statuses[n])
		switch statuses[n] {
		case http.StatusOK:
			_, _ = w.Write([]byte(`{"status":"succeeded","deduplicated":false,"scanRunId":"r1","graphVersionId":"v1","graphVersionNumber":3,"attemptCount":1}`))
		case http.StatusAccepted:
			_, _ = w.Write([]byte(`{"status":"processing","deduplicated":true,"scanRunId":"r1","graphVersionId":null,"graphVersionNumber":null,"attemptCount":1}`))
		default:
			_, _ = w.Write([]byte(`{"errorCode":"SOME_CODE","message":"nope"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSubmitRetriesTransientStatuses(t *testing.T) {
	srv, calls := scripted(t, http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK)

	res, err := New(srv.URL, WithBackoff(fastBackoff)).Submit(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, ingest.StatusSucceeded, res.Status)
	require.NotNil(t, res.GraphVersionNumber)
	assert.Equal(t, 3, *res.GraphVersionNumber)
}

func TestSubmitTreatsAcceptedAsTerminal(t *testing.T) {
	srv, calls := scripted(t, http.StatusAccepted)

	res, err := New(srv.URL, WithBackoff(fastBackoff)).Submit(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ingest.StatusProcessing, res.Status)
	assert.Nil(t, res.GraphVersionNumber)
}

func TestSubmitDoesNotRetryClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnauthorized} {
		srv, calls := scripted(t, status)

		_, err := New(srv.URL, WithBackoff(fastBackoff)).Submit(context.Background(), sampleRequest())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, status, se.StatusCode)
		assert.Equal(t, "SOME_CODE", se.ErrorCode)
		assert.Equal(t, "nope", se.Message)
		assert.False(t, se.Transient())
		assert.Equal(t, int32(1), calls.Load())
	}
}

func TestSubmitGivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := scripted(t, http.StatusBadGateway)

	_, err := New(srv.URL, WithBackoff(fastBackoff)).Submit(context.Background(), sampleRequest())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Transient())
	assert.Equal(t, int32(5), calls.Load())
	assert.Contains(t, err.Error(), "after 5 attempts")
}

func TestSubmitRetriesNetworkErrors(t *testing.T) {
	srv, _ := scripted(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	_, err := New(url, WithBackoff(utils.Backoff{MaxRetries: 1, Delay: time.Millisecond, MaxDelay: time.Millisecond})).
		Submit(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestSubmitStopsWhenContextCancelled(t *testing.T) {
	srv, calls := scripted(t, http.StatusServiceUnavailable)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, WithBackoff(utils.Backoff{MaxRetries: 3, Delay: time.Hour, MaxDelay: time.Hour})).
		Submit(ctx, sampleRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, calls.Load(), int32(1))
}

func TestSubmitSendsBodyAndToken(t *testing.T) {
	var got ingest.Request
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"succeeded","deduplicated":true,"scanRunId":"r1","attemptCount":1}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithToken("tkn")).Submit(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tkn", auth)
	assert.Equal(t, "acme:abc:1", got.IdempotencyKey)
	assert.Equal(t, 1, got.Snapshot.SchemaVersion)
}

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestRequestFromEnv(t *testing.T) {
	snap := snapshot.Assemble("workspace.json", nil, nil, nil)

	req, err := RequestFromEnv(envOf(map[string]string{
		"GRAPH_WORKSPACE_ID": "acme",
		"GITHUB_REF_NAME":    "main",
		"GITHUB_SHA":         "abc123",
		"GITHUB_RUN_ID":      "77",
		"GRAPH_BRANCH":       "release",
	}), snap)
	require.NoError(t, err)
	assert.Equal(t, "acme:abc123:77", req.IdempotencyKey)
	assert.Equal(t, models.SourcePipeline, req.Source)
	require.NotNil(t, req.Metadata)
	assert.Equal(t, "release", req.Metadata.Branch)
	assert.Equal(t, "abc123", req.Metadata.CommitSha)
	assert.Equal(t, "77", req.Metadata.RunID)
	assert.Same(t, snap, req.Snapshot)

	req, err = RequestFromEnv(envOf(map[string]string{
		"GRAPH_WORKSPACE_ID":    "acme",
		"GRAPH_SOURCE":          "manual",
		"GRAPH_IDEMPOTENCY_KEY": "explicit",
	}), snap)
	require.NoError(t, err)
	assert.Equal(t, "explicit", req.IdempotencyKey)
	assert.Equal(t, models.SourceManual, req.Source)
	assert.Nil(t, req.Metadata)

	_, err = RequestFromEnv(envOf(map[string]string{}), snap)
	assert.Error(t, err)
	_, err = RequestFromEnv(envOf(map[string]string{"GRAPH_WORKSPACE_ID": "acme", "GRAPH_SOURCE": "cron"}), snap)
	assert.Error(t, err)
}

func TestDeriveIdempotencyKeyFallsBackToRandom(t *testing.T) {
	a, err := DeriveIdempotencyKey("acme", "abc", "")
	require.NoError(t, err)
	b, err := DeriveIdempotencyKey("acme", "abc", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a, "acme:"))
	assert.Len(t, a, len("acme:")+21)
	assert.NotEqual(t, a, b)
}
