package tasks

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wsgraph/engine/internal/client"
	"github.com/wsgraph/engine/internal/ingest"
	"github.com/wsgraph/engine/internal/models"
	"github.com/wsgraph/engine/internal/snapshot"
	appErr "github.com/wsgraph/engine/pkg/errors"
	"github.com/wsgraph/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockSnapshotter struct {
	mock.Mock
}

func (m *mockSnapshotter) Scan(ctx context.Context, root string) (*snapshot.Snapshot, error) {
	args := m.Called(ctx, root)
	if v := args.Get(0); v != nil {
		return v.(*snapshot.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, req *ingest.Request) (*ingest.Result, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*ingest.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func scanTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewWorkspaceScanTask(ScanPayload{WorkspaceID: "acme", WorkspaceRoot: "/srv/acme"})
	require.NoError(t, err)
	return task
}

func TestHandleWorkspaceScanSubmitsScheduledRun(t *testing.T) {
	snap := snapshot.Assemble("workspace.json", nil, nil, nil)
	scan := new(mockSnapshotter)
	scan.On("Scan", mock.Anything, "/srv/acme").Return(snap, nil)

	version := 4
	var keys []string
	sub := new(mockSubmitter)
	sub.On("Submit", mock.Anything, mock.MatchedBy(func(req *ingest.Request) bool {
		return req.WorkspaceID == "acme" && req.Source == models.SourceScheduled && req.Snapshot == snap
	})).Run(func(args mock.Arguments) {
		keys = append(keys, args.Get(1).(*ingest.Request).IdempotencyKey)
	}).Return(&ingest.Result{Status: ingest.StatusSucceeded, GraphVersionNumber: &version}, nil)

	h := NewScanTaskHandler(scan, sub)
	require.NoError(t, h.HandleWorkspaceScan(context.Background(), scanTask(t)))
	require.NoError(t, h.HandleWorkspaceScan(context.Background(), scanTask(t)))

	scan.AssertExpectations(t)
	sub.AssertNumberOfCalls(t, "Submit", 2)
	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
	assert.True(t, strings.HasPrefix(keys[0], "scheduled:acme:"))
}

func TestHandleWorkspaceScanSkipsRetryOnStructuralError(t *testing.T) {
	scan := new(mockSnapshotter)
	scan.On("Scan", mock.Anything, "/srv/acme").
		Return(nil, appErr.New(appErr.CodeWorkspaceNotFound, "no workspace configuration found"))
	sub := new(mockSubmitter)

	err := NewScanTaskHandler(scan, sub).HandleWorkspaceScan(context.Background(), scanTask(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, appErr.IsCode(err, appErr.CodeWorkspaceNotFound))
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestHandleWorkspaceScanRetriesIOErrors(t *testing.T) {
	scan := new(mockSnapshotter)
	scan.On("Scan", mock.Anything, "/srv/acme").
		Return(nil, appErr.New(appErr.CodeScanIO, "failed to read source file"))

	err := NewScanTaskHandler(scan, new(mockSubmitter)).HandleWorkspaceScan(context.Background(), scanTask(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleWorkspaceScanSubmitErrors(t *testing.T) {
	snap := snapshot.Assemble("workspace.json", nil, nil, nil)

	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"conflict", &client.StatusError{StatusCode: 409, ErrorCode: "IDEMPOTENCY_KEY_CONFLICT"}, true},
		{"unavailable", &client.StatusError{StatusCode: 503}, false},
		{"network", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scan := new(mockSnapshotter)
			scan.On("Scan", mock.Anything, "/srv/acme").Return(snap, nil)
			sub := new(mockSubmitter)
			sub.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err)

			err := NewScanTaskHandler(scan, sub).HandleWorkspaceScan(context.Background(), scanTask(t))
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandleWorkspaceScanRejectsBadPayload(t *testing.T) {
	h := NewScanTaskHandler(new(mockSnapshotter), new(mockSubmitter))

	err := h.HandleWorkspaceScan(context.Background(), asynq.NewTask(TypeWorkspaceScan, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleWorkspaceScan(context.Background(), asynq.NewTask(TypeWorkspaceScan, []byte(`{"workspace_id":"acme"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
