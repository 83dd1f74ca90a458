package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/client"
	"github.com/wsgraph/engine/internal/filesystem"
	"github.com/wsgraph/engine/internal/snapshot"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

const defaultIngestURL = "http://127.0.0.1:8080/api/v1/ingestions"

// SubmitCommand handles the submit command
type SubmitCommand struct {
	fs     filesystem.FileSystem
	getenv func(string) string
	log    *zap.Logger
}

// NewSubmitCommand creates the submit command. Run metadata and the
// idempotency key come from getenv.
func NewSubmitCommand(fs filesystem.FileSystem, getenv func(string) string, log *zap.Logger) *cobra.Command {
	c := &SubmitCommand{fs: fs, getenv: getenv, log: log}

	cobraCmd := &cobra.Command{
		Use:   "submit <snapshot-file>",
		Short: "Submit a snapshot to the ingestion endpoint",
		Long: `Posts a snapshot produced by the scanner, retrying transient failures with exponential backoff.
Reads GRAPH_WORKSPACE_ID, GRAPH_SOURCE, GRAPH_IDEMPOTENCY_KEY, GRAPH_BRANCH, GRAPH_COMMIT_SHA and
GRAPH_RUN_ID, falling back to GITHUB_REF_NAME, GITHUB_SHA and GITHUB_RUN_ID.`,
		Args: cobra.ExactArgs(1),
		RunE: c.Run,
	}

	url := getenv("GRAPH_INGEST_URL")
	if url == "" {
		url = defaultIngestURL
	}
	cobraCmd.Flags().String("url", url, "Ingestion endpoint (env GRAPH_INGEST_URL)")
	cobraCmd.Flags().Int("attempts", client.DefaultBackoff.MaxRetries+1, "Maximum submission attempts")

	return cobraCmd
}

// Run executes the submit command
func (c *SubmitCommand) Run(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	attempts, _ := cmd.Flags().GetInt("attempts")
	if attempts < 1 {
		return appErr.New(appErr.CodeValidation, "--attempts must be at least 1")
	}

	data, err := c.fs.ReadFile(args[0])
	if err != nil {
		return appErr.Wrap(err, appErr.CodeScanIO, "failed to read snapshot file").WithMeta("path", args[0])
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalidJSON, "snapshot file is not valid JSON").WithMeta("path", args[0])
	}

	req, err := client.RequestFromEnv(c.getenv, &snap)
	if err != nil {
		return err
	}

	backoff := client.DefaultBackoff
	backoff.MaxRetries = attempts - 1
	cl := client.New(url,
		client.WithBackoff(backoff),
		client.WithToken(c.getenv("GRAPH_API_TOKEN")),
		client.WithLogger(c.log),
	)
	res, err := cl.Submit(cmd.Context(), req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
