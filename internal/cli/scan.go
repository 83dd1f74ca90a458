package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/filesystem"
	"github.com/wsgraph/engine/internal/scanner"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// ScanCommand handles the scanner command
type ScanCommand struct {
	fs  filesystem.FileSystem
	log *zap.Logger
}

// NewScanCommand creates the scanner command
func NewScanCommand(fs filesystem.FileSystem, log *zap.Logger) *cobra.Command {
	c := &ScanCommand{fs: fs, log: log}

	cobraCmd := &cobra.Command{
		Use:     "scanner [workspace-root]",
		Short:   "Print the dependency snapshot of a workspace",
		Long:    `Resolves the projects, path aliases and imports of a workspace and prints a deterministic JSON snapshot.`,
		Args:    cobra.MaximumNArgs(1),
		Version: scanner.Version,
		RunE:    c.Run,
	}

	cobraCmd.Flags().StringP("output", "o", "", "Write the snapshot to this file instead of stdout")
	cobraCmd.Flags().Bool("respect-gitignore", false, "Skip files matched by the workspace .gitignore")
	cobraCmd.Flags().Int("concurrency", 0, "Projects scanned in parallel (default GOMAXPROCS)")

	return cobraCmd
}

// Run executes the scanner command
func (c *ScanCommand) Run(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	output, _ := cmd.Flags().GetString("output")
	respectGitIgnore, _ := cmd.Flags().GetBool("respect-gitignore")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	s := scanner.New(c.fs,
		scanner.WithLogger(c.log),
		scanner.WithGitIgnore(respectGitIgnore),
		scanner.WithConcurrency(concurrency),
	)
	snap, err := s.Scan(cmd.Context(), root)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	data = append(data, '\n')

	if output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := c.fs.WriteFile(output, data, 0o644); err != nil {
		return appErr.Wrap(err, appErr.CodeScanIO, "failed to write snapshot").WithMeta("path", output)
	}
	return nil
}
