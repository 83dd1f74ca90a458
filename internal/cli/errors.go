// Package cli holds the cobra commands behind the scanner and submit binaries.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/wsgraph/engine/internal/client"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// ErrorReport is what a failed command prints to stderr.
type ErrorReport struct {
	ErrorCode string         `json:"errorCode"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

// ReportError writes err to w as an ErrorReport.
func ReportError(w io.Writer, err error) {
	report := ErrorReport{ErrorCode: string(appErr.CodeUnknown), Message: err.Error(), Details: map[string]any{}}
	var se *client.StatusError
	if errors.As(err, &se) {
		report.Details["status"] = se.StatusCode
		if se.ErrorCode != "" {
			report.ErrorCode = se.ErrorCode
			report.Message = se.Message
		}
	} else if ae, ok := appErr.As(err); ok {
		report.ErrorCode = string(ae.Code)
		report.Message = ae.Message
		for k, v := range ae.Meta {
			report.Details[k] = v
		}
		if ae.Err != nil {
			report.Details["cause"] = ae.Err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}

// Execute runs cmd and returns the process exit code. Failures are reported
// on the command's error stream.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.ExecuteContext(ctx); err != nil {
		ReportError(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}
