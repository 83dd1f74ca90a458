package ingest

import (
	"strings"

	appErr "github.com/wsgraph/engine/pkg/errors"
)

const (
	// FallbackFailureCode is recorded when an error carries no code.
	FallbackFailureCode = string(appErr.CodeIngestionFailed)
	maxFailureMessage   = 500
	maxFailureCode      = 64
)

// NormalizeFailure derives the code and message persisted on a failed run.
func NormalizeFailure(err error) (code, message string) {
	code = FallbackFailureCode
	if ae, ok := appErr.As(err); ok && ae.Code != appErr.CodeUnknown {
		if slug := slugCode(string(ae.Code)); slug != "" {
			code = slug
		}
	}

	if err != nil {
		message = strings.Join(strings.Fields(err.Error()), " ")
	}
	if message == "" {
		message = "ingestion failed"
	}
	if r := []rune(message); len(r) > maxFailureMessage {
		message = string(r[:maxFailureMessage])
	}
	return code, message
}

// slugCode uppercases s and replaces runs of other characters with "_".
func slugCode(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	out := b.String()
	if len(out) > maxFailureCode {
		out = strings.TrimRight(out[:maxFailureCode], "_")
	}
	return out
}
