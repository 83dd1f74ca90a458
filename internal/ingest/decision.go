// Package ingest holds the idempotency rules for graph submissions.
package ingest

import (
	"github.com/wsgraph/engine/internal/models"
)

// Decision is the outcome of looking up an idempotency key. The concrete
// types are the only implementations; switch on them exhaustively.
type Decision interface {
	decision()
}

// AcquireNew means no run exists for the key; the caller creates one.
type AcquireNew struct{}

// AcquireRetry means a failed run with the same payload may be attempted again.
type AcquireRetry struct{ Run *models.ScanRun }

// DeduplicatedSuccess means the payload was already committed under the key.
type DeduplicatedSuccess struct{ Run *models.ScanRun }

// InProgress means another attempt for the key has not finished.
type InProgress struct{ Run *models.ScanRun }

// Conflict means the key was used for a different payload.
type Conflict struct{ Run *models.ScanRun }

func (AcquireNew) decision()          {}
func (AcquireRetry) decision()        {}
func (DeduplicatedSuccess) decision() {}
func (InProgress) decision()          {}
func (Conflict) decision()            {}

// Decide maps the existing run for a key and the new payload hash to a
// decision. A hash mismatch is a conflict whatever the run's state.
func Decide(existing *models.ScanRun, payloadHash string) Decision {
	if existing == nil {
		return AcquireNew{}
	}
	if existing.PayloadHash != payloadHash {
		return Conflict{Run: existing}
	}
	switch existing.Status {
	case models.RunSucceeded:
		return DeduplicatedSuccess{Run: existing}
	case models.RunFailed:
		return AcquireRetry{Run: existing}
	default:
		// processing, and any unknown state, must not be touched
		return InProgress{Run: existing}
	}
}

// Name is a stable label for logs and metrics.
func Name(d Decision) string {
	switch d.(type) {
	case AcquireNew:
		return "acquire_new"
	case AcquireRetry:
		return "acquire_retry"
	case DeduplicatedSuccess:
		return "deduplicated_success"
	case InProgress:
		return "in_progress"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}
