package types

import (
	"net/http"

	appErr "github.com/wsgraph/engine/pkg/errors"
)

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	ErrorCode string         `json:"errorCode"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code appErr.Code) int {
	switch code {
	case appErr.CodeValidation, appErr.CodeInvalidJSON:
		return http.StatusBadRequest
	case appErr.CodeIdempotencyKey, appErr.CodePayloadMismatch:
		return http.StatusConflict
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case appErr.CodeRateLimited:
		return http.StatusTooManyRequests
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts err into a status and body. Errors without a code are
// reported as INTERNAL_ERROR without exposing their text.
func FromError(err error) (int, ErrorBody) {
	ae, ok := appErr.As(err)
	if !ok || ae.Code == appErr.CodeUnknown {
		return http.StatusInternalServerError, ErrorBody{
			ErrorCode: string(appErr.CodeInternal),
			Message:   "internal server error",
		}
	}
	body := ErrorBody{ErrorCode: string(ae.Code), Message: ae.Message}
	if StatusFor(ae.Code) < http.StatusInternalServerError && len(ae.Meta) > 0 {
		body.Details = ae.Meta
	}
	return StatusFor(ae.Code), body
}
