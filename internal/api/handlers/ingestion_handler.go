package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wsgraph/engine/internal/ingest"
	"github.com/wsgraph/engine/internal/services"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// IngestionHandler accepts graph submissions.
type IngestionHandler struct {
	svc          services.IngestionService
	maxBodyBytes int64
}

func NewIngestionHandler(svc services.IngestionService, maxBodyBytes int64) *IngestionHandler {
	return &IngestionHandler{svc: svc, maxBodyBytes: maxBodyBytes}
}

// Create handles POST /api/v1/ingestions. A committed or deduplicated run
// answers 200; a run still owned by another attempt answers 202.
func (h *IngestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	var req ingest.Request
	if err := decodeBody(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, appErr.Newf(appErr.CodeTooLarge, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalidJSON, "request body is not valid JSON"))
		return
	}

	res, err := h.svc.Ingest(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Status == ingest.StatusProcessing {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

// decodeBody reads exactly one JSON value from body into v.
func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
