package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/api/middleware"
	"github.com/wsgraph/engine/internal/api/types"
	appErr "github.com/wsgraph/engine/pkg/errors"
	"github.com/wsgraph/engine/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	types.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := types.FromError(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("error_code", body.ErrorCode),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

func positiveIntParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, appErr.Newf(appErr.CodeValidation, "%s must be a positive integer", name).WithMeta(name, raw)
	}
	return n, nil
}
