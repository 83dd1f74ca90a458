package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/wsgraph/engine/internal/api/types"
	appErr "github.com/wsgraph/engine/pkg/errors"
	"github.com/wsgraph/engine/pkg/logger"
)

// Recovery logs panics and answers with a generic INTERNAL_ERROR body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.L().Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				types.WriteError(w, appErr.New(appErr.CodeInternal, "internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
