package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wsgraph/engine/internal/api/types"
	"github.com/wsgraph/engine/internal/services"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// GraphsHandler serves committed workspace graphs.
type GraphsHandler struct {
	query services.GraphQueryService
}

func NewGraphsHandler(query services.GraphQueryService) *GraphsHandler {
	return &GraphsHandler{query: query}
}

// Latest handles GET /workspaces/{workspaceId}/latest.
func (h *GraphsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	ws := chi.URLParam(r, "workspaceId")
	run, err := h.query.LatestRun(r.Context(), ws)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if run == nil {
		writeError(w, r, appErr.New(appErr.CodeNotFound, "workspace has no succeeded scan run").WithMeta("workspaceId", ws))
		return
	}
	writeJSON(w, http.StatusOK, types.LatestRunResponse{WorkspaceID: ws, Run: run})
}

// Versions handles GET /workspaces/{workspaceId}/versions.
func (h *GraphsHandler) Versions(w http.ResponseWriter, r *http.Request) {
	ws := chi.URLParam(r, "workspaceId")
	versions, err := h.query.ListVersions(r.Context(), ws)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := types.VersionListResponse{WorkspaceID: ws, Versions: versions}
	if len(versions) > 0 {
		resp.LatestVersion = versions[0].Version
	}
	writeJSON(w, http.StatusOK, resp)
}

// Version handles GET /workspaces/{workspaceId}/versions/{version}.
func (h *GraphsHandler) Version(w http.ResponseWriter, r *http.Request) {
	n, err := positiveIntParam(r, "version")
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.query.GetVersion(r.Context(), chi.URLParam(r, "workspaceId"), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
