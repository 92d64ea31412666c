package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"interlink/internal/core"
	"interlink/internal/linker"
	"interlink/internal/persistence"
	"interlink/internal/render"
	"interlink/internal/services"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ApplyRequest carries the insertions for apply and preview
type ApplyRequest struct {
	Links []core.LinkInsertion `json:"links"`
}

// PreviewResponse is an apply report plus the text changes it would make
type PreviewResponse struct {
	*linker.Report
	Changes []render.SpanDiff `json:"changes"`
}

// ValidateURLsRequest lists URLs to check
type ValidateURLsRequest struct {
	URLs []string `json:"urls"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	checks["database"] = "ok"

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleGetPost handles GET /api/posts/{id}
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	article, err := s.linking.GetArticleForLinking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, article)
}

// handleSuggestLinks handles POST /api/suggestions
func (s *Server) handleSuggestLinks(w http.ResponseWriter, r *http.Request) {
	var req services.SuggestRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.linking.SuggestLinks(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleListLinks handles GET /api/posts/{id}/links
func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.linking.ListLinks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if links == nil {
		links = []core.LinkRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"links": links,
		"total": len(links),
	})
}

// handleApplyLinks handles POST /api/posts/{id}/links
func (s *Server) handleApplyLinks(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !s.decode(w, r, &req) {
		return
	}

	report, err := s.linking.ApplyLinks(r.Context(), chi.URLParam(r, "id"), req.Links)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

// handlePreviewLinks handles POST /api/posts/{id}/links/preview
func (s *Server) handlePreviewLinks(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !s.decode(w, r, &req) {
		return
	}

	plan, err := s.linking.PreviewLinks(r.Context(), chi.URLParam(r, "id"), req.Links)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	changes := render.DiffSpans(plan.Before, plan.After)
	if changes == nil {
		changes = []render.SpanDiff{}
	}
	s.respondJSON(w, http.StatusOK, PreviewResponse{
		Report:  &plan.Report,
		Changes: changes,
	})
}

// handleRemoveInternalLinks handles DELETE /api/posts/{id}/links
func (s *Server) handleRemoveInternalLinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.linking.RemoveInternalLinks(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"post_id": id,
		"removed": removed,
	})
}

// handleRemoveLink handles DELETE /api/links/{id}
func (s *Server) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fromContent, err := s.linking.RemoveLink(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"link_id":              id,
		"removed_from_content": fromContent,
	})
}

// handleSyncLedger handles POST /api/posts/{id}/ledger/sync
func (s *Server) handleSyncLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	links, err := s.linking.SyncLedger(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if links == nil {
		links = []core.LinkRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"post_id": id,
		"links":   links,
		"total":   len(links),
	})
}

// handleCleanup handles POST /api/cleanup
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req services.CleanupRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := s.linking.CleanupInternalLinks(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	total := 0
	for _, res := range results {
		total += res.Removed
	}
	if results == nil {
		results = []linker.RemovalResult{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":       results,
		"total_removed": total,
	})
}

// handleBackfill handles GET /api/backfill?limit=N
func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	result, err := s.linking.PostsNeedingLinks(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleValidateURLs handles POST /api/validate-urls
func (s *Server) handleValidateURLs(w http.ResponseWriter, r *http.Request) {
	var req ValidateURLsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		s.respondError(w, http.StatusBadRequest, "urls is required")
		return
	}

	results, err := s.linking.ValidateURLs(r.Context(), req.URLs)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// decode reads a JSON body into v and answers 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// respondServiceError maps service errors onto HTTP statuses
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, persistence.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}
