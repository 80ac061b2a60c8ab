package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/services"
)

// ContentHandler handles evidence and perspectives under a claim.
type ContentHandler struct {
	contentService services.ContentService
	logger         *zap.Logger
}

// NewContentHandler creates a new content handler.
func NewContentHandler(contentService services.ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// RegisterRoutes registers the content handler's routes on the given mux.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/claims/{cid}"

	mux.HandleFunc("POST "+base+"/evidence", authMiddleware.RequireAuth(scope(h.CreateEvidence)))
	mux.HandleFunc("GET "+base+"/evidence", scope(h.ListEvidence))
	mux.HandleFunc("POST "+base+"/perspectives", authMiddleware.RequireAuth(scope(h.CreatePerspective)))
	mux.HandleFunc("GET "+base+"/perspectives", scope(h.ListPerspectives))
}

// CreateEvidence handles POST /api/claims/{cid}/evidence
func (h *ContentHandler) CreateEvidence(w http.ResponseWriter, r *http.Request) {
	claimID, ok := ParseClaimID(w, r, h.logger)
	if !ok {
		return
	}

	var in services.CreateEvidenceInput
	if !decodeBody(w, r, &in, h.logger) {
		return
	}

	evidence, err := h.contentService.CreateEvidence(r.Context(), claimID, &in)
	if err != nil {
		writeServiceError(w, err, "create_evidence", h.logger)
		return
	}

	writeData(w, http.StatusCreated, evidence, h.logger)
}

// ListEvidence handles GET /api/claims/{cid}/evidence
func (h *ContentHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	claimID, ok := ParseClaimID(w, r, h.logger)
	if !ok {
		return
	}

	items, err := h.contentService.ListEvidence(r.Context(), claimID)
	if err != nil {
		writeServiceError(w, err, "list_evidence", h.logger)
		return
	}
	if items == nil {
		items = []*models.Evidence{}
	}

	writeData(w, http.StatusOK, items, h.logger)
}

// CreatePerspective handles POST /api/claims/{cid}/perspectives
func (h *ContentHandler) CreatePerspective(w http.ResponseWriter, r *http.Request) {
	claimID, ok := ParseClaimID(w, r, h.logger)
	if !ok {
		return
	}

	var in services.CreatePerspectiveInput
	if !decodeBody(w, r, &in, h.logger) {
		return
	}

	perspective, err := h.contentService.CreatePerspective(r.Context(), claimID, &in)
	if err != nil {
		writeServiceError(w, err, "create_perspective", h.logger)
		return
	}

	writeData(w, http.StatusCreated, perspective, h.logger)
}

// ListPerspectives handles GET /api/claims/{cid}/perspectives
func (h *ContentHandler) ListPerspectives(w http.ResponseWriter, r *http.Request) {
	claimID, ok := ParseClaimID(w, r, h.logger)
	if !ok {
		return
	}

	items, err := h.contentService.ListPerspectives(r.Context(), claimID)
	if err != nil {
		writeServiceError(w, err, "list_perspectives", h.logger)
		return
	}
	if items == nil {
		items = []*models.Perspective{}
	}

	writeData(w, http.StatusOK, items, h.logger)
}
