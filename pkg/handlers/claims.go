package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/services"
)

// ScopeMiddleware attaches a database connection scope to the request context.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

const defaultClaimListLimit = 50

// ClaimListResponse for GET /api/claims
type ClaimListResponse struct {
	Claims []*models.Claim `json:"claims"`
	Total  int             `json:"total"`
}

// ClaimHandler handles claim submission and reads.
type ClaimHandler struct {
	claimService services.ClaimService
	logger       *zap.Logger
}

// NewClaimHandler creates a new claim handler.
func NewClaimHandler(claimService services.ClaimService, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		logger:       logger,
	}
}

// RegisterRoutes registers the claim handler's routes on the given mux.
func (h *ClaimHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/claims", authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("GET /api/claims", authMiddleware.OptionalAuth(scope(h.List)))
	mux.HandleFunc("GET /api/claims/{cid}", authMiddleware.OptionalAuth(scope(h.Get)))
}

// Create handles POST /api/claims
func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateClaimInput
	if !decodeBody(w, r, &in, h.logger) {
		return
	}

	claim, err := h.claimService.Create(r.Context(), &in)
	if err != nil {
		writeServiceError(w, err, "create_claim", h.logger)
		return
	}

	writeData(w, http.StatusCreated, claim, h.logger)
}

// List handles GET /api/claims?status=&limit=&offset=
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultClaimListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	filter := models.ClaimFilter{
		Status: models.Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}

	claims, err := h.claimService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "list_claims", h.logger)
		return
	}
	if claims == nil {
		claims = []*models.Claim{}
	}

	writeData(w, http.StatusOK, ClaimListResponse{Claims: claims, Total: len(claims)}, h.logger)
}

// Get handles GET /api/claims/{cid}
func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	claimID, ok := ParseClaimID(w, r, h.logger)
	if !ok {
		return
	}

	claim, err := h.claimService.GetByID(r.Context(), claimID)
	if err != nil {
		writeServiceError(w, err, "get_claim", h.logger)
		return
	}

	writeData(w, http.StatusOK, claim, h.logger)
}
