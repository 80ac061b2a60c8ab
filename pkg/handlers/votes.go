package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/services"
)

// CastVoteRequest for POST /api/votes/{kind}/{tid}
type CastVoteRequest struct {
	VoteType models.VoteType `json:"vote_type"`
}

// UserVoteResponse for GET /api/votes/{kind}/{tid}/mine
type UserVoteResponse struct {
	UserVote *models.VoteType `json:"user_vote"`
}

// VoteHandler handles votes on every votable kind.
type VoteHandler struct {
	voteService services.VoteService
	logger      *zap.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(voteService services.VoteService, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{
		voteService: voteService,
		logger:      logger,
	}
}

// RegisterRoutes registers the vote handler's routes on the given mux.
func (h *VoteHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/votes/{kind}/{tid}", authMiddleware.RequireAuth(scope(h.Cast)))
	mux.HandleFunc("GET /api/votes/{kind}/{tid}/mine", authMiddleware.RequireAuth(scope(h.Mine)))
}

// Cast handles POST /api/votes/{kind}/{tid}
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseTargetKind(w, r, h.logger)
	if !ok {
		return
	}
	targetID, ok := ParseTargetID(w, r, h.logger)
	if !ok {
		return
	}

	var req CastVoteRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	result, err := h.voteService.CastVote(r.Context(), kind, targetID, req.VoteType)
	if err != nil {
		writeServiceError(w, err, "cast_vote", h.logger)
		return
	}

	writeData(w, http.StatusOK, result, h.logger)
}

// Mine handles GET /api/votes/{kind}/{tid}/mine
func (h *VoteHandler) Mine(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseTargetKind(w, r, h.logger)
	if !ok {
		return
	}
	targetID, ok := ParseTargetID(w, r, h.logger)
	if !ok {
		return
	}

	vote, err := h.voteService.GetUserVote(r.Context(), kind, targetID)
	if err != nil {
		writeServiceError(w, err, "get_vote", h.logger)
		return
	}

	writeData(w, http.StatusOK, UserVoteResponse{UserVote: vote}, h.logger)
}
