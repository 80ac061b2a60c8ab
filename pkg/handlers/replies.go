package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/services"
)

// ReplyHandler handles replies on evidence and perspectives.
type ReplyHandler struct {
	replyService services.ReplyService
	logger       *zap.Logger
}

// NewReplyHandler creates a new reply handler.
func NewReplyHandler(replyService services.ReplyService, logger *zap.Logger) *ReplyHandler {
	return &ReplyHandler{
		replyService: replyService,
		logger:       logger,
	}
}

// RegisterRoutes registers the reply handler's routes on the given mux.
func (h *ReplyHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/replies", authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("GET /api/{kind}/{tid}/replies", scope(h.List))
}

// Create handles POST /api/replies
func (h *ReplyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateReplyInput
	if !decodeBody(w, r, &in, h.logger) {
		return
	}

	reply, err := h.replyService.Create(r.Context(), &in)
	if err != nil {
		writeServiceError(w, err, "create_reply", h.logger)
		return
	}

	writeData(w, http.StatusCreated, reply, h.logger)
}

// List handles GET /api/{kind}/{tid}/replies
func (h *ReplyHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseTargetKind(w, r, h.logger)
	if !ok {
		return
	}
	targetID, ok := ParseTargetID(w, r, h.logger)
	if !ok {
		return
	}

	replies, err := h.replyService.ListByTarget(r.Context(), kind, targetID)
	if err != nil {
		writeServiceError(w, err, "list_replies", h.logger)
		return
	}
	if replies == nil {
		replies = []*models.Reply{}
	}

	writeData(w, http.StatusOK, replies, h.logger)
}
