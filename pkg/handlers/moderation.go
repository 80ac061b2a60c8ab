package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/services"
)

const defaultLogLimit = 100

// ReasonRequest for reject and flag.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// SetStatusRequest for PUT /api/moderation/{kind}/{tid}/status
type SetStatusRequest struct {
	Status models.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// ModerationHandler handles moderator-only endpoints.
type ModerationHandler struct {
	moderationService services.ModerationService
	contentService    services.ContentService
	logger            *zap.Logger
}

// NewModerationHandler creates a new moderation handler.
func NewModerationHandler(
	moderationService services.ModerationService,
	contentService services.ContentService,
	logger *zap.Logger,
) *ModerationHandler {
	return &ModerationHandler{
		moderationService: moderationService,
		contentService:    contentService,
		logger:            logger,
	}
}

// RegisterRoutes registers the moderation routes. Every route requires moderatorRole.
func (h *ModerationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware, moderatorRole string) {
	requireModerator := authMiddleware.RequireRole(moderatorRole)
	base := "/api/moderation"

	mux.HandleFunc("POST "+base+"/claims/{cid}/approve", requireModerator(scope(h.Approve)))
	mux.HandleFunc("POST "+base+"/claims/{cid}/reject", requireModerator(scope(h.Reject)))
	mux.HandleFunc("POST "+base+"/claims/{cid}/flag", requireModerator(scope(h.Flag)))
	mux.HandleFunc("PUT "+base+"/{kind}/{tid}/status", requireModerator(scope(h.SetStatus)))
	mux.HandleFunc("GET "+base+"/logs", requireModerator(scope(h.ListLogs)))
}

// Approve handles POST /api/moderation/claims/{cid}/approve
// The body is optional; when present it carries title/description edits.
func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claimID, ok := ParseClaimID(w, r, h.logger)
	if !ok {
		return
	}

	var edits models.ClaimEdits
	hasEdits, ok := decodeOptionalBody(w, r, &edits, h.logger)
	if !ok {
		return
	}
	var editsPtr *models.ClaimEdits
	if hasEdits {
		editsPtr = &edits
	}

	claim, err := h.moderationService.Approve(r.Context(), claimID, auth.GetUserIDFromContext(r.Context()), editsPtr)
	if err != nil {
		writeServiceError(w, err, "approve_claim", h.logger)
		return
	}

	writeData(w, http.StatusOK, claim, h.logger)
}

// Reject handles POST /api/moderation/claims/{cid}/reject
func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.closeClaim(w, r, "reject_claim", h.moderationService.Reject)
}

// Flag handles POST /api/moderation/claims/{cid}/flag
func (h *ModerationHandler) Flag(w http.ResponseWriter, r *http.Request) {
	h.closeClaim(w, r, "flag_claim", h.moderationService.Flag)
}

type closeFunc func(ctx context.Context, claimID uuid.UUID, moderatorID, reason string) (*models.Claim, error)

func (h *ModerationHandler) closeClaim(w http.ResponseWriter, r *http.Request, op string, fn closeFunc) {
	claimID, ok := ParseClaimID(w, r, h.logger)
	if !ok {
		return
	}

	var req ReasonRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	claim, err := fn(r.Context(), claimID, auth.GetUserIDFromContext(r.Context()), req.Reason)
	if err != nil {
		writeServiceError(w, err, op, h.logger)
		return
	}

	writeData(w, http.StatusOK, claim, h.logger)
}

// SetStatus handles PUT /api/moderation/{kind}/{tid}/status
func (h *ModerationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	kind, ok := ParseTargetKind(w, r, h.logger)
	if !ok {
		return
	}
	targetID, ok := ParseTargetID(w, r, h.logger)
	if !ok {
		return
	}

	var req SetStatusRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	result, err := h.contentService.SetStatus(r.Context(), kind, targetID, auth.GetUserIDFromContext(r.Context()), req.Status, req.Reason)
	if err != nil {
		writeServiceError(w, err, "set_content_status", h.logger)
		return
	}

	writeData(w, http.StatusOK, result, h.logger)
}

// ListLogs handles GET /api/moderation/logs?target_type=&target_id=&limit=
// Without a target it returns the most recent entries.
func (h *ModerationHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		logs []*models.ModerationLog
		err  error
	)
	if q.Get("target_type") == "" && q.Get("target_id") == "" {
		limit, perr := queryInt(r, "limit", defaultLogLimit)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", perr.Error(), h.logger)
			return
		}
		logs, err = h.moderationService.ListRecentLogs(r.Context(), limit)
	} else {
		kind, ok := models.ParseTargetKind(q.Get("target_type"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_kind", "Unknown target_type", h.logger)
			return
		}
		targetID, perr := uuid.Parse(q.Get("target_id"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_target_id", "Invalid target ID format", h.logger)
			return
		}
		logs, err = h.moderationService.ListLogs(r.Context(), kind, targetID)
	}
	if err != nil {
		writeServiceError(w, err, "list_moderation_logs", h.logger)
		return
	}
	if logs == nil {
		logs = []*models.ModerationLog{}
	}

	writeData(w, http.StatusOK, logs, h.logger)
}

// decodeOptionalBody decodes a JSON body if one was sent. It reports whether
// a body was present, and false in the second value after writing a 400.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) (bool, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return false, true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, true
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false, false
	}
	return true, true
}
