package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/models"
)

const maxRequestBody = 1 << 20

// ParseClaimID extracts and validates the claim ID from the request path.
// Returns uuid.Nil and false after writing an error response on failure.
// Expects path parameter: cid
func ParseClaimID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "cid", "invalid_claim_id", "Invalid claim ID format", logger)
}

// ParseTargetID extracts and validates a vote/reply/moderation target ID.
// Expects path parameter: tid
func ParseTargetID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "tid", "invalid_target_id", "Invalid target ID format", logger)
}

// ParseTargetKind reads the {kind} path parameter. Plural forms are accepted.
func ParseTargetKind(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.TargetKind, bool) {
	kind, ok := models.ParseTargetKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_kind", fmt.Sprintf("Unknown target kind %q", r.PathValue("kind")), logger)
		return "", false
	}
	return kind, true
}

func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(pathParam))
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode, errorMessage, logger)
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}
	return true
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
