package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/memoraiz/onboard/internal/profile"
)

// ProfileUpdateRequest is the POST /api/profile body.
type ProfileUpdateRequest struct {
	ConversationID string           `json:"conversationId"`
	StableUserID   string           `json:"stableUserId,omitempty"`
	Profile        *profile.Profile `json:"profile"`
}

type profileHandler struct {
	cache  *profile.Cache
	store  *profile.Store // nil without PostgreSQL
	logger *slog.Logger
}

// get returns the profile for a conversation. The durable row wins over
// the in-process cache; a database hit also refreshes the cache.
func (h *profileHandler) get(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversationId"))
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "Missing conversationId")
		return
	}

	if h.store != nil {
		p, found, err := h.store.Get(r.Context(), conversationID)
		if err != nil {
			h.logger.Warn("profile lookup failed, serving cache", "error", err, "conversationId", conversationID)
		} else if found {
			h.cache.Set(conversationID, p)
			writeJSON(w, http.StatusOK, map[string]profile.Profile{"profile": p})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]profile.Profile{"profile": h.cache.Get(conversationID)})
}

// update replaces a conversation's profile. The cache write is
// authoritative for the response; the durable upsert failing only logs.
func (h *profileHandler) update(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" || req.Profile == nil {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}

	h.cache.Set(req.ConversationID, *req.Profile)

	if h.store != nil {
		userID := req.StableUserID
		if userID == "" {
			userID = req.ConversationID
		}
		if err := h.store.Upsert(r.Context(), req.ConversationID, userID, *req.Profile); err != nil {
			h.logger.Warn("profile upsert failed", "error", err, "conversationId", req.ConversationID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
