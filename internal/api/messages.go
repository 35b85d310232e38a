package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/memoraiz/onboard/internal/conversation"
)

type messageHandler struct {
	store  *conversation.Store
	logger *slog.Logger
}

// list handles GET /api/messages?sessionId=... and returns the session's
// message log oldest first.
func (h *messageHandler) list(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Missing sessionId")
		return
	}

	messages, err := h.store.ListMessages(r.Context(), sessionID, 0)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err, "sessionId", sessionID)
		writeError(w, http.StatusInternalServerError, "Message list failed")
		return
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, map[string][]conversation.Message{"messages": messages})
}
