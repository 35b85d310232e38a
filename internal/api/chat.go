package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/memoraiz/onboard/internal/chat"
	"github.com/memoraiz/onboard/internal/profile"
)

// SSE event types for chat streaming.
const (
	EventChunk = "chunk" // partial reply text
	EventDone  = "done"  // turn completed
	EventError = "error" // turn failed
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Message        string           `json:"message"`
	ConversationID string           `json:"conversationId"`
	StableUserID   string           `json:"stableUserId"`
	TabSessionID   string           `json:"tabSessionId"`
	Profile        *profile.Profile `json:"profile,omitempty"`
}

// ChunkPayload is the SSE data payload for streaming text.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload closes a successful stream.
type DonePayload struct {
	Reply          string          `json:"reply"`
	Model          string          `json:"model"`
	ConversationID string          `json:"conversationId"`
	Profile        profile.Profile `json:"profile"`
}

// ErrorPayload closes a failed stream.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type chatHandler struct {
	flow   *chat.Flow
	logger *slog.Logger
}

// stream handles POST /api/chat. Validation failures are plain JSON
// errors; once the request is accepted the response switches to SSE.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Missing message")
		return
	}
	stableUserID := strings.TrimSpace(req.StableUserID)
	tabSessionID := strings.TrimSpace(req.TabSessionID)
	conversationID := strings.TrimSpace(req.ConversationID)
	if stableUserID == "" || tabSessionID == "" || conversationID == "" {
		writeError(w, http.StatusBadRequest, "Missing session identifiers")
		return
	}

	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	input := chat.Input{
		Message:   req.Message,
		SessionID: conversationID,
		UserID:    stableUserID,
		Profile:   req.Profile,
	}

	h.logger.Debug("chat stream started", "conversationId", conversationID)

	var (
		finalOutput chat.Output
		streamErr   error
	)

	for streamValue, err := range h.flow.Stream(ctx, input) {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "conversationId", conversationID)
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}

		if streamValue.Done {
			finalOutput = streamValue.Output
			break
		}

		if streamValue.Stream.Text != "" {
			if err := writeEvent(w, flusher, EventChunk, ChunkPayload{Text: streamValue.Stream.Text}); err != nil {
				h.logger.Error("failed to write chunk", "error", err)
				return
			}
		}
	}

	if streamErr != nil {
		h.handleStreamError(w, flusher, streamErr)
		return
	}

	_ = writeEvent(w, flusher, EventDone, DonePayload{
		Reply:          finalOutput.Reply,
		Model:          finalOutput.Model,
		ConversationID: conversationID,
		Profile:        finalOutput.Profile,
	})

	h.logger.Info("chat stream completed", "conversationId", conversationID, "model", finalOutput.Model)
}

// handleStreamError maps agent errors to SSE error events.
func (*chatHandler) handleStreamError(w io.Writer, f http.Flusher, err error) {
	code := "STREAM_ERROR"
	if errors.Is(err, chat.ErrAllModelsFailed) {
		code = "ALL_MODELS_FAILED"
	}

	_ = writeEvent(w, f, EventError, ErrorPayload{
		Code:    code,
		Message: err.Error(),
	})
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
