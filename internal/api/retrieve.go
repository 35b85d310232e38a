package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/memoraiz/onboard/internal/retrieval"
)

const maxRetrieveLimit = 10

// RetrieveRequest is the POST /api/retrieve body.
type RetrieveRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// RetrieveMetadata describes one returned snippet.
type RetrieveMetadata struct {
	Title  string  `json:"title"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// RetrieveResponse pairs snippet texts with their metadata by index.
type RetrieveResponse struct {
	Contexts []string           `json:"contexts"`
	Metadata []RetrieveMetadata `json:"metadata"`
}

type retrieveHandler struct {
	retrieval *retrieval.Service
	logger    *slog.Logger
}

func (h *retrieveHandler) retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query (string) is required")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > maxRetrieveLimit {
		limit = maxRetrieveLimit
	}

	snippets, err := h.retrieval.Retrieve(r.Context(), req.Query, limit)
	if err != nil {
		h.logger.Error("retrieval failed", "error", err, "query", req.Query)
		writeError(w, http.StatusInternalServerError, "Retrieval failed")
		return
	}

	resp := RetrieveResponse{
		Contexts: make([]string, 0, len(snippets)),
		Metadata: make([]RetrieveMetadata, 0, len(snippets)),
	}
	for _, s := range snippets {
		resp.Contexts = append(resp.Contexts, s.Content)
		resp.Metadata = append(resp.Metadata, RetrieveMetadata{
			Title:  s.Title,
			Source: s.Source,
			Score:  s.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
