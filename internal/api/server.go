package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memoraiz/onboard/internal/chat"
	"github.com/memoraiz/onboard/internal/conversation"
	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/retrieval"
)

// ServerConfig carries the API server's dependencies.
type ServerConfig struct {
	Logger        *slog.Logger
	ChatFlow      *chat.Flow          // required
	Retrieval     *retrieval.Service  // required
	Profiles      *profile.Cache      // required
	ProfileStore  *profile.Store      // nil without PostgreSQL
	Messages      *conversation.Store // nil without PostgreSQL
	Pool          *pgxpool.Pool       // nil without PostgreSQL
	LLMConfigured bool
}

// Server is the JSON/SSE HTTP API.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires all routes. The message history endpoint is only
// registered when a message store is configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.ChatFlow == nil {
		return nil, errors.New("chat flow is required")
	}
	if cfg.Retrieval == nil {
		return nil, errors.New("retrieval service is required")
	}
	if cfg.Profiles == nil {
		return nil, errors.New("profile cache is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{flow: cfg.ChatFlow, logger: logger}
	rh := &retrieveHandler{retrieval: cfg.Retrieval, logger: logger}
	ph := &profileHandler{cache: cfg.Profiles, store: cfg.ProfileStore, logger: logger}
	hh := &healthHandler{pool: cfg.Pool, llmConfigured: cfg.LLMConfigured, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.stream)
	mux.HandleFunc("POST /api/retrieve", rh.retrieve)
	mux.HandleFunc("GET /api/profile", ph.get)
	mux.HandleFunc("POST /api/profile", ph.update)

	if cfg.Messages != nil {
		mh := &messageHandler{store: cfg.Messages, logger: logger}
		mux.HandleFunc("GET /api/messages", mh.list)
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /api/health", hh.health)
	topMux.HandleFunc("GET /ready", hh.readiness)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
