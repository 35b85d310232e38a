// Package chat orchestrates one assistant turn: persist the user message,
// serve hero prompts from the canned fast path, otherwise race every
// configured model and stream the first live response.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/memoraiz/onboard/internal/conversation"
	"github.com/memoraiz/onboard/internal/hero"
	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/tools"
)

// HeroModelName identifies the fast path in turn results, where a real
// provider-qualified model name would otherwise appear.
const HeroModelName = "hero"

// heroWordDelay paces fast-path streaming to a natural typing speed.
const heroWordDelay = 30 * time.Millisecond

// closeTimeout bounds how long Close waits for background persistence.
const closeTimeout = 5 * time.Second

// StreamCallback receives response text as it is produced. Returning an
// error aborts the stream.
type StreamCallback func(ctx context.Context, chunk string) error

// TurnRequest is one user turn.
type TurnRequest struct {
	SessionID string
	UserID    string
	Message   string
	// Profile optionally carries the client's current canvas; when set it
	// seeds the cache before generation.
	Profile *profile.Profile
}

// TurnResult is the completed turn.
type TurnResult struct {
	Reply   string
	Model   string
	Profile profile.Profile
}

// Config carries the Agent's dependencies and tuning.
type Config struct {
	Genkit *genkit.Genkit
	Models []string  // provider-qualified, raced in order of configuration
	Tools  []ai.Tool // pre-registered via tools.Kit.Register

	Profiles     *profile.Cache
	ProfileStore *profile.Store      // nil without PostgreSQL
	Messages     *conversation.Store // nil without PostgreSQL
	Logger       *slog.Logger

	MaxTurns           int
	MaxHistoryMessages int
	RateLimiter        *rate.Limiter // nil = default 10 rps, burst 30
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if len(cfg.Models) == 0 {
		return errors.New("at least one model is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	if cfg.Profiles == nil {
		return errors.New("profile cache is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Agent runs assistant turns. Construct once and share; all fields are
// immutable after New.
type Agent struct {
	g            *genkit.Genkit
	models       []string
	toolRefs     []ai.ToolRef
	profiles     *profile.Cache
	profileStore *profile.Store
	messages     *conversation.Store
	logger       *slog.Logger

	maxTurns   int
	maxHistory int
	limiter    *rate.Limiter
	heroDelay  time.Duration

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// New creates an Agent from cfg.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	maxHistory := cfg.MaxHistoryMessages
	if maxHistory <= 0 {
		maxHistory = 100
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	a := &Agent{
		g:            cfg.Genkit,
		models:       cfg.Models,
		toolRefs:     toolRefs,
		profiles:     cfg.Profiles,
		profileStore: cfg.ProfileStore,
		messages:     cfg.Messages,
		logger:       cfg.Logger,
		maxTurns:     maxTurns,
		maxHistory:   maxHistory,
		limiter:      limiter,
		heroDelay:    heroWordDelay,
		bgCtx:        bgCtx,
		bgCancel:     bgCancel,
	}

	a.logger.Info("chat agent initialized",
		"models", strings.Join(a.models, ", "),
		"maxTurns", a.maxTurns)
	return a, nil
}

// Execute runs a turn without streaming.
func (a *Agent) Execute(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return a.StreamTurn(ctx, req, nil)
}

// StreamTurn runs a turn, forwarding response text to callback as it is
// produced. callback may be nil.
//
// The user message is persisted before generation and the assistant reply
// after it; persistence failures are logged, never surfaced. When the turn
// fails after streaming has begun, the partial text is persisted so the
// transcript matches what the user saw.
func (a *Agent) StreamTurn(ctx context.Context, req TurnRequest, callback StreamCallback) (*TurnResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is empty")
	}

	current := a.loadProfile(ctx, req)
	a.persistUserMessage(ctx, req.SessionID, req.Message)

	if answer, ok := hero.Answer(req.Message); ok {
		a.logger.Info("hero fast path", "session", req.SessionID)
		if err := a.streamHeroAnswer(ctx, answer, callback); err != nil {
			return nil, err
		}
		a.persistMessage(req.SessionID, conversation.RoleAssistant, answer)
		return &TurnResult{Reply: answer, Model: HeroModelName, Profile: a.profiles.Get(req.SessionID)}, nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx = tools.ContextWithSessionID(ctx, req.SessionID)
	messages := a.buildMessages(ctx, req)

	reply, model, err := a.race(ctx, BuildProfileContext(current), messages, callback)
	if err != nil {
		if reply != "" {
			a.persistMessage(req.SessionID, conversation.RoleAssistant, reply)
		}
		return nil, err
	}

	a.persistMessage(req.SessionID, conversation.RoleAssistant, reply)
	return &TurnResult{Reply: reply, Model: model, Profile: a.profiles.Get(req.SessionID)}, nil
}

// loadProfile resolves the canvas for this turn: the client's copy wins,
// then the durable row, then whatever the cache already has.
func (a *Agent) loadProfile(ctx context.Context, req TurnRequest) profile.Profile {
	if req.Profile != nil {
		a.profiles.Set(req.SessionID, *req.Profile)
		return *req.Profile
	}
	if a.profileStore != nil {
		stored, found, err := a.profileStore.Get(ctx, req.SessionID)
		if err != nil {
			a.logger.Warn("loading stored profile failed", "session", req.SessionID, "error", err)
		} else if found {
			a.profiles.Set(req.SessionID, stored)
			return stored
		}
	}
	return a.profiles.Get(req.SessionID)
}

// buildMessages assembles prior history plus the current user message.
func (a *Agent) buildMessages(ctx context.Context, req TurnRequest) []*ai.Message {
	var messages []*ai.Message
	if a.messages != nil {
		history, err := a.messages.ListMessages(ctx, req.SessionID, a.maxHistory)
		if err != nil {
			a.logger.Warn("loading history failed", "session", req.SessionID, "error", err)
		}
		for _, m := range history {
			switch m.Role {
			case conversation.RoleUser:
				messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
			case conversation.RoleAssistant:
				messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
			}
		}
	}
	return append(messages, ai.NewUserMessage(ai.NewTextPart(req.Message)))
}

// streamHeroAnswer replays a canned answer word by word at typing speed.
func (a *Agent) streamHeroAnswer(ctx context.Context, answer string, callback StreamCallback) error {
	if callback == nil {
		return nil
	}
	for _, token := range splitKeepingSpace(answer) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.heroDelay):
		}
		if err := callback(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

// splitKeepingSpace splits text into alternating word and whitespace runs so
// the concatenation of the tokens reproduces the input exactly.
func splitKeepingSpace(text string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if i > 0 && isSpace != inSpace {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// persistUserMessage writes the user message synchronously so it commits
// before generation starts and the transcript keeps request/response
// order. Failures are logged and swallowed.
func (a *Agent) persistUserMessage(ctx context.Context, sessionID, content string) {
	if a.messages == nil || content == "" {
		return
	}
	if _, err := a.messages.AppendMessage(ctx, sessionID, conversation.RoleUser, content); err != nil {
		a.logger.Warn("persisting message failed",
			"session", sessionID, "role", conversation.RoleUser, "error", err)
	}
}

// persistMessage writes a chat message in the background. Failures are
// logged and swallowed; the conversation continues either way.
func (a *Agent) persistMessage(sessionID, role, content string) {
	if a.messages == nil || content == "" {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(a.bgCtx, 10*time.Second)
		defer cancel()
		if _, err := a.messages.AppendMessage(ctx, sessionID, role, content); err != nil {
			a.logger.Warn("persisting message failed",
				"session", sessionID, "role", role, "error", err)
		}
	}()
}

// Close waits for background persistence, then cancels what remains.
func (a *Agent) Close() error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(closeTimeout):
		a.logger.Warn("timed out waiting for background persistence")
	}
	a.bgCancel()
	return nil
}
