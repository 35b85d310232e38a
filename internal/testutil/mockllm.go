// Package testutil provides shared test infrastructure: deterministic mock
// models and embedders, a throwaway PostgreSQL container, and small helpers.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM is a deterministic model for tests. It matches the last user
// message against registered patterns and replays the matching rule: a
// sequence of stream chunks, optional tool requests, an optional failure.
//
// Safe for concurrent use, which matters when several mock models race.
type MockLLM struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback string
	calls    []MockCall
}

type mockRule struct {
	pattern string            // lowercased substring of the user message
	chunks  []string          // streamed in order; their concatenation is the reply text
	tools   []*ai.ToolRequest // tool calls to request before the text
	err     error             // returned after streaming chunks, if set
	delay   time.Duration     // pause before each chunk
}

// MockCall records one generate invocation.
type MockCall struct {
	Model       string
	UserMessage string
	Response    string
}

// NewMockLLM creates a mock that answers fallback when no pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a single-chunk reply for messages containing pattern.
// Patterns match case-insensitively, first registered wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.addRule(mockRule{pattern: strings.ToLower(pattern), chunks: []string{response}})
}

// AddStreamResponse registers a reply streamed as the given chunks.
func (m *MockLLM) AddStreamResponse(pattern string, chunks []string) {
	m.addRule(mockRule{pattern: strings.ToLower(pattern), chunks: chunks})
}

// AddToolResponse registers a reply that first requests the given tools.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, response string) {
	m.addRule(mockRule{pattern: strings.ToLower(pattern), chunks: []string{response}, tools: tools})
}

// AddError registers a failure: generate returns err without streaming.
func (m *MockLLM) AddError(pattern string, err error) {
	m.addRule(mockRule{pattern: strings.ToLower(pattern), err: err})
}

// AddPartialFailure registers a reply that streams chunks and then fails.
func (m *MockLLM) AddPartialFailure(pattern string, chunks []string, err error) {
	m.addRule(mockRule{pattern: strings.ToLower(pattern), chunks: chunks, err: err})
}

// AddDelayedResponse registers a reply whose chunks are each preceded by
// delay. Use different delays across models to fix race outcomes.
func (m *MockLLM) AddDelayedResponse(pattern string, chunks []string, delay time.Duration) {
	m.addRule(mockRule{pattern: strings.ToLower(pattern), chunks: chunks, delay: delay})
}

func (m *MockLLM) addRule(r mockRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
}

// Calls returns a copy of all recorded calls across every registered model.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears recorded calls but keeps the registered rules.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// RegisterModel registers the mock under the given provider-qualified name,
// e.g. "mock/fast". Register the same MockLLM under several names to build a
// race field with shared rules and a shared call log.
func (m *MockLLM) RegisterModel(g *genkit.Genkit, name string) ai.Model {
	return genkit.DefineModel(g, name, &ai.ModelOptions{
		Label: "Mock " + name,
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		return m.generate(ctx, name, req, cb)
	})
}

func (m *MockLLM) generate(ctx context.Context, model string, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	var matched *mockRule
	lower := strings.ToLower(userText)
	for i := range m.rules {
		if strings.Contains(lower, m.rules[i].pattern) {
			matched = &m.rules[i]
			break
		}
	}
	m.mu.Unlock()

	chunks := []string{m.fallback}
	var rule mockRule
	if matched != nil {
		rule = *matched
		chunks = rule.chunks
	}

	var full strings.Builder
	for _, chunk := range chunks {
		if rule.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rule.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		full.WriteString(chunk)
		if cb != nil {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(chunk)},
			}); err != nil {
				return nil, err
			}
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Model: model, UserMessage: userText, Response: full.String()})
	m.mu.Unlock()

	if rule.err != nil {
		return nil, rule.err
	}

	var parts []*ai.Part
	for _, tr := range rule.tools {
		parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
	}
	parts = append(parts, ai.NewTextPart(full.String()))

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}
