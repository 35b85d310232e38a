package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/memoraiz/onboard/internal/corpus"
	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/retrieval"
	"github.com/memoraiz/onboard/internal/testutil"
	"github.com/memoraiz/onboard/internal/tools"
)

// heroPrompt is one of the canned landing page questions.
const heroPrompt = "what is memoraiz and how can it help my company?"

func newTestAgent(t *testing.T, mock *testutil.MockLLM, models []string) *Agent {
	t.Helper()

	g := genkit.Init(context.Background())
	for _, name := range models {
		mock.RegisterModel(g, name)
	}

	dir := t.TempDir()
	content := "# Pricing\n\nPlans start at 99 euro per month."
	if err := os.WriteFile(filepath.Join(dir, "catalog.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	lib := corpus.NewLibrary(dir, nil, testutil.DiscardLogger())
	svc := retrieval.New(nil, lib, testutil.DiscardLogger())

	cache := profile.NewCache()
	kit, err := tools.NewKit(svc, cache, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewKit() error = %v", err)
	}
	t.Cleanup(func() { _ = kit.Close() })

	agent, err := New(Config{
		Genkit:   g,
		Models:   models,
		Tools:    kit.Register(g),
		Profiles: cache,
		Logger:   testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	agent.heroDelay = time.Microsecond
	t.Cleanup(func() { _ = agent.Close() })
	return agent
}

func collectChunks(chunks *[]string, mu *sync.Mutex) StreamCallback {
	return func(_ context.Context, chunk string) error {
		mu.Lock()
		defer mu.Unlock()
		*chunks = append(*chunks, chunk)
		return nil
	}
}

func TestStreamTurnHeroFastPath(t *testing.T) {
	mock := testutil.NewMockLLM("model answer")
	agent := newTestAgent(t, mock, []string{"mock/only"})

	var mu sync.Mutex
	var chunks []string
	result, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: heroPrompt},
		collectChunks(&chunks, &mu))
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}

	if result.Model != HeroModelName {
		t.Errorf("model = %q, want %q", result.Model, HeroModelName)
	}
	if strings.Join(chunks, "") != result.Reply {
		t.Error("streamed chunks do not reassemble into the reply")
	}
	if len(chunks) < 10 {
		t.Errorf("hero answer streamed in %d chunks, want word granularity", len(chunks))
	}
	if len(mock.Calls()) != 0 {
		t.Error("hero fast path must not call any model")
	}
}

func TestStreamTurnHeroExactMatchOnly(t *testing.T) {
	mock := testutil.NewMockLLM("model answer")
	agent := newTestAgent(t, mock, []string{"mock/only"})

	// Same words, missing question mark: must go through the models.
	result, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: "what is memoraiz and how can it help my company"}, nil)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}
	if result.Model == HeroModelName {
		t.Error("near-miss prompt took the hero fast path")
	}
	if result.Reply != "model answer" {
		t.Errorf("reply = %q", result.Reply)
	}
}

func TestStreamTurnRacePrefersFasterModel(t *testing.T) {
	slow := testutil.NewMockLLM("")
	slow.AddDelayedResponse("question", []string{"slow answer"}, 300*time.Millisecond)
	fast := testutil.NewMockLLM("")
	fast.AddStreamResponse("question", []string{"fast ", "answer"})

	g := genkit.Init(context.Background())
	slow.RegisterModel(g, "mock/slow")
	fast.RegisterModel(g, "mock/fast")

	agent := newAgentWithGenkit(t, g, []string{"mock/slow", "mock/fast"})

	var mu sync.Mutex
	var chunks []string
	result, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: "a question"},
		collectChunks(&chunks, &mu))
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}
	if result.Model != "mock/fast" {
		t.Errorf("winner = %q, want mock/fast", result.Model)
	}
	if result.Reply != "fast answer" {
		t.Errorf("reply = %q", result.Reply)
	}
	if strings.Join(chunks, "") != "fast answer" {
		t.Errorf("streamed %q", strings.Join(chunks, ""))
	}

	// The slow attempt is cancelled while waiting out its delay, so it
	// never completes a generation.
	time.Sleep(400 * time.Millisecond)
	if calls := slow.Calls(); len(calls) != 0 {
		t.Errorf("losing model completed despite cancellation: %+v", calls)
	}
}

// newAgentWithGenkit builds an agent over an existing genkit instance with
// models already registered.
func newAgentWithGenkit(t *testing.T, g *genkit.Genkit, models []string) *Agent {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("# Doc\n\ntext"), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	lib := corpus.NewLibrary(dir, nil, testutil.DiscardLogger())
	svc := retrieval.New(nil, lib, testutil.DiscardLogger())
	cache := profile.NewCache()
	kit, err := tools.NewKit(svc, cache, nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewKit() error = %v", err)
	}
	t.Cleanup(func() { _ = kit.Close() })

	agent, err := New(Config{
		Genkit:   g,
		Models:   models,
		Tools:    kit.Register(g),
		Profiles: cache,
		Logger:   testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	agent.heroDelay = time.Microsecond
	t.Cleanup(func() { _ = agent.Close() })
	return agent
}

func TestStreamTurnPartialFailureKeepsStreamedText(t *testing.T) {
	mock := testutil.NewMockLLM("")
	mock.AddPartialFailure("hello", []string{"Hel", "lo"}, errors.New("connection reset"))
	agent := newTestAgent(t, mock, []string{"mock/flaky"})

	var mu sync.Mutex
	var chunks []string
	_, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: "hello"},
		collectChunks(&chunks, &mu))
	if err == nil {
		t.Fatal("expected error from mid-stream failure")
	}
	if strings.Join(chunks, "") != "Hello" {
		t.Errorf("streamed %q before the failure, want %q", strings.Join(chunks, ""), "Hello")
	}
}

func TestStreamTurnAllModelsFailed(t *testing.T) {
	mock := testutil.NewMockLLM("")
	mock.AddError("hello", errors.New("quota exceeded"))
	agent := newTestAgent(t, mock, []string{"mock/a", "mock/b"})

	_, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: "hello"}, nil)
	if !errors.Is(err, ErrAllModelsFailed) {
		t.Fatalf("error = %v, want ErrAllModelsFailed", err)
	}
}

func TestStreamTurnEmptyMessage(t *testing.T) {
	mock := testutil.NewMockLLM("")
	agent := newTestAgent(t, mock, []string{"mock/only"})

	if _, err := agent.StreamTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "  "}, nil); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestStreamTurnSeedsProfileFromRequest(t *testing.T) {
	mock := testutil.NewMockLLM("noted")
	agent := newTestAgent(t, mock, []string{"mock/only"})

	seed := &profile.Profile{Name: "Acme", Industry: "Publishing"}
	result, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: "here is context", Profile: seed}, nil)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}
	if result.Profile.Name != "Acme" {
		t.Errorf("result profile = %+v, want the seeded canvas", result.Profile)
	}
}

func TestConfigValidation(t *testing.T) {
	g := genkit.Init(context.Background())
	cache := profile.NewCache()
	logger := testutil.DiscardLogger()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing genkit", cfg: Config{Models: []string{"m/x"}, Profiles: cache, Logger: logger}},
		{name: "missing models", cfg: Config{Genkit: g, Profiles: cache, Logger: logger}},
		{name: "missing tools", cfg: Config{Genkit: g, Models: []string{"m/x"}, Profiles: cache, Logger: logger}},
		{name: "missing profiles", cfg: Config{Genkit: g, Models: []string{"m/x"}, Logger: logger}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() accepted invalid config")
			}
		})
	}
}

func TestBuildProfileContext(t *testing.T) {
	t.Parallel()

	empty := BuildProfileContext(profile.Profile{})
	if strings.Count(empty, "(unknown)") != 6 {
		t.Errorf("empty profile context = %q", empty)
	}

	full := BuildProfileContext(profile.Profile{
		Name: "Acme", Industry: "Publishing", Description: "books",
		AIMaturityLevel: "Explorer", AIUsage: "summaries", Goals: "support",
	})
	if strings.Contains(full, "(unknown)") {
		t.Errorf("full profile context still has unknowns: %q", full)
	}
	if !strings.Contains(full, "- Name: Acme") {
		t.Errorf("context missing name line: %q", full)
	}
}

func TestSplitKeepingSpace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  int // token count
	}{
		{"one two", 3},
		{"a\n\nb", 3},
		{"", 0},
		{"single", 1},
	}
	for _, tt := range tests {
		tokens := splitKeepingSpace(tt.input)
		if len(tokens) != tt.want {
			t.Errorf("splitKeepingSpace(%q) = %d tokens, want %d", tt.input, len(tokens), tt.want)
		}
		if strings.Join(tokens, "") != tt.input {
			t.Errorf("splitKeepingSpace(%q) does not reassemble", tt.input)
		}
	}
}
