package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memoraiz/onboard/internal/conversation"
	"github.com/memoraiz/onboard/internal/corpus"
	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/retrieval"
	"github.com/memoraiz/onboard/internal/testutil"
	"github.com/memoraiz/onboard/internal/tools"
)

// committedMessage is one INSERT recorded in commit order.
type committedMessage struct {
	role    string
	content string
}

// messageLogDB fakes the message store's database. userDelay stalls the
// user-row insert so any write that races generation would commit out of
// order.
type messageLogDB struct {
	mu        sync.Mutex
	userDelay time.Duration
	committed []committedMessage
}

func (f *messageLogDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	role, _ := args[2].(string)
	content, _ := args[3].(string)
	if role == conversation.RoleUser && f.userDelay > 0 {
		time.Sleep(f.userDelay)
	}
	f.mu.Lock()
	f.committed = append(f.committed, committedMessage{role: role, content: content})
	f.mu.Unlock()
	return insertedRow{}
}

func (f *messageLogDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return emptyRows{}, nil
}

func (f *messageLogDB) log() []committedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]committedMessage(nil), f.committed...)
}

type insertedRow struct{}

func (insertedRow) Scan(dest ...any) error {
	if ts, ok := dest[0].(*time.Time); ok {
		*ts = time.Now()
	}
	return nil
}

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(...any) error                            { return nil }

func newPersistingAgent(t *testing.T, mock *testutil.MockLLM, db *messageLogDB) *Agent {
	t.Helper()

	g := genkit.Init(context.Background())
	mock.RegisterModel(g, "mock/primary")

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
		Models:   []string{"mock/primary"},
		Tools:    kit.Register(g),
		Profiles: cache,
		Messages: conversation.NewStore(db, testutil.DiscardLogger()),
		Logger:   testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	agent.heroDelay = time.Microsecond
	t.Cleanup(func() { _ = agent.Close() })
	return agent
}

func TestStreamTurnPersistsUserMessageBeforeGeneration(t *testing.T) {
	mock := testutil.NewMockLLM("")
	mock.AddStreamResponse("hello", []string{"Hello ", "world"})
	db := &messageLogDB{userDelay: 150 * time.Millisecond}
	agent := newPersistingAgent(t, mock, db)

	result, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: "hello"}, nil)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}
	if err := agent.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	log := db.log()
	if len(log) != 2 {
		t.Fatalf("committed %d messages, want 2: %+v", len(log), log)
	}
	if log[0].role != conversation.RoleUser || log[0].content != "hello" {
		t.Errorf("first commit = %+v, want the user message", log[0])
	}
	if log[1].role != conversation.RoleAssistant || log[1].content != result.Reply {
		t.Errorf("second commit = %+v, want the assistant reply %q", log[1], result.Reply)
	}
}

func TestStreamTurnPersistsPartialTextOnMidStreamFailure(t *testing.T) {
	mock := testutil.NewMockLLM("")
	mock.AddPartialFailure("hello", []string{"Hel", "lo"}, errors.New("connection reset"))
	db := &messageLogDB{}
	agent := newPersistingAgent(t, mock, db)

	if _, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: "hello"}, nil); err == nil {
		t.Fatal("expected error from mid-stream failure")
	}
	if err := agent.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	log := db.log()
	if len(log) != 2 {
		t.Fatalf("committed %d messages, want 2: %+v", len(log), log)
	}
	if log[1].role != conversation.RoleAssistant || log[1].content != "Hello" {
		t.Errorf("persisted partial = %+v, want the streamed text %q", log[1], "Hello")
	}
}

func TestStreamTurnHeroFastPathPersistsTranscript(t *testing.T) {
	mock := testutil.NewMockLLM("")
	db := &messageLogDB{}
	agent := newPersistingAgent(t, mock, db)

	result, err := agent.StreamTurn(context.Background(),
		TurnRequest{SessionID: "s1", Message: heroPrompt}, nil)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}
	if err := agent.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	log := db.log()
	if len(log) != 2 {
		t.Fatalf("committed %d messages, want 2: %+v", len(log), log)
	}
	if log[0].role != conversation.RoleUser || log[1].content != result.Reply {
		t.Errorf("transcript = %+v", log)
	}
}
