package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	"github.com/memoraiz/onboard/internal/profile"
)

// Input is the chat flow input.
type Input struct {
	Message   string           `json:"message"`
	SessionID string           `json:"sessionId"`
	UserID    string           `json:"userId,omitempty"`
	Profile   *profile.Profile `json:"profile,omitempty"`
}

// Output is the chat flow output.
type Output struct {
	Reply     string          `json:"reply"`
	Model     string          `json:"model"`
	SessionID string          `json:"sessionId"`
	Profile   profile.Profile `json:"profile"`
}

// StreamChunk is one streamed piece of the reply.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the flow's registered name in genkit.
const FlowName = "onboard/chat"

// Flow is the chat flow type, exported for the api package.
type Flow = core.Flow[Input, Output, StreamChunk]

// Genkit panics on duplicate flow registration, so the flow is a process
// singleton.
var (
	flowOnce sync.Once
	flow     *Flow
)

// InitFlow defines the chat flow once and returns it. Later calls return
// the already-defined flow regardless of arguments.
func InitFlow(g *genkit.Genkit, agent *Agent) *Flow {
	flowOnce.Do(func() {
		flow = defineFlow(g, agent)
	})
	return flow
}

// ResetFlowForTesting clears the singleton so tests can register a flow
// against their own genkit instance. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

func defineFlow(g *genkit.Genkit, agent *Agent) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			if input.SessionID == "" {
				return Output{}, fmt.Errorf("sessionId is required")
			}

			var callback StreamCallback
			if streamCb != nil {
				callback = func(ctx context.Context, chunk string) error {
					return streamCb(ctx, StreamChunk{Text: chunk})
				}
			}

			result, err := agent.StreamTurn(ctx, TurnRequest{
				SessionID: input.SessionID,
				UserID:    input.UserID,
				Message:   input.Message,
				Profile:   input.Profile,
			}, callback)
			if err != nil {
				return Output{SessionID: input.SessionID}, err
			}

			return Output{
				Reply:     result.Reply,
				Model:     result.Model,
				SessionID: input.SessionID,
				Profile:   result.Profile,
			}, nil
		})
}
