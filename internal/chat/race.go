package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrAllModelsFailed is returned when no configured model produced any
// output.
var ErrAllModelsFailed = errors.New("all models failed")

// race starts a generation attempt per configured model and streams from
// the first one to go live. An attempt claims the win by producing its
// first chunk (or finishing before anyone streamed); every other attempt is
// cancelled the moment a winner exists.
//
// Returns the winning reply and model name. On error, the first value
// carries whatever text was already streamed so the caller can persist the
// partial reply.
func (a *Agent) race(ctx context.Context, system string, messages []*ai.Message, callback StreamCallback) (text, model string, err error) {
	raceCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	var (
		mu      sync.Mutex
		winner  = -1
		cancels = make([]context.CancelFunc, len(a.models))
	)

	// claim makes attempt i the winner if the race is still open. Losers'
	// contexts are cancelled here, inline, so they stop generating tokens
	// nobody will read.
	claim := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		if winner == -1 {
			winner = i
			for j, cancel := range cancels {
				if j != i {
					cancel()
				}
			}
		}
		return winner == i
	}

	// isWinner reports whether i already holds the win, without claiming.
	isWinner := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return winner == i
	}

	type outcome struct {
		idx      int
		text     string
		won      bool
		err      error
		streamed bool // at least one chunk reached the callback
	}
	results := make(chan outcome, len(a.models))

	for i, name := range a.models {
		attemptCtx, cancel := context.WithCancel(raceCtx)
		cancels[i] = cancel

		go func(i int, name string, ctx context.Context) {
			var acc strings.Builder
			streamed := false

			streamCB := func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
				if !claim(i) {
					return context.Canceled
				}
				t := chunk.Text()
				acc.WriteString(t)
				streamed = true
				if callback == nil {
					return nil
				}
				return callback(cbCtx, t)
			}

			resp, err := genkit.Generate(ctx, a.g,
				ai.WithModelName(name),
				ai.WithSystem(systemPrompt+"\n\n"+system),
				ai.WithMessages(messages...),
				ai.WithTools(a.toolRefs...),
				ai.WithMaxTurns(a.maxTurns),
				ai.WithStreaming(streamCB),
			)
			if err != nil {
				// A failing attempt never claims the win; it only keeps a
				// win it already earned by streaming.
				results <- outcome{idx: i, text: acc.String(), won: isWinner(i), err: err, streamed: streamed}
				return
			}

			text := resp.Text()
			if text == "" {
				text = acc.String()
			}
			results <- outcome{idx: i, text: text, won: claim(i), streamed: streamed}
		}(i, name, attemptCtx)
	}

	var failures []error
	for range a.models {
		out := <-results
		name := a.models[out.idx]

		switch {
		case out.won && out.err == nil:
			a.logger.Info("race winner", "model", name)
			// A model that won at completion without ever streaming still
			// owes the caller its text.
			if !out.streamed && callback != nil && out.text != "" {
				if err := callback(ctx, out.text); err != nil {
					return out.text, name, err
				}
			}
			return out.text, name, nil
		case out.won:
			// The winner failed mid-stream; hand back the partial text.
			a.logger.Warn("winning model failed mid-stream", "model", name, "error", out.err)
			return out.text, name, fmt.Errorf("model %s failed after streaming: %w", name, out.err)
		case out.err == nil:
			// A loser that completed before cancellation reached it.
		case errors.Is(out.err, context.Canceled) && ctx.Err() == nil:
			// A cancelled loser, not a real failure.
		default:
			a.logger.Warn("model attempt failed", "model", name, "error", out.err)
			failures = append(failures, fmt.Errorf("%s: %w", name, out.err))
		}
	}

	if ctx.Err() != nil {
		return "", "", ctx.Err()
	}
	return "", "", fmt.Errorf("%w: %w", ErrAllModelsFailed, errors.Join(failures...))
}
