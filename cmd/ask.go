package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/memoraiz/onboard/internal/app"
	"github.com/memoraiz/onboard/internal/chat"
	"github.com/memoraiz/onboard/internal/config"
)

// runAsk answers a single question and prints the streamed reply.
func runAsk(logger *slog.Logger) error {
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return fmt.Errorf("usage: onboard ask <message>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Agent.StreamTurn(ctx, chat.TurnRequest{
		SessionID: uuid.NewString(),
		Message:   question,
	}, func(_ context.Context, chunk string) error {
		fmt.Print(chunk)
		return nil
	})
	if err != nil {
		return fmt.Errorf("generating reply: %w", err)
	}

	fmt.Println()
	logger.Debug("turn completed", "model", result.Model)
	return nil
}
