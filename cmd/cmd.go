// Package cmd provides the CLI commands for the onboarding engine.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - ask: one-shot question from the terminal
//   - ingest: embed the document corpus into pgvector
//
// Signal handling and graceful shutdown are implemented for all
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/memoraiz/onboard/internal/log"
)

// Execute is the main entry point for the onboard CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: os.Getenv("LOG_JSON") != ""})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ask":
		return runAsk(logger)
	case "ingest":
		return runIngest(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Onboard - conversational onboarding assistant for MemorAIz")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  onboard serve [addr]   Start HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  onboard ask <message>  Ask a single question and print the reply")
	fmt.Println("  onboard ingest         Embed the document corpus into pgvector")
	fmt.Println("  onboard --version      Show version information")
	fmt.Println("  onboard --help         Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Gemini API key (at least one provider key is needed)")
	fmt.Println("  OPENAI_API_KEY     OpenAI API key")
	fmt.Println("  DATABASE_URL       PostgreSQL connection URL (optional)")
	fmt.Println("  DEBUG              Enable debug logging")
}
