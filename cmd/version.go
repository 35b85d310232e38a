package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion displays version and environment information.
func runVersion() {
	fmt.Printf("Onboard %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	if key := os.Getenv("GEMINI_API_KEY"); len(key) > 8 {
		fmt.Printf("GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else {
		fmt.Println("GEMINI_API_KEY: not set")
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		fmt.Println("OPENAI_API_KEY: configured")
	} else {
		fmt.Println("OPENAI_API_KEY: not set")
	}
	if os.Getenv("DATABASE_URL") != "" {
		fmt.Println("DATABASE_URL: configured")
	} else {
		fmt.Println("DATABASE_URL: not set")
	}
}
