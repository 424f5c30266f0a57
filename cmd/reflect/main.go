// Command reflect is an interactive terminal client for reflect turns.
// It loads a document from a JSON file and runs one turn per entered prompt,
// feeding each revised document into the next turn of the same thread.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"reflector/internal/capabilities"
	"reflector/internal/config"
	"reflector/internal/domain/models"
	"reflector/internal/repository/memory"
	llmService "reflector/internal/service/llm"
	"reflector/internal/service/reflection"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Logs go to a file so they do not interleave with the prompt
	logDir := cfg.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	logFile, err := config.SetupLogFile(logDir, cfg.LogMaxFiles)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup logger: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("session started", "log_file", logFile.Name())

	doc := models.Document{}
	if len(os.Args) > 1 {
		doc, err = loadDocument(os.Args[1])
		if err != nil {
			fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
			os.Exit(1)
		}
	}

	caps, err := capabilities.NewRegistry()
	if err != nil {
		fmt.Printf("%s❌ Failed to load capabilities: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	registry, err := llmService.SetupProviders(cfg, logger)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup providers: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	executor, err := llmService.SetupTurnExecutor(cfg, registry, caps, logger)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup reflect turn: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	cli := &CLI{
		ctx:      context.Background(),
		service:  reflection.NewService(executor, memory.NewSessionRepository(), logger),
		provider: executor.ProviderName(),
		scanner:  newPromptScanner(os.Stdin),
		out:      os.Stdout,
		threadID: uuid.NewString(),
		document: doc,
		logger:   logger,
	}
	if err := cli.run(); err != nil {
		fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

func loadDocument(path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("read document: %w", err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("parse document %s: %w", path, err)
	}
	return doc, nil
}
