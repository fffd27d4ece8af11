package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/chat"
	"github.com/harborbank/advisor/internal/config"
	"github.com/harborbank/advisor/internal/llm"
	"github.com/harborbank/advisor/internal/llm/providers/openaicompat"
	"github.com/harborbank/advisor/internal/playground"
	"github.com/harborbank/advisor/internal/server"
	"github.com/harborbank/advisor/internal/transcript"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serve(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  advisor serve [--addr <host:port>] [--config <advisor.yaml>]")
}

func serve(args []string) {
	var addr string
	var configPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--addr":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--addr requires a value")
				os.Exit(1)
			}
			addr = args[i]
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if addr != "" {
		cfg.Addr = addr
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))

	apiKey := os.Getenv(cfg.Provider.APIKeyEnv)
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "%s is not set\n", cfg.Provider.APIKeyEnv)
		os.Exit(1)
	}

	client := llm.NewClient()
	client.Register(openaicompat.NewAdapter(openaicompat.Config{
		Provider: cfg.Provider.Name,
		APIKey:   apiKey,
		BaseURL:  cfg.Provider.BaseURL,
		Path:     cfg.Provider.Path,
	}))
	client.SetDefaultProvider(cfg.Provider.Name)

	acctStore := accounts.NewSeededStore()
	toolStore := playground.NewStore()
	transcripts := transcript.NewStore(cfg.TranscriptDir)

	registry := chat.NewToolRegistry()
	if err := chat.RegisterBankingTools(registry, acctStore); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	docs, err := chat.LoadGuidanceDocs(cfg.PromptsDir, cfg.PromptGlobs...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	orch := &chat.Orchestrator{
		Client:        client,
		Provider:      cfg.Provider.Name,
		Model:         cfg.Provider.Model,
		Tools:         registry,
		Conversations: chat.NewConversationRegistry(),
		Transcripts:   transcripts,
		SystemPrompt:  chat.SystemPrompt(docs),
		Timeout:       time.Duration(cfg.GenerationTimeoutMS) * time.Millisecond,
		Logger:        logger,
	}

	srv := server.New(server.Config{
		Addr:     cfg.Addr,
		Provider: cfg.Provider.Name,
		Model:    cfg.Provider.Model,
	}, orch, acctStore, toolStore, client, logger)

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
