package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pengu/crackgpt/pkg/crackgpt/bot"
	"github.com/pengu/crackgpt/pkg/crackgpt/channels/discord"
	"github.com/spf13/cobra"
)

// newServeCmd creates the `crackgpt serve` command that starts the bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and start answering",
		Long: `Start CrackGPT as a daemon: connect to the Discord gateway, route
messages through the local Ollama model, and keep running until interrupted.

Examples:
  crackgpt serve
  crackgpt serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if configPath == "" {
		configPath = bot.FindConfigFile()
	}

	cfg, err := bot.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Fatal before connecting: a missing token cannot be recovered at runtime.
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── Configure logger ──
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logger := buildLogger(cfg.Logging, verbose)

	logger.Info("starting CrackGPT",
		"model", cfg.Ollama.Model,
		"toggle_keyword", cfg.ToggleKeyword,
		"config", configPath,
	)

	// ── Create assistant and register channels ──
	assistant := bot.New(cfg, logger)

	dc := discord.New(cfg.Discord, logger)
	if err := assistant.ChannelManager().Register(dc); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := assistant.Start(ctx); err != nil {
		return err
	}

	// ── Wait for shutdown ──
	logger.Info("CrackGPT running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	// Graceful shutdown with timeout.
	done := make(chan struct{})
	go func() {
		assistant.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// buildLogger constructs the slog logger from config and the verbose flag.
func buildLogger(cfg bot.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
