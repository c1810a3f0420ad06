package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/gmail-export/attachments"
	"github.com/dhcgn/gmail-export/builder"
	"github.com/dhcgn/gmail-export/config"
	"github.com/dhcgn/gmail-export/gmail"
	"github.com/dhcgn/gmail-export/runner"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gmail-export",
		Short: "Export Gmail messages and attachments to CSV files and a flat attachment directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting gmail-export", "max", cfg.MaxMessages, "query", cfg.Query, "dryRun", cfg.DryRun)

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	client, err := gmail.NewClient(ctx, gmail.Options{
		CredentialsPath: cfg.CredentialsPath,
		TokenPath:       cfg.TokenPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("gmail.NewClient: %w", err)
	}

	store, err := attachments.NewStore(cfg.AttachmentsDir)
	if err != nil {
		return fmt.Errorf("attachments.NewStore: %w", err)
	}

	b := builder.New(attachments.NewMaterializer(client, store, logger), logger)

	r, err := runner.New(cfg, client, b, logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}

	return r.Run(ctx)
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("gmail-export-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
