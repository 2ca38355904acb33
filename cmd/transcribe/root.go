package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/stt"
	"github.com/lexiqai/transcript-gateway/internal/transcription"
)

// commandContext carries dependencies shared by subcommands. Tests swap the
// loaders to avoid the environment and the network.
type commandContext struct {
	loadConfig func() (*config.Config, error)
	newClient  func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (stt.Client, error)

	provider string
	logLevel string
}

func newCommandContext() *commandContext {
	return &commandContext{
		loadConfig: config.Load,
		newClient:  stt.NewClient,
	}
}

// config loads and validates configuration, applying command-line overrides.
// Failures are reported as configuration errors of the transcription taxonomy.
func (c *commandContext) config() (*config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, transcription.NewConfigurationError(err)
	}
	if c.provider != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(c.provider))
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, transcription.NewConfigurationError(err)
	}
	return cfg, nil
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "transcribe",
		Short:         "Transcribe long recordings through a remote speech API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.provider, "provider", "", "Remote provider: gemini or deepgram (overrides TRANSCRIBER_PROVIDER)")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Log level written to stderr (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newFileCommand(ctx))
	return rootCmd
}
