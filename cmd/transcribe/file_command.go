package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/transcription"
)

func newFileCommand(ctx *commandContext) *cobra.Command {
	var (
		mimeFlag string
		outFlag  string
	)

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Transcribe a local audio or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			stdout := cmd.OutOrStdout()
			stderr := cmd.ErrOrStderr()
			failure := color.New(color.FgRed)

			cfg, err := ctx.config()
			if err != nil {
				failure.Fprintln(stderr, transcription.FailureMessage(err))
				return err
			}

			// Logs share stderr with progress so stdout carries only the transcript.
			logger := observability.NewLogger(stderr, cfg.LogLevel, true)
			observability.SetLogger(logger)

			src, f, err := transcription.OpenFileSource(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", path)
				}
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			client, err := ctx.newClient(cmd.Context(), cfg, logger)
			if err != nil {
				err = transcription.NewConfigurationError(fmt.Errorf("create %s client: %w", cfg.Provider, err))
				failure.Fprintln(stderr, transcription.FailureMessage(err))
				return err
			}

			orchestrator, err := transcription.New(client,
				append(transcription.OptionsFromConfig(cfg), transcription.WithLogger(logger))...)
			if err != nil {
				return err
			}

			mimeType := transcription.NormalizeMIMEType(path, mimeFlag)

			info := color.New(color.FgCyan)
			info.Fprintf(stderr, "%s (%s, %s) via %s\n",
				filepath.Base(path), humanize.IBytes(uint64(src.Size())), mimeType, orchestrator.Provider())

			progress := color.New(color.FgYellow)
			transcript, err := orchestrator.Transcribe(cmd.Context(), src, mimeType, func(message string) {
				progress.Fprintln(stderr, message)
			})
			if err != nil {
				failure.Fprintln(stderr, transcription.FailureMessage(err))
				return err
			}

			if outFlag == "" {
				_, err = io.WriteString(stdout, transcript+"\n")
				return err
			}
			if err := os.WriteFile(outFlag, []byte(transcript), 0o644); err != nil {
				return fmt.Errorf("write transcript: %w", err)
			}
			color.New(color.FgGreen).Fprintf(stderr, "Saved %s (%s)\n",
				outFlag, humanize.IBytes(uint64(len(transcript))))
			return nil
		},
	}

	cmd.Flags().StringVar(&mimeFlag, "mime", "", "MIME type of the recording (default: from extension, audio/mp4)")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write the transcript to this file instead of stdout")
	return cmd
}
