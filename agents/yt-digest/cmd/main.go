package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	ytdigest "yt-digest/agents/yt-digest"
	"yt-digest/agents/yt-digest/youtube"
	"yt-digest/shared/config"
	"yt-digest/shared/logging"
	"yt-digest/shared/monitoring"
	"yt-digest/shared/scheduler"
)

const defaultConfigFile = "config.ini"

var cfgFile string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "yt-digest",
		Short: "Summarize new YouTube uploads and email the summaries",
		Long: `yt-digest checks the configured YouTube channels for new uploads, fetches
each video's transcript, asks Gemini for three summaries and saves them to the
output directory. Summaries are emailed to the channel's recipients and every
completed video is recorded so it is never processed twice.

Without a subcommand a single pass is run.`,
		SilenceUsage: true,
		RunE:         runOnce,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", envOr("CONFIG_FILE", defaultConfigFile), "Path to the INI or YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run a single pass over all channels",
			RunE:  runOnce,
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Run on the configured cron schedule and serve /health and /metrics",
			RunE:  runSchedule,
		},
		&cobra.Command{
			Use:   "auth",
			Short: "Authorize YouTube access with the OAuth device flow",
			Long: `Authorize prints a verification URL and code, waits for the grant and stores
the token in youtube_token_file. Requires youtube_client_id and
youtube_client_secret in [API_KEYS].`,
			RunE: runAuth,
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Validate the config file and print the normalized channels and recipients",
			RunE:  runCheckConfig,
		},
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setup loads the configuration and builds the process logger. Any error here
// is a startup failure.
func setup() (*config.Config, zerolog.Logger, io.Closer, error) {
	console := logging.Console()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		console.Error().Err(err).Str("path", cfgFile).Msg("Failed to load configuration")
		return nil, console, nil, err
	}

	logger, closer, err := logging.New(logging.Options{
		Level: cfg.Settings.LogLevel,
		File:  cfg.Settings.LogFile,
	})
	if err != nil {
		console.Error().Err(err).Msg("Failed to set up logging")
		return nil, console, nil, err
	}

	for _, w := range cfg.Warnings {
		logger.Warn().Str("path", cfg.Path).Msg(w)
	}
	return cfg, logger, closer, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	metrics := monitoring.NewDigestMetrics()
	agent := ytdigest.NewDigestAgent(cfg, metrics, logger)
	s := scheduler.New(cfg, agent, metrics.Registry, logger)

	if err := agent.Initialize(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize agent")
		return err
	}

	if err := s.RunOnce(ctx); err != nil {
		if interrupted(err) {
			// Completed videos are already recorded.
			logger.Warn().Err(err).Msg("Run interrupted")
			return nil
		}
		logger.Error().Err(err).Msg("Run failed to start")
		return err
	}
	logger.Info().Str("status", s.Monitor().GetStatusSummary()).Msg("Run complete")
	return nil
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	metrics := monitoring.NewDigestMetrics()
	agent := ytdigest.NewDigestAgent(cfg, metrics, logger)
	s := scheduler.New(cfg, agent, metrics.Registry, logger)

	logger.Info().Str("schedule", cfg.Settings.Schedule).Int("health_port", cfg.Settings.HealthPort).Msg("Starting scheduler")
	if err := s.Start(ctx); err != nil && !interrupted(err) {
		logger.Error().Err(err).Msg("Scheduler failed")
		return err
	}
	return nil
}

func runAuth(cmd *cobra.Command, _ []string) error {
	cfg, logger, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	if !cfg.APIKeys.UsesOAuth() {
		err := fmt.Errorf("youtube_client_id and youtube_client_secret must be set in [API_KEYS]")
		logger.Error().Err(err).Msg("Cannot start authorization")
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := youtube.Authorize(ctx, youtube.OAuthConfig(cfg.APIKeys), cfg.APIKeys.YouTubeTokenFile, cmd.OutOrStdout()); err != nil {
		logger.Error().Err(err).Msg("Authorization failed")
		return err
	}
	logger.Info().Str("token_file", cfg.APIKeys.YouTubeTokenFile).Msg("YouTube token saved")
	return nil
}

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	cfg, _, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	out := cmd.OutOrStdout()
	resolver := ytdigest.NewRecipientResolver(cfg.Recipients)

	fmt.Fprintf(out, "Config: %s\n", cfg.Path)
	fmt.Fprintf(out, "Channel source: %s (%s format)\n", cfg.Settings.ChannelSource, cfg.Channels.Format)
	fmt.Fprintf(out, "Model: %s\n", cfg.Gemini.Model)
	fmt.Fprintf(out, "Processed store: %s\n", cfg.Settings.ProcessedVideosFile)
	fmt.Fprintf(out, "Output dir: %s\n\n", cfg.Settings.OutputDir)

	fmt.Fprintf(out, "Channels (%d):\n", len(cfg.Channels.IDs))
	for _, id := range cfg.Channels.IDs {
		label := cfg.Channels.Labels[id]
		if label == "" {
			label = "-"
		}
		recipients := resolver.Resolve(id)
		to := "(none, email skipped)"
		if len(recipients) > 0 {
			to = strings.Join(recipients, ", ")
		}
		fmt.Fprintf(out, "  %s  %-20s -> %s\n", id, label, to)
	}

	if len(cfg.Warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings (%d):\n", len(cfg.Warnings))
		for _, w := range cfg.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	return nil
}
