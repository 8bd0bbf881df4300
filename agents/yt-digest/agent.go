package ytdigest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"yt-digest/agents/yt-digest/youtube"
	"yt-digest/shared/ai"
	"yt-digest/shared/config"
	"yt-digest/shared/email"
	"yt-digest/shared/monitoring"
	"yt-digest/shared/scheduler"
	"yt-digest/shared/storage"
)

const httpTimeout = 30 * time.Second

// DigestAgent implements the scheduler.Agent interface
type DigestAgent struct {
	config   *config.Config
	logger   zerolog.Logger
	metrics  *monitoring.DigestMetrics
	pipeline *Pipeline
}

func NewDigestAgent(cfg *config.Config, metrics *monitoring.DigestMetrics, logger zerolog.Logger) *DigestAgent {
	return &DigestAgent{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

func (d *DigestAgent) Name() string {
	return "YouTube Digest"
}

// Initialize builds the external clients. It fails on bad credentials so a
// misconfigured deployment stops before any channel is touched.
func (d *DigestAgent) Initialize(ctx context.Context) error {
	if d.pipeline != nil {
		return nil
	}
	d.logger.Info().Msgf("Initializing %s...", d.Name())

	deps := Deps{Metrics: d.metrics}
	httpClient := &http.Client{Timeout: httpTimeout}

	switch d.config.Settings.ChannelSource {
	case config.ChannelSourceRSS:
		feed := youtube.NewFeedLister(httpClient, "", d.config.Settings.LookbackHours, d.logger)
		deps.Lister, deps.Namer = feed, feed
		d.logger.Info().Msg("Channel feed lister initialized")
	default:
		client, err := youtube.NewClient(ctx, d.config, d.logger)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		deps.Lister, deps.Namer = client, client
		d.logger.Info().Bool("oauth", d.config.APIKeys.UsesOAuth()).Msg("YouTube client initialized")
	}

	deps.Transcripts = youtube.NewTranscriptFetcher(httpClient, "", d.config.Settings.TranscriptLanguages, d.logger)

	summarizer, err := ai.NewSummarizer(ctx, d.config, d.logger)
	if err != nil {
		return fmt.Errorf("failed to create summarizer: %w", err)
	}
	deps.Summarizer = summarizer
	d.logger.Info().Str("model", d.config.Gemini.Model).Msg("Summarizer initialized")

	// The store is reopened for every run; opening it here surfaces an
	// unreadable path before the first pass.
	processed, err := storage.OpenProcessedSet(d.config.Settings.ProcessedVideosFile, d.logger)
	if err != nil {
		return fmt.Errorf("failed to open processed store: %w", err)
	}
	processed.Close()

	deps.Artifacts = storage.NewArtifactStore(d.config.Settings.OutputDir)
	deps.Notifier = email.NewSender(&d.config.Email)

	d.pipeline = NewPipeline(d.config, deps, d.logger)
	return nil
}

// RunOnce loads the processed store, runs one pass and reports the outcome.
func (d *DigestAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	if d.pipeline == nil {
		return fmt.Errorf("%s is not initialized", d.Name())
	}
	start := time.Now()

	processed, err := storage.OpenProcessedSet(d.config.Settings.ProcessedVideosFile, d.logger)
	if err != nil {
		return fmt.Errorf("failed to open processed store: %w", err)
	}
	defer processed.Close()
	d.logger.Info().Int("tracked", processed.Len()).Str("path", d.config.Settings.ProcessedVideosFile).Msg("Loaded processed videos")

	stats, err := d.pipeline.Run(ctx, processed)
	duration := time.Since(start)
	if err != nil {
		return err
	}

	if stats.HasFailures() && events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(fmt.Errorf("%d channel and %d video failures, %d emails failed",
			stats.ChannelsFailed, stats.Failed, stats.EmailsFailed), duration)
	}
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(stats, duration)
	}
	return nil
}
