package ytdigest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"yt-digest/agents/yt-digest/youtube"
	"yt-digest/internal/models"
	"yt-digest/shared/config"
	"yt-digest/shared/email"
	"yt-digest/shared/monitoring"
)

// ChannelLister returns a channel's most recent uploads, newest first.
type ChannelLister interface {
	ListRecent(ctx context.Context, channelID string, maxResults int) ([]models.VideoCandidate, error)
}

// ChannelNamer resolves a channel's display title.
type ChannelNamer interface {
	ChannelTitle(ctx context.Context, channelID string) (string, error)
}

// TranscriptFetcher returns the transcript of a video. It returns an error
// wrapping youtube.ErrTranscriptUnavailable when the video has none.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// Summarizer fills a prompt template with a transcript and returns the generated text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, transcript string) (string, error)
}

// ArtifactWriter persists a summary artifact and returns where it was written.
type ArtifactWriter interface {
	Write(a *models.SummaryArtifact) (string, error)
}

// Notifier delivers an HTML message.
type Notifier interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// ProcessedSet is the durable record of completed videos.
type ProcessedSet interface {
	ProcessedLookup
	Mark(videoID string) error
}

// Pipeline steps, used in logs and StepError.
const (
	StepList       = "list"
	StepTranscript = "transcript"
	StepSummarize  = "summarize"
	StepArtifact   = "write_artifact"
	StepNotify     = "notify"
	StepMark       = "mark"
)

// StepError records which pipeline step failed for which video.
type StepError struct {
	Step      string
	ChannelID string
	VideoID   string
	Err       error
}

func (e *StepError) Error() string {
	if e.VideoID == "" {
		return fmt.Sprintf("%s failed for channel %s: %v", e.Step, e.ChannelID, e.Err)
	}
	return fmt.Sprintf("%s failed for video %s (channel %s): %v", e.Step, e.VideoID, e.ChannelID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Deps are the external capabilities the pipeline drives.
type Deps struct {
	Lister      ChannelLister
	Namer       ChannelNamer
	Transcripts TranscriptFetcher
	Summarizer  Summarizer
	Artifacts   ArtifactWriter
	Notifier    Notifier
	Metrics     *monitoring.DigestMetrics
}

type prompt struct {
	name     string
	template string
}

// Pipeline walks every configured channel and takes each new video through
// transcript, summaries, artifact, email and mark. Videos are handled one at
// a time and a failure only affects the video it happened on.
type Pipeline struct {
	channels    []models.Channel
	maxResults  int
	minDuration time.Duration
	prompts     []prompt
	recipients  *RecipientResolver
	deps        Deps
	logger      zerolog.Logger
	now         func() time.Time
}

func NewPipeline(cfg *config.Config, deps Deps, logger zerolog.Logger) *Pipeline {
	channels := make([]models.Channel, 0, len(cfg.Channels.IDs))
	for _, id := range cfg.Channels.IDs {
		channels = append(channels, models.Channel{ID: id, Label: cfg.Channels.Labels[id]})
	}

	return &Pipeline{
		channels:    channels,
		maxResults:  cfg.Settings.MaxResultsPerChannel,
		minDuration: time.Duration(cfg.Settings.MinDurationMinutes) * time.Minute,
		prompts: []prompt{
			{"executive", cfg.Gemini.PromptExecutive},
			{"detailed", cfg.Gemini.PromptDetailed},
			{"quotes", cfg.Gemini.PromptQuotes},
		},
		recipients: NewRecipientResolver(cfg.Recipients),
		deps:       deps,
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs one pass over all channels. It returns an error only when ctx
// is cancelled; every other failure is logged, counted and skipped.
func (p *Pipeline) Run(ctx context.Context, processed ProcessedSet) (*RunStats, error) {
	start := p.now()
	stats := &RunStats{RunID: uuid.NewString()}
	logger := p.logger.With().Str("run_id", stats.RunID).Logger()

	logger.Info().Int("channels", len(p.channels)).Msg("Starting digest run")

	var runErr error
	for _, ch := range p.channels {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := p.runChannel(ctx, logger, ch, processed, stats); err != nil {
			runErr = err
			break
		}
	}

	stats.Elapsed = p.now().Sub(start)
	if p.deps.Metrics != nil {
		p.deps.Metrics.RunDuration.Observe(stats.Elapsed.Seconds())
	}

	logger.Info().
		Int("channels_checked", stats.ChannelsChecked).
		Int("channels_failed", stats.ChannelsFailed).
		Int("candidates", stats.Candidates).
		Int("already_processed", stats.AlreadyProcessed).
		Int("too_short", stats.TooShort).
		Int("eligible", stats.Eligible).
		Int("processed", stats.Processed).
		Int("no_transcript", stats.SkippedNoTranscript).
		Int("failed", stats.Failed).
		Int("emails_sent", stats.EmailsSent).
		Int("emails_failed", stats.EmailsFailed).
		Dur("elapsed", stats.Elapsed).
		Msg("Digest run finished")

	if runErr != nil {
		return stats, fmt.Errorf("run interrupted: %w", runErr)
	}
	return stats, nil
}

// runChannel returns an error only for cancellation.
func (p *Pipeline) runChannel(ctx context.Context, logger zerolog.Logger, ch models.Channel, processed ProcessedSet, stats *RunStats) error {
	stats.ChannelsChecked++
	logger = logger.With().Str("channel_id", ch.ID).Logger()

	ch.Name = p.channelName(ctx, logger, ch)
	logger.Info().Str("channel", ch.Name).Msg("Checking channel")

	candidates, err := p.deps.Lister.ListRecent(ctx, ch.ID, p.maxResults)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stepErr := &StepError{Step: StepList, ChannelID: ch.ID, Err: err}
		stats.ChannelsFailed++
		stats.Errors = append(stats.Errors, stepErr)
		if p.deps.Metrics != nil {
			p.deps.Metrics.ChannelFailures.Inc()
		}
		logger.Error().Err(err).Str("step", StepList).Msg("Skipping channel")
		return nil
	}

	filtered := FilterCandidates(candidates, processed, p.minDuration)
	stats.Candidates += len(candidates)
	stats.AlreadyProcessed += filtered.AlreadyProcessed
	stats.TooShort += filtered.TooShort
	stats.Eligible += len(filtered.Eligible)

	logger.Info().
		Int("candidates", len(candidates)).
		Int("eligible", len(filtered.Eligible)).
		Int("already_processed", filtered.AlreadyProcessed).
		Int("too_short", filtered.TooShort).
		Msg("Filtered channel uploads")

	for _, v := range filtered.Eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runVideo(ctx, logger, ch, v, processed, stats); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) channelName(ctx context.Context, logger zerolog.Logger, ch models.Channel) string {
	if p.deps.Namer == nil {
		return ch.ID
	}
	name, err := p.deps.Namer.ChannelTitle(ctx, ch.ID)
	if err != nil || name == "" {
		logger.Warn().Err(err).Msg("Could not resolve channel name; using the channel id")
		return ch.ID
	}
	return name
}

// runVideo returns an error only for cancellation.
func (p *Pipeline) runVideo(ctx context.Context, logger zerolog.Logger, ch models.Channel, v models.VideoCandidate, processed ProcessedSet, stats *RunStats) error {
	logger = logger.With().Str("video_id", v.ID).Logger()
	logger.Info().Str("title", v.Title).Str("duration", models.FormatDuration(v.Duration, v.HasDuration)).Msg("Processing new video")

	artifact, err := p.summarizeVideo(ctx, ch, v)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, youtube.ErrTranscriptUnavailable) {
			stats.SkippedNoTranscript++
			p.countVideo(monitoring.OutcomeSkippedTranscript)
			logger.Warn().Err(err).Str("step", StepTranscript).Msg("No transcript; video will be retried on the next run")
			return nil
		}
		p.failVideo(logger, stats, err)
		return nil
	}

	path, err := p.deps.Artifacts.Write(artifact)
	if err != nil {
		p.failVideo(logger, stats, &StepError{Step: StepArtifact, ChannelID: ch.ID, VideoID: v.ID, Err: err})
		return nil
	}
	logger.Info().Str("path", path).Msg("Saved summary")

	p.notify(ctx, logger, artifact, stats)

	if err := processed.Mark(v.ID); err != nil {
		p.failVideo(logger, stats, &StepError{Step: StepMark, ChannelID: ch.ID, VideoID: v.ID, Err: err})
		return nil
	}

	stats.Processed++
	p.countVideo(monitoring.OutcomeProcessed)
	logger.Info().Msg("Video processed")
	return nil
}

// summarizeVideo fetches the transcript and generates all three summaries.
// Nothing is written unless every call succeeds.
func (p *Pipeline) summarizeVideo(ctx context.Context, ch models.Channel, v models.VideoCandidate) (*models.SummaryArtifact, error) {
	transcript, err := p.deps.Transcripts.Transcript(ctx, v.ID)
	if err != nil {
		return nil, &StepError{Step: StepTranscript, ChannelID: ch.ID, VideoID: v.ID, Err: err}
	}

	outputs := make([]string, len(p.prompts))
	for i, pr := range p.prompts {
		text, err := p.deps.Summarizer.Summarize(ctx, pr.template, transcript)
		if err != nil {
			return nil, &StepError{Step: StepSummarize, ChannelID: ch.ID, VideoID: v.ID, Err: fmt.Errorf("%s summary: %w", pr.name, err)}
		}
		outputs[i] = text
	}

	return &models.SummaryArtifact{
		VideoID:     v.ID,
		Title:       v.Title,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		URL:         v.URL(),
		Duration:    v.Duration,
		HasDuration: v.HasDuration,
		Executive:   outputs[0],
		Detailed:    outputs[1],
		Quotes:      outputs[2],
	}, nil
}

// notify sends the summary email. Failures are logged and counted but do not
// stop the video from being marked, so it is never summarized twice.
func (p *Pipeline) notify(ctx context.Context, logger zerolog.Logger, a *models.SummaryArtifact, stats *RunStats) {
	to := p.recipients.Resolve(a.ChannelID)
	if len(to) == 0 {
		stats.EmailsSkipped++
		p.countEmail(monitoring.EmailSkipped)
		logger.Warn().Msg("No recipients for channel; skipping email")
		return
	}

	body, err := email.RenderSummary(a, p.now())
	if err == nil {
		err = p.deps.Notifier.Send(ctx, to, email.Subject(a), body)
	}
	if err != nil {
		stepErr := &StepError{Step: StepNotify, ChannelID: a.ChannelID, VideoID: a.VideoID, Err: err}
		stats.EmailsFailed++
		stats.Errors = append(stats.Errors, stepErr)
		p.countEmail(monitoring.EmailFailed)
		logger.Error().Err(err).Str("step", StepNotify).Strs("recipients", to).Msg("Failed to send email")
		return
	}

	stats.EmailsSent++
	p.countEmail(monitoring.EmailSent)
	logger.Info().Int("recipients", len(to)).Msg("Email sent")
}

func (p *Pipeline) failVideo(logger zerolog.Logger, stats *RunStats, err error) {
	stats.Failed++
	stats.Errors = append(stats.Errors, err)
	p.countVideo(monitoring.OutcomeFailed)

	step := ""
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		step = stepErr.Step
	}
	logger.Error().Err(err).Str("step", step).Msg("Video pipeline failed; it will be retried on the next run")
}

func (p *Pipeline) countVideo(outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.Videos.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) countEmail(status string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.Emails.WithLabelValues(status).Inc()
	}
}
