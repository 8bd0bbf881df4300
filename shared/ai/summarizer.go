package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"yt-digest/shared/config"
)

var (
	// ErrBlocked is returned when the model refuses the prompt or stops on a safety filter.
	ErrBlocked = errors.New("response blocked by safety filters")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// generator is the part of genai.Models the summarizer uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Summarizer runs a prompt template against a transcript with the Gemini API.
type Summarizer struct {
	models  generator
	model   string
	config  *genai.GenerateContentConfig
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewSummarizer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Summarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKeys.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newSummarizer(client.Models, cfg.Gemini, logger), nil
}

func newSummarizer(models generator, cfg config.GeminiConfig, logger zerolog.Logger) *Summarizer {
	s := &Summarizer{
		models: models,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature:    genai.Ptr(float32(cfg.Temperature)),
			SafetySettings: safetySettings(cfg.SafetySettings),
		},
		logger: logger.With().Str("component", "summarizer").Logger(),
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return s
}

func safetySettings(settings []config.SafetySetting) []*genai.SafetySetting {
	if len(settings) == 0 {
		return nil
	}
	out := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		out = append(out, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return out
}

// BuildPrompt substitutes the transcript for every {transcript} placeholder.
func BuildPrompt(template, transcript string) string {
	return strings.ReplaceAll(template, config.PromptPlaceholder, transcript)
}

// Summarize fills the prompt template with the transcript and returns the
// generated text. Blocked and empty responses are errors.
func (s *Summarizer) Summarize(ctx context.Context, prompt, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("transcript is empty")
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	result, err := s.models.GenerateContent(ctx, s.model, genai.Text(BuildPrompt(prompt, transcript)), s.config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with %s: %w", s.model, err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrBlocked, result.PromptFeedback.BlockReason)
	}
	for _, c := range result.Candidates {
		switch c.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonBlocklist,
			genai.FinishReasonProhibitedContent, genai.FinishReasonSPII, genai.FinishReasonRecitation:
			return "", fmt.Errorf("%w: finish reason %s", ErrBlocked, c.FinishReason)
		}
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	s.logger.Debug().Int("chars", len(text)).Msg("Generated summary")
	return text, nil
}
