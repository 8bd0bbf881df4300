package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Path       string
	APIKeys    APIKeysConfig
	Channels   ChannelsConfig
	Gemini     GeminiConfig
	Email      EmailConfig
	Recipients RecipientsConfig
	Settings   SettingsConfig

	// Warnings collects non-fatal problems found while loading. They are logged
	// once the logger exists, since the log file location comes from this config.
	Warnings []string
}

type APIKeysConfig struct {
	YouTubeAPIKey string
	GeminiAPIKey  string

	// OAuth mode for the Data API; used instead of the API key when a client id is set.
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeTokenFile    string
}

// UsesOAuth reports whether the YouTube client should authenticate with a user token.
func (a APIKeysConfig) UsesOAuth() bool {
	return a.YouTubeClientID != "" && a.YouTubeClientSecret != ""
}

type GeminiConfig struct {
	Model             string
	PromptExecutive   string
	PromptDetailed    string
	PromptQuotes      string
	SafetySettings    []SafetySetting
	Temperature       float32
	RequestsPerMinute int
}

type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	Username   string
	Password   string
	FromEmail  string
	Timeout    time.Duration
}

type RecipientsConfig struct {
	Default    []string
	PerChannel map[string][]string
}

type SettingsConfig struct {
	ProcessedVideosFile  string
	LogFile              string
	LogLevel             string
	OutputDir            string
	MaxResultsPerChannel int
	MinDurationMinutes   int
	LookbackHours        int
	ChannelSource        string
	TranscriptLanguages  []string
	Schedule             string
	HealthPort           int
}

const (
	ChannelSourceAPI = "api"
	ChannelSourceRSS = "rss"
)

// MaxResultsLimit is the largest page the YouTube Data API returns for a playlist.
const MaxResultsLimit = 50

// PromptPlaceholder is replaced with the transcript text before each summarization call.
const PromptPlaceholder = "{transcript}"

// Error is a fatal configuration problem. Load reports every problem it finds,
// joined with errors.Join, so each element can be inspected with errors.As.
type Error struct {
	Section string
	Key     string
	Reason  string
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config [%s]: %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("config [%s] %s: %s", e.Section, e.Key, e.Reason)
}

var placeholderValues = map[string]bool{
	"YOUR_YOUTUBE_DATA_API_V3_KEY": true,
	"YOUR_GEMINI_API_KEY":          true,
}

// Load reads the configuration file at path (falling back to $CONFIG_FILE, then
// config.ini), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "config.ini"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Section: path, Reason: fmt.Sprintf("failed to read config file: %v", err)}
	}

	cfg, err := Parse(data, FormatFromPath(path), os.Getenv)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse builds a validated Config from file contents. getenv supplies secret
// overrides for values left empty in the file.
func Parse(data []byte, format Format, getenv func(string) string) (*Config, error) {
	raw, err := readRaw(data, format)
	if err != nil {
		return nil, &Error{Section: string(format), Reason: err.Error()}
	}

	b := &builder{raw: raw}
	cfg := b.build()
	if getenv != nil {
		applyEnv(cfg, getenv)
	}
	b.validate(cfg)

	if len(b.errs) > 0 {
		return nil, fmt.Errorf("config validation failed: %w", errors.Join(b.errs...))
	}
	cfg.Warnings = b.warnings
	return cfg, nil
}

type builder struct {
	raw      *rawConfig
	errs     []error
	warnings []string
}

func (b *builder) fail(sec, key, format string, args ...any) {
	b.errs = append(b.errs, &Error{Section: sec, Key: key, Reason: fmt.Sprintf(format, args...)})
}

func (b *builder) warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

func (b *builder) intValue(secName, key string, fallback int) int {
	v := b.raw.section(secName).str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		b.fail(secName, key, "expected an integer, got %q", v)
		return fallback
	}
	return n
}

func (b *builder) build() *Config {
	keys := b.raw.section("API_KEYS")
	gemini := b.raw.section("GEMINI")
	email := b.raw.section("EMAIL")
	settings := b.raw.section("SETTINGS")

	cfg := &Config{
		APIKeys: APIKeysConfig{
			YouTubeAPIKey:       keys.str("youtube_api_key", ""),
			GeminiAPIKey:        keys.str("gemini_api_key", ""),
			YouTubeClientID:     keys.str("youtube_client_id", ""),
			YouTubeClientSecret: keys.str("youtube_client_secret", ""),
			YouTubeTokenFile:    keys.str("youtube_token_file", "youtube_token.json"),
		},
		Gemini: GeminiConfig{
			Model:             gemini.str("model_name", "gemini-2.5-flash"),
			PromptExecutive:   gemini.str("prompt_executive_summary", ""),
			PromptDetailed:    gemini.str("prompt_detailed_summary", ""),
			PromptQuotes:      gemini.str("prompt_key_quotes", ""),
			Temperature:       0.7,
			RequestsPerMinute: b.intValue("GEMINI", "requests_per_minute", 30),
		},
		Email: EmailConfig{
			SMTPServer: email.str("smtp_server", ""),
			SMTPPort:   b.intValue("EMAIL", "smtp_port", 587),
			Username:   email.str("smtp_user", ""),
			Password:   email.str("smtp_password", ""),
			FromEmail:  email.str("sender_email", ""),
			Timeout:    time.Duration(b.intValue("EMAIL", "timeout_seconds", 60)) * time.Second,
		},
		Settings: SettingsConfig{
			ProcessedVideosFile:  settings.str("processed_videos_file", "processed_videos.json"),
			LogFile:              settings.str("log_file", "monitor.log"),
			LogLevel:             settings.str("log_level", "info"),
			OutputDir:            settings.str("output_dir", "output"),
			MaxResultsPerChannel: b.intValue("SETTINGS", "max_results_per_channel", 1),
			MinDurationMinutes:   b.intValue("SETTINGS", "min_video_duration_minutes", 0),
			LookbackHours:        b.intValue("SETTINGS", "lookback_hours", 0),
			ChannelSource:        strings.ToLower(settings.str("channel_source", ChannelSourceAPI)),
			TranscriptLanguages:  SplitList(settings.str("transcript_languages", "en,en-US,en-GB")),
			Schedule:             settings.str("schedule", "0 0 * * * *"),
			HealthPort:           b.intValue("SETTINGS", "health_port", 8080),
		},
	}

	if v := gemini.str("temperature", ""); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			b.fail("GEMINI", "temperature", "expected a number, got %q", v)
		} else {
			cfg.Gemini.Temperature = float32(t)
		}
	}
	if v := gemini.str("safety_settings", ""); v != "" {
		cfg.Gemini.SafetySettings = b.parseSafetySettings(v)
	}

	cfg.Channels = b.parseChannels(b.raw.section("CHANNELS"))
	cfg.Recipients = b.parseRecipients(b.raw.section("CHANNEL_RECIPIENTS"), cfg.Channels.IDs)

	return cfg
}

func applyEnv(cfg *Config, getenv func(string) string) {
	fill := func(dst *string, name string) {
		if *dst == "" || placeholderValues[*dst] {
			if v := getenv(name); v != "" {
				*dst = v
			}
		}
	}
	fill(&cfg.APIKeys.YouTubeAPIKey, "YOUTUBE_API_KEY")
	fill(&cfg.APIKeys.GeminiAPIKey, "GEMINI_API_KEY")
	fill(&cfg.APIKeys.YouTubeClientID, "GOOGLE_CLIENT_ID")
	fill(&cfg.APIKeys.YouTubeClientSecret, "GOOGLE_CLIENT_SECRET")
	fill(&cfg.Email.Username, "SMTP_USER")
	fill(&cfg.Email.Password, "SMTP_PASSWORD")
}

func (b *builder) validate(cfg *Config) {
	youtubeKey := cfg.APIKeys.YouTubeAPIKey
	if placeholderValues[youtubeKey] {
		youtubeKey = ""
	}
	// The RSS source needs no Data API credentials at all.
	if youtubeKey == "" && !cfg.APIKeys.UsesOAuth() && cfg.Settings.ChannelSource == ChannelSourceAPI {
		b.fail("API_KEYS", "youtube_api_key", "is required (set YOUTUBE_API_KEY or youtube_api_key)")
	}
	if cfg.APIKeys.GeminiAPIKey == "" || placeholderValues[cfg.APIKeys.GeminiAPIKey] {
		b.fail("API_KEYS", "gemini_api_key", "is required (set GEMINI_API_KEY or gemini_api_key)")
	}

	if len(cfg.Channels.IDs) == 0 {
		b.fail("CHANNELS", "", "at least one channel id is required")
	}

	prompts := []struct {
		key   string
		value string
	}{
		{"prompt_executive_summary", cfg.Gemini.PromptExecutive},
		{"prompt_detailed_summary", cfg.Gemini.PromptDetailed},
		{"prompt_key_quotes", cfg.Gemini.PromptQuotes},
	}
	for _, p := range prompts {
		switch {
		case p.value == "":
			b.fail("GEMINI", p.key, "is required")
		case !strings.Contains(p.value, PromptPlaceholder):
			b.fail("GEMINI", p.key, "must contain the %s placeholder", PromptPlaceholder)
		}
	}
	if cfg.Gemini.RequestsPerMinute < 0 {
		b.fail("GEMINI", "requests_per_minute", "must be >= 0")
	}

	if cfg.Email.SMTPServer == "" {
		b.fail("EMAIL", "smtp_server", "is required")
	}
	if cfg.Email.Username == "" {
		b.fail("EMAIL", "smtp_user", "is required (set SMTP_USER or smtp_user)")
	}
	if cfg.Email.Password == "" {
		b.fail("EMAIL", "smtp_password", "is required (set SMTP_PASSWORD or smtp_password)")
	}
	if cfg.Email.FromEmail == "" {
		b.fail("EMAIL", "sender_email", "is required")
	}
	if cfg.Email.SMTPPort < 1 || cfg.Email.SMTPPort > 65535 {
		b.fail("EMAIL", "smtp_port", "must be a valid TCP port, got %d", cfg.Email.SMTPPort)
	}

	if n := cfg.Settings.MaxResultsPerChannel; n < 1 || n > MaxResultsLimit {
		b.fail("SETTINGS", "max_results_per_channel", "must be between 1 and %d, got %d", MaxResultsLimit, n)
	}
	if cfg.Settings.MinDurationMinutes < 0 {
		b.fail("SETTINGS", "min_video_duration_minutes", "must be >= 0, got %d", cfg.Settings.MinDurationMinutes)
	}
	if cfg.Settings.LookbackHours < 0 {
		b.fail("SETTINGS", "lookback_hours", "must be >= 0, got %d", cfg.Settings.LookbackHours)
	}
	switch cfg.Settings.ChannelSource {
	case ChannelSourceAPI, ChannelSourceRSS:
	default:
		b.fail("SETTINGS", "channel_source", "must be %q or %q, got %q", ChannelSourceAPI, ChannelSourceRSS, cfg.Settings.ChannelSource)
	}

	if len(cfg.Recipients.Default) == 0 && len(cfg.Recipients.PerChannel) == 0 {
		b.warn("no email recipients configured; summaries will be saved but not emailed")
	}
}

// SplitList splits a comma-separated value, trimming blanks and dropping empty items.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
