package youtube

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"yt-digest/internal/models"
	"yt-digest/shared/config"
)

// ErrChannelNotFound is returned when the Data API knows no channel with the id.
var ErrChannelNotFound = errors.New("channel not found")

// Client lists channel uploads through the YouTube Data API v3.
type Client struct {
	service  *youtube.Service
	logger   zerolog.Logger
	lookback time.Duration
	now      func() time.Time
}

// NewClient authenticates with the API key, or with the stored OAuth token
// when client credentials are configured.
func NewClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	var opts []option.ClientOption
	if cfg.APIKeys.UsesOAuth() {
		oauthConfig := OAuthConfig(cfg.APIKeys)
		token, err := loadToken(cfg.APIKeys.YouTubeTokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to get OAuth token: %w", err)
		}
		ts := &tokenSaver{
			config:    oauthConfig,
			token:     token,
			tokenFile: cfg.APIKeys.YouTubeTokenFile,
			logger:    logger,
		}
		opts = append(opts, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKeys.YouTubeAPIKey))
	}

	return NewClientWithOptions(ctx, cfg.Settings.LookbackHours, logger, opts...)
}

// NewClientWithOptions builds a client from explicit API options. A
// lookbackHours of zero keeps every listed video regardless of age.
func NewClientWithOptions(ctx context.Context, lookbackHours int, logger zerolog.Logger, opts ...option.ClientOption) (*Client, error) {
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{
		service:  service,
		logger:   logger.With().Str("component", "youtube").Logger(),
		lookback: time.Duration(lookbackHours) * time.Hour,
		now:      time.Now,
	}, nil
}

// ChannelTitle returns the display title of a channel.
func (c *Client) ChannelTitle(ctx context.Context, channelID string) (string, error) {
	ch, err := c.channel(ctx, channelID, "snippet")
	if err != nil {
		return "", err
	}
	if ch.Snippet == nil || ch.Snippet.Title == "" {
		return "", fmt.Errorf("channel %s has no title", channelID)
	}
	return ch.Snippet.Title, nil
}

// ListRecent returns up to maxResults of the channel's latest uploads,
// newest first, with durations filled in where the API reports them.
func (c *Client) ListRecent(ctx context.Context, channelID string, maxResults int) ([]models.VideoCandidate, error) {
	ch, err := c.channel(ctx, channelID, "contentDetails")
	if err != nil {
		return nil, err
	}
	if ch.ContentDetails == nil || ch.ContentDetails.RelatedPlaylists == nil || ch.ContentDetails.RelatedPlaylists.Uploads == "" {
		return nil, fmt.Errorf("channel %s has no uploads playlist", channelID)
	}

	resp, err := c.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(ch.ContentDetails.RelatedPlaylists.Uploads).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads for channel %s: %w", channelID, err)
	}

	var since time.Time
	if c.lookback > 0 {
		since = c.now().Add(-c.lookback)
	}

	var candidates []models.VideoCandidate
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil || item.Snippet.ResourceId.VideoId == "" {
			continue
		}
		published := parsePublished(item)
		if !since.IsZero() && !published.IsZero() && published.Before(since) {
			continue
		}
		candidates = append(candidates, models.VideoCandidate{
			ID:          item.Snippet.ResourceId.VideoId,
			ChannelID:   channelID,
			Title:       item.Snippet.Title,
			PublishedAt: published,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	c.fillDurations(ctx, candidates)
	return candidates, nil
}

func (c *Client) channel(ctx context.Context, channelID, part string) (*youtube.Channel, error) {
	resp, err := c.service.Channels.List([]string{part}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to look up channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	return resp.Items[0], nil
}

// fillDurations looks up durations in one batch. On failure the durations
// stay unknown, which the filter treats as eligible.
func (c *Client) fillDurations(ctx context.Context, candidates []models.VideoCandidate) {
	if len(candidates) == 0 {
		return
	}
	ids := make([]string, len(candidates))
	for i, v := range candidates {
		ids[i] = v.ID
	}

	resp, err := c.service.Videos.List([]string{"contentDetails"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to fetch video durations")
		return
	}

	durations := make(map[string]string, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails != nil {
			durations[item.Id] = item.ContentDetails.Duration
		}
	}
	for i := range candidates {
		if d, ok := parseDuration(durations[candidates[i].ID]); ok {
			candidates[i].Duration = d
			candidates[i].HasDuration = true
		}
	}
}

func parsePublished(item *youtube.PlaylistItem) time.Time {
	var raw string
	if item.ContentDetails != nil && item.ContentDetails.VideoPublishedAt != "" {
		raw = item.ContentDetails.VideoPublishedAt
	} else if item.Snippet != nil {
		raw = item.Snippet.PublishedAt
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
