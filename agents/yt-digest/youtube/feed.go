package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"yt-digest/internal/models"
)

// DefaultFeedURL is the public per-channel uploads feed. It needs no API key.
const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

// FeedLister lists uploads from the public channel Atom feed. The feed carries
// no durations, so every candidate has an unknown duration.
type FeedLister struct {
	parser   *gofeed.Parser
	baseURL  string
	logger   zerolog.Logger
	lookback time.Duration
	now      func() time.Time

	mu     sync.Mutex
	titles map[string]string
}

func NewFeedLister(client *http.Client, baseURL string, lookbackHours int, logger zerolog.Logger) *FeedLister {
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	p := gofeed.NewParser()
	p.UserAgent = "yt-digest/1.0"
	if client != nil {
		p.Client = client
	}
	return &FeedLister{
		parser:   p,
		baseURL:  baseURL,
		logger:   logger.With().Str("component", "feed").Logger(),
		lookback: time.Duration(lookbackHours) * time.Hour,
		now:      time.Now,
		titles:   make(map[string]string),
	}
}

func (f *FeedLister) fetch(ctx context.Context, channelID string) (*gofeed.Feed, error) {
	u := f.baseURL + "?channel_id=" + url.QueryEscape(channelID)
	feed, err := f.parser.ParseURLWithContext(u, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for channel %s: %w", channelID, err)
	}
	if feed.Title != "" {
		f.mu.Lock()
		f.titles[channelID] = feed.Title
		f.mu.Unlock()
	}
	return feed, nil
}

// ChannelTitle returns the feed title, reusing a title seen by ListRecent.
func (f *FeedLister) ChannelTitle(ctx context.Context, channelID string) (string, error) {
	f.mu.Lock()
	title, ok := f.titles[channelID]
	f.mu.Unlock()
	if ok {
		return title, nil
	}

	feed, err := f.fetch(ctx, channelID)
	if err != nil {
		return "", err
	}
	if feed.Title == "" {
		return "", fmt.Errorf("feed for channel %s has no title", channelID)
	}
	return feed.Title, nil
}

func (f *FeedLister) ListRecent(ctx context.Context, channelID string, maxResults int) ([]models.VideoCandidate, error) {
	feed, err := f.fetch(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var since time.Time
	if f.lookback > 0 {
		since = f.now().Add(-f.lookback)
	}

	var out []models.VideoCandidate
	for _, item := range feed.Items {
		id := videoIDFromItem(item)
		if id == "" {
			f.logger.Debug().Str("link", item.Link).Msg("Skipping feed entry without a video id")
			continue
		}
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		if !since.IsZero() && !published.IsZero() && published.Before(since) {
			continue
		}
		out = append(out, models.VideoCandidate{
			ID:          id,
			ChannelID:   channelID,
			Title:       item.Title,
			PublishedAt: published,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func videoIDFromItem(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if ids := yt["videoId"]; len(ids) > 0 && ids[0].Value != "" {
			return strings.TrimSpace(ids[0].Value)
		}
	}
	if strings.HasPrefix(item.GUID, "yt:video:") {
		return strings.TrimPrefix(item.GUID, "yt:video:")
	}
	if u, err := url.Parse(item.Link); err == nil {
		return u.Query().Get("v")
	}
	return ""
}
