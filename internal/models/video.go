package models

import (
	"fmt"
	"time"
)

// Channel is a monitored YouTube channel.
type Channel struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Name  string `json:"name"`
}

// VideoCandidate is a video returned by a channel lister. It only lives for one run.
type VideoCandidate struct {
	ID          string        `json:"id"`
	ChannelID   string        `json:"channel_id"`
	Title       string        `json:"title"`
	PublishedAt time.Time     `json:"published_at"`
	Duration    time.Duration `json:"duration"`
	// HasDuration is false when the provider did not report a duration.
	HasDuration bool `json:"has_duration"`
}

// URL returns the public watch URL of the video.
func (v *VideoCandidate) URL() string {
	return WatchURL(v.ID)
}

// WatchURL builds the watch URL for a video id.
func WatchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

type SummaryArtifact struct {
	VideoID     string        `json:"video_id"`
	Title       string        `json:"title"`
	ChannelID   string        `json:"channel_id"`
	ChannelName string        `json:"channel_name"`
	URL         string        `json:"url"`
	Duration    time.Duration `json:"duration"`
	HasDuration bool          `json:"has_duration"`
	Executive   string        `json:"executive"`
	Detailed    string        `json:"detailed"`
	Quotes      string        `json:"quotes"`
}

// DurationText renders the artifact duration as H:MM:SS or MM:SS.
func (a *SummaryArtifact) DurationText() string {
	return FormatDuration(a.Duration, a.HasDuration)
}

// FormatDuration renders d as H:MM:SS when it spans an hour or more, MM:SS otherwise,
// and "N/A" when the duration is unknown.
func FormatDuration(d time.Duration, known bool) string {
	if !known {
		return "N/A"
	}
	total := int(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
