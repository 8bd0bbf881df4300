package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/renameio/v2"
	"golang.org/x/text/unicode/norm"

	"yt-digest/internal/models"
)

const maxFilenameRunes = 150

// ArtifactStore writes one summary file per video into a directory.
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Path returns where the artifact for a video is stored. The name depends
// only on the video id and channel name, so a rerun replaces the same file.
func (s *ArtifactStore) Path(videoID, channelName string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.txt", videoID, SanitizeFilename(channelName)))
}

// Write persists the artifact atomically and returns the file path.
func (s *ArtifactStore) Write(a *models.SummaryArtifact) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := s.Path(a.VideoID, a.ChannelName)
	if err := renameio.WriteFile(path, []byte(RenderArtifact(a)), 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return path, nil
}

// RenderArtifact lays the artifact out as plain text.
func RenderArtifact(a *models.SummaryArtifact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video Title: %s\n", a.Title)
	fmt.Fprintf(&b, "Video ID: %s\n", a.VideoID)
	fmt.Fprintf(&b, "Channel: %s\n", a.ChannelName)
	fmt.Fprintf(&b, "URL: %s\n", a.URL)
	fmt.Fprintf(&b, "Duration: %s\n\n", a.DurationText())
	fmt.Fprintf(&b, "--- Executive Summary ---\n%s\n\n", a.Executive)
	fmt.Fprintf(&b, "--- Detailed Summary ---\n%s\n\n", a.Detailed)
	fmt.Fprintf(&b, "--- Key Quotes ---\n%s\n", a.Quotes)
	return b.String()
}

// SanitizeFilename turns a channel name into a safe file name component.
// Reserved characters are dropped, whitespace runs become a single underscore
// and the result is capped at 150 characters.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(strings.ToValidUTF8(name, "_"))

	var b strings.Builder
	pendingSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case r == utf8.RuneError:
			r = '_'
		case strings.ContainsRune(`\/*?:"<>|`, r), unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			b.WriteRune('_')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	if pendingSpace {
		b.WriteRune('_')
	}

	out := []rune(b.String())
	if len(out) > maxFilenameRunes {
		out = out[:maxFilenameRunes]
	}
	result := strings.Trim(string(out), "_.")
	if result == "" {
		return "channel"
	}
	return result
}
