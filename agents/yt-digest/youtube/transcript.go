package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// ErrTranscriptUnavailable means the video has no captions in any accepted language.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

const (
	DefaultWatchURL     = "https://www.youtube.com/watch"
	playerResponseToken = "ytInitialPlayerResponse"
	maxPageBytes        = 8 << 20
)

// TranscriptFetcher reads caption tracks from the public watch page.
type TranscriptFetcher struct {
	client    *http.Client
	watchURL  string
	languages []string
	logger    zerolog.Logger
}

func NewTranscriptFetcher(client *http.Client, watchURL string, languages []string, logger zerolog.Logger) *TranscriptFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if watchURL == "" {
		watchURL = DefaultWatchURL
	}
	return &TranscriptFetcher{
		client:    client,
		watchURL:  watchURL,
		languages: languages,
		logger:    logger.With().Str("component", "transcript").Logger(),
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// Transcript returns the caption text of a video as a single string.
func (f *TranscriptFetcher) Transcript(ctx context.Context, videoID string) (string, error) {
	page, err := f.get(ctx, f.watchURL+"?v="+url.QueryEscape(videoID))
	if err != nil {
		return "", fmt.Errorf("failed to load watch page for %s: %w", videoID, err)
	}
	defer page.Close()

	player, err := extractPlayerResponse(io.LimitReader(page, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read player data for %s: %w", videoID, err)
	}
	if player == nil {
		return "", fmt.Errorf("%w: no player data for %s", ErrTranscriptUnavailable, videoID)
	}

	track := pickTrack(player.Captions.Renderer.CaptionTracks, f.languages)
	if track == nil {
		return "", fmt.Errorf("%w: no captions in %s for %s", ErrTranscriptUnavailable, strings.Join(f.languages, ","), videoID)
	}
	f.logger.Debug().Str("video_id", videoID).Str("language", track.LanguageCode).Bool("auto", track.Kind == "asr").Msg("Selected caption track")

	body, err := f.get(ctx, track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to download captions for %s: %w", videoID, err)
	}
	defer body.Close()

	text, err := parseCaptions(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse captions for %s: %w", videoID, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty captions for %s", ErrTranscriptUnavailable, videoID)
	}
	return text, nil
}

func (f *TranscriptFetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) yt-digest/1.0")
	req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+1"})

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// extractPlayerResponse finds the inline script that assigns the player
// response and decodes the JSON object that follows the assignment. It
// returns nil when the page has no such script.
func extractPlayerResponse(r io.Reader) (*playerResponse, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var found *playerResponse
	var decodeErr error
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.Text()
		idx := strings.Index(src, playerResponseToken)
		if idx < 0 {
			return true
		}
		rest := src[idx+len(playerResponseToken):]
		start := strings.Index(rest, "{")
		if start < 0 {
			return true
		}
		var pr playerResponse
		if err := json.NewDecoder(strings.NewReader(rest[start:])).Decode(&pr); err != nil {
			decodeErr = err
			return true
		}
		found = &pr
		return false
	})
	if found == nil && decodeErr != nil {
		return nil, decodeErr
	}
	return found, nil
}

// pickTrack prefers manual tracks over auto-generated ones, then the order
// of the configured languages.
func pickTrack(tracks []captionTrack, languages []string) *captionTrack {
	for _, wantAuto := range []bool{false, true} {
		for _, lang := range languages {
			for i := range tracks {
				t := &tracks[i]
				if (t.Kind == "asr") == wantAuto && strings.EqualFold(t.LanguageCode, lang) && t.BaseURL != "" {
					return t
				}
			}
		}
	}
	return nil
}

// parseCaptions joins the text of every cue. It reads both the classic
// <transcript><text> layout and the <timedtext><body><p> layout.
func parseCaptions(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var parts []string
	var cue strings.Builder
	depth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
			} else if t.Name.Local == "text" || t.Name.Local == "p" {
				depth = 1
				cue.Reset()
			}
		case xml.CharData:
			if depth > 0 {
				cue.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				line := strings.Join(strings.Fields(html.UnescapeString(cue.String())), " ")
				if line != "" {
					parts = append(parts, line)
				}
			}
		}
	}
	return strings.Join(parts, " "), nil
}
