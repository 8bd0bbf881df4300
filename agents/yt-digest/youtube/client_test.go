package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const testChannel = "UC_x5XG1OV2P6uZZ5FSM9Ttw"

type fakeDataAPI struct {
	videosFail bool
	lastMax    string
}

func (f *fakeDataAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()
	switch {
	case strings.HasSuffix(r.URL.Path, "/channels"):
		if q.Get("id") != testChannel {
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []any{map[string]any{
			"id":             testChannel,
			"snippet":        map[string]any{"title": "Google for Developers"},
			"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UU_x5XG1OV2P6uZZ5FSM9Ttw"}},
		}}})
	case strings.HasSuffix(r.URL.Path, "/playlistItems"):
		f.lastMax = q.Get("maxResults")
		item := func(id, title, published string) map[string]any {
			return map[string]any{
				"snippet": map[string]any{
					"title":       title,
					"publishedAt": published,
					"resourceId":  map[string]any{"kind": "youtube#video", "videoId": id},
				},
				"contentDetails": map[string]any{"videoId": id, "videoPublishedAt": published},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []any{
			item("old", "Old talk", "2025-01-01T10:00:00Z"),
			item("new", "New talk", "2025-01-03T10:00:00Z"),
			item("mid", "Mid talk", "2025-01-02T10:00:00Z"),
		}})
	case strings.HasSuffix(r.URL.Path, "/videos"):
		if f.videosFail {
			http.Error(w, `{"error":{"code":403,"message":"quotaExceeded"}}`, http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []any{
			map[string]any{"id": "new", "contentDetails": map[string]any{"duration": "PT4M59S"}},
			map[string]any{"id": "mid", "contentDetails": map[string]any{"duration": "PT1H2M3S"}},
		}})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *fakeDataAPI, lookbackHours int) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClientWithOptions(context.Background(), lookbackHours, zerolog.Nop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithAPIKey("test-key"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestListRecent(t *testing.T) {
	api := &fakeDataAPI{}
	c := newTestClient(t, api, 0)

	videos, err := c.ListRecent(context.Background(), testChannel, 3)
	require.NoError(t, err)
	assert.Equal(t, "3", api.lastMax)

	require.Len(t, videos, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{videos[0].ID, videos[1].ID, videos[2].ID})

	assert.Equal(t, "New talk", videos[0].Title)
	assert.Equal(t, testChannel, videos[0].ChannelID)
	assert.True(t, videos[0].HasDuration)
	assert.Equal(t, 4*time.Minute+59*time.Second, videos[0].Duration)
	assert.True(t, videos[1].HasDuration)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, videos[1].Duration)
	assert.False(t, videos[2].HasDuration, "no duration reported for old")
}

func TestListRecentCapsAndLookback(t *testing.T) {
	c := newTestClient(t, &fakeDataAPI{}, 36)

	videos, err := c.ListRecent(context.Background(), testChannel, 5)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "new", videos[0].ID)
	assert.Equal(t, "mid", videos[1].ID)

	c = newTestClient(t, &fakeDataAPI{}, 0)
	videos, err = c.ListRecent(context.Background(), testChannel, 1)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "new", videos[0].ID)
}

func TestListRecentDurationFailureLeavesUnknown(t *testing.T) {
	c := newTestClient(t, &fakeDataAPI{videosFail: true}, 0)

	videos, err := c.ListRecent(context.Background(), testChannel, 3)
	require.NoError(t, err)
	for _, v := range videos {
		assert.False(t, v.HasDuration)
	}
}

func TestUnknownChannel(t *testing.T) {
	c := newTestClient(t, &fakeDataAPI{}, 0)

	_, err := c.ListRecent(context.Background(), "UCdoesnotexist0000000000", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChannelNotFound))

	_, err = c.ChannelTitle(context.Background(), "UCdoesnotexist0000000000")
	assert.True(t, errors.Is(err, ErrChannelNotFound))
}

func TestChannelTitle(t *testing.T) {
	c := newTestClient(t, &fakeDataAPI{}, 0)

	title, err := c.ChannelTitle(context.Background(), testChannel)
	require.NoError(t, err)
	assert.Equal(t, "Google for Developers", title)
}
