package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channelFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Google for Developers</title>
 <yt:channelId>UC_x5XG1OV2P6uZZ5FSM9Ttw</yt:channelId>
 <entry>
  <id>yt:video:mid</id>
  <yt:videoId>mid</yt:videoId>
  <title>Mid talk</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=mid"/>
  <published>2025-01-02T10:00:00+00:00</published>
 </entry>
 <entry>
  <id>yt:video:new</id>
  <yt:videoId>new</yt:videoId>
  <title>New talk</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=new"/>
  <published>2025-01-03T10:00:00+00:00</published>
 </entry>
 <entry>
  <id>yt:video:old</id>
  <yt:videoId>old</yt:videoId>
  <title>Old talk</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=old"/>
  <published>2025-01-01T10:00:00+00:00</published>
 </entry>
</feed>`

func newFeedServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if r.URL.Query().Get("channel_id") != testChannel {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(channelFeed))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedListerListRecent(t *testing.T) {
	var hits int
	srv := newFeedServer(t, &hits)
	f := NewFeedLister(srv.Client(), srv.URL, 0, zerolog.Nop())

	videos, err := f.ListRecent(context.Background(), testChannel, 2)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "new", videos[0].ID)
	assert.Equal(t, "New talk", videos[0].Title)
	assert.Equal(t, "mid", videos[1].ID)
	assert.False(t, videos[0].HasDuration)
	assert.Equal(t, time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC), videos[0].PublishedAt.UTC())

	title, err := f.ChannelTitle(context.Background(), testChannel)
	require.NoError(t, err)
	assert.Equal(t, "Google for Developers", title)
	assert.Equal(t, 1, hits, "title comes from the feed already fetched")
}

func TestFeedListerLookback(t *testing.T) {
	var hits int
	srv := newFeedServer(t, &hits)
	f := NewFeedLister(srv.Client(), srv.URL, 36, zerolog.Nop())
	f.now = func() time.Time { return time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC) }

	videos, err := f.ListRecent(context.Background(), testChannel, 10)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "mid", videos[1].ID)
}

func TestFeedListerUnknownChannel(t *testing.T) {
	var hits int
	srv := newFeedServer(t, &hits)
	f := NewFeedLister(srv.Client(), srv.URL, 0, zerolog.Nop())

	_, err := f.ListRecent(context.Background(), "UCmissing", 1)
	require.Error(t, err)

	_, err = f.ChannelTitle(context.Background(), "UCmissing")
	require.Error(t, err)
}
