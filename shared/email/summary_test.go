package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-digest/internal/models"
)

func TestRenderSummary(t *testing.T) {
	a := &models.SummaryArtifact{
		VideoID:     "abc123",
		Title:       "Tips & <Tricks>",
		ChannelName: "Dev Channel",
		URL:         models.WatchURL("abc123"),
		Duration:    4*time.Minute + 59*time.Second,
		HasDuration: true,
		Executive:   "**Bold** claim.",
		Detailed:    "- first\n- second",
		Quotes:      "> quoted <script>alert(1)</script>",
	}

	assert.Equal(t, "New YouTube Summary: [Dev Channel] Tips & <Tricks>", Subject(a))

	body, err := RenderSummary(a, time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, body, "Tips &amp; &lt;Tricks&gt;")
	assert.Contains(t, body, "<b>Duration:</b> 04:59")
	assert.Contains(t, body, `<a href="https://www.youtube.com/watch?v=abc123">`)
	assert.Contains(t, body, "<strong>Bold</strong> claim.")
	assert.Contains(t, body, "<li>first</li>")
	assert.Contains(t, body, "<blockquote>")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "Jan 2, 2025 03:04 UTC")
}
