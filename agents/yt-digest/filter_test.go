package ytdigest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"yt-digest/internal/models"
)

func ids(vs []models.VideoCandidate) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestFilterCandidates(t *testing.T) {
	candidates := []models.VideoCandidate{
		video("new-long", chanA, 30*time.Minute),
		video("seen", chanA, 30*time.Minute),
		video("just-short", chanA, 4*time.Minute+59*time.Second),
		video("exact", chanA, 5*time.Minute),
		{ID: "unknown", ChannelID: chanA},
		{ID: "zero", ChannelID: chanA, HasDuration: true},
	}
	processed := newMemProcessed("seen")

	tests := []struct {
		name        string
		minDuration time.Duration
		eligible    []string
		tooShort    int
	}{
		{
			name:        "five minute minimum",
			minDuration: 5 * time.Minute,
			eligible:    []string{"new-long", "exact", "unknown"},
			tooShort:    2,
		},
		{
			name:        "no minimum",
			minDuration: 0,
			eligible:    []string{"new-long", "just-short", "exact", "unknown", "zero"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FilterCandidates(candidates, processed, tt.minDuration)
			assert.Equal(t, tt.eligible, ids(res.Eligible))
			assert.Equal(t, 1, res.AlreadyProcessed)
			assert.Equal(t, tt.tooShort, res.TooShort)
		})
	}
}

func TestFilterCandidatesDropsRepeatedIDs(t *testing.T) {
	candidates := []models.VideoCandidate{
		video("a", chanA, 0),
		video("a", chanA, 0),
		video("b", chanA, 0),
	}
	res := FilterCandidates(candidates, newMemProcessed(), 0)
	assert.Equal(t, []string{"a", "b"}, ids(res.Eligible))
	assert.Equal(t, 1, res.AlreadyProcessed)
}

func TestFilterCandidatesEmpty(t *testing.T) {
	res := FilterCandidates(nil, newMemProcessed(), time.Minute)
	assert.Empty(t, res.Eligible)
	assert.Zero(t, res.AlreadyProcessed)
	assert.Zero(t, res.TooShort)
}
