package ytdigest

import (
	"time"

	"yt-digest/internal/models"
)

// ProcessedLookup answers whether a video already completed the pipeline.
type ProcessedLookup interface {
	Contains(videoID string) bool
}

// FilterResult is the outcome of FilterCandidates.
type FilterResult struct {
	Eligible         []models.VideoCandidate
	AlreadyProcessed int
	TooShort         int
}

// FilterCandidates drops processed videos and videos shorter than
// minDuration, keeping the input order. A video with an unknown duration is
// eligible, and a minDuration of zero disables the duration check.
func FilterCandidates(candidates []models.VideoCandidate, processed ProcessedLookup, minDuration time.Duration) FilterResult {
	var res FilterResult
	seen := make(map[string]bool, len(candidates))
	for _, v := range candidates {
		if seen[v.ID] || processed.Contains(v.ID) {
			res.AlreadyProcessed++
			continue
		}
		seen[v.ID] = true
		if minDuration > 0 && v.HasDuration && v.Duration < minDuration {
			res.TooShort++
			continue
		}
		res.Eligible = append(res.Eligible, v)
	}
	return res
}
