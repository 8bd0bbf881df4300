package ytdigest

import (
	"fmt"
	"time"
)

// RunStats counts what happened during one run.
type RunStats struct {
	RunID               string
	ChannelsChecked     int
	ChannelsFailed      int
	Candidates          int
	AlreadyProcessed    int
	TooShort            int
	Eligible            int
	Processed           int
	SkippedNoTranscript int
	Failed              int
	EmailsSent          int
	EmailsFailed        int
	EmailsSkipped       int
	Elapsed             time.Duration
	Errors              []error
}

// GetSummary implements scheduler.Metrics.
func (s *RunStats) GetSummary() string {
	return fmt.Sprintf("checked %d channels (%d failed), %d new videos: %d processed, %d without transcript, %d failed; %d emails sent, %d failed",
		s.ChannelsChecked, s.ChannelsFailed, s.Eligible, s.Processed, s.SkippedNoTranscript, s.Failed, s.EmailsSent, s.EmailsFailed)
}

// HasFailures reports whether any channel or video step failed.
func (s *RunStats) HasFailures() bool {
	return s.ChannelsFailed > 0 || s.Failed > 0 || s.EmailsFailed > 0
}
