package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Video outcomes recorded by DigestMetrics.Videos.
const (
	OutcomeProcessed         = "processed"
	OutcomeSkippedTranscript = "skipped_transcript"
	OutcomeFailed            = "failed"
)

// Email statuses recorded by DigestMetrics.Emails.
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailSkipped = "skipped"
)

// DigestMetrics holds the Prometheus metrics for digest runs.
type DigestMetrics struct {
	Registry        *prometheus.Registry
	Videos          *prometheus.CounterVec
	ChannelFailures prometheus.Counter
	Emails          *prometheus.CounterVec
	RunDuration     prometheus.Histogram
}

// NewDigestMetrics registers the metrics on a fresh registry.
func NewDigestMetrics() *DigestMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &DigestMetrics{
		Registry: reg,
		Videos: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytdigest_videos_total",
				Help: "Eligible videos by pipeline outcome",
			},
			[]string{"outcome"},
		),
		ChannelFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ytdigest_channel_failures_total",
			Help: "Channels skipped because listing failed",
		}),
		Emails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytdigest_emails_total",
				Help: "Notification emails by status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ytdigest_run_duration_seconds",
			Help:    "Wall-clock duration of a digest run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
	}
}
