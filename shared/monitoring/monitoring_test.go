package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorHealth(t *testing.T) {
	m := NewMonitor(zerolog.Nop())
	assert.True(t, m.IsHealthy())
	assert.Equal(t, "No runs yet", m.GetStatusSummary())

	m.RecordCriticalFailure(errors.New("boom"), time.Second)
	assert.False(t, m.IsHealthy())
	assert.True(t, strings.HasPrefix(m.GetStatusSummary(), "Last run failed"))

	m.RecordPartialFailure(errors.New("one channel"), time.Second)
	assert.False(t, m.IsHealthy(), "partial failures do not change health")

	m.RecordSuccess("processed 1 videos", time.Second)
	assert.True(t, m.IsHealthy())
	assert.Equal(t, 2, m.Status().Runs)
	assert.Equal(t, "processed 1 videos", m.Status().LastSummary)
}

func TestHealthServerRoutes(t *testing.T) {
	m := NewMonitor(zerolog.Nop())
	metrics := NewDigestMetrics()
	metrics.Videos.WithLabelValues(OutcomeProcessed).Inc()
	srv := NewHealthServer(m, metrics.Registry, "0", zerolog.Nop())

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK - No runs yet", rec.Body.String())

	m.RecordCriticalFailure(errors.New("config"), 0)
	rec = get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get("/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Healthy)
	assert.Equal(t, "config", status.LastSummary)

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ytdigest_videos_total{outcome="processed"} 1`)
}

func TestDigestMetrics(t *testing.T) {
	m := NewDigestMetrics()
	m.Videos.WithLabelValues(OutcomeFailed).Add(2)
	m.Emails.WithLabelValues(EmailSent).Inc()
	m.ChannelFailures.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Videos.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Emails.WithLabelValues(EmailSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelFailures))

	n, err := testutil.GatherAndCount(m.Registry, "ytdigest_videos_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
