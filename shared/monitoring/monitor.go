package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Monitor tracks the outcome of the most recent run. The scheduler writes it
// while the health server reads it, so access is locked.
type Monitor struct {
	mu             sync.RWMutex
	logger         zerolog.Logger
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	runs           int
}

func NewMonitor(logger zerolog.Logger) *Monitor {
	return &Monitor{logger: logger}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary
	m.runs++
	m.mu.Unlock()

	m.logger.Info().Dur("duration", duration).Msgf("Run completed successfully - %s", summary)
}

// RecordPartialFailure logs a run that finished with some failed channels or
// videos. Health is unchanged.
func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	m.logger.Warn().Err(err).Dur("duration", duration).Msg("Partial failure")
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastSummary = err.Error()
	m.runs++
	m.mu.Unlock()

	m.logger.Error().Err(err).Dur("duration", duration).Msg("Critical failure")
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastRunTime.IsZero() {
		return true // No runs yet
	}
	return m.lastRunSuccess
}

// Status is the JSON body of /status.
type Status struct {
	Healthy     bool      `json:"healthy"`
	Runs        int       `json:"runs"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastSummary string    `json:"last_summary,omitempty"`
	Summary     string    `json:"summary"`
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Healthy:     m.lastRunTime.IsZero() || m.lastRunSuccess,
		Runs:        m.runs,
		LastRun:     m.lastRunTime,
		LastSummary: m.lastSummary,
		Summary:     m.statusSummaryLocked(),
	}
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusSummaryLocked()
}

func (m *Monitor) statusSummaryLocked() string {
	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}
	if m.lastRunSuccess {
		return fmt.Sprintf("Last run: %s", m.lastRunTime.Format("Jan 2 15:04"))
	}
	return fmt.Sprintf("Last run failed: %s", m.lastRunTime.Format("Jan 2 15:04"))
}
