package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-digest/shared/config"
)

type summary string

func (s summary) GetSummary() string { return string(s) }

type stubAgent struct {
	initErr error
	runErr  error
	partial error
	runs    atomic.Int32
}

func (a *stubAgent) Name() string { return "stub" }

func (a *stubAgent) Initialize(context.Context) error { return a.initErr }

func (a *stubAgent) RunOnce(_ context.Context, events *AgentEvents) error {
	a.runs.Add(1)
	if a.runErr != nil {
		return a.runErr
	}
	if a.partial != nil {
		events.OnPartialFailure(a.partial, time.Millisecond)
	}
	events.OnSuccess(summary("ok"), time.Millisecond)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{Settings: config.SettingsConfig{Schedule: "* * * * * *", HealthPort: 0}}
}

func TestRunOnceRecordsSuccess(t *testing.T) {
	agent := &stubAgent{partial: errors.New("one channel failed")}
	s := New(testConfig(), agent, nil, zerolog.Nop())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.True(t, s.Monitor().IsHealthy())
	assert.Equal(t, "ok", s.Monitor().Status().LastSummary)
}

func TestRunOnceRecordsFailure(t *testing.T) {
	agent := &stubAgent{runErr: errors.New("store unreadable")}
	s := New(testConfig(), agent, nil, zerolog.Nop())

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreadable")
	assert.False(t, s.Monitor().IsHealthy())
}

func TestStartFailsWhenInitializeFails(t *testing.T) {
	agent := &stubAgent{initErr: errors.New("bad credentials")}
	s := New(testConfig(), agent, nil, zerolog.Nop())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Zero(t, agent.runs.Load())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Settings.Schedule = "not a schedule"
	s := New(cfg, &stubAgent{}, nil, zerolog.Nop())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add cron job")
}

func TestStartRunsOnScheduleUntilCancelled(t *testing.T) {
	agent := &stubAgent{}
	s := New(testConfig(), agent, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return agent.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
