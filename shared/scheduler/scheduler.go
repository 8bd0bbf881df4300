package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"yt-digest/shared/config"
	"yt-digest/shared/monitoring"
)

// Metrics defines the common interface for agent metrics
type Metrics interface {
	// GetSummary returns a human-readable summary of the run
	GetSummary() string
}

// AgentEvents provides callbacks for monitoring agent execution
type AgentEvents struct {
	OnSuccess         func(metrics Metrics, duration time.Duration)
	OnPartialFailure  func(err error, duration time.Duration)
	OnCriticalFailure func(err error, duration time.Duration)
}

// Agent defines the interface that all agents must implement
type Agent interface {
	Name() string
	RunOnce(ctx context.Context, events *AgentEvents) error
	Initialize(ctx context.Context) error
}

// Scheduler manages the execution of an agent on a schedule
type Scheduler struct {
	config   *config.Config
	monitor  *monitoring.Monitor
	gatherer prometheus.Gatherer
	agent    Agent
	cron     *cron.Cron
	logger   zerolog.Logger
}

// New builds a scheduler. gatherer may be nil when no metrics are exported.
func New(cfg *config.Config, agent Agent, gatherer prometheus.Gatherer, logger zerolog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(&logger)

	return &Scheduler{
		config:   cfg,
		monitor:  monitoring.NewMonitor(logger),
		gatherer: gatherer,
		agent:    agent,
		logger:   logger,
		// Prevent overlapping runs
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
	}
}

func (s *Scheduler) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Start initializes the agent, serves health checks and runs the agent on the
// configured schedule until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.agent.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	_, err := s.cron.AddFunc(s.config.Settings.Schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error().Err(err).Str("agent", s.agent.Name()).Msg("Error running scheduled job")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	healthServer := monitoring.NewHealthServer(s.monitor, s.gatherer, strconv.Itoa(s.config.Settings.HealthPort), s.logger)
	healthServer.Start()

	s.logger.Info().Str("agent", s.agent.Name()).Str("schedule", s.config.Settings.Schedule).Msg("Scheduler started")
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info().Str("agent", s.agent.Name()).Msg("Scheduler stopping")

	// Wait for an in-flight run before returning.
	<-s.cron.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("Health server shutdown failed")
	}
	return ctx.Err()
}

// RunOnce runs the agent a single time and records the outcome on the monitor.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	startTime := time.Now()
	agentName := s.agent.Name()

	s.logger.Info().Str("agent", agentName).Msg("Starting run")

	events := &AgentEvents{
		OnSuccess: func(metrics Metrics, duration time.Duration) {
			s.monitor.RecordSuccess(metrics.GetSummary(), duration)
		},
		OnPartialFailure: func(err error, duration time.Duration) {
			s.monitor.RecordPartialFailure(fmt.Errorf("%s partial failure: %w", agentName, err), duration)
		},
		OnCriticalFailure: func(err error, duration time.Duration) {
			s.monitor.RecordCriticalFailure(fmt.Errorf("%s critical failure: %w", agentName, err), duration)
		},
	}

	if err := s.agent.RunOnce(ctx, events); err != nil {
		duration := time.Since(startTime)
		s.monitor.RecordCriticalFailure(fmt.Errorf("%s failed: %w", agentName, err), duration)
		return fmt.Errorf("%s run failed: %w", agentName, err)
	}

	return nil
}
