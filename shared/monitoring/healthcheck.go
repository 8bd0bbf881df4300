package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type HealthServer struct {
	monitor *Monitor
	port    string
	logger  zerolog.Logger
	engine  *gin.Engine
	server  *http.Server
}

// NewHealthServer serves /health, /status and, when gatherer is non-nil, /metrics.
func NewHealthServer(monitor *Monitor, gatherer prometheus.Gatherer, port string, logger zerolog.Logger) *HealthServer {
	if port == "" {
		port = "8080"
	}
	gin.SetMode(gin.ReleaseMode)

	h := &HealthServer{
		monitor: monitor,
		port:    port,
		logger:  logger,
		engine:  gin.New(),
	}
	h.engine.Use(gin.Recovery())
	h.engine.GET("/health", h.healthHandler)
	h.engine.GET("/status", h.statusHandler)
	if gatherer != nil {
		h.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return h
}

// Handler exposes the routes for tests and embedding.
func (h *HealthServer) Handler() http.Handler {
	return h.engine
}

func (h *HealthServer) Start() {
	h.server = &http.Server{
		Addr:              ":" + h.port,
		Handler:           h.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	h.logger.Info().Str("port", h.port).Msg("Health check server starting")
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error().Err(err).Msg("Health server error")
		}
	}()
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *HealthServer) healthHandler(c *gin.Context) {
	if h.monitor.IsHealthy() {
		c.String(http.StatusOK, "OK - %s", h.monitor.GetStatusSummary())
		return
	}
	c.String(http.StatusServiceUnavailable, "Service unhealthy - %s", h.monitor.GetStatusSummary())
}

func (h *HealthServer) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}
