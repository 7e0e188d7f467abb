// Package server exposes the expression tools over HTTP for agent
// frameworks.
//
//	POST /tool     execute a tool call
//	GET  /schema   tool schema for agent registration
//	GET  /health   liveness check
//	GET  /metrics  Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	flatex "github.com/njchilds90/goflatex"
	"github.com/njchilds90/goflatex/internal/config"
	"github.com/njchilds90/goflatex/internal/logging"
	"github.com/njchilds90/goflatex/internal/middleware"
	"github.com/njchilds90/goflatex/internal/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	tools   *flatex.ToolHandler
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	started time.Time
}

// New wires the router. A nil logger discards logs.
func New(cfg *config.Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := monitoring.NewMetrics()

	s := &Server{
		tools: flatex.NewToolHandler(flatex.ToolOptions{
			Precision:  cfg.Engine.Precision,
			MaxExprLen: cfg.Engine.MaxExprLen,
			MaxOrder:   cfg.Engine.MaxOrder,
			Step:       cfg.Engine.FDStep,
		}),
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		started: time.Now(),
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		monitoring.Middleware(metrics),
		middleware.CORS(cfg.Server.CORSOrigins...),
	)
	router.POST("/tool", append(s.limiters(), s.handleTool)...)
	router.GET("/schema", s.handleSchema)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.router = router

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// limiters returns the rate limit chain for /tool: the server-wide bucket
// first, then the per-IP buckets.
func (s *Server) limiters() []gin.HandlerFunc {
	rl := s.config.RateLimit
	if !rl.Enabled {
		return nil
	}
	onReject := func(*gin.Context) { s.metrics.RateLimited.Inc() }

	var chain []gin.HandlerFunc
	if rl.GlobalRequestsPerSecond > 0 {
		burst := rl.GlobalBurst
		if burst == 0 {
			burst = rl.GlobalRequestsPerSecond
		}
		chain = append(chain, middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: rl.GlobalRequestsPerSecond,
			Burst:             burst,
			OnReject:          onReject,
		}))
	}
	perIP := middleware.DefaultRateLimitConfig()
	perIP.RequestsPerSecond = rl.RequestsPerSecond
	perIP.Burst = rl.Burst
	perIP.OnReject = onReject
	return append(chain, middleware.RateLimit(perIP))
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Run() error {
	s.logger.Info("flatex tool server listening",
		zap.String("addr", s.http.Addr),
		zap.String("precision", s.config.Engine.Precision),
		zap.Bool("rate_limit", s.config.RateLimit.Enabled),
		zap.Int("global_rps", s.config.RateLimit.GlobalRequestsPerSecond),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleTool(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.config.Server.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var req flatex.ToolRequest
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, flatex.ToolResponse{Error: "invalid JSON: " + err.Error(), Kind: "request"})
		return
	}
	if dec.More() {
		c.JSON(http.StatusBadRequest, flatex.ToolResponse{Error: "invalid JSON: trailing data", Kind: "request"})
		return
	}

	tool, precision := labels(req, s.config.Engine.Precision)
	timer := monitoring.NewTimer(s.metrics, tool, precision)
	resp := s.tools.Handle(req)
	d := timer.Stop(resp.Kind)
	s.logger.ToolCall(tool, precision, resp.Kind, d)

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSchema(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(flatex.ToolSpec()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// labels bounds the metric label values derived from client input.
func labels(req flatex.ToolRequest, precision string) (string, string) {
	tool := req.Tool
	if !flatex.KnownTool(tool) {
		tool = "unknown"
	}
	if p, ok := req.Params["precision"].(string); ok {
		precision = p
	}
	switch precision {
	case "f32", "float32":
		precision = "f32"
	case "f64", "float64":
		precision = "f64"
	default:
		precision = "invalid"
	}
	return tool, precision
}
