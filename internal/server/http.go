// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/listen-rs/listen-engine/pkg/engine"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
	"github.com/listen-rs/listen-engine/pkg/store"
)

// PipelineClient is the subset of engine.Client used by the HTTP handlers.
type PipelineClient interface {
	Add(ctx context.Context, p *pipeline.Pipeline) error
	Get(ctx context.Context, id string) (*pipeline.Pipeline, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, userID string) ([]*pipeline.Pipeline, error)
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Port         int
	ServiceName  string
	ReplyTimeout time.Duration
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Creation records pipeline creation metrics. May be nil.
	Creation *CreationMetrics
	// Readiness is consulted by /api/readyz. May be nil.
	Readiness *store.HealthChecker
	Now       func() time.Time
}

// HTTPServer serves the pipeline API.
type HTTPServer struct {
	server *http.Server
	router *gin.Engine
	client PipelineClient
	cfg    HTTPConfig
}

// NewHTTPServer creates a new HTTP server instance.
func NewHTTPServer(cfg HTTPConfig, client PipelineClient) *HTTPServer {
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HTTPServer{cfg: cfg, client: client}
}

// Setup builds the router and registers the API routes.
//
// ============================================================
// DEVELOPER: HTTP routes
// ============================================================
// Every /api route is a thin adapter: decode the request, send one
// message through the engine client, map the reply to a status code.
// Handlers never touch pipeline state directly.
// ============================================================
func (s *HTTPServer) Setup() error {
	if logrus.GetLevel() >= logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(recovery(), requestLogger())

	api := router.Group("/api")
	api.GET("/healthz", s.healthz)
	api.GET("/readyz", s.readyz)
	api.POST("/pipeline", s.createPipeline)
	api.GET("/pipeline/:id", s.getPipeline)
	api.DELETE("/pipeline/:id", s.deletePipeline)
	api.GET("/pipelines", s.listPipelines)

	if s.cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	s.router = router
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           otelhttp.NewHandler(router, s.cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler returns the instrumented root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the port and serves in the background.
func (s *HTTPServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}

	go func() {
		logrus.Infof("HTTP server listening on port %d", s.cfg.Port)
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}

func (s *HTTPServer) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *HTTPServer) readyz(c *gin.Context) {
	if s.cfg.Readiness != nil {
		if err := s.cfg.Readiness.Check(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *HTTPServer) createPipeline(c *gin.Context) {
	start := time.Now()
	s.cfg.Creation.attempt()
	defer func() { s.cfg.Creation.observe(time.Since(start)) }()

	var req pipeline.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.cfg.Creation.failed()
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	p := req.ToPipeline(s.cfg.Now().UTC())

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ReplyTimeout)
	defer cancel()

	if err := s.client.Add(ctx, p); err != nil {
		s.cfg.Creation.failed()
		logrus.WithFields(logrus.Fields{"user_id": req.UserID, "pipeline_id": p.ID}).
			Warnf("pipeline creation failed: %v", err)
		if errors.Is(err, engine.ErrTimeout) {
			respondError(c, http.StatusGatewayTimeout, "Pipeline creation timed out")
			return
		}
		respondError(c, statusFor(err), fmt.Sprintf("Failed to create pipeline: %v", err))
		return
	}

	s.cfg.Creation.succeeded()
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Pipeline created successfully",
		"id":      p.ID,
	})
}

func (s *HTTPServer) getPipeline(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ReplyTimeout)
	defer cancel()

	p, err := s.client.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *HTTPServer) deletePipeline(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ReplyTimeout)
	defer cancel()

	id := c.Param("id")
	if err := s.client.Delete(ctx, id); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Pipeline deleted successfully",
		"id":      id,
	})
}

func (s *HTTPServer) listPipelines(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ReplyTimeout)
	defer cancel()

	pipelines, err := s.client.List(ctx, c.Query("user_id"))
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	if pipelines == nil {
		pipelines = []*pipeline.Pipeline{}
	}
	c.JSON(http.StatusOK, gin.H{"pipelines": pipelines, "count": len(pipelines)})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidGraph):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrEngineStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "message": message})
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Errorf("panic recovered: %v", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"message": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}
