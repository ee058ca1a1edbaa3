// Package server provides the HTTP API for candord.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/candorlabs/candor/internal/analyze"
	"github.com/candorlabs/candor/internal/capsule"
	"github.com/candorlabs/candor/internal/insight"
	"github.com/candorlabs/candor/internal/service"
)

// Server provides HTTP endpoints for the conversation pipeline.
type Server struct {
	echo    *echo.Echo
	service *service.Service
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// MaxConversationChars rejects oversized conversation bodies.
	MaxConversationChars int
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(svc *service.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8420}
	}
	if cfg.MaxConversationChars == 0 {
		cfg.MaxConversationChars = 1 << 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		service: svc,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/conversations/parse", s.handleParse)
	v1.POST("/conversations/analyze", s.handleAnalyze)
}

// ConversationRequest is the request body shared by the parse and
// analyze endpoints.
type ConversationRequest struct {
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"`
	Mode     string `json:"mode,omitempty"`
	OrgID    string `json:"org_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Industry string `json:"industry,omitempty"`

	// Dimensions restricts analysis to the named dimensions. Empty
	// means all of them.
	Dimensions []string `json:"dimensions,omitempty"`
}

// AnalyzeResponse is the response body for the analyze endpoint.
type AnalyzeResponse struct {
	Capsule *capsule.Capsule         `json:"capsule"`
	Insight *insight.StorableInsight `json:"insight"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleParse(c echo.Context) error {
	req, err := s.bindRequest(c)
	if err != nil {
		return err
	}

	parsed, err := s.service.Parse(c.Request().Context(), service.ParseRequest{
		Text:   req.Text,
		Source: capsule.SourceType(req.Source),
		Mode:   capsule.Mode(req.Mode),
	})
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, parsed)
}

func (s *Server) handleAnalyze(c echo.Context) error {
	req, err := s.bindRequest(c)
	if err != nil {
		return err
	}

	var opts *analyze.Options
	if len(req.Dimensions) > 0 {
		parsed, err := parseDimensions(req.Dimensions)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		opts = &parsed
	}

	res, err := s.service.Process(c.Request().Context(), service.ProcessRequest{
		Text:     req.Text,
		Source:   capsule.SourceType(req.Source),
		Mode:     capsule.Mode(req.Mode),
		OrgID:    req.OrgID,
		UserID:   req.UserID,
		Industry: req.Industry,
		Options:  opts,
	})
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, AnalyzeResponse{Capsule: res.Capsule, Insight: res.Insight})
}

func (s *Server) bindRequest(c echo.Context) (*ConversationRequest, error) {
	var req ConversationRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid conversation request", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}
	if len(req.Text) > s.config.MaxConversationChars {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("conversation exceeds %d characters", s.config.MaxConversationChars))
	}
	return &req, nil
}

// parseDimensions maps dimension names to analysis options.
func parseDimensions(names []string) (analyze.Options, error) {
	var opts analyze.Options
	for _, name := range names {
		switch name {
		case "unanswered_questions":
			opts.UnansweredQuestions = true
		case "tension_points":
			opts.TensionPoints = true
		case "misalignments":
			opts.Misalignments = true
		case "health":
			opts.Health = true
		case "decisions":
			opts.Decisions = true
		case "action_items":
			opts.ActionItems = true
		case "suggested_actions":
			opts.SuggestedActions = true
		default:
			return opts, fmt.Errorf("unknown dimension %q", name)
		}
	}
	return opts, nil
}

// mapError converts pipeline errors into HTTP responses. Validation
// failures are the caller's fault; everything else is a 500.
func (s *Server) mapError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrEmptyInput) || errors.Is(err, service.ErrInvalidMode) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.logger.Error("pipeline request failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
