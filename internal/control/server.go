// Package control exposes the local HTTP surface that starts, stops and
// observes the pipelines.
package control

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/pipeline"
)

// Collector is the collection pipeline surface the server drives.
type Collector interface {
	Run(ctx context.Context, userID string) error
	Stop()
	Running() bool
	Progress() *pipeline.Progress
}

// Sourcer is the sourcing pipeline surface the server drives.
type Sourcer interface {
	Run(ctx context.Context, userID, keywords string) error
	Stop()
	Running() bool
	Progress() *pipeline.Progress
}

type Server struct {
	app       *fiber.App
	collector Collector
	sourcer   Sourcer
	logger    *zap.Logger

	// runCtx scopes background pipeline runs so Shutdown can cancel
	// them.
	runCtx    context.Context
	runCancel context.CancelFunc
}

type startRequest struct {
	UserID   string `json:"userId"`
	Keywords string `json:"keywords"`
}

type apiResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

func NewServer(collector Collector, sourcer Sourcer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	runCtx, runCancel := context.WithCancel(context.Background())
	s := &Server{
		app:       fiber.New(fiber.Config{DisableStartupMessage: true}),
		collector: collector,
		sourcer:   sourcer,
		logger:    logger.Named("control"),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")
	api.Post("/collect/start", s.handleCollectStart)
	api.Post("/collect/stop", s.handleCollectStop)
	api.Post("/source/start", s.handleSourceStart)
	api.Post("/source/stop", s.handleSourceStop)
	api.Get("/progress/:pipeline", s.handleProgress)
}

func (s *Server) handleCollectStart(c *fiber.Ctx) error {
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return reject(c, fiber.StatusBadRequest, "invalid configuration")
	}
	if req.UserID == "" {
		return reject(c, fiber.StatusBadRequest, "invalid configuration")
	}
	if s.collector.Running() {
		return reject(c, fiber.StatusConflict, "already running")
	}
	// A run that just bounced off an anonymous session will bounce
	// again until someone signs in. Surface that once, then clear the
	// state so a retry after signing in goes through.
	if s.collector.Progress().Snapshot().Status == "authentication required" {
		s.collector.Progress().Reset()
		return reject(c, fiber.StatusPreconditionFailed, "authentication required")
	}

	go func() {
		if err := s.collector.Run(s.runCtx, req.UserID); err != nil {
			s.logger.Error("Collection run ended with error", zap.Error(err))
		}
	}()
	return c.JSON(apiResponse{Accepted: true})
}

func (s *Server) handleCollectStop(c *fiber.Ctx) error {
	s.collector.Stop()
	return c.JSON(apiResponse{Accepted: true, Message: "stop requested"})
}

func (s *Server) handleSourceStart(c *fiber.Ctx) error {
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return reject(c, fiber.StatusBadRequest, "invalid configuration")
	}
	if req.UserID == "" || len(pipeline.ParseKeywords(req.Keywords)) == 0 {
		return reject(c, fiber.StatusBadRequest, "invalid configuration")
	}
	if s.sourcer.Running() {
		return reject(c, fiber.StatusConflict, "already running")
	}

	go func() {
		if err := s.sourcer.Run(s.runCtx, req.UserID, req.Keywords); err != nil {
			s.logger.Error("Sourcing run ended with error", zap.Error(err))
		}
	}()
	return c.JSON(apiResponse{Accepted: true})
}

func (s *Server) handleSourceStop(c *fiber.Ctx) error {
	s.sourcer.Stop()
	return c.JSON(apiResponse{Accepted: true, Message: "stop requested"})
}

func (s *Server) handleProgress(c *fiber.Ctx) error {
	switch c.Params("pipeline") {
	case "collect":
		return c.JSON(s.collector.Progress().Snapshot())
	case "source":
		return c.JSON(s.sourcer.Progress().Snapshot())
	default:
		return reject(c, fiber.StatusNotFound, "unknown pipeline")
	}
}

// Listen blocks serving the control API on addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Control surface listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the HTTP listener and cancels any background runs.
func (s *Server) Shutdown() error {
	s.runCancel()
	s.collector.Stop()
	s.sourcer.Stop()
	err := s.app.Shutdown()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Test hook: fiber's in-process request dispatcher.
func (s *Server) test() *fiber.App { return s.app }

func reject(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(apiResponse{Accepted: false, Message: message})
}
