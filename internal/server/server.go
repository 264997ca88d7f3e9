package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/txengine/internal/config"
	"github.com/congo-pay/txengine/internal/events"
	"github.com/congo-pay/txengine/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// cache may be nil, in which case idempotent replay is disabled.
func New(cfg config.Config, cache *redis.Client, sink events.Sink, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    cfg.MaxBatchBytes,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	routes.Setup(app, routes.Deps{Cfg: cfg, Cache: cache, Logger: logger, Sink: sink})

	return &Server{app: app, cfg: cfg}
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
