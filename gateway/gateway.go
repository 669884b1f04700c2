// Package gateway serves the pipeline analyzer over HTTP.
//
// It owns transport concerns only: routing, CORS, request ids, payload
// shape validation and error bodies. Analysis itself is delegated to
// pipeline.Analyze.
package gateway

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/meikuraledutech/pipeline/gateway"

// Gateway holds the collaborators shared by the HTTP handlers.
type Gateway struct {
	cfg      config.Config
	logger   *log.Logger
	recorder pipeline.Recorder
	tracer   trace.Tracer
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for access and error logs.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithRecorder sets where completed analyses are logged.
func WithRecorder(r pipeline.Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// New builds the fiber app with all routes and middleware registered.
func New(cfg config.Config, opts ...Option) *fiber.App {
	g := &Gateway{
		cfg:      cfg,
		logger:   log.Default(),
		recorder: pipeline.Discard,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}

	app := fiber.New(fiber.Config{
		AppName:      "pipeline",
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
		ErrorHandler: g.handleError,
	})

	app.Use(recoverer.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(g.accessLog)
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodHead, fiber.MethodPut,
			fiber.MethodDelete, fiber.MethodPatch, fiber.MethodOptions,
			fiber.MethodConnect, fiber.MethodTrace,
		},
		// empty AllowHeaders reflects Access-Control-Request-Headers
		AllowCredentials: true,
	}))

	// ── Probes ────────────────────────────────────────────────────────
	app.Get("/", g.ping)
	app.Get("/healthz", g.health)

	// ── Analysis ──────────────────────────────────────────────────────
	app.Post("/pipelines/parse", g.parsePipeline)

	if cfg.Metrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	return app
}

func (g *Gateway) accessLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	g.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"latency", time.Since(start),
		"request_id", requestid.FromContext(c),
	)
	return err
}

func (g *Gateway) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		g.logger.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
