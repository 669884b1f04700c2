package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/meikuraledutech/pipeline"
	"go.opentelemetry.io/otel/attribute"
)

func (g *Gateway) ping(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"Ping": "Pong"})
}

func (g *Gateway) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// parsePipeline validates the submitted graph and relays the analysis.
func (g *Gateway) parsePipeline(c fiber.Ctx) error {
	var req ParseRequest
	if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
		if fe, ok := typeErrorField(err); ok {
			rejectedTotal.WithLabelValues("invalid").Inc()
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   "invalid pipeline",
				"details": []FieldError{fe},
			})
		}
		rejectedTotal.WithLabelValues("malformed").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		rejectedTotal.WithLabelValues("invalid").Inc()
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   "invalid pipeline",
				"details": verr.Fields,
			})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid pipeline"})
	}

	ctx, span := g.tracer.Start(c.Context(), "pipeline.analyze")
	start := time.Now()
	res := req.Pipeline().Analyze()
	observeAnalysis(res, time.Since(start))
	span.SetAttributes(
		attribute.Int("pipeline.num_nodes", res.NumNodes),
		attribute.Int("pipeline.num_edges", res.NumEdges),
		attribute.Bool("pipeline.is_dag", res.IsDAG),
	)
	span.End()

	g.record(ctx, requestid.FromContext(c), res)
	return c.JSON(res)
}

// record logs the analysis; a failing recorder never affects the response.
func (g *Gateway) record(ctx context.Context, reqID string, res pipeline.Result) {
	a := &pipeline.Analysis{
		ID:        uuid.NewString(),
		RequestID: reqID,
		NumNodes:  res.NumNodes,
		NumEdges:  res.NumEdges,
		IsDAG:     res.IsDAG,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.recorder.Record(ctx, a); err != nil {
		g.logger.Warn("record analysis", "request_id", reqID, "err", err)
	}
}
