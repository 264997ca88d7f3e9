package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/txengine/internal/batch"
)

// RegisterBatchRoutes wires batch processing endpoints.
func RegisterBatchRoutes(r fiber.Router, h *batch.Handler) {
	r.Post("/batches", h.Create)
}
