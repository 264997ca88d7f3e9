package batch

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/txengine/internal/middleware"
	"github.com/congo-pay/txengine/internal/report"
)

// Handler exposes batch HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a batch HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type batchResponse struct {
	RunID    string        `json:"run_id"`
	Accounts []report.Line `json:"accounts"`
	Rows     int           `json:"rows"`
	Accepted int           `json:"accepted"`
	Rejected int           `json:"rejected"`
	Skipped  int           `json:"skipped"`
}

// Create runs the CSV request body as one pass and returns the account
// report.
func (h *Handler) Create(c *fiber.Ctx) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return fiber.NewError(http.StatusBadRequest, "request body must be a transactions CSV")
	}

	name := "http:" + middleware.RequestIDFrom(c)
	res, err := h.service.Run(c.UserContext(), name, bytes.NewReader(body))
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	c.Locals(middleware.RunIDLocal, res.RunID)
	c.Set("X-Run-ID", res.RunID)

	if strings.Contains(c.Get(fiber.HeaderAccept), "text/csv") {
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, res.Accounts); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Status(http.StatusOK).Send(buf.Bytes())
	}

	return c.Status(http.StatusOK).JSON(batchResponse{
		RunID:    res.RunID,
		Accounts: report.Rows(res.Accounts),
		Rows:     res.Stats.Rows,
		Accepted: res.Stats.Accepted,
		Rejected: res.Stats.Rejected,
		Skipped:  res.Stats.Skipped,
	})
}
