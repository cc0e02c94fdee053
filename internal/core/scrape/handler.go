package scrape

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"trackerscraper/internal/core/job"
)

const (
	msgAccepted        = "Scrape job accepted and started."
	msgBusy            = "Scraper is currently busy. Please try again later."
	msgMissingFields   = "Both 'playerId' and 'callbackUrl' are required in the request body."
	msgInvalidCallback = "'callbackUrl' must be a valid http(s) URL."
)

type Handler struct {
	scheduler *job.Scheduler
}

func NewHandler(scheduler *job.Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

// HandleSubmit accepts {playerId, callbackUrl}: 202 when the worker takes the job,
// 429 while another job runs, 400 on a bad body.
func (h *Handler) HandleSubmit(c *fiber.Ctx) error {
	if h.scheduler.State().Busy {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": msgBusy})
	}

	var req job.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgMissingFields})
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		msg := msgMissingFields
		if errors.Is(err, job.ErrInvalidCallback) {
			msg = msgInvalidCallback
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	t, err := h.scheduler.Submit(c.Context(), req)
	if errors.Is(err, job.ErrBusy) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": msgBusy})
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": msgAccepted, "job_id": t.ID})
}

func (h *Handler) HandleGetJob(c *fiber.Ctx) error {
	id := c.Params("jobId")
	j, err := h.scheduler.Job(c.Context(), id)
	if errors.Is(err, job.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(j)
}
