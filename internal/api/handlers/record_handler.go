package handlers

import (
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/queue"
	"github.com/maheshrc27/clipposter/internal/service"
	"github.com/maheshrc27/clipposter/internal/transfer"
)

type RecordHandler struct {
	s  service.RecordService
	sc service.SchedulerService
	d  queue.Dispatcher
}

func NewRecordHandler(s service.RecordService, sc service.SchedulerService, d queue.Dispatcher) *RecordHandler {
	return &RecordHandler{s: s, sc: sc, d: d}
}

func (h *RecordHandler) ListRecords(c *fiber.Ctx) error {
	status, ok := parseStatusFilter(c.Query("status"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown status filter",
		})
	}

	records, err := h.s.List(c.Context(), status)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(records)
}

// CreateRecord accepts either a JSON body or a multipart form with an
// optional "file" part.
func (h *RecordHandler) CreateRecord(c *fiber.Ctx) error {
	var rc transfer.RecordCreation
	var file *multipart.FileHeader

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		rc = transfer.RecordCreation{
			Caption:   c.FormValue("caption"),
			Niche:     c.FormValue("niche"),
			Account:   c.FormValue("account"),
			SourceURL: c.FormValue("source_url"),
		}
		if fh, err := c.FormFile("file"); err == nil {
			file = fh
		}
	} else if err := c.BodyParser(&rc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	rec, err := h.s.Create(c.Context(), &rc, file)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

func (h *RecordHandler) RefreshRecords(c *fiber.Ctx) error {
	if err := h.s.Refresh(c.Context()); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ScheduleRecord sets the record's time and asks the worker for a run at
// that moment, on top of the regular ticks.
func (h *RecordHandler) ScheduleRecord(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	at, err := service.ParseScheduleTime(req.ScheduledTime)
	if err != nil {
		return fail(c, err)
	}

	rec, err := h.s.Schedule(c.Context(), c.Params("id"), at)
	if err != nil {
		return fail(c, err)
	}

	if at.After(time.Now()) {
		if err := h.d.RunAt(at); err != nil {
			slog.Info(err.Error())
		}
	}
	return c.Status(fiber.StatusOK).JSON(rec)
}

func (h *RecordHandler) UpdateCaption(c *fiber.Ctx) error {
	var req transfer.CaptionRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	rec, err := h.s.UpdateCaption(c.Context(), c.Params("id"), req.Caption)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rec)
}

func (h *RecordHandler) Repost(c *fiber.Ctx) error {
	var req transfer.RepostRequest
	if err := c.BodyParser(&req); err != nil || req.Account == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account is required",
		})
	}

	outcome, err := h.sc.Repost(c.Context(), c.Params("id"), req.Account, time.Now().UTC())
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(outcome)
}

func (h *RecordHandler) RunSchedule(c *fiber.Ctx) error {
	if err := h.d.Run(queue.ScheduleRunPayload{Source: "api:" + GetOperator(c)}); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Error scheduling run",
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Run scheduled successfully",
	})
}

func (h *RecordHandler) RehostMedia(c *fiber.Ctx) error {
	if err := h.d.Rehost(queue.MediaRehostPayload{Source: "api:" + GetOperator(c)}); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Error scheduling rehost",
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Rehost scheduled successfully",
	})
}

func parseStatusFilter(raw string) (models.Status, bool) {
	status := models.Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case "", models.StatusUnscheduled, models.StatusScheduled, models.StatusPosted, models.StatusFailed:
		return status, true
	}
	return "", false
}
