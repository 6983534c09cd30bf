// file: internals/features/payments/reminders/controller/reminder_controller.go
package controller

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorhub_backend/internals/constants"
	dto "tutorhub_backend/internals/features/payments/reminders/dto"
	svc "tutorhub_backend/internals/features/payments/reminders/service"
	helper "tutorhub_backend/internals/helpers"
	helperAuth "tutorhub_backend/internals/helpers/auth"
	"tutorhub_backend/internals/helpers/cache"
	"tutorhub_backend/internals/helpers/report"
)

// 1×1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type ReminderController struct {
	Svc      *svc.Service
	Cache    cache.Store
	CacheTTL time.Duration
}

func NewReminderController(s *svc.Service, store cache.Store, ttl time.Duration) *ReminderController {
	return &ReminderController{Svc: s, Cache: store, CacheTTL: ttl}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (ctl *ReminderController) invalidate(c *fiber.Ctx) {
	tags := append([]string{constants.TagAnalytics}, constants.ReminderTags...)
	cache.Invalidate(c.UserContext(), ctl.Cache, tags...)
}

// POST /api/payments/reminders
func (ctl *ReminderController) Send(c *fiber.Ctx) error {
	var req dto.SendRemindersRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	out, err := ctl.Svc.Send(c.UserContext(), &req, helperAuth.ActorName(c))
	if err != nil {
		return helper.FromError(c, err)
	}
	ctl.invalidate(c)
	if out.Scheduled != nil {
		return helper.JsonCreated(c, "reminder scheduled", out)
	}
	return helper.JsonCreated(c, "reminders sent", out)
}

// GET /api/payments/reminders/sent
func (ctl *ReminderController) ListSent(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rows, err := cache.Remember(ctx, ctl.Cache, "reminders:sent:list", ctl.CacheTTL,
		[]string{constants.TagRemindersSent},
		func() ([]dto.SentReminder, error) {
			rows, err := ctl.Svc.ListSent(ctx)
			if err != nil {
				return nil, err
			}
			return dto.FromSentList(rows), nil
		})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonList(c, "ok", rows, nil)
}

// GET /api/payments/reminders/scheduled
func (ctl *ReminderController) ListScheduled(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rows, err := cache.Remember(ctx, ctl.Cache, "reminders:scheduled:list", ctl.CacheTTL,
		[]string{constants.TagRemindersScheduled},
		func() ([]dto.ScheduledReminder, error) {
			rows, err := ctl.Svc.ListScheduled(ctx)
			if err != nil {
				return nil, err
			}
			return dto.FromScheduledList(rows), nil
		})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonList(c, "ok", rows, nil)
}

// GET /api/payments/reminders/:id/recipients
func (ctl *ReminderController) Recipients(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	rows, err := ctl.Svc.Recipients(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonList(c, "ok", dto.FromRecipients(rows), nil)
}

// POST /api/payments/reminders/:id/resend
func (ctl *ReminderController) Resend(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	m, err := ctl.Svc.Resend(c.UserContext(), id, helperAuth.ActorName(c))
	if err != nil {
		return helper.FromError(c, err)
	}
	ctl.invalidate(c)
	return helper.JsonCreated(c, "reminder resent", dto.FromSent(m))
}

// DELETE /api/payments/reminders/scheduled/:id
func (ctl *ReminderController) Cancel(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	if err := ctl.Svc.Cancel(c.UserContext(), id); err != nil {
		return helper.FromError(c, err)
	}
	cache.Invalidate(c.UserContext(), ctl.Cache, constants.TagRemindersScheduled)
	return helper.JsonDeleted(c, "scheduled reminder cancelled", fiber.Map{"id": id})
}

/* ===============================
   Public tracking
=================================*/

// GET /api/payments/reminders/track/open/:id
// Always answers with the pixel so mail clients never show a broken image.
func (ctl *ReminderController) TrackOpen(c *fiber.Ctx) error {
	if id, err := parseID(c); err == nil {
		if err := ctl.Svc.TrackOpen(c.UserContext(), id); err != nil {
			report.Warn("REMINDER-TRACK", "open: "+err.Error(), nil)
		} else {
			cache.Invalidate(c.UserContext(), ctl.Cache, constants.TagRemindersSent, constants.TagAnalytics)
		}
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, "image/gif")
	return c.Send(pixelGIF)
}

// GET /api/payments/reminders/track/click/:id
func (ctl *ReminderController) TrackClick(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	url, err := ctl.Svc.TrackClick(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	cache.Invalidate(c.UserContext(), ctl.Cache, constants.TagRemindersSent, constants.TagAnalytics)
	if url == "" {
		return helper.JsonError(c, fiber.StatusNotFound, "payment link not found")
	}
	return c.Redirect(url, fiber.StatusFound)
}
