package route

import (
	"github.com/gofiber/fiber/v2"

	ctrl "tutorhub_backend/internals/features/payments/reminders/controller"
)

// ReminderRoutes mounts the staff endpoints under /reminders.
func ReminderRoutes(r fiber.Router, h *ctrl.ReminderController) {
	g := r.Group("/reminders")
	g.Post("/", h.Send)
	g.Get("/sent", h.ListSent)
	g.Get("/scheduled", h.ListScheduled)
	g.Delete("/scheduled/:id", h.Cancel)
	g.Get("/:id/recipients", h.Recipients)
	g.Post("/:id/resend", h.Resend)
}

// ReminderTrackingRoutes mounts the public open/click trackers.
func ReminderTrackingRoutes(r fiber.Router, h *ctrl.ReminderController) {
	g := r.Group("/reminders/track")
	g.Get("/open/:id", h.TrackOpen)
	g.Get("/click/:id", h.TrackClick)
}
