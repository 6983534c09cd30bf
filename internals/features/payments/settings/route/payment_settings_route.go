package route

import (
	"github.com/gofiber/fiber/v2"

	ctrl "tutorhub_backend/internals/features/payments/settings/controller"
)

// SettingsRoutes mounts under the authenticated /api/payments group.
func SettingsRoutes(r fiber.Router, h *ctrl.SettingsController) {
	g := r.Group("/settings")
	g.Get("/", h.Get)
	g.Put("/", h.Update)
	g.Post("/fee-preview", h.FeePreview)
}
