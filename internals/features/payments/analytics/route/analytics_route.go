package route

import (
	"github.com/gofiber/fiber/v2"

	ctrl "tutorhub_backend/internals/features/payments/analytics/controller"
)

func AnalyticsRoutes(r fiber.Router, h *ctrl.AnalyticsController) {
	r.Get("/analytics", h.Summary)
}
