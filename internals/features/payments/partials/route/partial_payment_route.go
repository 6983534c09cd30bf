package route

import (
	"github.com/gofiber/fiber/v2"

	ctrl "tutorhub_backend/internals/features/payments/partials/controller"
)

func PartialPaymentRoutes(r fiber.Router, h *ctrl.PartialPaymentController) {
	r.Get("/partial", h.List)
}
