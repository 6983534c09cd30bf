package route

import (
	"github.com/gofiber/fiber/v2"

	ctrl "tutorhub_backend/internals/features/payments/links/controller"
)

func PaymentLinkRoutes(r fiber.Router, h *ctrl.PaymentLinkController) {
	g := r.Group("/links")
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Patch("/:id", h.Update)
	g.Put("/:id", h.Update)
	g.Put("/:id/status", h.UpdateStatus)
	g.Delete("/:id", h.Delete)
}
