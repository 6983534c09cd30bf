package route

import (
	"github.com/gofiber/fiber/v2"

	ctrl "tutorhub_backend/internals/features/payments/transactions/controller"
)

// TransactionRoutes mounts the staff ledger endpoints.
func TransactionRoutes(r fiber.Router, h *ctrl.TransactionController) {
	g := r.Group("/transactions")
	g.Get("/", h.List)
	g.Post("/", h.Record)
	g.Post("/send-receipt", h.SendReceipt)
	g.Post("/export", h.Export)
	g.Get("/:id/receipt", h.Receipt)

	r.Post("/links/:id/recount", h.Recount)
}

// CheckoutRoutes mounts the public pay-page and gateway endpoints.
func CheckoutRoutes(r fiber.Router, h *ctrl.CheckoutController, limiter fiber.Handler) {
	r.Get("/checkout/:slug", h.Show)
	r.Post("/checkout/:slug", limiter, h.Checkout)
	r.Post("/notifications/midtrans", h.MidtransWebhook)
}
