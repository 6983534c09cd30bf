// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	routeDetails "tutorhub_backend/internals/route/details"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, deps routeDetails.PaymentsDeps, svcs *routeDetails.PaymentsServices) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, deps.DB)

	log.Println("[INFO] Mounting Payments routes...")
	api := app.Group("/api")
	routeDetails.PaymentsRoutes(api, deps, svcs)
}
