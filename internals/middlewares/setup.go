package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"tutorhub_backend/internals/middlewares/logger"
)

func SetupMiddlewares(app *fiber.App) {
	app.Use(RecoveryMiddleware())
	app.Use(logger.LoggerMiddleware())
	app.Use(CorsMiddleware())
	app.Use(GlobalRateLimiter())
}
