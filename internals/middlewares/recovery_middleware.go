package middlewares

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"tutorhub_backend/internals/helpers/report"
)

// RecoveryMiddleware turns panics into a 500 and reports them.
func RecoveryMiddleware() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			report.Error("PANIC", fmt.Errorf("%v", e), map[string]interface{}{
				"path":   c.Path(),
				"method": c.Method(),
			})
		},
	})
}
