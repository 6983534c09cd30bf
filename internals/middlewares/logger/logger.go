package logger

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"tutorhub_backend/internals/configs"
)

// LoggerMiddleware writes one access line per request, tagged with the request id.
// Tracking pixels and health probes are skipped.
func LoggerMiddleware() fiber.Handler {
	return logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/health" || strings.HasPrefix(p, "/api/payments/reminders/track/")
		},
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   configs.GetEnv("TZ", "Asia/Jakarta"),
		Format:     "[${time}] ${locals:reqid} ${ip} ${method} ${path} ${status} ${latency} ${bytesSent}B\n",
	})
}
