// middlewares/cors.go

package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"tutorhub_backend/internals/configs"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5500",
}

// CorsMiddleware allows the console origins; CORS_ORIGINS (comma separated) overrides the defaults.
func CorsMiddleware() fiber.Handler {
	origins := defaultOrigins
	if raw := strings.TrimSpace(configs.GetEnv("CORS_ORIGINS")); raw != "" {
		origins = strings.Split(raw, ",")
	}
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ", "),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: true,
	})
}
