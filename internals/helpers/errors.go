package helper

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"tutorhub_backend/internals/helpers/report"
)

// MapPGError maps constraint violations to an HTTP status.
// 23505 unique_violation, 23503 foreign_key_violation, 23514 check_violation.
func MapPGError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict, "duplicate data (unique violation)", true
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return http.StatusBadRequest, "referenced row not found (FK violation)", true
	}

	code := ""
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	default:
		return 0, "", false
	}
	switch code {
	case "23505":
		return http.StatusConflict, "duplicate data (unique violation)", true
	case "23503":
		return http.StatusBadRequest, "referenced row not found (FK violation)", true
	case "23514":
		return http.StatusBadRequest, "value rejected by check constraint", true
	}
	return 0, "", false
}

// FromError writes the standard error envelope for any error a controller gets back
// from a service. 5xx errors are reported.
func FromError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= 500 {
			report.Error("HTTP", err, map[string]interface{}{"path": c.Path()})
		}
		return JsonError(c, fe.Code, fe.Message)
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return JsonValidationError(c, TranslateValidation(ve))
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return JsonError(c, fiber.StatusNotFound, "record not found")
	}
	if status, msg, ok := MapPGError(err); ok {
		return JsonError(c, status, msg)
	}

	report.Error("HTTP", err, map[string]interface{}{"path": c.Path(), "method": c.Method()})
	return JsonError(c, fiber.StatusInternalServerError, "internal server error")
}

// FiberErrorHandler is installed as fiber.Config.ErrorHandler so middleware
// errors use the same envelope as controllers.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	return FromError(c, err)
}
