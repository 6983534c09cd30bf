// file: internals/helpers/json_response.go
package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

/* ===============================
   Envelope
=================================*/

// Envelope is the success body of every /api/payments response. The console
// client decodes the same shape.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Includes   any         `json:"includes,omitempty"`
}

// ErrorResponse is the failure body; Errors is keyed by json field path.
type ErrorResponse struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	ErrorCode string              `json:"error_code,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
}

/* ===============================
   Paging
=================================*/

type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

type Paging struct {
	Page    int
	PerPage int
	Offset  int
	Limit   int
}

// NewPaging clamps page to >= 1 and perPage to (0, max]; max 0 means no cap.
func NewPaging(page, perPage, defaultPerPage, maxPerPage int) Paging {
	page = max(page, 1)
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if maxPerPage > 0 {
		perPage = min(perPage, maxPerPage)
	}
	return Paging{Page: page, PerPage: perPage, Offset: (page - 1) * perPage, Limit: perPage}
}

func BuildPaginationFromPage(total int64, page, perPage int) Pagination {
	page, perPage = max(page, 1), max(perPage, 1)
	pages := max(int((total+int64(perPage)-1)/int64(perPage)), 1)
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

/* ===============================
   Writers
=================================*/

var errorCodes = map[int]string{
	fiber.StatusBadRequest:          "BAD_REQUEST",
	fiber.StatusUnauthorized:        "UNAUTHORIZED",
	fiber.StatusForbidden:           "FORBIDDEN",
	fiber.StatusNotFound:            "NOT_FOUND",
	fiber.StatusConflict:            "CONFLICT",
	fiber.StatusUnprocessableEntity: "VALIDATION_ERROR",
	fiber.StatusTooManyRequests:     "RATE_LIMITED",
	fiber.StatusBadGateway:          "UPSTREAM_ERROR",
	fiber.StatusServiceUnavailable:  "UNAVAILABLE",
}

func errorCode(status int) string {
	if code, ok := errorCodes[status]; ok {
		return code
	}
	if status >= 500 {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}

func JsonError(c *fiber.Ctx, status int, message string) error {
	if status == 0 {
		status = fiber.StatusInternalServerError
	}
	if strings.TrimSpace(message) == "" {
		message = defaultMessage(status)
	}
	return c.Status(status).JSON(ErrorResponse{Message: message, ErrorCode: errorCode(status)})
}

// JsonValidationError answers 422 with per-field messages.
func JsonValidationError(c *fiber.Ctx, fields map[string][]string) error {
	if fields == nil {
		fields = map[string][]string{}
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Message:   "validation failed",
		ErrorCode: errorCode(fiber.StatusUnprocessableEntity),
		Errors:    fields,
	})
}

func JsonList(c *fiber.Ctx, message string, data any, pagination *Pagination) error {
	return JsonListEx(c, message, data, pagination, nil)
}

// JsonListEx adds includes (counts and other list metadata) next to data.
func JsonListEx(c *fiber.Ctx, message string, data any, pagination *Pagination, includes any) error {
	return send(c, fiber.StatusOK, message, "ok", Envelope{Data: data, Pagination: pagination, Includes: includes})
}

func JsonOK(c *fiber.Ctx, message string, data any) error {
	return send(c, fiber.StatusOK, message, "ok", Envelope{Data: data})
}

func JsonCreated(c *fiber.Ctx, message string, data any) error {
	return send(c, fiber.StatusCreated, message, "created", Envelope{Data: data})
}

func JsonUpdated(c *fiber.Ctx, message string, data any) error {
	return send(c, fiber.StatusOK, message, "updated", Envelope{Data: data})
}

func JsonDeleted(c *fiber.Ctx, message string, data any) error {
	return send(c, fiber.StatusOK, message, "deleted", Envelope{Data: data})
}

func send(c *fiber.Ctx, status int, message, def string, env Envelope) error {
	env.Success = true
	env.Message = strings.TrimSpace(message)
	if env.Message == "" {
		env.Message = def
	}
	return c.Status(status).JSON(env)
}

func defaultMessage(status int) string {
	if status >= 500 {
		return fiber.ErrInternalServerError.Message
	}
	return errorCode(status)
}
