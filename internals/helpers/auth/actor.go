// file: internals/helpers/auth/actor.go
package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys filled by the JWT middleware.
const (
	LocUserID      = "user_id"
	LocUserName    = "user_name"
	LocRolesGlobal = "roles_global"
	LocJWTClaims   = "jwt_claims"
)

// GetUserIDFromToken returns the authenticated user id or a 401.
func GetUserIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	s, _ := c.Locals(LocUserID).(string)
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "user_id missing or invalid in token")
	}
	return id, nil
}

// ActorName is the display name recorded in createdBy/sentBy columns.
// Falls back to the user id, then "system".
func ActorName(c *fiber.Ctx) string {
	if n, _ := c.Locals(LocUserName).(string); strings.TrimSpace(n) != "" {
		return strings.TrimSpace(n)
	}
	if id, _ := c.Locals(LocUserID).(string); strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	return "system"
}

func GetRoles(c *fiber.Ctx) []string {
	switch v := c.Locals(LocRolesGlobal).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(v, ",")
	}
	return nil
}

func HasAnyRole(c *fiber.Ctx, roles ...string) bool {
	for _, have := range GetRoles(c) {
		have = strings.ToLower(strings.TrimSpace(have))
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
