package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"tutorhub_backend/internals/constants"
	helperAuth "tutorhub_backend/internals/helpers/auth"
)

type AuthJWTOpts struct {
	Secret              string
	AllowCookieFallback bool // read the access_token cookie when there is no Bearer header
}

func AuthJWT(o AuthJWTOpts) fiber.Handler {
	secret := strings.TrimSpace(o.Secret)
	if secret == "" {
		panic("AuthJWT: Secret is required")
	}

	return func(c *fiber.Ctx) error {
		raw := ""
		if authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			raw = strings.TrimSpace(authz[7:])
		} else if o.AllowCookieFallback {
			raw = strings.TrimSpace(c.Cookies("access_token"))
		}
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}
		c.Locals(helperAuth.LocJWTClaims, claims)

		// user id: id, sub, user_id in that order
		for _, k := range []string{"id", "sub", "user_id"} {
			if v := strClaim(claims, k); v != "" {
				c.Locals(helperAuth.LocUserID, v)
				break
			}
		}
		if v := strClaim(claims, "name"); v != "" {
			c.Locals(helperAuth.LocUserName, v)
		}
		roles := readStringSlice(claims["roles_global"])
		if r := strClaim(claims, "role"); r != "" {
			roles = append(roles, strings.ToLower(r))
		}
		c.Locals(helperAuth.LocRolesGlobal, roles)
		return c.Next()
	}
}

// RequirePaymentStaff rejects callers without an admin, owner or finance role.
func RequirePaymentStaff(feature string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !helperAuth.HasAnyRole(c, constants.PaymentStaffRoles...) {
			return fiber.NewError(fiber.StatusForbidden, constants.RoleErrorPaymentStaff(feature))
		}
		return c.Next()
	}
}

func strClaim(m jwt.MapClaims, k string) string {
	if v, ok := m[k]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func readStringSlice(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		out := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.ToLower(strings.TrimSpace(s)))
			}
		}
		return out
	}
	return nil
}
