package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/classtrack/portal-api/internal/utils"
)

const bearerTokenLocal = "bearer_token"

// RequireBearer extracts the bearer token and binds it to the request for
// handlers to forward upstream. The portal never verifies tokens itself:
// the upstream API owns authentication, and a stale or forged token surfaces
// as a 401 on the first proxied call.
func RequireBearer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		token := strings.TrimSpace(authorization[len(bearer):])
		if token == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(bearerTokenLocal, token)

		return c.Next()
	}
}

// BearerToken returns the token bound by RequireBearer, or an empty string
// when the route was not guarded.
func BearerToken(c *fiber.Ctx) string {
	if v := c.Locals(bearerTokenLocal); v != nil {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}
