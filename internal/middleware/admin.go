package middleware

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/callvote/pkg/hash"
)

// AdminTokenHeader carries the admin token on admin routes.
const AdminTokenHeader = "X-Admin-Token"

// NewAdminAuth guards admin routes with a shared token. Only the token's
// digest is kept in memory. An empty token disables the admin API.
func NewAdminAuth(token string) fiber.Handler {
	if token == "" {
		return func(c fiber.Ctx) error {
			return ErrorResponse(c, fiber.StatusForbidden, "ADMIN_DISABLED", "Admin API is disabled")
		}
	}
	digest := hash.TokenDigest(token)

	return func(c fiber.Ctx) error {
		got := c.Get(AdminTokenHeader)
		if got == "" || !hash.Equal(hash.TokenDigest(got), digest) {
			Logger.Warn().Str("ip_hash", hashIPForLog(c.IP())).Str("path", sanitizePath(c.Path())).Msg("admin auth failed")
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid admin token")
		}
		return c.Next()
	}
}
