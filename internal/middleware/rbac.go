package middleware

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/noah-isme/testseries-api/internal/utils"
)

// RequireRole admits callers whose token role is one of roles. It runs after JWTProtected,
// which has already lower-cased the role claim. Rejections name the roles the route
// accepts so clients can tell a wrong token from a wrong endpoint.
func RequireRole(roles ...string) fiber.Handler {
	accepted := lo.Uniq(lo.FilterMap(roles, func(role string, _ int) (string, bool) {
		role = strings.ToLower(strings.TrimSpace(role))
		return role, role != ""
	}))
	sort.Strings(accepted)
	details := fiber.Map{"allowed_roles": accepted}

	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(LocalUserID).(string); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		role, _ := c.Locals(LocalUserRole).(string)
		if !lo.Contains(accepted, role) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", details)
		}
		return c.Next()
	}
}
