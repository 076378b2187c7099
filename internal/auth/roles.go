package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/broadcast-ops/fault-tracker/internal/domain"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

// RequireRole allows requests whose principal carries one of the listed
// roles. Admins pass every check.
func RequireRole(roles ...domain.Role) fiber.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.User.Role == domain.RoleAdmin {
			return c.Next()
		}
		if _, ok := allowed[principal.User.Role]; !ok {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
