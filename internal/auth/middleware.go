package auth

import (
	"strings"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const CtxPrincipalKey = "principal"

func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxPrincipalKey, access.Principal{AccountID: claims.AccountID, Role: claims.Role})
		return c.Next()
	}
}

// PrincipalFrom returns the caller set by JWTMiddleware.
func PrincipalFrom(c *fiber.Ctx) (access.Principal, error) {
	p, ok := c.Locals(CtxPrincipalKey).(access.Principal)
	if !ok || p.AccountID == 0 {
		return access.Principal{}, apperror.Unauthorized("not authenticated")
	}
	return p, nil
}

func RequireRole(allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := PrincipalFrom(c)
		if err != nil {
			return apperror.ToFiber(err)
		}

		for _, r := range allowed {
			if r == p.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to do this")
	}
}
