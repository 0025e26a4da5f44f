package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptoscore/cryptoscore/internal/auth"
)

// JWTAuth returns a middleware that verifies bearer tokens and hands the
// verified claims to downstream handlers via auth.WithPrincipal.
func JWTAuth(signer auth.Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "Error: missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := signer.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "Error: Unauthorized")
		}

		auth.WithPrincipal(c, claims)
		return c.Next()
	}
}

// RequireRole rejects principals that do not hold role. Must run after JWTAuth.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := auth.PrincipalFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "Error: Unauthorized")
		}
		if !claims.HasRole(role) {
			return fiber.NewError(http.StatusForbidden, "Error: Forbidden")
		}
		return c.Next()
	}
}
