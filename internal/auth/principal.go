package auth

import "github.com/gofiber/fiber/v2"

const principalKey = "auth.principal"

// WithPrincipal attaches verified claims to the request so handlers receive
// the caller explicitly instead of through ambient state.
func WithPrincipal(c *fiber.Ctx, claims Claims) {
	c.Locals(principalKey, claims)
}

// PrincipalFrom returns the verified claims attached by the JWT middleware.
func PrincipalFrom(c *fiber.Ctx) (Claims, bool) {
	claims, ok := c.Locals(principalKey).(Claims)
	return claims, ok
}
