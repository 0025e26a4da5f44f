package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptoscore/cryptoscore/internal/auth"
)

// AuthGuards holds per-route middleware for the auth endpoints. Nil entries
// are skipped.
type AuthGuards struct {
	// SignupIdempotency replays repeated signups. It stays off the session
	// routes so a reused key never hands out another caller's token.
	SignupIdempotency fiber.Handler
	SigninLimit       fiber.Handler
	WalletLimit       fiber.Handler
	// RequireAuth verifies the bearer token; RequireUser checks its role.
	RequireAuth fiber.Handler
	RequireUser fiber.Handler
}

// RegisterAuthRoutes wires authentication endpoints under /auth.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, g AuthGuards) {
	group := r.Group("/auth")
	group.Post("/signup", chain(h.Signup, g.SignupIdempotency)...)
	group.Post("/signin", chain(h.Signin, g.SigninLimit)...)
	group.Post("/wallet-connect", chain(h.WalletConnect, g.WalletLimit)...)
	group.Get("/me", chain(h.Me, g.RequireAuth, g.RequireUser)...)
}

func chain(h fiber.Handler, guards ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	for _, g := range guards {
		if g != nil {
			out = append(out, g)
		}
	}
	return append(out, h)
}
