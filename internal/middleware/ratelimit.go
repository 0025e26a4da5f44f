package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPrefix = "rl:"
	rateLimitWindow = time.Minute
)

// KeyFunc extracts the rate limit subject from a request. An empty result
// falls back to the client IP.
type KeyFunc func(c *fiber.Ctx) string

// BodyField keys requests by a JSON body field, lower-cased and trimmed.
func BodyField(field string) KeyFunc {
	return func(c *fiber.Ctx) string {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil {
			return ""
		}
		v, _ := body[field].(string)
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// RateLimit allows maxPerMin requests per key per minute using a Redis counter.
// Without Redis, or on Redis errors, it fails open.
func RateLimit(cache *redis.Client, scope string, maxPerMin int, keyFn KeyFunc, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := ""
		if keyFn != nil {
			subject = keyFn(c)
		}
		if subject == "" {
			subject = c.IP()
		}
		key := rateLimitPrefix + scope + ":" + subject

		// EXPIRE NX runs on every hit so a counter left without a TTL
		// heals on the next request instead of locking the subject out.
		ctx := c.UserContext()
		var incr *redis.IntCmd
		_, err := cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, rateLimitWindow)
			return nil
		})
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit lookup failed", slog.String("scope", scope), slog.Any("error", err))
			}
			return c.Next()
		}
		if incr.Val() > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "Error: too many attempts, try again later")
		}
		return c.Next()
	}
}
