package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoscore/cryptoscore/internal/logging"
)

func signin(t *testing.T, app *fiber.App, email string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/auth/signin", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRateLimitPerBodyField(t *testing.T) {
	mr, cache := newMiniredis(t)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Post("/auth/signin", RateLimit(cache, "signin", 2, BodyField("email"), logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	assert.Equal(t, fiber.StatusOK, signin(t, app, "alice@example.com"))
	assert.Equal(t, fiber.StatusOK, signin(t, app, "Alice@Example.com"))
	assert.Equal(t, fiber.StatusTooManyRequests, signin(t, app, "alice@example.com"))

	// Other subjects have their own budget.
	assert.Equal(t, fiber.StatusOK, signin(t, app, "bob@example.com"))

	assert.True(t, mr.Exists("rl:signin:alice@example.com"))
	assert.Positive(t, mr.TTL("rl:signin:alice@example.com"))
}

func TestRateLimitWithoutRedisIsNoop(t *testing.T) {
	app := fiber.New()
	app.Post("/auth/signin", RateLimit(nil, "signin", 1, BodyField("email"), nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, fiber.StatusOK, signin(t, app, "alice@example.com"))
	}
}

func TestRateLimitFailsOpenOnRedisError(t *testing.T) {
	cache := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Post("/auth/signin", RateLimit(cache, "signin", 1, BodyField("email"), logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	assert.Equal(t, fiber.StatusOK, signin(t, app, "alice@example.com"))
	assert.Equal(t, fiber.StatusOK, signin(t, app, "alice@example.com"))
}

func TestRateLimitCounterAlwaysExpires(t *testing.T) {
	mr, cache := newMiniredis(t)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Post("/auth/signin", RateLimit(cache, "signin", 5, BodyField("email"), logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	assert.Equal(t, fiber.StatusOK, signin(t, app, "carol@example.com"))
	ttl := mr.TTL("rl:signin:carol@example.com")
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, time.Minute)

	// A counter that lost its TTL gets one back on the next hit.
	require.NoError(t, mr.Set("rl:signin:dave@example.com", "2"))
	assert.Zero(t, mr.TTL("rl:signin:dave@example.com"))
	assert.Equal(t, fiber.StatusOK, signin(t, app, "dave@example.com"))
	assert.Positive(t, mr.TTL("rl:signin:dave@example.com"))

	// A later hit does not extend the window.
	mr.FastForward(30 * time.Second)
	assert.Equal(t, fiber.StatusOK, signin(t, app, "carol@example.com"))
	assert.LessOrEqual(t, mr.TTL("rl:signin:carol@example.com"), 30*time.Second)

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("rl:signin:carol@example.com"))
}
