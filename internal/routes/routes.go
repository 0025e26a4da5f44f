package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cryptoscore/cryptoscore/internal/auth"
	"github.com/cryptoscore/cryptoscore/internal/config"
	"github.com/cryptoscore/cryptoscore/internal/identity"
	"github.com/cryptoscore/cryptoscore/internal/metrics"
	"github.com/cryptoscore/cryptoscore/internal/middleware"
	"github.com/cryptoscore/cryptoscore/internal/notification"
)

const corsMaxAgeSeconds = 3600

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Users   identity.Repository
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	users := d.Users
	if users == nil {
		users = NewUserRepository(d.DB)
	}
	signer, err := auth.NewJWTSigner(d.Cfg.JWTSecret, d.Cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("jwt signer: %w", err)
	}
	identitySvc := identity.NewService(users, identity.NewBcryptHasher(d.Cfg.BcryptCost))
	issuer := auth.NewIssuer(signer, d.Cfg.JWTExpiration)
	notifier := notification.NewLoggerNotifier(d.Logger)
	authHandler := auth.NewHandler(identitySvc, issuer, notifier, d.Metrics, d.Logger)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
		MaxAge:       corsMaxAgeSeconds,
	}))
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Metrics(d.Metrics))

	RegisterHealthRoutes(app, d)
	RegisterDiagnosticRoutes(app)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	guards := AuthGuards{
		SigninLimit: middleware.RateLimit(d.Cache, "signin", d.Cfg.LoginAttemptsPerMinute, middleware.BodyField("email"), d.Logger),
		WalletLimit: middleware.RateLimit(d.Cache, "wallet", d.Cfg.LoginAttemptsPerMinute, middleware.BodyField("walletAddress"), d.Logger),
		RequireAuth: middleware.JWTAuth(signer),
		RequireUser: middleware.RequireRole(identity.RoleUser.String()),
	}
	if d.Cache != nil {
		guards.SignupIdempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterAuthRoutes(app, authHandler, guards)

	return nil
}

// NewUserRepository returns the Postgres user store, or an in-memory one when
// no database is configured.
func NewUserRepository(db *pgxpool.Pool) identity.Repository {
	if db == nil {
		return identity.NewMemoryRepository()
	}
	return identity.NewPostgresRepository(db)
}
