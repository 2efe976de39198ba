package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/plaza/internal/pkg/metrics"
)

const handlerTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/categories", timeout.NewWithContext(ListCategoriesHandler(deps), handlerTimeout))
	v1.Get("/products", timeout.NewWithContext(ListProductsHandler(deps), handlerTimeout))
	v1.Get("/products/search", timeout.NewWithContext(SearchProductsHandler(deps), handlerTimeout))
	v1.Get("/products/nearby", timeout.NewWithContext(NearbyProductsHandler(deps), handlerTimeout))
	v1.Get("/products/:id", timeout.NewWithContext(GetProductHandler(deps), handlerTimeout))

	// Authenticated
	me := v1.Group("/me", AuthMiddleware(deps))
	me.Get("/", MeHandler(deps))
	me.Get("/preferences", timeout.NewWithContext(ListPreferencesHandler(deps), handlerTimeout))
	me.Get("/preferences/:key", timeout.NewWithContext(GetPreferenceHandler(deps), handlerTimeout))
	me.Put("/preferences/:key", timeout.NewWithContext(PutPreferenceHandler(deps), handlerTimeout))
	me.Delete("/preferences/:key", timeout.NewWithContext(DeletePreferenceHandler(deps), handlerTimeout))

	v1.Get("/location/:source/last", AuthMiddleware(deps), timeout.NewWithContext(LastLocationHandler(deps), handlerTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.OpenAPIPath)

	// Live location relay
	app.Get("/ws/location",
		LocationUpgradeMiddleware(deps),
		AuthMiddleware(deps),
		websocket.New(LocationSocketHandler(deps)),
	)
}
