package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/wave-plaza-bot/internal/config"
	"github.com/iliyamo/wave-plaza-bot/internal/handler"    // handlers for health, webhook and admin endpoints
	"github.com/iliyamo/wave-plaza-bot/internal/middleware" // JWT authentication, role enforcement and rate limiting
	"github.com/iliyamo/wave-plaza-bot/internal/utils"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	// Load balancers and monitoring systems poll this endpoint to verify
	// that the service and its database are reachable.
	e.GET("/healthz", h.Health)
}

// RegisterWebhook exposes the Telegram webhook.  It is only registered when
// the bot runs in webhook mode; in polling mode updates never arrive over
// HTTP.
func RegisterWebhook(e *echo.Echo, w *handler.TelegramWebhook) {
	// Telegram authenticates itself with the secret token header, so no JWT
	// middleware applies here.
	e.POST("/telegram/webhook", w.Receive)
}

// RegisterAdmin registers the admin API under /v1/admin.  Login is open but
// rate limited; everything else requires an ADMIN access token.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, r *handler.AdminReservationHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	// One bucket per client for the whole admin surface.  With a nil Redis
	// client the limiter lets every request through.
	limit := middleware.NewTokenBucket(rl, rdb)

	g := e.Group("/v1/admin", limit)
	// Exchange the admin password for an access token.
	g.POST("/login", a.Login)

	// Protected group: JWTAuth stores the subject and role on the context,
	// RequireRole then rejects anything that is not an administrator.
	auth := g.Group("/reservations", middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleAdmin))
	auth.GET("", r.List)
	auth.GET("/:id", r.Get)
	// Approve or cancel a pending reservation; the guest is notified
	// through the status queue.
	auth.PATCH("/:id/status", r.UpdateStatus)
}
