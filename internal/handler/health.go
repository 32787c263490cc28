package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the service and its backing stores are up.
// A nil Redis client is reported as disabled, not as a failure.
type HealthHandler struct {
    DB    *sql.DB
    Redis *redis.Client
}

// Health is used by load balancers and monitoring systems.  It returns 200
// when MySQL answers a ping, 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    status := http.StatusOK
    body := echo.Map{"status": "ok", "db": "ok", "redis": "disabled"}
    if h.DB == nil {
        body["db"] = "disabled"
    } else if err := h.DB.PingContext(ctx); err != nil {
        status = http.StatusServiceUnavailable
        body["status"] = "degraded"
        body["db"] = err.Error()
    }
    if h.Redis != nil {
        if err := h.Redis.Ping(ctx).Err(); err != nil {
            body["redis"] = err.Error()
        } else {
            body["redis"] = "ok"
        }
    }
    return c.JSON(status, body)
}
