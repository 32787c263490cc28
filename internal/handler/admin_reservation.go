package handler

// This file defines the admin endpoints for reviewing bot reservations.
// Approving or canceling a reservation is the external status change the
// bot relays back to the guest: the handler updates the row, then
// publishes the change to the status queue the bot consumes.

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/wave-plaza-bot/internal/model"
    "github.com/iliyamo/wave-plaza-bot/internal/queue"
    "github.com/iliyamo/wave-plaza-bot/internal/repository"
)

// ReservationStore is the part of the reservation repository the admin
// API uses.
type ReservationStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    List(ctx context.Context, status model.ReservationStatus, limit int) ([]model.Reservation, error)
    UpdateStatus(ctx context.Context, id uint64, to model.ReservationStatus) (*model.Reservation, error)
}

// StatusPublisher sends status changes to the bot.
type StatusPublisher interface {
    PublishStatusChanged(ctx context.Context, ev queue.ReservationStatusChangedEvent) error
}

// AdminReservationHandler serves /v1/admin/reservations.
type AdminReservationHandler struct {
    Reservations ReservationStore
    Publisher    StatusPublisher
    Timeout      time.Duration
}

// NewAdminReservationHandler constructs the handler.  Both dependencies
// must be non-nil.
func NewAdminReservationHandler(store ReservationStore, pub StatusPublisher) *AdminReservationHandler {
    if store == nil || pub == nil {
        panic("nil dependency passed to NewAdminReservationHandler")
    }
    return &AdminReservationHandler{Reservations: store, Publisher: pub, Timeout: 5 * time.Second}
}

// List handles GET /v1/admin/reservations?status=&limit=.  Results are
// newest first.
func (h *AdminReservationHandler) List(c echo.Context) error {
    var status model.ReservationStatus
    if raw := c.QueryParam("status"); raw != "" {
        s, ok := model.ParseStatus(raw)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
        }
        status = s
    }
    limit := 0
    if raw := c.QueryParam("limit"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        limit = n
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
    defer cancel()
    items, err := h.Reservations.List(ctx, status, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /v1/admin/reservations/:id.
func (h *AdminReservationHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
    defer cancel()
    res, err := h.Reservations.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, res)
}

type statusReq struct {
    Status string `json:"status"`
}

// UpdateStatus handles PATCH /v1/admin/reservations/:id/status with body
// {"status": "approved"|"canceled"}.  Only pending reservations can be
// decided; anything else is 409.  A publish failure does not undo the
// update; the response reports it in "published".
func (h *AdminReservationHandler) UpdateStatus(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req statusReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    to, ok := model.ParseStatus(req.Status)
    if !ok || to == model.StatusPending {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be approved or canceled"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
    defer cancel()
    res, err := h.Reservations.UpdateStatus(ctx, id, to)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is no longer pending"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    published := true
    if err := h.Publisher.PublishStatusChanged(ctx, queue.NewStatusChangedEvent(*res, time.Now())); err != nil {
        log.Printf("admin: reservation %d is %s but the change was not published: %v", res.ID, res.Status, err)
        published = false
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": res, "published": published})
}
