package handler

import (
    "context"
    "crypto/subtle"
    "encoding/json"
    "log"
    "net/http"

    tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
    "github.com/labstack/echo/v4"
)

// SecretTokenHeader carries the secret_token registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateFunc processes one Telegram update.
type UpdateFunc func(ctx context.Context, u tgbotapi.Update) error

// TelegramWebhook receives updates pushed by Telegram in webhook mode.
type TelegramWebhook struct {
    Secret string
    Handle UpdateFunc
}

// Receive handles POST /telegram/webhook.  Telegram retries anything but
// 2xx, so only a full dispatcher queue yields an error status.
func (h *TelegramWebhook) Receive(c echo.Context) error {
    got := c.Request().Header.Get(SecretTokenHeader)
    if h.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid secret token"})
    }
    var u tgbotapi.Update
    if err := json.NewDecoder(c.Request().Body).Decode(&u); err != nil {
        // A malformed update will not improve on retry.
        log.Printf("webhook: undecodable update dropped: %v", err)
        return c.NoContent(http.StatusOK)
    }
    if err := h.Handle(c.Request().Context(), u); err != nil {
        log.Printf("webhook: update %d not accepted: %v", u.UpdateID, err)
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy"})
    }
    return c.NoContent(http.StatusOK)
}
