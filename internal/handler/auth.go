package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/wave-plaza-bot/internal/utils"
)

// AuthHandler issues admin access tokens.  There is a single admin
// account whose bcrypt password hash comes from the configuration.
type AuthHandler struct {
    PasswordHash string
    JWTSecret    string
    AccessTTL    time.Duration
}

func NewAuthHandler(passwordHash, jwtSecret string, accessTTL time.Duration) *AuthHandler {
    return &AuthHandler{PasswordHash: passwordHash, JWTSecret: jwtSecret, AccessTTL: accessTTL}
}

type loginReq struct {
    Password string `json:"password"`
}

// Login handles POST /v1/admin/login.  It returns 503 when no admin
// password is configured and 401 for a wrong password.
func (h *AuthHandler) Login(c echo.Context) error {
    if h.PasswordHash == "" {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "admin login disabled"})
    }
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if strings.TrimSpace(req.Password) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is required"})
    }
    if !utils.VerifyPassword(h.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    tok, err := utils.NewAccessToken(h.JWTSecret, "admin", utils.RoleAdmin, h.AccessTTL)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
    }
    return c.JSON(http.StatusOK, tok)
}
