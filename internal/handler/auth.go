package handler

import (
    "context"  // provides context with cancellation for store calls
    "net/http" // HTTP status codes
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-service/internal/apperr"
    "github.com/iliyamo/auth-session-service/internal/service"
)

// requestTimeout bounds the store work behind one request.
const requestTimeout = 5 * time.Second

// AuthHandler exposes the session lifecycle endpoints.
type AuthHandler struct {
    Sessions *service.SessionService
}

func NewAuthHandler(s *service.SessionService) *AuthHandler {
    if s == nil {
        panic("nil session service passed to NewAuthHandler")
    }
    return &AuthHandler{Sessions: s}
}

type refreshReq struct {
    RefreshToken string `json:"refreshToken"`
}

type messageResp struct {
    Message string `json:"message"`
}

var errInvalidBody = apperr.New(apperr.KindValidation, "invalid request body")

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req service.RegisterRequest
    if err := c.Bind(&req); err != nil {
        return errInvalidBody
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Sessions.Register(ctx, req)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, res)
}

// Login: verify credentials and open a new session.
func (h *AuthHandler) Login(c echo.Context) error {
    var req service.LoginRequest
    if err := c.Bind(&req); err != nil {
        return errInvalidBody
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Sessions.Login(ctx, req)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, res)
}

// Refresh: rotate a refresh token into a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return errInvalidBody
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Sessions.Refresh(ctx, req.RefreshToken)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, res)
}

// Logout: revoke the presented refresh token. Always 200 for a well-formed
// request, whether or not the token existed.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return errInvalidBody
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Sessions.Logout(ctx, req.RefreshToken); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, messageResp{Message: "Logged out successfully"})
}
