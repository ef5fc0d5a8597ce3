package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-service/internal/auth"
    "github.com/iliyamo/auth-session-service/internal/middleware"
    "github.com/iliyamo/auth-session-service/internal/service"
)

// callerID returns the authenticated user's id. Routes using it sit behind
// JWTAuth, so a missing identity is an authentication failure.
func callerID(c echo.Context) (string, error) {
    cl := middleware.ClaimsFrom(c)
    if cl == nil {
        return "", auth.Unauthenticated.Err()
    }
    return cl.UserID, nil
}

// GetProfile returns the caller's own profile.
func (h *AuthHandler) GetProfile(c echo.Context) error {
    id, err := callerID(c)
    if err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Sessions.GetProfile(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u)
}

// UpdateProfile applies a partial update to the caller's own profile.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
    id, err := callerID(c)
    if err != nil {
        return err
    }
    var req service.ProfileUpdate
    if err := c.Bind(&req); err != nil {
        return errInvalidBody
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Sessions.UpdateProfile(ctx, id, req)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u)
}

// ListUsers returns every account; admin only.
func (h *AuthHandler) ListUsers(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    users, err := h.Sessions.ListUsers(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, users)
}

// DeactivateUser disables an account and revokes its sessions; admin only.
func (h *AuthHandler) DeactivateUser(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Sessions.DeactivateUser(ctx, c.Param("id")); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, messageResp{Message: "User deactivated"})
}
