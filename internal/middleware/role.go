package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/auth-session-service/internal/auth"
    "github.com/iliyamo/auth-session-service/internal/model"
)

// RequireRole enforces that the authenticated caller holds one of roles. It
// must run after JWTAuth. An anonymous request yields 401 and a known caller
// outside the allowed set yields 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := auth.Authorize(ClaimsFrom(c), roles...).Err(); err != nil {
                return err
            }
            return next(c)
        }
    }
}
