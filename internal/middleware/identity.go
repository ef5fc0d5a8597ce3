package middleware

// identity.go holds the context key shared by the auth middleware and the
// handlers that read the verified identity back out.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-service/internal/auth"
)

const claimsKey = "claims"

// ClaimsFrom returns the verified access-token claims stored by JWTAuth or
// OptionalAuth, or nil when the request is anonymous.
func ClaimsFrom(c echo.Context) *auth.Claims {
    if cl, ok := c.Get(claimsKey).(*auth.Claims); ok {
        return cl
    }
    return nil
}

// userID returns the caller's id for logging, "guest" when anonymous.
func userID(c echo.Context) string {
    if cl := ClaimsFrom(c); cl != nil {
        return cl.UserID
    }
    return "guest"
}
