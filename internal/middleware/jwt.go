package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/auth-session-service/internal/auth"
)

// JWTAuth returns an Echo middleware that requires a valid Bearer access
// token. The verified claims are stored in the context for ClaimsFrom. A
// missing or invalid token aborts with an authentication error that the
// HTTP error handler renders as 401.
func JWTAuth(tokens *auth.TokenService) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := auth.ExtractBearer(c.Request().Header.Get(echo.HeaderAuthorization))
            if !ok {
                return auth.Unauthenticated.Err()
            }
            claims, err := tokens.VerifyAccessToken(raw)
            if err != nil {
                return err
            }
            c.Set(claimsKey, claims)
            return next(c)
        }
    }
}

// OptionalAuth attaches claims when a valid Bearer token is present and
// otherwise lets the request through anonymously. It never denies.
func OptionalAuth(tokens *auth.TokenService) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw, ok := auth.ExtractBearer(c.Request().Header.Get(echo.HeaderAuthorization)); ok {
                if claims, err := tokens.VerifyAccessToken(raw); err == nil {
                    c.Set(claimsKey, claims)
                }
            }
            return next(c)
        }
    }
}
