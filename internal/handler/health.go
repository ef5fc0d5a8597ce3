package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Health returns a health-check endpoint for load balancers. Each check
// (database ping, for instance) runs with a short timeout; any failure turns
// the answer into 503 "unavailable". With no checks it always answers "ok".
func Health(checks ...func(context.Context) error) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        for _, check := range checks {
            if err := check(ctx); err != nil {
                return c.String(http.StatusServiceUnavailable, "unavailable")
            }
        }
        return c.String(http.StatusOK, "ok")
    }
}
