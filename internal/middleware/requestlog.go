package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// RequestLogger logs one line per request with method, route, status,
// latency, request id and caller.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err) // render now so the logged status is final
            }

            res := c.Response()
            ev := log.Info()
            switch {
            case res.Status >= 500:
                ev = log.Error().Err(err)
            case res.Status >= 400:
                ev = log.Warn()
            }
            ev.Str("method", c.Request().Method).
                Str("path", c.Path()).
                Int("status", res.Status).
                Dur("latency", time.Since(start)).
                Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
                Str("ip", c.RealIP()).
                Str("user_id", userID(c)).
                Msg("request")
            return nil
        }
    }
}
