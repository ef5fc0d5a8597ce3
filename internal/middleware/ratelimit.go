package middleware

import (
    "math"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/auth-session-service/internal/apperr"
    "github.com/iliyamo/auth-session-service/internal/config"
    "github.com/iliyamo/auth-session-service/internal/ratelimit"
)

// RateLimit counts requests per client address within class's sliding
// window. Denied requests get 429 with the class message. Limiter failures
// are logged and the request is let through.
func RateLimit(cfg config.RateLimitConfig, class config.RateLimitClass, lim ratelimit.Limiter, log zerolog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || lim == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg.Prefix, class.Name, c)

            d, err := lim.Allow(c.Request().Context(), key, class.Max, class.Window)
            if err != nil {
                log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable; allowing request")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

            if !d.Allowed {
                secs := int(math.Ceil(d.RetryAfter.Seconds()))
                if secs < 1 { secs = 1 }
                h.Set("Retry-After", strconv.Itoa(secs))
                log.Info().Str("key", key).Int("retry_after", secs).Msg("rate limit exceeded")
                return apperr.New(apperr.KindRateLimit, class.Message)
            }
            return next(c)
        }
    }
}

func buildRateKey(prefix, class string, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    return strings.Join([]string{prefix, class, ip}, ":")
}
