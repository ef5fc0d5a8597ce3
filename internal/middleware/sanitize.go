package middleware

import (
    "bytes"
    "encoding/json"
    "io"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/auth-session-service/internal/sanitize"
)

// Sanitize rewrites the JSON body, query string and path parameters of every
// request through sanitize.Value before handlers bind them. Bodies that are
// not JSON, or JSON that does not parse, pass through untouched; binding
// reports the latter.
func Sanitize() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()

            if req.Body != nil && strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
                raw, err := io.ReadAll(req.Body)
                _ = req.Body.Close()
                if err != nil {
                    return err
                }
                req.Body = io.NopCloser(bytes.NewReader(cleanJSON(raw)))
            }

            if req.URL.RawQuery != "" {
                q := req.URL.Query()
                for k, vals := range q {
                    if !sanitize.KeyAllowed(k) {
                        q.Del(k)
                        continue
                    }
                    for i, v := range vals {
                        vals[i] = sanitize.String(v)
                    }
                }
                req.URL.RawQuery = q.Encode()
            }

            if vals := c.ParamValues(); len(vals) > 0 {
                cleaned := make([]string, len(vals))
                for i, v := range vals {
                    cleaned[i] = sanitize.String(v)
                }
                c.SetParamValues(cleaned...)
            }
            return next(c)
        }
    }
}

func cleanJSON(raw []byte) []byte {
    if len(bytes.TrimSpace(raw)) == 0 {
        return raw
    }
    dec := json.NewDecoder(bytes.NewReader(raw))
    dec.UseNumber()
    var v any
    if err := dec.Decode(&v); err != nil {
        return raw
    }
    out, err := json.Marshal(sanitize.Value(v))
    if err != nil {
        return raw
    }
    return out
}
