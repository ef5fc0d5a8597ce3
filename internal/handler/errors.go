package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/auth-session-service/internal/apperr"
)

// statusByKind is the only place error kinds meet HTTP status codes.
var statusByKind = map[apperr.Kind]int{
    apperr.KindValidation:     http.StatusBadRequest,
    apperr.KindConflict:       http.StatusConflict,
    apperr.KindAuthentication: http.StatusUnauthorized,
    apperr.KindTokenExpired:   http.StatusUnauthorized,
    apperr.KindAuthorization:  http.StatusForbidden,
    apperr.KindNotFound:       http.StatusNotFound,
    apperr.KindRateLimit:      http.StatusTooManyRequests,
    apperr.KindInternal:       http.StatusInternalServerError,
    apperr.KindConfiguration:  http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperr.Kind) int {
    if s, ok := statusByKind[k]; ok {
        return s
    }
    return http.StatusInternalServerError
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
    Error   string            `json:"error"`
    Message string            `json:"message"`
    Fields  map[string]string `json:"fields,omitempty"`
}

// bodyFor renders err for a client. Internal and configuration errors never
// leak their message or cause.
func bodyFor(err error) (int, ErrorBody) {
    var ae *apperr.Error
    if !errors.As(err, &ae) {
        ae = apperr.Internal(err)
    }
    status := StatusFor(ae.Kind)
    body := ErrorBody{Error: ae.Kind.String(), Message: ae.Message, Fields: ae.Fields}
    if status >= http.StatusInternalServerError {
        body.Message = "internal server error"
    }
    return status, body
}

// ErrorHandler is installed as echo's HTTPErrorHandler. It renders typed
// errors through the status table, passes echo's own HTTP errors (404 route,
// 405, body too large) through with their code, and logs server faults.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }

        var status int
        var body ErrorBody
        var he *echo.HTTPError
        if errors.As(err, &he) {
            status = he.Code
            body = ErrorBody{Error: httpCode(status), Message: http.StatusText(status)}
            if msg, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
                body.Message = msg
            }
        } else {
            status, body = bodyFor(err)
        }

        if status >= http.StatusInternalServerError {
            log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
        }

        var werr error
        if c.Request().Method == http.MethodHead {
            werr = c.NoContent(status)
        } else {
            werr = c.JSON(status, body)
        }
        if werr != nil {
            log.Error().Err(werr).Msg("writing error response")
        }
    }
}

func httpCode(status int) string {
    switch status {
    case http.StatusBadRequest:
        return apperr.KindValidation.String()
    case http.StatusUnauthorized:
        return apperr.KindAuthentication.String()
    case http.StatusForbidden:
        return apperr.KindAuthorization.String()
    case http.StatusNotFound:
        return apperr.KindNotFound.String()
    case http.StatusTooManyRequests:
        return apperr.KindRateLimit.String()
    case http.StatusMethodNotAllowed:
        return "method_not_allowed"
    case http.StatusRequestEntityTooLarge:
        return "payload_too_large"
    }
    if status >= http.StatusInternalServerError {
        return apperr.KindInternal.String()
    }
    return "error"
}
