package auth

import (
	"github.com/iliyamo/auth-session-service/internal/apperr"
	"github.com/iliyamo/auth-session-service/internal/model"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Err converts a deny decision into the matching typed error; Allow yields nil.
func (d Decision) Err() error {
	switch d {
	case Unauthenticated:
		return apperr.New(apperr.KindAuthentication, "authentication required")
	case Forbidden:
		return apperr.New(apperr.KindAuthorization, "insufficient permissions")
	}
	return nil
}

// Authorize decides whether verified claims may proceed. nil claims mean no
// valid token was presented. An empty allowed set admits any authenticated
// caller with a known role.
func Authorize(claims *Claims, allowed ...model.Role) Decision {
	if claims == nil || !claims.Role.Valid() {
		return Unauthenticated
	}
	if len(allowed) == 0 {
		return Allow
	}
	for _, r := range allowed {
		if r == claims.Role {
			return Allow
		}
	}
	return Forbidden
}
