package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error is internal", cause, KindInternal},
		{"typed error", New(KindConflict, "email already in use"), KindConflict},
		{"wrapped typed error", fmt.Errorf("ctx: %w", New(KindNotFound, "user not found")), KindNotFound},
		{"validation", Validation(map[string]string{"email": "invalid"}), KindValidation},
		{"internal helper", Internal(cause), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindInternal, "internal server error", cause)
	if !errors.Is(err, cause) {
		t.Error("Wrap() should keep the cause reachable through errors.Is")
	}
	if Internal(cause).Message != "internal server error" {
		t.Error("Internal() must not leak the cause into the message")
	}
}

func TestIs(t *testing.T) {
	if Is(nil, KindInternal) {
		t.Error("Is(nil) should be false")
	}
	if !Is(New(KindTokenExpired, "refresh token expired"), KindTokenExpired) {
		t.Error("Is() should match the error kind")
	}
}

func TestKindString(t *testing.T) {
	if KindRateLimit.String() != "too_many_requests" {
		t.Errorf("KindRateLimit.String() = %q", KindRateLimit.String())
	}
	if Kind(99).String() != "internal_error" {
		t.Errorf("unknown kind should render as internal_error, got %q", Kind(99).String())
	}
}
