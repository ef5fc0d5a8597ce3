package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/auth-session-service/internal/apperr"
	"github.com/iliyamo/auth-session-service/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTestService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		Now:           clock.Now,
	})
	return svc, clock
}

func testUser() model.User {
	return model.User{ID: "user-123", Email: "a@x.com", Role: model.RoleTechnician}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, clock := setupTestService(t)

	tok, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	clock.Advance(14 * time.Minute)
	claims, err := svc.VerifyAccessToken(tok)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if claims.UserID != "user-123" || claims.Email != "a@x.com" || claims.Role != model.RoleTechnician {
		t.Errorf("claims = %+v, want original identity", claims)
	}

	clock.Advance(2 * time.Minute)
	if _, err := svc.VerifyAccessToken(tok); !apperr.Is(err, apperr.KindAuthentication) {
		t.Errorf("VerifyAccessToken() after expiry error = %v, want authentication error", err)
	}
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	svc, _ := setupTestService(t)
	other := NewTokenService(TokenConfig{AccessSecret: "other", RefreshSecret: "other"})

	foreign, _ := other.IssueAccessToken(testUser())
	refresh, _, _ := svc.IssueRefreshToken("user-123")
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "x", "role": "ADMIN"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name string
		tok  string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong key", foreign},
		{"refresh token", refresh},
		{"alg none", unsigned},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.VerifyAccessToken(tt.tok); !apperr.Is(err, apperr.KindAuthentication) {
				t.Errorf("VerifyAccessToken() error = %v, want authentication error", err)
			}
		})
	}
}

func TestRefreshTokenSignature(t *testing.T) {
	svc, clock := setupTestService(t)

	tok, exp, err := svc.IssueRefreshToken("user-123")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}
	if want := clock.Now().Add(RefreshTokenTTL); !exp.Equal(want) {
		t.Errorf("expiry = %v, want %v", exp, want)
	}

	claims, err := svc.VerifyRefreshTokenSignature(tok)
	if err != nil {
		t.Fatalf("VerifyRefreshTokenSignature() error = %v", err)
	}
	if claims.UserID != "user-123" || claims.TokenID == "" {
		t.Errorf("claims = %+v", claims)
	}

	// Signature-only: expiry is the store's concern.
	clock.Advance(RefreshTokenTTL + time.Hour)
	if _, err := svc.VerifyRefreshTokenSignature(tok); err != nil {
		t.Errorf("VerifyRefreshTokenSignature() on expired token error = %v", err)
	}

	access, _ := svc.IssueAccessToken(testUser())
	if _, err := svc.VerifyRefreshTokenSignature(access); err == nil {
		t.Error("an access token must not verify as a refresh token")
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc, _ := setupTestService(t)
	a, _, _ := svc.IssueRefreshToken("user-123")
	b, _, _ := svc.IssueRefreshToken("user-123")
	if a == b {
		t.Error("two refresh tokens issued in the same instant should differ")
	}
}

func TestMissingKeys(t *testing.T) {
	svc := NewTokenService(TokenConfig{})
	if _, err := svc.IssueAccessToken(testUser()); !apperr.Is(err, apperr.KindConfiguration) {
		t.Errorf("IssueAccessToken() error = %v, want configuration error", err)
	}
	if _, _, err := svc.IssueRefreshToken("u"); !apperr.Is(err, apperr.KindConfiguration) {
		t.Errorf("IssueRefreshToken() error = %v, want configuration error", err)
	}
	if svc.AccessTTL() != DefaultAccessTTL {
		t.Errorf("AccessTTL() = %v, want %v", svc.AccessTTL(), DefaultAccessTTL)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Bearer a b", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractBearer(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractBearer(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
