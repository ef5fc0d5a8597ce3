// Package auth issues and verifies the service's signed tokens and decides
// whether verified claims satisfy a route's role requirement.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/auth-session-service/internal/apperr"
	"github.com/iliyamo/auth-session-service/internal/model"
)

const (
	// DefaultAccessTTL applies when no access-token window is configured.
	DefaultAccessTTL = 24 * time.Hour
	// RefreshTokenTTL is fixed; it is also the lifetime of the stored row.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken        = apperr.New(apperr.KindAuthentication, "invalid or expired token")
	ErrInvalidRefreshToken = apperr.New(apperr.KindAuthentication, "invalid refresh token")
	ErrMissingAccessKey    = apperr.New(apperr.KindConfiguration, "access token signing key is not configured")
	ErrMissingRefreshKey   = apperr.New(apperr.KindConfiguration, "refresh token signing key is not configured")
)

// Claims is the payload of an access token.
type Claims struct {
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. TokenID only adds entropy;
// the store looks sessions up by the whole token string.
type RefreshClaims struct {
	UserID  string `json:"userId"`
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	Now           func() time.Time
}

// TokenService signs and verifies HS256 tokens. It keeps no per-request state
// and is safe for concurrent use.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	now        func() time.Time
}

// NewTokenService builds a TokenService. Missing keys are reported when a
// token is issued; startup validation lives in config.Load.
func NewTokenService(cfg TokenConfig) *TokenService {
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  ttl,
		now:        now,
	}
}

// AccessTTL is the configured access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssueAccessToken signs {userId, email, role} with the access key.
func (s *TokenService) IssueAccessToken(u model.User) (string, error) {
	if len(s.accessKey) == 0 {
		return "", ErrMissingAccessKey
	}
	now := s.now().UTC()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessKey)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("signing access token: %w", err))
	}
	return signed, nil
}

// IssueRefreshToken signs {userId, tokenId} with the refresh key and a fixed
// seven-day expiry. It returns the token and that expiry.
func (s *TokenService) IssueRefreshToken(userID string) (string, time.Time, error) {
	if len(s.refreshKey) == 0 {
		return "", time.Time{}, ErrMissingRefreshKey
	}
	now := s.now().UTC()
	exp := now.Add(RefreshTokenTTL)
	claims := RefreshClaims{
		UserID:  userID,
		TokenID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshKey)
	if err != nil {
		return "", time.Time{}, apperr.Internal(fmt.Errorf("signing refresh token: %w", err))
	}
	return signed, exp, nil
}

// VerifyAccessToken checks signature, algorithm and expiry of an access token.
func (s *TokenService) VerifyAccessToken(raw string) (*Claims, error) {
	if len(s.accessKey) == 0 {
		return nil, ErrMissingAccessKey
	}
	claims := &Claims{}
	if _, err := s.parse(raw, claims, s.accessKey, true); err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, ErrInvalidToken.Message, err)
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshTokenSignature checks only the signature of a refresh token;
// it neither consults storage nor rejects an expired token.
func (s *TokenService) VerifyRefreshTokenSignature(raw string) (*RefreshClaims, error) {
	if len(s.refreshKey) == 0 {
		return nil, ErrMissingRefreshKey
	}
	claims := &RefreshClaims{}
	if _, err := s.parse(raw, claims, s.refreshKey, false); err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, ErrInvalidRefreshToken.Message, err)
	}
	if claims.UserID == "" {
		return nil, ErrInvalidRefreshToken
	}
	return claims, nil
}

func (s *TokenService) parse(raw string, claims jwt.Claims, key []byte, validateTime bool) (*jwt.Token, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if validateTime {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("token is not valid")
	}
	return tok, nil
}

// ExtractBearer parses an "Authorization: Bearer <token>" header. The scheme
// word is matched case-insensitively.
func ExtractBearer(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
