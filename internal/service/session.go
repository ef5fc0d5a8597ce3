// Package service holds the session orchestrator: it ties the credential
// store, password hasher and token service together into register, login,
// refresh-token rotation, logout and the account operations around them.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/auth-session-service/internal/apperr"
	"github.com/iliyamo/auth-session-service/internal/auth"
	"github.com/iliyamo/auth-session-service/internal/model"
	"github.com/iliyamo/auth-session-service/internal/queue"
	"github.com/iliyamo/auth-session-service/internal/repository"
	"github.com/iliyamo/auth-session-service/internal/utils"
)

// UserStore is the user half of the credential store.
type UserStore interface {
	CreateWithRefreshToken(ctx context.Context, u model.User, rt model.RefreshToken) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	Update(ctx context.Context, u model.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]model.User, error)
	Deactivate(ctx context.Context, id string, at time.Time) (int64, error)
}

// TokenStore is the refresh-token half of the credential store.
type TokenStore interface {
	Store(ctx context.Context, rt model.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) (int64, error)
	Rotate(ctx context.Context, oldHash string, next model.RefreshToken) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PasswordHasher is a one-way password function.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) (bool, error)
}

var (
	ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "invalid credentials")
	ErrInvalidRefresh     = apperr.New(apperr.KindAuthentication, "invalid refresh token")
	ErrRefreshExpired     = apperr.New(apperr.KindTokenExpired, "refresh token expired")
	ErrEmailTaken         = apperr.New(apperr.KindConflict, "email already registered")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "user not found")
)

// eventTimeout bounds a single audit publish.
const eventTimeout = 5 * time.Second

// Config wires a SessionService. Now, Log and Events are optional.
type Config struct {
	Users  UserStore
	Tokens TokenStore
	Hasher PasswordHasher
	Issuer *auth.TokenService
	Now    func() time.Time
	Log    zerolog.Logger
	Events queue.Publisher
}

// SessionService is safe for concurrent use; all shared state lives in the
// store.
type SessionService struct {
	users  UserStore
	tokens TokenStore
	hasher PasswordHasher
	issuer *auth.TokenService
	now    func() time.Time
	log    zerolog.Logger
	events queue.Publisher

	pending sync.WaitGroup // in-flight event publishes

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionService(cfg Config) *SessionService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	events := cfg.Events
	if events == nil {
		events = queue.NoopPublisher{}
	}
	return &SessionService{
		users:  cfg.Users,
		tokens: cfg.Tokens,
		hasher: cfg.Hasher,
		issuer: cfg.Issuer,
		now:    now,
		log:    cfg.Log,
		events: events,
	}
}

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// LoginRequest is the input of Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user and their first session.
func (s *SessionService) Register(ctx context.Context, req RegisterRequest) (model.AuthResult, error) {
	email := strings.TrimSpace(req.Email)
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	password := plainPassword(req.Password)

	fields := map[string]string{}
	checkEmail(fields, email)
	checkPassword(fields, password)
	checkName(fields, "firstName", firstName)
	checkName(fields, "lastName", lastName)
	role, ok := model.ParseRole(req.Role)
	if !ok {
		fields["role"] = "must be one of USER, TECHNICIAN, ADMIN, SUPER_ADMIN"
	}
	if len(fields) > 0 {
		return model.AuthResult{}, apperr.Validation(fields)
	}

	// Cheap pre-check; the unique index decides races.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return model.AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.AuthResult{}, apperr.Internal(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.AuthResult{}, apperr.Internal(err)
	}

	now := s.clock()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	access, refresh, row, err := s.issuePair(u, now)
	if err != nil {
		return model.AuthResult{}, err
	}
	if err := s.users.CreateWithRefreshToken(ctx, u, row); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.AuthResult{}, ErrEmailTaken
		}
		return model.AuthResult{}, apperr.Internal(err)
	}

	s.log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("User registered")
	s.emit(queue.AuthEvent{Type: queue.EventRegistered, UserID: u.ID, Email: u.Email, Role: string(u.Role)}, now)
	return s.result(u, access, refresh), nil
}

// Login verifies credentials and opens an additional session. Unknown
// email, inactive account and wrong password are indistinguishable to the
// caller.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (model.AuthResult, error) {
	email := strings.TrimSpace(req.Email)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "is required"
	}
	if req.Password == "" {
		fields["password"] = "is required"
	}
	if len(fields) > 0 {
		return model.AuthResult{}, apperr.Validation(fields)
	}

	password := plainPassword(req.Password)
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Every failure path pays for one hash comparison so response
		// timing does not reveal whether the email exists.
		_, _ = s.hasher.Verify(s.dummy(), password)
		return model.AuthResult{}, s.loginFailed(email, "", "unknown_email")
	case err != nil:
		return model.AuthResult{}, apperr.Internal(err)
	}
	ok, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		return model.AuthResult{}, apperr.Internal(err)
	}
	if !ok {
		return model.AuthResult{}, s.loginFailed(email, u.ID, "bad_password")
	}
	if !u.IsActive {
		return model.AuthResult{}, s.loginFailed(email, u.ID, "inactive")
	}

	now := s.clock()
	access, refresh, row, err := s.issuePair(u, now)
	if err != nil {
		return model.AuthResult{}, err
	}
	if err := s.tokens.Store(ctx, row); err != nil {
		return model.AuthResult{}, apperr.Internal(err)
	}
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.log.Error().Err(err).Str("user_id", u.ID).Msg("Failed to record last login")
	} else {
		u.LastLoginAt = &now
		u.UpdatedAt = now
	}

	s.log.Info().Str("user_id", u.ID).Msg("Login successful")
	s.emit(queue.AuthEvent{Type: queue.EventLogin, UserID: u.ID, Email: u.Email, Role: string(u.Role)}, now)
	return s.result(u, access, refresh), nil
}

func (s *SessionService) loginFailed(email, userID, reason string) error {
	s.log.Warn().Str("email", email).Str("user_id", userID).Str("reason", reason).Msg("Login failed")
	s.emit(queue.AuthEvent{Type: queue.EventLoginFailed, UserID: userID, Email: email, Reason: reason}, s.clock())
	return ErrInvalidCredentials
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed; a second presentation of the same value fails.
func (s *SessionService) Refresh(ctx context.Context, raw string) (model.AuthResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.AuthResult{}, apperr.Validation(map[string]string{"refreshToken": "is required"})
	}
	oldHash := utils.HashRefreshRaw(raw)

	row, err := s.tokens.GetByHash(ctx, oldHash)
	if errors.Is(err, repository.ErrNotFound) {
		return model.AuthResult{}, ErrInvalidRefresh
	}
	if err != nil {
		return model.AuthResult{}, apperr.Internal(err)
	}

	u, err := s.users.GetByID(ctx, row.UserID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
		s.log.Warn().Str("user_id", row.UserID).Msg("Refresh for missing or inactive user")
		return model.AuthResult{}, ErrInvalidRefresh
	}
	if err != nil {
		return model.AuthResult{}, apperr.Internal(err)
	}

	now := s.clock()
	if row.ExpiresAt.Before(now) {
		s.discard(ctx, oldHash)
		s.log.Warn().Str("user_id", u.ID).Msg("Expired refresh token presented")
		return model.AuthResult{}, ErrRefreshExpired
	}

	claims, err := s.issuer.VerifyRefreshTokenSignature(raw)
	if apperr.Is(err, apperr.KindConfiguration) {
		return model.AuthResult{}, err
	}
	if err != nil || claims.UserID != row.UserID {
		s.discard(ctx, oldHash)
		s.log.Warn().Err(err).Str("user_id", u.ID).Msg("Refresh token failed signature check")
		return model.AuthResult{}, ErrInvalidRefresh
	}

	access, refresh, next, err := s.issuePair(u, now)
	if err != nil {
		return model.AuthResult{}, err
	}
	if err := s.tokens.Rotate(ctx, oldHash, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Str("user_id", u.ID).Msg("Refresh token already consumed")
			return model.AuthResult{}, ErrInvalidRefresh
		}
		return model.AuthResult{}, apperr.Internal(err)
	}

	s.log.Debug().Str("user_id", u.ID).Msg("Refresh token rotated")
	return s.result(u, access, refresh), nil
}

// Logout deletes the session for raw. Unknown values are not an error.
func (s *SessionService) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	h := utils.HashRefreshRaw(raw)
	var userID string
	if row, err := s.tokens.GetByHash(ctx, h); err == nil {
		userID = row.UserID
	}
	n, err := s.tokens.DeleteByHash(ctx, h)
	if err != nil {
		return apperr.Internal(err)
	}
	if n > 0 {
		s.log.Info().Str("user_id", userID).Msg("Logout")
		s.emit(queue.AuthEvent{Type: queue.EventLogout, UserID: userID}, s.clock())
	}
	return nil
}

// issuePair signs an access and a refresh token for u and builds the row
// that stores the refresh token's digest.
func (s *SessionService) issuePair(u model.User, now time.Time) (access, refresh string, row model.RefreshToken, err error) {
	access, err = s.issuer.IssueAccessToken(u)
	if err != nil {
		return "", "", model.RefreshToken{}, err
	}
	refresh, exp, err := s.issuer.IssueRefreshToken(u.ID)
	if err != nil {
		return "", "", model.RefreshToken{}, err
	}
	row = model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: utils.HashRefreshRaw(refresh),
		ExpiresAt: exp.UTC().Truncate(time.Microsecond),
		CreatedAt: now,
	}
	return access, refresh, row, nil
}

func (s *SessionService) result(u model.User, access, refresh string) model.AuthResult {
	return model.AuthResult{
		User:         u.Safe(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.issuer.AccessTTL() / time.Second),
	}
}

// discard deletes a rejected refresh token row. Failure only leaves the row
// for the sweeper.
func (s *SessionService) discard(ctx context.Context, tokenHash string) {
	if _, err := s.tokens.DeleteByHash(ctx, tokenHash); err != nil {
		s.log.Error().Err(err).Msg("Failed to delete rejected refresh token")
	}
}

// clock returns the current time at the store's precision.
func (s *SessionService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *SessionService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("timing-equalizer-" + uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// emit publishes ev in the background. Broker trouble never fails the
// request that caused the event.
func (s *SessionService) emit(ev queue.AuthEvent, at time.Time) {
	ev.OccurredAt = at.Format(time.RFC3339)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Debug().Err(err).Str("event", ev.Type).Msg("Audit event not published")
		}
	}()
}

// Wait blocks until in-flight audit events are published or dropped.
func (s *SessionService) Wait() { s.pending.Wait() }
