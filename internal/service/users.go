package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/auth-session-service/internal/apperr"
	"github.com/iliyamo/auth-session-service/internal/model"
	"github.com/iliyamo/auth-session-service/internal/queue"
	"github.com/iliyamo/auth-session-service/internal/repository"
)

// ProfileUpdate carries the fields a user may change on their own profile.
// Nil means "leave unchanged".
type ProfileUpdate struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func (s *SessionService) GetProfile(ctx context.Context, userID string) (model.SafeUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.SafeUser{}, ErrUserNotFound
	}
	if err != nil {
		return model.SafeUser{}, apperr.Internal(err)
	}
	return u.Safe(), nil
}

// UpdateProfile validates and applies the supplied fields. A new password is
// re-hashed; existing sessions are left alone.
func (s *SessionService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (model.SafeUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.SafeUser{}, ErrUserNotFound
	}
	if err != nil {
		return model.SafeUser{}, apperr.Internal(err)
	}

	fields := map[string]string{}
	email := u.Email
	if upd.Email != nil {
		email = strings.TrimSpace(*upd.Email)
		checkEmail(fields, email)
	}
	var password string
	if upd.Password != nil {
		password = plainPassword(*upd.Password)
		checkPassword(fields, password)
	}
	if upd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*upd.FirstName)
		checkName(fields, "firstName", u.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
		checkName(fields, "lastName", u.LastName)
	}
	if len(fields) > 0 {
		return model.SafeUser{}, apperr.Validation(fields)
	}

	if email != u.Email {
		owner, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != u.ID:
			return model.SafeUser{}, ErrEmailTaken
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return model.SafeUser{}, apperr.Internal(err)
		}
		u.Email = email
	}
	if upd.Password != nil {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return model.SafeUser{}, apperr.Internal(err)
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = s.clock()

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.SafeUser{}, ErrEmailTaken
		}
		return model.SafeUser{}, apperr.Internal(err)
	}
	s.log.Info().Str("user_id", u.ID).Bool("password_changed", upd.Password != nil).Msg("Profile updated")
	return u.Safe(), nil
}

// ListUsers returns every user, newest first. Callers are expected to have
// passed the admin guard.
func (s *SessionService) ListUsers(ctx context.Context) ([]model.SafeUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]model.SafeUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Safe())
	}
	return out, nil
}

// DeactivateUser disables the account and revokes all of its sessions.
// Access tokens already issued stay valid until they expire.
func (s *SessionService) DeactivateUser(ctx context.Context, userID string) error {
	now := s.clock()
	n, err := s.users.Deactivate(ctx, userID, now)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return apperr.Internal(err)
	}
	s.log.Info().Str("user_id", userID).Int64("sessions_revoked", n).Msg("User deactivated")
	s.emit(queue.AuthEvent{Type: queue.EventDeactivated, UserID: userID}, now)
	return nil
}
