package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/auth-session-service/internal/model"
)

// MemoryStore keeps users and refresh tokens in process. A single mutex
// covers both maps so the multi-row operations (register, rotate,
// deactivate) are atomic just like their SQL counterparts.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]model.User
	byEmail map[string]string
	tokens  map[string]model.RefreshToken // keyed by token hash
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]model.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]model.RefreshToken),
	}
}

func (s *MemoryStore) CreateWithRefreshToken(_ context.Context, u model.User, rt model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrEmailExists
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	s.tokens[rt.TokenHash] = rt
	return nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) Update(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return nil // matches an UPDATE that touches no rows
	}
	if owner, taken := s.byEmail[u.Email]; taken && owner != u.ID {
		return ErrEmailExists
	}
	if cur.Email != u.Email {
		delete(s.byEmail, cur.Email)
		s.byEmail[u.Email] = u.ID
	}
	cur.Email = u.Email
	cur.PasswordHash = u.PasswordHash
	cur.FirstName = u.FirstName
	cur.LastName = u.LastName
	cur.UpdatedAt = u.UpdatedAt
	s.users[u.ID] = cur
	return nil
}

func (s *MemoryStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	s.users[id] = u
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Deactivate(_ context.Context, id string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, ErrNotFound
	}
	u.IsActive = false
	u.UpdatedAt = at
	s.users[id] = u
	var n int64
	for h, rt := range s.tokens {
		if rt.UserID == id {
			delete(s.tokens, h)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Store(_ context.Context, rt model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[rt.TokenHash] = rt
	return nil
}

func (s *MemoryStore) GetByHash(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.tokens[tokenHash]
	if !ok {
		return model.RefreshToken{}, ErrNotFound
	}
	return rt, nil
}

func (s *MemoryStore) DeleteByHash(_ context.Context, tokenHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenHash]; !ok {
		return 0, nil
	}
	delete(s.tokens, tokenHash)
	return 1, nil
}

func (s *MemoryStore) Rotate(_ context.Context, oldHash string, next model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[oldHash]; !ok {
		return ErrNotFound
	}
	delete(s.tokens, oldHash)
	s.tokens[next.TokenHash] = next
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, rt := range s.tokens {
		if rt.ExpiresAt.Before(now) {
			delete(s.tokens, h)
			n++
		}
	}
	return n, nil
}

// TokenCount reports the number of stored sessions.
func (s *MemoryStore) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
