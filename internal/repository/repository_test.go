package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/iliyamo/auth-session-service/internal/model"
	"github.com/iliyamo/auth-session-service/internal/utils"
)

// store is the union of the user and token operations both backends offer.
type store interface {
	CreateWithRefreshToken(ctx context.Context, u model.User, rt model.RefreshToken) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	Update(ctx context.Context, u model.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]model.User, error)
	Deactivate(ctx context.Context, id string, at time.Time) (int64, error)
	Store(ctx context.Context, rt model.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) (int64, error)
	Rotate(ctx context.Context, oldHash string, next model.RefreshToken) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// sqlStore glues the two SQL repositories into one store.
type sqlStore struct {
	*UserRepo
	*TokenRepo
}

// testDB creates a temporary SQLite database with a schema equivalent to
// the MySQL one. The file is removed when the test completes.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	f, err := os.CreateTemp("", "auth-session-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'USER',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_login_at DATETIME
		);

		CREATE TABLE refresh_tokens (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			token_hash TEXT NOT NULL UNIQUE,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);

		CREATE INDEX idx_refresh_tokens_user ON refresh_tokens(user_id);
		CREATE INDEX idx_refresh_tokens_expires ON refresh_tokens(expires_at);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return db
}

var backends = []string{"sqlite", "memory"}

func newStore(t *testing.T, kind string) store {
	t.Helper()
	if kind == "memory" {
		return NewMemoryStore()
	}
	db := testDB(t)
	return sqlStore{UserRepo: NewUserRepo(db), TokenRepo: NewTokenRepo(db)}
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testUser(id, email string, created time.Time) model.User {
	return model.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$12$hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func testToken(id, userID, raw string, expires time.Time) model.RefreshToken {
	return model.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: utils.HashRefreshRaw(raw),
		ExpiresAt: expires,
		CreatedAt: epoch,
	}
}

func seedUser(t *testing.T, s store, id, email string) model.User {
	t.Helper()
	u := testUser(id, email, epoch)
	if err := s.CreateWithRefreshToken(context.Background(), u,
		testToken("tok-"+id, id, "raw-"+id, epoch.Add(7*24*time.Hour))); err != nil {
		t.Fatalf("CreateWithRefreshToken(%s) error = %v", email, err)
	}
	return u
}

func TestCreateAndGet(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			u := seedUser(t, s, "u1", "ada@example.com")

			got, err := s.GetByEmail(ctx, "ada@example.com")
			if err != nil {
				t.Fatalf("GetByEmail() error = %v", err)
			}
			if got.ID != u.ID || got.Role != model.RoleUser || !got.IsActive {
				t.Errorf("GetByEmail() = %+v", got)
			}
			if !got.CreatedAt.Equal(epoch) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, epoch)
			}
			if got.LastLoginAt != nil {
				t.Errorf("LastLoginAt = %v, want nil", got.LastLoginAt)
			}

			if _, err := s.GetByID(ctx, "u1"); err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
			}
			if _, err := s.GetByEmail(ctx, "ADA@example.com"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetByEmail() should match case exactly, got %v", err)
			}

			rt, err := s.GetByHash(ctx, utils.HashRefreshRaw("raw-u1"))
			if err != nil {
				t.Fatalf("GetByHash() error = %v", err)
			}
			if rt.UserID != "u1" {
				t.Errorf("token UserID = %q, want u1", rt.UserID)
			}
		})
	}
}

func TestCreateDuplicateEmailLeavesNoToken(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			seedUser(t, s, "u1", "ada@example.com")

			dup := testUser("u2", "ada@example.com", epoch)
			err := s.CreateWithRefreshToken(ctx, dup, testToken("tok-u2", "u2", "raw-u2", epoch.Add(time.Hour)))
			if !errors.Is(err, ErrEmailExists) {
				t.Fatalf("CreateWithRefreshToken() error = %v, want ErrEmailExists", err)
			}
			if _, err := s.GetByHash(ctx, utils.HashRefreshRaw("raw-u2")); !errors.Is(err, ErrNotFound) {
				t.Errorf("token of failed registration should not exist, got %v", err)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			u := seedUser(t, s, "u1", "ada@example.com")
			seedUser(t, s, "u2", "bob@example.com")

			u.FirstName = "Augusta"
			u.Email = "augusta@example.com"
			u.UpdatedAt = epoch.Add(time.Minute)
			if err := s.Update(ctx, u); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			got, err := s.GetByEmail(ctx, "augusta@example.com")
			if err != nil {
				t.Fatalf("GetByEmail(new) error = %v", err)
			}
			if got.FirstName != "Augusta" || !got.UpdatedAt.Equal(u.UpdatedAt) {
				t.Errorf("after Update() = %+v", got)
			}
			if _, err := s.GetByEmail(ctx, "ada@example.com"); !errors.Is(err, ErrNotFound) {
				t.Errorf("old email should be free, got %v", err)
			}

			u.Email = "bob@example.com"
			if err := s.Update(ctx, u); !errors.Is(err, ErrEmailExists) {
				t.Errorf("Update() to taken email error = %v, want ErrEmailExists", err)
			}
		})
	}
}

func TestUpdateLastLogin(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			seedUser(t, s, "u1", "ada@example.com")

			at := epoch.Add(time.Hour)
			if err := s.UpdateLastLogin(ctx, "u1", at); err != nil {
				t.Fatalf("UpdateLastLogin() error = %v", err)
			}
			got, _ := s.GetByID(ctx, "u1")
			if got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
				t.Errorf("LastLoginAt = %v, want %v", got.LastLoginAt, at)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
				u := testUser(string(rune('a'+i)), email, epoch.Add(time.Duration(i)*time.Minute))
				rt := testToken("t"+email, u.ID, "raw"+email, epoch.Add(time.Hour))
				if err := s.CreateWithRefreshToken(ctx, u, rt); err != nil {
					t.Fatalf("CreateWithRefreshToken() error = %v", err)
				}
			}

			users, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(users) != 3 {
				t.Fatalf("List() returned %d users, want 3", len(users))
			}
			want := []string{"c@x.com", "b@x.com", "a@x.com"}
			for i, u := range users {
				if u.Email != want[i] {
					t.Errorf("users[%d] = %s, want %s", i, u.Email, want[i])
				}
			}
		})
	}
}

func TestRotate(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			seedUser(t, s, "u1", "ada@example.com")
			oldHash := utils.HashRefreshRaw("raw-u1")

			next := testToken("tok-next", "u1", "raw-next", epoch.Add(8*24*time.Hour))
			if err := s.Rotate(ctx, oldHash, next); err != nil {
				t.Fatalf("Rotate() error = %v", err)
			}
			if _, err := s.GetByHash(ctx, oldHash); !errors.Is(err, ErrNotFound) {
				t.Errorf("old token should be gone, got %v", err)
			}
			if _, err := s.GetByHash(ctx, next.TokenHash); err != nil {
				t.Errorf("new token should exist, got %v", err)
			}

			again := testToken("tok-again", "u1", "raw-again", epoch.Add(8*24*time.Hour))
			if err := s.Rotate(ctx, oldHash, again); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Rotate() error = %v, want ErrNotFound", err)
			}
			if _, err := s.GetByHash(ctx, again.TokenHash); !errors.Is(err, ErrNotFound) {
				t.Error("failed rotation must not insert a token")
			}
		})
	}
}

func TestRotateConcurrent(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			seedUser(t, s, "u1", "ada@example.com")
			oldHash := utils.HashRefreshRaw("raw-u1")

			const racers = 8
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					raw := "raw-racer-" + string(rune('a'+i))
					next := testToken("tok-racer-"+string(rune('a'+i)), "u1", raw, epoch.Add(time.Hour))
					if err := s.Rotate(ctx, oldHash, next); err == nil {
						wins.Add(1)
					} else if !errors.Is(err, ErrNotFound) {
						t.Errorf("Rotate() unexpected error = %v", err)
					}
				}(i)
			}
			wg.Wait()

			if got := wins.Load(); got != 1 {
				t.Errorf("successful rotations = %d, want 1", got)
			}
		})
	}
}

func TestDeleteByHash(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			seedUser(t, s, "u1", "ada@example.com")
			h := utils.HashRefreshRaw("raw-u1")

			n, err := s.DeleteByHash(ctx, h)
			if err != nil || n != 1 {
				t.Fatalf("DeleteByHash() = %d, %v; want 1, nil", n, err)
			}
			n, err = s.DeleteByHash(ctx, h)
			if err != nil || n != 0 {
				t.Errorf("second DeleteByHash() = %d, %v; want 0, nil", n, err)
			}
		})
	}
}

func TestDeactivate(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			seedUser(t, s, "u1", "ada@example.com")
			seedUser(t, s, "u2", "bob@example.com")
			if err := s.Store(ctx, testToken("tok-extra", "u1", "raw-extra", epoch.Add(time.Hour))); err != nil {
				t.Fatalf("Store() error = %v", err)
			}

			n, err := s.Deactivate(ctx, "u1", epoch.Add(time.Minute))
			if err != nil {
				t.Fatalf("Deactivate() error = %v", err)
			}
			if n != 2 {
				t.Errorf("Deactivate() removed %d sessions, want 2", n)
			}
			got, _ := s.GetByID(ctx, "u1")
			if got.IsActive {
				t.Error("user should be inactive")
			}
			if _, err := s.GetByHash(ctx, utils.HashRefreshRaw("raw-u2")); err != nil {
				t.Errorf("other user's session should survive, got %v", err)
			}

			n, err = s.Deactivate(ctx, "u1", epoch.Add(2*time.Minute))
			if err != nil || n != 0 {
				t.Errorf("repeat Deactivate() = %d, %v; want 0, nil", n, err)
			}
			if _, err := s.Deactivate(ctx, "missing", epoch); !errors.Is(err, ErrNotFound) {
				t.Errorf("Deactivate(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDeleteExpired(t *testing.T) {
	for _, kind := range backends {
		t.Run(kind, func(t *testing.T) {
			s := newStore(t, kind)
			ctx := context.Background()
			seedUser(t, s, "u1", "ada@example.com") // expires epoch+7d
			for i, d := range []time.Duration{-time.Hour, -time.Minute, time.Minute} {
				raw := "raw-exp-" + string(rune('a'+i))
				if err := s.Store(ctx, testToken("exp-"+raw, "u1", raw, epoch.Add(d))); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			n, err := s.DeleteExpired(ctx, epoch)
			if err != nil {
				t.Fatalf("DeleteExpired() error = %v", err)
			}
			if n != 2 {
				t.Errorf("DeleteExpired() = %d, want 2", n)
			}
			n, _ = s.DeleteExpired(ctx, epoch)
			if n != 0 {
				t.Errorf("second DeleteExpired() = %d, want 0", n)
			}
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	if isDuplicate(nil) {
		t.Error("isDuplicate(nil) = true")
	}
	if !isDuplicate(errors.New("UNIQUE constraint failed: users.email")) {
		t.Error("sqlite unique violation not detected")
	}
	if isDuplicate(errors.New("connection refused")) {
		t.Error("unrelated error reported as duplicate")
	}
}
