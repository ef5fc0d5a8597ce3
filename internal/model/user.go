package model

import "time"

// User represents an identity record as stored in the `users` table. The
// password hash never leaves the service; handlers respond with SafeUser.
//
// Fields:
//
//	ID           – UUID primary key, immutable after creation.
//	Email        – unique login key, compared exactly as stored.
//	PasswordHash – bcrypt hash of the password.
//	Role         – one of the closed Role set.
//	IsActive     – deactivated users can neither log in nor refresh.
//	LastLoginAt  – nil until the first successful login.
type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	FirstName    string     `db:"first_name"`
	LastName     string     `db:"last_name"`
	Role         Role       `db:"role"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

// SafeUser is the client-facing projection of a User.
type SafeUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Safe strips the password hash.
func (u User) Safe() SafeUser {
	return SafeUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// RefreshToken models an entry in the `refresh_tokens` table. The raw token
// is handed to the client once; only its SHA-256 digest is stored.
//
// Fields:
//
//	ID        – UUID primary key.
//	UserID    – owner of the session.
//	TokenHash – SHA-256 hex digest of the token value (unique).
//	ExpiresAt – rows past this instant are rejected and swept.
//	CreatedAt – timestamp of issue.
type RefreshToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	User         SafeUser `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int64    `json:"expiresIn"` // access token lifetime in seconds
}
