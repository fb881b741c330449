// Package user manages the accounts that own games. Players join games as
// guests and never need an account; only game masters register.
package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/namethat/namethat/apperr"
	"github.com/namethat/namethat/auth"
)

// User is a registered account.
type User struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`

	// passwordHash never leaves the package.
	passwordHash string
}

// Store reads and writes user records.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store on the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create registers a new account with a hashed password. The email must
// not already be in use.
func (s *Store) Create(ctx context.Context, email, name, password string) (*User, error) {
	if email == "" || name == "" {
		return nil, apperr.Validation("email and name are required")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	if _, err := s.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Validation("email already in use")
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES (?, ?, ?, ?)
	`, id.String(), email, name, hash)
	if err != nil {
		return nil, apperr.Internal("failed to insert user", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID looks a user up by id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created
		FROM users
		WHERE id = ?
	`, id.String()))
}

// GetByEmail looks a user up by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created
		FROM users
		WHERE email = ?
	`, email))
}

// Authenticate verifies an email/password pair and returns the matching
// user. A wrong password is an authentication error, not a lookup miss,
// so callers can't distinguish "no such account" probing by error kind
// alone - both surface as failures.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := auth.CheckPassword(password, u.passwordHash); err != nil {
		if errors.Is(err, auth.ErrHashMismatch) {
			return nil, apperr.Authentication("invalid credentials")
		}
		return nil, apperr.Internal("failed to verify password", err)
	}
	return u, nil
}

func (s *Store) scanOne(row *sql.Row) (*User, error) {
	var (
		u  User
		id string
	)
	err := row.Scan(&id, &u.Email, &u.Name, &u.passwordHash, &u.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to read user", err)
	}

	u.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperr.Internal("malformed user id in database", err)
	}
	return &u, nil
}
