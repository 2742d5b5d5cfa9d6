package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/feedbackhub/internal/models"
)

// ErrUserNotFound is returned by directories for unknown users.
var ErrUserNotFound = errors.New("user not found")

// Directory resolves users and their roles.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error)
}

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, created_at FROM users WHERE email = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, strings.ToLower(email)).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// HasRole reports whether the user currently holds role.
func (r *Repository) HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, userID, string(role)).Scan(&ok)
	return ok, err
}

// Create inserts a new user, or updates the password and role of an existing email.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
		RETURNING id, email, password_hash, full_name, role, created_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, strings.ToLower(email), passwordHash, fullName, string(role)).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
