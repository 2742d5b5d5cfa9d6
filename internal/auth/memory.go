package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/feedbackhub/internal/models"
)

// MemoryDirectory is a Directory for single-instance deployments without postgres.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
	}
}

// Create adds a user, replacing any user with the same email.
func (d *MemoryDirectory) Create(_ context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(email)
	u := &models.User{
		ID:        uuid.New(),
		Email:     key,
		Password:  passwordHash,
		FullName:  fullName,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if prev, ok := d.byEmail[key]; ok {
		u.ID = prev.ID
		u.CreatedAt = prev.CreatedAt
	}
	d.byEmail[key] = u
	d.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

// GetByEmail implements Directory.
func (d *MemoryDirectory) GetByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// HasRole implements Directory.
func (d *MemoryDirectory) HasRole(_ context.Context, userID uuid.UUID, role models.Role) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[userID]
	return ok && u.Role == role, nil
}
