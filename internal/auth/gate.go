package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/models"
)

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("admin role required")
)

// Session is the signed-in caller behind a bearer token.
type Session struct {
	UserID    uuid.UUID
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Oracle answers who is signed in and what they may do.
type Oracle interface {
	// CurrentSession returns nil and no error when the token carries no live session.
	CurrentSession(ctx context.Context, token string) (*Session, error)
	HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error)
	SignOut(ctx context.Context, s *Session) error
}

// Service is the Oracle backed by JWTs, a user directory and a revocation list.
type Service struct {
	jwt     *JWTService
	users   Directory
	revoked Revoker
}

// NewService creates a session oracle.
func NewService(jwt *JWTService, users Directory, revoked Revoker) *Service {
	return &Service{jwt: jwt, users: users, revoked: revoked}
}

// CurrentSession implements Oracle.
func (s *Service) CurrentSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return nil, nil
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, nil
	}
	sess := &Session{UserID: claims.UserID, Email: claims.Email, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// HasRole implements Oracle.
func (s *Service) HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error) {
	return s.users.HasRole(ctx, userID, role)
}

// SignOut implements Oracle.
func (s *Service) SignOut(ctx context.Context, sess *Session) error {
	if sess == nil || sess.TokenID == "" {
		return nil
	}
	return s.revoked.Revoke(ctx, sess.TokenID, sess.ExpiresAt)
}

// Gate admits admins and signs everyone else out.
type Gate struct {
	oracle Oracle
	logger *zap.Logger
}

// NewGate creates an admin gate.
func NewGate(oracle Oracle, logger *zap.Logger) *Gate {
	return &Gate{oracle: oracle, logger: logger}
}

// RequireAdmin checks the caller once. Any failure forces a sign-out and yields
// ErrUnauthenticated or ErrForbidden.
func (g *Gate) RequireAdmin(ctx context.Context, token string) (*Session, error) {
	sess, err := g.oracle.CurrentSession(ctx, token)
	if err != nil {
		g.logger.Warn("session lookup failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	ok, err := g.oracle.HasRole(ctx, sess.UserID, models.RoleAdmin)
	if err != nil {
		g.logger.Warn("role lookup failed", zap.String("user_id", sess.UserID.String()), zap.Error(err))
		g.signOut(ctx, sess)
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !ok {
		g.signOut(ctx, sess)
		return nil, ErrForbidden
	}
	return sess, nil
}

// SignOut ends the session behind token, if any.
func (g *Gate) SignOut(ctx context.Context, token string) (*Session, error) {
	sess, err := g.oracle.CurrentSession(ctx, token)
	if err != nil || sess == nil {
		return nil, err
	}
	return sess, g.oracle.SignOut(ctx, sess)
}

func (g *Gate) signOut(ctx context.Context, sess *Session) {
	if err := g.oracle.SignOut(ctx, sess); err != nil {
		g.logger.Warn("sign out failed", zap.String("user_id", sess.UserID.String()), zap.Error(err))
	}
}
