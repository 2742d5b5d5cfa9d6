package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/pkg/response"
	"github.com/aura-webinar/feedbackhub/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users     Directory
	jwt       *JWTService
	gate      *Gate
	onSignOut func(owner string)
	logger    *zap.Logger
}

// NewHandler creates an auth handler. onSignOut, if set, receives the user ID of every ended session.
func NewHandler(users Directory, jwt *JWTService, gate *Gate, onSignOut func(owner string), logger *zap.Logger) *Handler {
	return &Handler{users: users, jwt: jwt, gate: gate, onSignOut: onSignOut, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	sess, err := h.gate.SignOut(c.Request.Context(), BearerToken(c))
	if err != nil {
		h.logger.Warn("logout failed", zap.Error(err))
		response.Internal(c, "failed to sign out")
		return
	}
	if sess != nil && h.onSignOut != nil {
		h.onSignOut(sess.UserID.String())
	}
	response.NoContent(c)
}

// BearerToken extracts the token from the Authorization header, falling back
// to the token query parameter used by websocket clients.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return c.Query("token")
}

// SeedAdmin makes sure the configured admin account exists.
func SeedAdmin(ctx context.Context, users interface {
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error)
}, email, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return users.Create(ctx, email, hash, "Administrator", models.RoleAdmin)
}
