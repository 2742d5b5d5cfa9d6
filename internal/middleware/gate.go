package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/feedbackhub/internal/auth"
	"github.com/aura-webinar/feedbackhub/internal/metrics"
	"github.com/aura-webinar/feedbackhub/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextOwner keys the caller's dashboard session.
	ContextOwner = "dashboard_owner"

	// LoginPath is where denied callers are sent.
	LoginPath = "/login"
	// LocalOwner owns the single dashboard when the admin gate is off.
	LocalOwner = "local"
)

// AdminGate admits only signed-in admins. Everyone else is signed out and pointed at the login view.
func AdminGate(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := gate.RequireAdmin(c.Request.Context(), auth.BearerToken(c))
		if err != nil {
			status, reason, denial := http.StatusUnauthorized, "unauthenticated", auth.ErrUnauthenticated
			if errors.Is(err, auth.ErrForbidden) {
				status, reason, denial = http.StatusForbidden, "forbidden", auth.ErrForbidden
			}
			metrics.AuthorizationDenialsTotal.WithLabelValues(reason).Inc()
			response.Denied(c, status, denial.Error(), LoginPath)
			c.Abort()
			return
		}
		c.Set(ContextUserID, sess.UserID)
		c.Set(ContextUserEmail, sess.Email)
		c.Set(ContextOwner, sess.UserID.String())
		c.Next()
	}
}

// Ungated gives every caller the shared local dashboard.
func Ungated() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextOwner, LocalOwner)
		c.Next()
	}
}
