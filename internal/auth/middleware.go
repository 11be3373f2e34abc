package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/users"
)

const contextKeyUser = "auth.user"

// Middleware verifies the Authorization header and loads the authenticated
// user into the gin context. Requests without a valid token are rejected.
func Middleware(m *Manager, store users.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearer(c.Request)
		if err != nil {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		email, err := m.VerifyToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		u, err := store.GetByEmail(c.Request.Context(), email)
		if err != nil || !u.IsActive {
			abortUnauthorized(c, "unknown or deactivated user")
			return
		}

		c.Set(contextKeyUser, u)
		c.Next()
	}
}

// CurrentUser returns the user set by Middleware, if any.
func CurrentUser(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(contextKeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*users.User)
	return u, ok
}

func extractBearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrNoToken
	}
	return parts[1], nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="sentinel"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": msg,
	})
}
