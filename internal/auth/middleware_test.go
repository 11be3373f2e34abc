package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddlewareAllowsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, store := testManager()

	if _, err := m.Signup(context.Background(), "alice", "alice@example.com", "password123"); err != nil {
		t.Fatal(err)
	}
	token, _, err := m.CreateToken("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.Use(Middleware(m, store))
	r.GET("/me", func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": u.Email})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, store := testManager()

	r := gin.New()
	r.Use(Middleware(m, store))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, w.Code)
		}
	}
}

func TestMiddlewareRejectsUnknownUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, store := testManager()

	// Token for a user that was never created.
	token, _, err := m.CreateToken("ghost@example.com")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.Use(Middleware(m, store))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
