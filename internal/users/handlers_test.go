package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/attempts"
)

func usersRouter(log attempts.Store, u *User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(log, func(c *gin.Context) (*User, bool) {
		if u == nil {
			return nil, false
		}
		return u, true
	})
	r := gin.New()
	r.GET("/users/me", h.Me)
	r.GET("/users/me/logins", h.LoginHistory)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMe(t *testing.T) {
	u := New("alice", "alice@example.com", "hash")
	r := usersRouter(attempts.NewMemoryStore(), u)

	w := get(r, "/users/me")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["email"] != "alice@example.com" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if _, leaked := resp["passwordHash"]; leaked {
		t.Fatal("password hash must never be serialized")
	}
}

func TestMeUnauthenticated(t *testing.T) {
	r := usersRouter(attempts.NewMemoryStore(), nil)
	if w := get(r, "/users/me"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLoginHistoryPagination(t *testing.T) {
	u := New("alice", "alice@example.com", "hash")
	store := attempts.NewMemoryStore()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		a := attempts.New(u.ID, "192.0.2.1", "", true, base.Add(time.Duration(i)*time.Minute))
		if err := store.Append(context.Background(), a); err != nil {
			t.Fatal(err)
		}
	}
	// Another user's logins must not leak into the history.
	_ = store.Append(context.Background(), attempts.New("usr_other", "ip", "", true, base.Add(time.Hour)))

	r := usersRouter(store, u)

	w := get(r, "/users/me/logins")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var page1 struct {
		RecentLogins []json.RawMessage `json:"recentLogins"`
		NextCursor   string            `json:"nextCursor"`
		HasMore      bool              `json:"hasMore"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page1); err != nil {
		t.Fatal(err)
	}
	if len(page1.RecentLogins) != 10 {
		t.Fatalf("default page size should be 10, got %d", len(page1.RecentLogins))
	}
	if !page1.HasMore || page1.NextCursor == "" {
		t.Fatal("expected a next page")
	}

	w = get(r, "/users/me/logins?cursor="+page1.NextCursor)
	var page2 struct {
		RecentLogins []json.RawMessage `json:"recentLogins"`
		HasMore      bool              `json:"hasMore"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page2); err != nil {
		t.Fatal(err)
	}
	if len(page2.RecentLogins) != 5 {
		t.Fatalf("second page should hold the remaining 5, got %d", len(page2.RecentLogins))
	}
	if page2.HasMore {
		t.Fatal("no third page expected")
	}
}

func TestLoginHistoryInvalidCursor(t *testing.T) {
	u := New("alice", "alice@example.com", "hash")
	r := usersRouter(attempts.NewMemoryStore(), u)

	if w := get(r, "/users/me/logins?cursor=!!!not-a-cursor"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
