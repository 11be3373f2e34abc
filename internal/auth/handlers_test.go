package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/sentinel/internal/anomaly"
	"github.com/mbd888/sentinel/internal/attempts"
)

type handlerFixture struct {
	router   *gin.Engine
	attempts *attempts.MemoryStore
	detector *anomaly.Detector
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, _ := testManager()
	log := attempts.NewMemoryStore()
	detector := anomaly.NewDetector(anomaly.DefaultOptions())

	h := NewHandler(m, log, detector, nil, nil)
	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)

	return &handlerFixture{router: r, attempts: log, detector: detector}
}

func (f *handlerFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) signup(t *testing.T) {
	t.Helper()
	w := f.post(t, "/auth/signup", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSignupValidation(t *testing.T) {
	f := newHandlerFixture(t)

	cases := []gin.H{
		{"username": "al", "email": "a@b.co", "password": "password123"},   // username too short
		{"username": "alice", "email": "not-email", "password": "password123"},
		{"username": "alice", "email": "a@b.co", "password": "short"},
		{"email": "a@b.co", "password": "password123"}, // missing username
	}
	for i, body := range cases {
		if w := f.post(t, "/auth/signup", body); w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, w.Code, w.Body.String())
		}
	}
}

func TestSignupDuplicate(t *testing.T) {
	f := newHandlerFixture(t)
	f.signup(t)

	w := f.post(t, "/auth/signup", gin.H{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", w.Code)
	}
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	f := newHandlerFixture(t)
	f.signup(t)

	w := f.post(t, "/auth/login", gin.H{"email": "alice@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %s", w.Body.String())
	}
}

func TestLoginRecordsAttempts(t *testing.T) {
	f := newHandlerFixture(t)
	f.signup(t)

	f.post(t, "/auth/login", gin.H{"email": "alice@example.com", "password": "password123"})
	f.post(t, "/auth/login", gin.H{"email": "alice@example.com", "password": "wrong"})
	f.post(t, "/auth/login", gin.H{"email": "ghost@example.com", "password": "whatever"})

	all, err := f.attempts.ListRecent(context.Background(), false, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("every login attempt should be logged, got %d", len(all))
	}

	succeeded, _ := f.attempts.ListRecent(context.Background(), true, 10)
	if len(succeeded) != 1 {
		t.Fatalf("expected exactly 1 successful attempt, got %d", len(succeeded))
	}
	if succeeded[0].UserID == "" {
		t.Fatal("successful attempt should carry the user id")
	}

	// The unknown-email failure is still logged, with no user id.
	var unknown *attempts.LoginAttempt
	for _, a := range all {
		if !a.Success && a.UserID == "" {
			unknown = a
		}
	}
	if unknown == nil {
		t.Fatal("unknown-email attempt should be logged without a user id")
	}
}

func TestLoginFailureReturns401(t *testing.T) {
	f := newHandlerFixture(t)
	f.signup(t)

	w := f.post(t, "/auth/login", gin.H{"email": "alice@example.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestFlaggedLoginStillSucceeds(t *testing.T) {
	f := newHandlerFixture(t)
	f.signup(t)

	// Train on a tight cluster far away from any real current time so the
	// live login is almost certainly flagged; it must still authenticate.
	history := make([]*attempts.LoginAttempt, 50)
	now := time.Now().UTC()
	farHour := (now.Hour() + 12) % 24
	for i := range history {
		at := time.Date(2024, 1, 1, farHour, 0, 0, 0, time.UTC)
		history[i] = attempts.New("usr_x", "ip", "", true, at)
	}
	if !f.detector.Train(context.Background(), history) {
		t.Fatal("training failed")
	}

	w := f.post(t, "/auth/login", gin.H{"email": "alice@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("anomaly verdict must never block a valid login, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginUntrainedDetectorFailsOpen(t *testing.T) {
	f := newHandlerFixture(t)
	f.signup(t)

	if f.detector.Trained() {
		t.Fatal("fixture detector should start untrained")
	}
	w := f.post(t, "/auth/login", gin.H{"email": "alice@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("untrained detector must not affect login, got %d", w.Code)
	}
}
