package anomaly

import (
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/attempts"
)

func TestExtract(t *testing.T) {
	// Wednesday 2024-01-03, 14:05 UTC
	a := attempts.New("usr_1", "192.0.2.1", "", true, time.Date(2024, 1, 3, 14, 5, 0, 0, time.UTC))

	v := Extract(a)
	if v[0] != 14 {
		t.Fatalf("feature 0 should be hour of day, got %v", v[0])
	}
	if v[1] != 2 {
		t.Fatalf("feature 1 should be day of week (Monday=0), got %v", v[1])
	}
}

func TestExtractAllPreservesOrder(t *testing.T) {
	history := []*attempts.LoginAttempt{
		attempts.New("u", "ip", "", true, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		attempts.New("u", "ip", "", true, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)),
		attempts.New("u", "ip", "", true, time.Date(2024, 1, 6, 23, 0, 0, 0, time.UTC)),
	}

	vectors := ExtractAll(history)
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	want := []FeatureVector{{9, 0}, {10, 1}, {23, 5}}
	for i, w := range want {
		if vectors[i] != w {
			t.Fatalf("vector %d = %v, want %v", i, vectors[i], w)
		}
	}
}
