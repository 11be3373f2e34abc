// Package admin provides admin-only endpoints for inspecting the attempt
// log and operating the anomaly detector.
package admin

import (
	"context"

	"github.com/mbd888/sentinel/internal/anomaly"
)

// DetectorInspector exposes detector state for admin handlers.
type DetectorInspector interface {
	Status() anomaly.Status
}

// Retrainer triggers an on-demand retrain from recorded login history.
type Retrainer interface {
	TrainFromHistory(ctx context.Context) bool
}

// HubStats exposes realtime hub statistics.
type HubStats interface {
	Stats() map[string]interface{}
}
