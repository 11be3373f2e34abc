package anomaly

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbd888/sentinel/internal/attempts"
	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/metrics"
)

// Verdict is the detector's opinion of a single login attempt. It is
// informational: callers may alert on it but must never let it change the
// authentication outcome.
type Verdict struct {
	IsAnomaly bool    `json:"isAnomaly"`
	Score     float64 `json:"score"`
}

// Detector scores login attempts against the current model.
//
// One Detector is owned by the server and shared by every request handler.
// Score is safe to call concurrently with Score and with Train: readers load
// one immutable forest snapshot for the duration of a call, and Train builds
// the replacement entirely off to the side before publishing it with a
// single atomic pointer swap. Train calls serialize against each other.
type Detector struct {
	opts    Options
	model   atomic.Pointer[forest]
	trainMu sync.Mutex
}

// Status describes the current model for operator endpoints.
type Status struct {
	Trained       bool      `json:"trained"`
	TrainedAt     time.Time `json:"trainedAt,omitzero"`
	Samples       int       `json:"samples"`
	Contamination float64   `json:"contamination"`
	TreeCount     int       `json:"treeCount"`
}

// NewDetector creates an untrained detector with the given hyperparameters.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Train fits a new model on the given history and atomically installs it,
// returning true. On insufficient data it returns false and leaves the
// previous model (or the untrained state) intact — a skipped training run is
// never fatal to the service.
func (d *Detector) Train(ctx context.Context, history []*attempts.LoginAttempt) bool {
	d.trainMu.Lock()
	defer d.trainMu.Unlock()

	start := time.Now()
	f, err := fitForest(ExtractAll(history), d.opts)
	if err != nil {
		logging.L(ctx).Warn("detector training skipped",
			"error", err,
			"samples", len(history),
		)
		metrics.DetectorTrainingsTotal.WithLabelValues("skipped").Inc()
		return false
	}

	d.model.Store(f)

	metrics.DetectorTrainingsTotal.WithLabelValues("trained").Inc()
	metrics.DetectorTrainingDuration.Observe(time.Since(start).Seconds())
	metrics.DetectorTrainingSamples.Set(float64(f.trainedOn))
	logging.L(ctx).Info("detector trained",
		"samples", f.trainedOn,
		"trees", len(f.trees),
		"threshold", f.threshold,
	)
	return true
}

// Score evaluates one login attempt. Untrained detectors fail open with a
// neutral verdict — refusing to score would pressure callers into blocking
// logins on a subsystem that must stay advisory. Pure in-memory computation,
// O(tree count x max depth).
func (d *Detector) Score(a *attempts.LoginAttempt) Verdict {
	f := d.model.Load()
	if f == nil {
		return Verdict{}
	}
	v := Extract(a)
	return Verdict{IsAnomaly: f.isOutlier(v), Score: f.score(v)}
}

// Trained reports whether a model has been installed.
func (d *Detector) Trained() bool {
	return d.model.Load() != nil
}

// Status returns the current model's summary.
func (d *Detector) Status() Status {
	st := Status{
		Contamination: d.opts.Contamination,
		TreeCount:     d.opts.TreeCount,
	}
	if f := d.model.Load(); f != nil {
		st.Trained = true
		st.TrainedAt = f.trainedAt
		st.Samples = f.trainedOn
	}
	return st
}
