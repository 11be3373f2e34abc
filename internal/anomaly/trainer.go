package anomaly

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mbd888/sentinel/internal/attempts"
	"github.com/mbd888/sentinel/internal/traces"
)

// TrainerConfig tunes the retraining policy.
type TrainerConfig struct {
	// HistorySize is how many of the most recent successful logins feed a
	// training run.
	HistorySize int
	// RetrainInterval is how often the trainer checks whether a retrain is
	// due.
	RetrainInterval time.Duration
	// RetrainEvery is the number of new successful logins that makes a
	// retrain due at the next interval check.
	RetrainEvery int
}

// DefaultTrainerConfig returns the production retraining policy.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		HistorySize:     100,
		RetrainInterval: 15 * time.Minute,
		RetrainEvery:    25,
	}
}

// Trainer decides when the detector (re)trains: once at startup, then
// periodically whenever enough new successful logins have accumulated.
// Retraining is idempotent and safe to skip; it never blocks concurrent
// scoring for longer than the model pointer swap.
type Trainer struct {
	detector  *Detector
	log       attempts.Store
	cfg       TrainerConfig
	logger    *slog.Logger
	newLogins atomic.Int64
	stop      chan struct{}
}

// NewTrainer creates a training lifecycle controller for the detector.
func NewTrainer(detector *Detector, log attempts.Store, cfg TrainerConfig, logger *slog.Logger) *Trainer {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultTrainerConfig().HistorySize
	}
	if cfg.RetrainInterval <= 0 {
		cfg.RetrainInterval = DefaultTrainerConfig().RetrainInterval
	}
	if cfg.RetrainEvery <= 0 {
		cfg.RetrainEvery = DefaultTrainerConfig().RetrainEvery
	}
	return &Trainer{
		detector: detector,
		log:      log,
		cfg:      cfg,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// TrainFromHistory pulls the most recent successful logins from the attempt
// log and trains the detector. An empty log leaves the detector untrained
// and is not an error: the detector simply keeps failing open until real
// traffic accumulates.
func (t *Trainer) TrainFromHistory(ctx context.Context) bool {
	ctx, span := traces.StartSpan(ctx, "detector.train")
	defer span.End()

	history, err := t.log.ListRecent(ctx, true, t.cfg.HistorySize)
	if err != nil {
		t.logger.Warn("failed to load login history for training", "error", err)
		return false
	}
	if len(history) == 0 {
		t.logger.Warn("no login history yet, detector starts untrained")
		return false
	}
	span.SetAttributes(traces.TrainingSamples(len(history)))
	return t.detector.Train(ctx, history)
}

// RecordLogin marks one new successful login toward the retrain trigger.
// Called from the login path; it is a single atomic increment.
func (t *Trainer) RecordLogin() {
	t.newLogins.Add(1)
}

// Start runs the periodic retrain loop. Call in a goroutine; it exits when
// ctx is done or Stop is called.
func (t *Trainer) Start(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.RetrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.retrainIfDue(ctx)
		}
	}
}

// Stop signals the trainer to stop.
func (t *Trainer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

// retrainIfDue retrains when enough new logins have arrived since the last
// run. The counter is only rewound after a successful training, so a skipped
// or failed run is retried at the next tick.
func (t *Trainer) retrainIfDue(ctx context.Context) {
	pending := t.newLogins.Load()
	if pending < int64(t.cfg.RetrainEvery) {
		return
	}
	if t.TrainFromHistory(ctx) {
		t.newLogins.Add(-pending)
		t.logger.Info("detector retrained", "new_logins", pending)
	}
}
