package anomaly

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mbd888/sentinel/internal/attempts"
)

// loginAt builds a successful attempt at the given UTC hour and day, with
// day 0 = Monday (2024-01-01 was a Monday).
func loginAt(hour, day int) *attempts.LoginAttempt {
	at := time.Date(2024, 1, 1+day, hour, 30, 0, 0, time.UTC)
	return attempts.New("usr_test", "192.0.2.1", "go-test", true, at)
}

// businessHistory builds n weekday business-hours logins.
func businessHistory(n int) []*attempts.LoginAttempt {
	history := make([]*attempts.LoginAttempt, n)
	for i := range history {
		history[i] = loginAt(9+i%9, i%5)
	}
	return history
}

func TestScoreUntrainedFailsOpen(t *testing.T) {
	d := NewDetector(DefaultOptions())

	v := d.Score(loginAt(2, 6))
	if v.IsAnomaly {
		t.Fatal("untrained detector must never flag a login")
	}
	if v.Score != 0.0 {
		t.Fatalf("untrained detector must return a neutral score, got %v", v.Score)
	}
	if d.Trained() {
		t.Fatal("detector should report untrained")
	}
}

func TestTrainInsufficientHistory(t *testing.T) {
	d := NewDetector(DefaultOptions())

	if d.Train(context.Background(), businessHistory(MinTrainingSamples-1)) {
		t.Fatal("training below the sample floor should be skipped")
	}
	if d.Trained() {
		t.Fatal("skipped training must leave the detector untrained")
	}
}

func TestTrainAtSampleFloor(t *testing.T) {
	d := NewDetector(DefaultOptions())

	if !d.Train(context.Background(), businessHistory(MinTrainingSamples)) {
		t.Fatal("training at exactly the sample floor should succeed")
	}
	if !d.Trained() {
		t.Fatal("detector should report trained")
	}
}

func TestTrainedDetectorFlagsOffHoursLogin(t *testing.T) {
	d := NewDetector(DefaultOptions())
	if !d.Train(context.Background(), businessHistory(100)) {
		t.Fatal("training failed")
	}

	weird := d.Score(loginAt(2, 6))
	normal := d.Score(loginAt(10, 2))

	if !weird.IsAnomaly {
		t.Fatalf("2am Sunday login should be flagged, score=%v", weird.Score)
	}
	if weird.Score >= normal.Score {
		t.Fatalf("off-hours login should score lower: weird=%v normal=%v", weird.Score, normal.Score)
	}
}

func TestTrainFailureKeepsPreviousModel(t *testing.T) {
	d := NewDetector(DefaultOptions())
	if !d.Train(context.Background(), businessHistory(50)) {
		t.Fatal("initial training failed")
	}
	before := d.Status()

	if d.Train(context.Background(), businessHistory(3)) {
		t.Fatal("undersized retrain should be skipped")
	}

	after := d.Status()
	if !after.Trained || after.Samples != before.Samples {
		t.Fatalf("skipped retrain must keep the previous model: before=%+v after=%+v", before, after)
	}
}

func TestStatus(t *testing.T) {
	opts := DefaultOptions()
	d := NewDetector(opts)

	st := d.Status()
	if st.Trained || st.Samples != 0 {
		t.Fatalf("fresh detector status: %+v", st)
	}
	if st.Contamination != opts.Contamination || st.TreeCount != opts.TreeCount {
		t.Fatalf("status should echo hyperparameters: %+v", st)
	}

	d.Train(context.Background(), businessHistory(42))
	st = d.Status()
	if !st.Trained || st.Samples != 42 || st.TrainedAt.IsZero() {
		t.Fatalf("trained detector status: %+v", st)
	}
}

func TestConcurrentTrainAndScore(t *testing.T) {
	d := NewDetector(DefaultOptions())
	history := businessHistory(100)
	d.Train(context.Background(), history)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Writers: retrain in a loop.
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					d.Train(context.Background(), history)
				}
			}
		}()
	}

	// Readers: hammer Score concurrently with retraining.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				v := d.Score(loginAt(j%24, j%7))
				if v.Score <= -0.5 || v.Score >= 0.5 {
					t.Errorf("score %v out of range under concurrency", v.Score)
					return
				}
			}
		}()
	}

	// Let readers finish, then stop writers.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done
}
