package anomaly

import (
	"errors"
	"math/rand"
	"testing"
)

// businessHours builds n vectors spread across working hours (9-17) on
// weekdays (0-4), the "normal" login shape used throughout these tests.
func businessHours(n int) []FeatureVector {
	rng := rand.New(rand.NewSource(7))
	vectors := make([]FeatureVector, n)
	for i := range vectors {
		vectors[i] = FeatureVector{
			float64(9 + rng.Intn(9)), // hour 9..17
			float64(rng.Intn(5)),     // day 0..4
		}
	}
	return vectors
}

func TestFitForestInsufficientData(t *testing.T) {
	vectors := businessHours(MinTrainingSamples - 1)
	_, err := fitForest(vectors, DefaultOptions())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestFitForestMinimumSamples(t *testing.T) {
	vectors := businessHours(MinTrainingSamples)
	f, err := fitForest(vectors, DefaultOptions())
	if err != nil {
		t.Fatalf("expected forest at the minimum sample count, got %v", err)
	}
	if len(f.trees) != DefaultOptions().TreeCount {
		t.Fatalf("expected %d trees, got %d", DefaultOptions().TreeCount, len(f.trees))
	}
}

func TestFitForestDeterministic(t *testing.T) {
	vectors := businessHours(80)
	probes := []FeatureVector{{2, 6}, {10, 2}, {23, 5}, {14, 0}}

	a, err := fitForest(vectors, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := fitForest(vectors, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range probes {
		if a.score(p) != b.score(p) {
			t.Fatalf("same data, options, and seed must score identically: %v vs %v for %v",
				a.score(p), b.score(p), p)
		}
		if a.isOutlier(p) != b.isOutlier(p) {
			t.Fatalf("outlier decision differs between identical forests for %v", p)
		}
	}
	if a.threshold != b.threshold {
		t.Fatalf("thresholds differ: %v vs %v", a.threshold, b.threshold)
	}
}

func TestFitForestDifferentSeedsDiffer(t *testing.T) {
	vectors := businessHours(80)
	opts := DefaultOptions()
	a, _ := fitForest(vectors, opts)
	opts.Seed = 1234
	b, _ := fitForest(vectors, opts)

	// Scores are continuous; identical output across seeds would mean the
	// seed isn't actually feeding the rng.
	probe := FeatureVector{2, 6}
	if a.score(probe) == b.score(probe) && a.threshold == b.threshold {
		t.Fatal("different seeds produced an identical forest")
	}
}

func TestScoreRange(t *testing.T) {
	f, err := fitForest(businessHours(100), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	for hour := 0; hour < 24; hour++ {
		for day := 0; day < 7; day++ {
			s := f.score(FeatureVector{float64(hour), float64(day)})
			if s <= -0.5 || s >= 0.5 {
				t.Fatalf("score %v out of (-0.5, 0.5) for hour=%d day=%d", s, hour, day)
			}
		}
	}
}

func TestContaminationBoundsFlaggedFraction(t *testing.T) {
	vectors := businessHours(200)
	opts := DefaultOptions()
	f, err := fitForest(vectors, opts)
	if err != nil {
		t.Fatal(err)
	}

	flagged := 0
	for _, v := range vectors {
		if f.isOutlier(v) {
			flagged++
		}
	}

	// The threshold is the k-th smallest training score, so strictly fewer
	// than k+1 training points can fall below it.
	k := int(opts.Contamination * float64(len(vectors)))
	if flagged > k {
		t.Fatalf("flagged %d of %d training points, contamination allows at most %d",
			flagged, len(vectors), k)
	}
}

func TestPlantedOutliersFlagged(t *testing.T) {
	// 170 business-hours logins plus 30 planted night logins spread across
	// the week. With contamination 0.15 the threshold should land so that
	// roughly the planted fraction of the training set is flagged, and the
	// planted points should make up the bulk of it.
	vectors := businessHours(170)
	rng := rand.New(rand.NewSource(11))
	planted := make(map[FeatureVector]bool, 30)
	for i := 0; i < 30; i++ {
		v := FeatureVector{
			float64(rng.Intn(6)), // hour 0..5
			float64(rng.Intn(7)), // any day
		}
		planted[v] = true
		vectors = append(vectors, v)
	}

	opts := DefaultOptions()
	f, err := fitForest(vectors, opts)
	if err != nil {
		t.Fatal(err)
	}

	flagged, plantedFlagged := 0, 0
	for _, v := range vectors {
		if f.isOutlier(v) {
			flagged++
			if planted[v] {
				plantedFlagged++
			}
		}
	}

	k := int(opts.Contamination * float64(len(vectors)))
	if flagged > k {
		t.Fatalf("flagged %d training points, contamination allows at most %d", flagged, k)
	}
	if flagged < k-5 {
		t.Fatalf("flagged only %d of %d training points, expected close to %d", flagged, len(vectors), k)
	}
	if plantedFlagged < 15 {
		t.Fatalf("only %d of 30 planted night logins flagged (threshold %v)", plantedFlagged, f.threshold)
	}
}

func TestNightWeekendLoginScoresLower(t *testing.T) {
	f, err := fitForest(businessHours(100), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	weird := FeatureVector{2, 6}   // 2am Sunday
	normal := FeatureVector{10, 2} // 10am Wednesday

	if !f.isOutlier(weird) {
		t.Fatalf("2am Sunday login should be an outlier after business-hours training (score %v, threshold %v)",
			f.score(weird), f.threshold)
	}
	if f.score(weird) >= f.score(normal) {
		t.Fatalf("expected the off-hours login to score lower: weird=%v normal=%v",
			f.score(weird), f.score(normal))
	}
}

func TestFitForestIdenticalPoints(t *testing.T) {
	// Degenerate history: every login at the exact same hour and day. Trees
	// collapse to single leaves; fitting must still succeed.
	vectors := make([]FeatureVector, 50)
	for i := range vectors {
		vectors[i] = FeatureVector{10, 2}
	}
	f, err := fitForest(vectors, DefaultOptions())
	if err != nil {
		t.Fatalf("identical points should still train: %v", err)
	}
	s := f.score(FeatureVector{10, 2})
	if s <= -0.5 || s >= 0.5 {
		t.Fatalf("score %v out of range on degenerate forest", s)
	}
}

func TestAvgPathLength(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, 1},
	}
	for _, tc := range cases {
		if got := avgPathLength(tc.n); got != tc.want {
			t.Fatalf("avgPathLength(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
	// c(n) grows with n
	if avgPathLength(100) <= avgPathLength(10) {
		t.Fatal("avgPathLength should increase with n")
	}
}
