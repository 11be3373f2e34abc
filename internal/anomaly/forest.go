package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// MinTrainingSamples is the smallest history a forest will train on.
// Below this the trees carry more noise than signal.
const MinTrainingSamples = 10

// ErrInsufficientData is returned when fewer than MinTrainingSamples vectors
// are available. Recoverable: the caller keeps the previous model and
// retries once more history has accumulated.
var ErrInsufficientData = errors.New("not enough training samples")

// eulerMascheroni is the constant in the harmonic-number approximation
// H(n) ~ ln(n) + gamma used by the path-length normalization.
const eulerMascheroni = 0.5772156649

// Options are the forest hyperparameters.
type Options struct {
	// Contamination is the expected fraction of anomalies in the training
	// data; it calibrates the outlier decision threshold.
	Contamination float64
	// TreeCount is the ensemble size.
	TreeCount int
	// SubsampleSize is the per-tree subsample; capped at the training set
	// size.
	SubsampleSize int
	// Seed drives all subsampling and split selection. Identical inputs,
	// options, and seed produce bit-identical scoring.
	Seed int64
}

// DefaultOptions returns the production detector configuration.
func DefaultOptions() Options {
	return Options{
		Contamination: 0.15,
		TreeCount:     100,
		SubsampleSize: 256,
		Seed:          42,
	}
}

// treeNode is one node of an isolation tree. Leaves have nil children.
type treeNode struct {
	splitFeature int
	splitValue   float64
	left         *treeNode
	right        *treeNode
	size         int
	depth        int
}

// forest is a trained isolation forest. It is immutable once fitForest
// returns, so a forest pointer can be shared across goroutines and scored
// against without any locking.
type forest struct {
	trees      []*treeNode
	sampleSize int
	maxDepth   int
	threshold  float64 // decision boundary fitted from Contamination
	trainedOn  int
	trainedAt  time.Time
	opts       Options
}

// fitForest builds an isolation forest over the given vectors. All
// randomness comes from a rand.Rand seeded with opts.Seed, never from
// global entropy.
func fitForest(vectors []FeatureVector, opts Options) (*forest, error) {
	if len(vectors) < MinTrainingSamples {
		return nil, fmt.Errorf("%w: have %d, need at least %d",
			ErrInsufficientData, len(vectors), MinTrainingSamples)
	}
	if opts.TreeCount <= 0 {
		opts.TreeCount = DefaultOptions().TreeCount
	}
	if opts.Contamination <= 0 || opts.Contamination >= 1 {
		opts.Contamination = DefaultOptions().Contamination
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	sampleSize := opts.SubsampleSize
	if sampleSize <= 0 || sampleSize > len(vectors) {
		sampleSize = len(vectors)
	}

	// Standard height cap: ceil(log2(sample size)). Points deeper than this
	// are already "normal enough" that exact depth no longer matters, and
	// the cap bounds adversarial worst-case traversal.
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	f := &forest{
		trees:      make([]*treeNode, opts.TreeCount),
		sampleSize: sampleSize,
		maxDepth:   maxDepth,
		trainedOn:  len(vectors),
		trainedAt:  time.Now().UTC(),
		opts:       opts,
	}

	for i := range f.trees {
		f.trees[i] = buildTree(subsample(rng, vectors, sampleSize), 0, maxDepth, rng)
	}

	// Fit the decision threshold so that approximately a Contamination
	// fraction of the training set scores below it.
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		scores[i] = f.score(v)
	}
	sort.Float64s(scores)
	k := int(opts.Contamination * float64(len(scores)))
	if k >= len(scores) {
		k = len(scores) - 1
	}
	f.threshold = scores[k]

	return f, nil
}

// subsample picks n distinct vectors using the seeded rng.
func subsample(rng *rand.Rand, vectors []FeatureVector, n int) []FeatureVector {
	if n >= len(vectors) {
		return vectors
	}
	sample := make([]FeatureVector, n)
	for i, idx := range rng.Perm(len(vectors))[:n] {
		sample[i] = vectors[idx]
	}
	return sample
}

// buildTree recursively partitions data along random features at uniform
// random split points until points are isolated or maxDepth is reached.
func buildTree(data []FeatureVector, depth, maxDepth int, rng *rand.Rand) *treeNode {
	node := &treeNode{size: len(data), depth: depth}

	if len(data) <= 1 || depth >= maxDepth || allIdentical(data) {
		return node
	}

	node.splitFeature = rng.Intn(Dim)

	minVal, maxVal := data[0][node.splitFeature], data[0][node.splitFeature]
	for _, v := range data[1:] {
		if v[node.splitFeature] < minVal {
			minVal = v[node.splitFeature]
		}
		if v[node.splitFeature] > maxVal {
			maxVal = v[node.splitFeature]
		}
	}
	// Constant along the chosen feature: treat as a leaf rather than retry,
	// matching the usual isolation forest construction.
	if minVal == maxVal {
		return node
	}

	node.splitValue = minVal + rng.Float64()*(maxVal-minVal)

	var left, right []FeatureVector
	for _, v := range data {
		if v[node.splitFeature] < node.splitValue {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	node.left = buildTree(left, depth+1, maxDepth, rng)
	node.right = buildTree(right, depth+1, maxDepth, rng)
	return node
}

func allIdentical(data []FeatureVector) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

// score returns the decision score for a vector: 0.5 - 2^(-E[h(x)]/c(n)),
// where E[h(x)] is the average path length across the ensemble and c(n) the
// expected path length of a random point in a tree over n samples. Scores
// live in (-0.5, 0.5); lower and more negative means more isolated, i.e.
// more suspicious.
func (f *forest) score(v FeatureVector) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, v)
	}
	avg := total / float64(len(f.trees))
	return 0.5 - math.Pow(2, -avg/avgPathLength(f.sampleSize))
}

// isOutlier applies the contamination-fitted threshold.
func (f *forest) isOutlier(v FeatureVector) bool {
	return f.score(v) < f.threshold
}

// pathLength is the depth at which v becomes isolated, with the standard
// adjustment at unexhausted leaves: a leaf still holding n points counts as
// depth + c(n), the expected remaining path length.
func pathLength(n *treeNode, v FeatureVector) float64 {
	for n.left != nil {
		if v[n.splitFeature] < n.splitValue {
			n = n.left
		} else {
			n = n.right
		}
	}
	return float64(n.depth) + avgPathLength(n.size)
}

// avgPathLength is c(n) = 2H(n-1) - 2(n-1)/n, the average path length of an
// unsuccessful BST search over n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerMascheroni) - 2*(fn-1)/fn
	}
}
