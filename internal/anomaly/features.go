// Package anomaly implements unsupervised login anomaly detection.
//
// Every login attempt is reduced to a fixed low-dimensional feature vector
// and scored against an isolation forest trained on recent successful
// logins. Outliers are isolated in fewer random splits than normal points,
// so a shorter average path through the forest means a lower score and a
// more suspicious login. The detector fails open: until enough history
// exists to train a model, every attempt scores as normal.
package anomaly

import "github.com/mbd888/sentinel/internal/attempts"

// Dim is the feature vector dimensionality agreed between the extractor and
// the forest. The two move in lockstep: adding a feature means growing Dim
// and extending Extract, and the compiler enforces that every vector the
// forest ever sees has exactly this shape.
const Dim = 2

// FeatureVector is the fixed-shape numeric representation of a login
// attempt: (hour of day, day of week). Hour/day capture the user's routine;
// IP and device are deliberately not features (a known precision limit of
// the two-feature model, kept for predictability).
type FeatureVector [Dim]float64

// Extract converts a login attempt into its feature vector. Pure and total:
// every well-formed attempt maps to exactly one vector, no error path.
func Extract(a *attempts.LoginAttempt) FeatureVector {
	return FeatureVector{
		float64(a.HourOfDay),
		float64(a.DayOfWeek),
	}
}

// ExtractAll converts a batch of attempts, preserving input order so that
// training on the same history is reproducible.
func ExtractAll(list []*attempts.LoginAttempt) []FeatureVector {
	vectors := make([]FeatureVector, len(list))
	for i, a := range list {
		vectors[i] = Extract(a)
	}
	return vectors
}
