// Package distribution implements an online (single-pass, constant
// memory) estimator of the mean and variance of a stream of samples,
// using a Welford-style exponentially weighted update.
//
// Grounded on original_source/shared/src/online_distribution.rs.
package distribution

import "math"

// Sample is any type that can be embedded affinely into a real line:
// mixed towards another sample by a weight, and subtracted to produce
// a signed real difference. time.Duration and time.Time both satisfy
// this via the adapters in this package.
type Sample[T any] interface {
	// Mix returns the weighted blend of s towards other: (1-w)*s + w*other.
	Mix(other T, w float64) T
	// Diff returns s - other as a float64, in the sample type's base
	// unit (nanoseconds for the adapters in this package).
	Diff(other T) float64
}

// OnlineDistribution tracks a running mean and variance over samples
// of type T, added with a caller-supplied mixing weight.
type OnlineDistribution[T Sample[T]] struct {
	mean     T
	variance float64
}

// New creates a distribution seeded with a single initial sample and
// zero variance, matching OnlineDistribution::new in the source.
func New[T Sample[T]](initial T) *OnlineDistribution[T] {
	return &OnlineDistribution[T]{mean: initial, variance: 0}
}

// AddSample folds in a new sample with the given mixing weight.
//
//	old_diff = sample - mean
//	mean <- mix(mean, sample, w)
//	new_diff = sample - mean
//	variance <- mix(variance, old_diff*new_diff, w)
func (d *OnlineDistribution[T]) AddSample(sample T, weight float64) {
	oldDiff := sample.Diff(d.mean)
	d.mean = d.mean.Mix(sample, weight)
	newDiff := sample.Diff(d.mean)
	d.variance = mixFloat(d.variance, oldDiff*newDiff, weight)
}

// Mean returns the current mean estimate.
func (d *OnlineDistribution[T]) Mean() T {
	return d.mean
}

// Variance returns the current variance estimate.
func (d *OnlineDistribution[T]) Variance() float64 {
	return d.variance
}

// StdDev returns sqrt(variance).
func (d *OnlineDistribution[T]) StdDev() float64 {
	return math.Sqrt(d.variance)
}

// SigmaDev returns k standard deviations as a float64 in Diff's unit,
// to be converted back by the caller (for the adapters here, e.g.
// time.Duration(d.SigmaDev(k))).
func (d *OnlineDistribution[T]) SigmaDev(sigmaFactor float64) float64 {
	return d.StdDev() * sigmaFactor
}

func mixFloat(a, b, w float64) float64 {
	return a*(1-w) + b*w
}
