package distribution

import "time"

// DurationSample adapts time.Duration to Sample[DurationSample], used
// for tracking ack-duration (round trip time) distributions.
type DurationSample time.Duration

func (s DurationSample) Mix(other DurationSample, w float64) DurationSample {
	return DurationSample(mixFloat(float64(s), float64(other), w))
}

func (s DurationSample) Diff(other DurationSample) float64 {
	return float64(s - other)
}

// AsDuration returns the sample as a time.Duration.
func (s DurationSample) AsDuration() time.Duration {
	return time.Duration(s)
}

// InstantSample adapts time.Time to Sample[InstantSample], used for
// tracking the client's start-tick-time distribution.
// Diff is expressed in nanoseconds since an arbitrary epoch; only
// differences (not absolute values) are meaningful, matching the way
// the source mixes std::time::Instant samples.
type InstantSample time.Time

func (s InstantSample) Mix(other InstantSample, w float64) InstantSample {
	base := time.Time(s)
	delta := time.Time(other).Sub(base)
	mixedNanos := mixFloat(0, float64(delta), w)
	return InstantSample(base.Add(time.Duration(mixedNanos)))
}

func (s InstantSample) Diff(other InstantSample) float64 {
	return float64(time.Time(s).Sub(time.Time(other)))
}

// AsTime returns the sample as a time.Time.
func (s InstantSample) AsTime() time.Time {
	return time.Time(s)
}
