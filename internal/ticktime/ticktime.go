// Package ticktime implements exact conversions between wall-clock
// durations and discrete simulation ticks.
//
// Grounded on original_source/shared/src/tick_time.rs: a TickRate
// multiplied by a Duration yields a TickDiff with an exact integer
// part and a fractional remainder, and dividing ticks by a TickRate
// yields a Duration, using nanosecond resolution throughout so the
// round trip never drifts.
package ticktime

import "time"

// TickRate is a positive integer ticks-per-second.
type TickRate struct {
	PerSecond uint64
}

// NewTickRate builds a TickRate from a ticks-per-second count.
func NewTickRate(perSecond uint64) TickRate {
	return TickRate{PerSecond: perSecond}
}

// TickDiff is a signed tick count plus a fractional remainder in [0,1).
type TickDiff struct {
	Ticks        int64
	TickFraction float64
}

// TicksFromDuration converts a duration to a TickDiff at the given rate.
func TicksFromDuration(d time.Duration, rate TickRate) TickDiff {
	secs := int64(d / time.Second)
	nanos := int64(d % time.Second)

	ticksFromSecs := secs * int64(rate.PerSecond)
	nanoProd := nanos * int64(rate.PerSecond)
	ticksFromNanos := nanoProd / int64(time.Second)
	subTicks := float64(nanoProd%int64(time.Second)) / float64(time.Second)

	ticks := ticksFromSecs + ticksFromNanos
	if subTicks < 0 {
		subTicks += 1.0
		ticks--
	}
	return TickDiff{
		Ticks:        ticks,
		TickFraction: subTicks,
	}
}

// DurationFromTicks converts a whole tick count to a duration at the
// given rate, rounding a fractional nanosecond up so that
// TicksFromDuration of the result yields the same tick count.
func DurationFromTicks(ticks int64, rate TickRate) time.Duration {
	wholeSecs := ticks / int64(rate.PerSecond)
	remainderTicks := ticks % int64(rate.PerSecond)
	nanos := remainderTicks * int64(time.Second) / int64(rate.PerSecond)
	if remainderTicks*int64(time.Second)%int64(rate.PerSecond) > 0 {
		nanos++
	}
	return time.Duration(wholeSecs)*time.Second + time.Duration(nanos)
}

// DurationFromTickDiff converts a TickDiff to a duration at the given rate.
func DurationFromTickDiff(d TickDiff, rate TickRate) time.Duration {
	whole := DurationFromTicks(d.Ticks, rate)
	fracNanos := d.TickFraction * float64(time.Second) / float64(rate.PerSecond)
	return whole + time.Duration(fracNanos)
}

// TickInstant is a fractional tick position (tick, intra_tick in [0,1]).
type TickInstant struct {
	Tick      uint64
	IntraTick float64
}

// FromStartTick derives a TickInstant from the time the tick clock
// started (startTickTime), the current time, and the rate at which
// ticks advance.
func FromStartTick(startTickTime, now time.Time, rate TickRate) TickInstant {
	diff := TicksFromDuration(now.Sub(startTickTime), rate)
	return TickInstant{
		Tick:      uint64(diff.Ticks),
		IntraTick: diff.TickFraction,
	}
}

// FromInterval derives a TickInstant for "tick" given the wall-clock
// instants bracketing it, clamping intra_tick to [0,1] for readings
// that fall outside the bracket (a late or early sample).
func FromInterval(tick uint64, tickTime, nextTickTime, now time.Time) TickInstant {
	switch {
	case now.After(nextTickTime):
		return TickInstant{Tick: tick, IntraTick: 1.0}
	case now.Before(tickTime):
		return TickInstant{Tick: tick, IntraTick: 0.0}
	default:
		partDur := now.Sub(tickTime)
		wholeDur := nextTickTime.Sub(tickTime)
		return TickInstant{
			Tick:      tick,
			IntraTick: float64(partDur) / float64(wholeDur),
		}
	}
}

// Sub computes the signed float tick difference self - rhs, carrying
// a borrow from the fractional part the way original_source's
// `Sub<TickInstant> for TickInstant` does.
func (t TickInstant) Sub(rhs TickInstant) TickDiff {
	ticks := int64(t.Tick) - int64(rhs.Tick)
	frac := t.IntraTick - rhs.IntraTick
	if frac < 0 {
		frac += 1.0
		ticks--
	}
	return TickDiff{Ticks: ticks, TickFraction: frac}
}

// Float returns the tick difference as a single float64, ticks plus fraction.
func (d TickDiff) Float() float64 {
	return float64(d.Ticks) + d.TickFraction
}
