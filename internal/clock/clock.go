// Package clock implements the client's adaptive tick clock: an
// estimate of the server's start-tick-time fed by snapshot arrivals,
// biased and slewed so the client stays just ahead of the server.
//
// Grounded on original_source/client/src/server_interface/
// remote_server_interface/connected_state/after_snapshot_state.rs's
// update_tick_info, translated onto internal/ticktime and
// internal/distribution; see DESIGN.md Open Question 3 for the one
// deliberate deviation from the Rust source (the jump-threshold
// comparison is absolute-value, the governing behavior here).
package clock

import (
	"math"
	"time"

	"github.com/duskrun-game/netcore/internal/distribution"
	"github.com/duskrun-game/netcore/internal/protoconst"
	"github.com/duskrun-game/netcore/internal/ticktime"
)

// TickInfo is the client's current position on its local tick clock.
type TickInfo struct {
	Tick         uint64
	TickTime     time.Time
	NextTickTime time.Time
}

// Clock tracks the estimated server start-tick-time and the client's
// own slewed tick position.
type Clock struct {
	startTickTimeDistribution *distribution.OnlineDistribution[distribution.InstantSample]
	tickInfo                  TickInfo
}

// NewFromSnapshot seeds the clock from the first snapshot the client
// receives: its tick and arrival time establish the initial start-
// tick-time estimate.
func NewFromSnapshot(snapshotTick uint64, recvTime time.Time) *Clock {
	startTickTime := recvTime.Add(-ticktime.DurationFromTicks(int64(snapshotTick), protoconst.TickSpeed))
	return &Clock{
		startTickTimeDistribution: distribution.New(distribution.InstantSample(startTickTime)),
		tickInfo: TickInfo{
			Tick:         snapshotTick,
			TickTime:     recvTime,
			NextTickTime: recvTime,
		},
	}
}

// TickInfo returns the clock's current position.
func (c *Clock) TickInfo() TickInfo {
	return c.tickInfo
}

// OnSnapshotArrival folds a newly arrived snapshot's observed server
// start-tick-time into the distribution.
func (c *Clock) OnSnapshotArrival(snapshotTick uint64, recvTime time.Time) {
	startTickTime := recvTime.Add(-ticktime.DurationFromTicks(int64(snapshotTick), protoconst.TickSpeed))
	c.startTickTimeDistribution.AddSample(distribution.InstantSample(startTickTime), protoconst.NewestStartTickTimeWeight)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Advance moves the clock forward by exactly one local tick, slewing
// or jumping its speed to track the biased server start-tick-time
// estimate, and returns the new TickInfo.
func (c *Clock) Advance() TickInfo {
	biasedStart := c.startTickTimeDistribution.Mean().AsTime().Add(
		time.Duration(c.startTickTimeDistribution.SigmaDev(protoconst.SnapshotArrivalSigmaFactor)),
	)
	targetTickInstant := ticktime.FromStartTick(biasedStart, c.tickInfo.NextTickTime, protoconst.TickSpeed)

	c.tickInfo.Tick++
	c.tickInfo.TickTime = c.tickInfo.NextTickTime

	diff := targetTickInstant.Sub(ticktime.TickInstant{Tick: c.tickInfo.Tick}).Float()

	var speedFactor float64
	if math.Abs(diff) > protoconst.JumpThreshold {
		c.tickInfo.Tick = targetTickInstant.Tick
		speedFactor = 1.0
	} else {
		speedFactor = 1.0 + diff*protoconst.FactorFactor
	}
	speedFactor = clampFloat(speedFactor, protoconst.MinSpeedFactor, protoconst.MaxSpeedFactor)

	rate := ticktime.NewTickRate(uint64(float64(protoconst.TickSpeed.PerSecond) * speedFactor))
	c.tickInfo.NextTickTime = c.tickInfo.TickTime.Add(ticktime.DurationFromTicks(1, rate))

	return c.tickInfo
}
