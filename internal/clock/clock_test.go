package clock

import (
	"testing"
	"time"
)

func TestAdvanceKeepsClockNearServerTick(t *testing.T) {
	base := time.Now()
	c := NewFromSnapshot(100, base)

	for i := 0; i < 50; i++ {
		c.OnSnapshotArrival(uint64(100+i), base.Add(time.Duration(i)*8*time.Millisecond))
		c.Advance()
	}

	// The last snapshot was for server tick 149; near means within the
	// 30-tick jump threshold of it, which also puts it past the seed.
	const lastServerTick = 149
	info := c.TickInfo()
	if info.Tick+30 < lastServerTick || info.Tick > lastServerTick+30 {
		t.Errorf("tick = %d, want within 30 ticks of the last server tick %d", info.Tick, lastServerTick)
	}
}

func TestAdvanceMonotonicTickTime(t *testing.T) {
	base := time.Now()
	c := NewFromSnapshot(0, base)
	prev := c.TickInfo().NextTickTime
	for i := 0; i < 10; i++ {
		info := c.Advance()
		if !info.NextTickTime.After(prev) {
			t.Fatalf("NextTickTime did not advance: prev=%v next=%v", prev, info.NextTickTime)
		}
		prev = info.NextTickTime
	}
}

func TestAdvanceJumpsOnLargeDeviation(t *testing.T) {
	base := time.Now()
	c := NewFromSnapshot(0, base)

	// Snapshots claiming the server is thousands of ticks ahead should
	// force a teleport rather than a slow slew. Each sample moves the
	// estimate by only NewestStartTickTimeWeight, so it takes thousands
	// of them before the biased estimate puts the server ahead.
	const serverTick = 12000
	for i := 0; i < 5000; i++ {
		c.OnSnapshotArrival(serverTick, base)
	}

	info := c.Advance()
	if info.Tick < 200 || info.Tick > serverTick {
		t.Errorf("expected a teleport to a far-future tick no later than %d, got %d", serverTick, info.Tick)
	}
}
