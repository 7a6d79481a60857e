package prediction

import (
	"testing"
	"time"

	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/wire"
)

func TestPredictedTickNeverDecreases(t *testing.T) {
	m := model.New()
	id := m.AddPlayer("alice")
	base := time.Now()

	var sent []uint64
	engine := New(id, wire.Snapshot{Tick: 0, Model: m}, base, func(tick uint64, input model.CharacterInput) {
		sent = append(sent, tick)
	})

	prev := engine.PredictedTick()
	for i := 0; i < 20; i++ {
		engine.DoTick(model.CharacterInput{})
		cur := engine.PredictedTick()
		if cur < prev {
			t.Fatalf("predicted tick decreased: %d -> %d", prev, cur)
		}
		prev = cur
	}
	if len(sent) != 20 {
		t.Errorf("sent %d inputs, want 20", len(sent))
	}
}

func TestReplayAppliesLocalInputToModel(t *testing.T) {
	m := model.New()
	id := m.AddPlayer("alice")
	base := time.Now()

	engine := New(id, wire.Snapshot{Tick: 0, Model: m}, base, func(uint64, model.CharacterInput) {})

	// Inputs are stamped PredictionLead (20) ticks ahead of the replay
	// cursor, so the cursor has to pass that lead before any of them is
	// replayed into the model.
	var in model.CharacterInput
	in.Forward = true
	for i := 0; i < 30; i++ {
		engine.DoTick(in)
	}

	p, _ := engine.Model().Player(id)
	c, ok := engine.Model().World().Character(*p.CharacterID())
	if !ok {
		t.Fatalf("expected character to exist in replayed model")
	}
	x, _, _ := c.Pos()
	if x <= 0 {
		t.Errorf("expected forward movement to accumulate, x = %v", x)
	}
}

func TestOnSnapshotDiscardsOlderThanOldest(t *testing.T) {
	m := model.New()
	id := m.AddPlayer("bob")
	base := time.Now()

	engine := New(id, wire.Snapshot{Tick: 10, Model: m}, base, func(uint64, model.CharacterInput) {})
	engine.OnSnapshot(wire.Snapshot{Tick: 5, Model: m}, base.Add(time.Millisecond))

	if _, ok := engine.snapshots[5]; ok {
		t.Errorf("snapshot older than oldest_snapshot_tick should have been discarded")
	}
}
