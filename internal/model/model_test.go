package model

import (
	"math"
	"testing"
)

func TestAddYawWraps(t *testing.T) {
	var in CharacterInput
	in.AddYaw(2*math.Pi + 0.1)
	if got := in.Yaw(); got < 0.099 || got > 0.101 {
		t.Errorf("yaw after full wrap = %v, want ~0.1", got)
	}
}

func TestAddYawNegativeWraps(t *testing.T) {
	var in CharacterInput
	in.AddYaw(-0.1)
	want := 2*math.Pi - 0.1
	if got := in.Yaw(); math.Abs(got-want) > 1e-4 {
		t.Errorf("yaw after negative delta = %v, want %v", got, want)
	}
}

func TestAddPitchClamps(t *testing.T) {
	var in CharacterInput
	in.AddPitch(10)
	// Pitch is stored with 16 fractional bits, so the clamp lands on the
	// last representable value inside the range, within one step of it.
	const step = 1.0 / 65536
	if got := in.Pitch(); got > math.Pi/2 || math.Pi/2-got > step {
		t.Errorf("pitch clamp high = %v, want pi/2", got)
	}
	in.AddPitch(-20)
	if got := in.Pitch(); got < -math.Pi/2 || got-(-math.Pi/2) > step {
		t.Errorf("pitch clamp low = %v, want -pi/2", got)
	}
}

func TestCharacterTickMovesForward(t *testing.T) {
	c := NewCharacter()
	var in CharacterInput
	in.Forward = true
	c.SetInput(in)
	c.Tick()
	x, y, _ := c.Pos()
	if x < 0.05 || y != 0 {
		t.Errorf("pos after forward tick = (%v, %v), want (~0.1, 0)", x, y)
	}
}

func TestModelAddRemovePlayer(t *testing.T) {
	m := New()
	id := m.AddPlayer("alice")

	p, ok := m.Player(id)
	if !ok || p.Name != "alice" {
		t.Fatalf("Player(%d) = %+v, %v, want alice", id, p, ok)
	}
	if p.CharacterID() == nil {
		t.Fatalf("expected player to have a spawned character")
	}
	characterID := *p.CharacterID()
	if _, ok := m.World().Character(characterID); !ok {
		t.Fatalf("expected world to contain spawned character %d", characterID)
	}

	removed := m.RemovePlayer(id)
	if removed == nil || removed.Name != "alice" {
		t.Fatalf("RemovePlayer returned %+v, want alice", removed)
	}
	if _, ok := m.Player(id); ok {
		t.Fatalf("player %d should be gone after RemovePlayer", id)
	}
	if _, ok := m.World().Character(characterID); ok {
		t.Fatalf("character %d should be gone after RemovePlayer", characterID)
	}
}

func TestModelCloneIsIndependent(t *testing.T) {
	m := New()
	id := m.AddPlayer("bob")
	clone := m.Clone()

	m.RemovePlayer(id)

	if _, ok := clone.Player(id); !ok {
		t.Fatalf("clone should be unaffected by mutation of the original")
	}
}

func TestSetCharacterInputRoutesToCharacter(t *testing.T) {
	m := New()
	id := m.AddPlayer("carol")
	var in CharacterInput
	in.Forward = true
	m.SetCharacterInput(id, in)
	m.DoTick()

	p, _ := m.Player(id)
	c, _ := m.World().Character(*p.CharacterID())
	x, _, _ := c.Pos()
	if x <= 0 {
		t.Errorf("expected forward movement after tick, x = %v", x)
	}
}
