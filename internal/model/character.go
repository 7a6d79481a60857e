package model

import (
	"math"

	"github.com/duskrun-game/netcore/internal/fixedpoint"
)

// CharacterInput is the set of buttons and look angles a client sends
// for a single tick. Yaw and pitch are stored as fixed-point so that
// Character.Tick produces identical trajectories regardless of host
// floating point rounding during replay.
type CharacterInput struct {
	Forward  bool
	Backward bool
	Right    bool
	Left     bool
	Crouch   bool
	NumJumps uint32

	yaw   fixedpoint.Scalar
	pitch fixedpoint.Scalar
}

const (
	twoPi     = 2 * math.Pi
	halfPi    = math.Pi / 2
	negHalfPi = -math.Pi / 2
)

// AddYaw rotates yaw by delta radians, wrapping into [0, 2*pi).
func (c *CharacterInput) AddYaw(delta float64) {
	yaw := c.yaw.Float64() + delta
	yaw = math.Mod(math.Mod(yaw, twoPi)+twoPi, twoPi)
	c.yaw = fixedpoint.FromFloat64(yaw)
}

// AddPitch adjusts pitch by delta radians, clamped to [-pi/2, pi/2].
func (c *CharacterInput) AddPitch(delta float64) {
	pitch := c.pitch.Float64() + delta
	if pitch > halfPi {
		pitch = halfPi
	}
	if pitch < negHalfPi {
		pitch = negHalfPi
	}
	p := fixedpoint.FromFloat64(pitch)
	if p.Float64() > halfPi {
		p--
	}
	if p.Float64() < negHalfPi {
		p++
	}
	c.pitch = p
}

// Yaw returns the current yaw in radians.
func (c CharacterInput) Yaw() float64 {
	return c.yaw.Float64()
}

// Pitch returns the current pitch in radians.
func (c CharacterInput) Pitch() float64 {
	return c.pitch.Float64()
}

// YawRaw returns the yaw as its wire-stable Q16.16 representation.
func (c CharacterInput) YawRaw() int64 {
	return c.yaw.Raw()
}

// PitchRaw returns the pitch as its wire-stable Q16.16 representation.
func (c CharacterInput) PitchRaw() int64 {
	return c.pitch.Raw()
}

// SetYawPitchRaw restores yaw/pitch from their wire representation.
func (c *CharacterInput) SetYawPitchRaw(yaw, pitch int64) {
	c.yaw = fixedpoint.FromRaw(yaw)
	c.pitch = fixedpoint.FromRaw(pitch)
}

// Character is a single simulated body in the world: position plus the
// look angles and button state driving its next tick of movement.
type Character struct {
	X, Y, Z    float64
	yaw, pitch float64
	input      CharacterInput
}

const moveSpeed = 0.1

// NewCharacter spawns a character at the world's default spawn height.
func NewCharacter() *Character {
	return &Character{Z: 0.7}
}

// SetInput replaces the character's pending input for the next tick.
func (c *Character) SetInput(input CharacterInput) {
	c.input = input
}

// Pos returns the character's world position.
func (c Character) Pos() (float64, float64, float64) {
	return c.X, c.Y, c.Z
}

// Yaw returns the character's facing yaw, applied as of the last tick.
func (c Character) Yaw() float64 {
	return c.yaw
}

// Pitch returns the character's facing pitch, applied as of the last tick.
func (c Character) Pitch() float64 {
	return c.pitch
}

// Tick advances position by one fixed step according to the held
// movement flags, then adopts the input's look angles.
func (c *Character) Tick() {
	if c.input.Forward {
		c.X += math.Cos(c.yaw) * moveSpeed
		c.Y += math.Sin(c.yaw) * moveSpeed
	}
	if c.input.Backward {
		c.X -= math.Cos(c.yaw) * moveSpeed
		c.Y -= math.Sin(c.yaw) * moveSpeed
	}
	if c.input.Right {
		c.X += math.Sin(c.yaw) * moveSpeed
		c.Y -= math.Cos(c.yaw) * moveSpeed
	}
	if c.input.Left {
		c.X -= math.Sin(c.yaw) * moveSpeed
		c.Y += math.Cos(c.yaw) * moveSpeed
	}
	c.yaw = c.input.Yaw()
	c.pitch = c.input.Pitch()
}

// Clone returns an independent deep copy, used by the prediction engine
// to fork a retained snapshot's world state for replay.
func (c Character) Clone() Character {
	return c
}

// SetPos overwrites the character's position directly, used when
// reconstructing a character from a received snapshot rather than
// simulating it locally.
func (c *Character) SetPos(x, y, z float64) {
	c.X, c.Y, c.Z = x, y, z
}

// SetFacing overwrites yaw/pitch directly, used when reconstructing a
// character from a received snapshot.
func (c *Character) SetFacing(yaw, pitch float64) {
	c.yaw, c.pitch = yaw, pitch
}
