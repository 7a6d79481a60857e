package model

import netlog "github.com/duskrun-game/netcore/internal/log"

var logger = netlog.New("model")

// World holds every spawned Character, keyed by an ever-increasing id.
type World struct {
	characters       map[uint64]*Character
	nextCharacterID  uint64
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{characters: make(map[uint64]*Character)}
}

// SetCharacterInput updates the pending input of the named character,
// a no-op if the character does not exist.
func (w *World) SetCharacterInput(characterID uint64, input CharacterInput) {
	if c, ok := w.characters[characterID]; ok {
		c.SetInput(input)
	}
}

// SpawnCharacter creates a new character and returns its id.
func (w *World) SpawnCharacter() uint64 {
	id := w.nextCharacterID
	w.characters[id] = NewCharacter()
	w.nextCharacterID++
	return id
}

// SpawnCharacterWithID inserts a character at a caller-chosen id,
// advancing the next-id counter past it if needed. Used by the wire
// codec to reconstruct a world from a received snapshot with its
// original character ids intact.
func (w *World) SpawnCharacterWithID(id uint64, c *Character) {
	w.characters[id] = c
	if id >= w.nextCharacterID {
		w.nextCharacterID = id + 1
	}
}

// RemoveCharacter deletes a character, logging if it was already gone.
func (w *World) RemoveCharacter(characterID uint64) {
	if _, ok := w.characters[characterID]; !ok {
		logger.Warnf("tried to remove non-existing character with id %d", characterID)
		return
	}
	delete(w.characters, characterID)
}

// Character returns the character with the given id, if any.
func (w *World) Character(characterID uint64) (*Character, bool) {
	c, ok := w.characters[characterID]
	return c, ok
}

// Characters returns the live character table. Callers must not retain
// the map across a tick boundary without cloning it.
func (w *World) Characters() map[uint64]*Character {
	return w.characters
}

// DoTick advances every character by one simulation step.
func (w *World) DoTick() {
	for _, c := range w.characters {
		c.Tick()
	}
}

// Clone deep-copies the world, used to fork a retained snapshot before
// replaying predicted ticks on top of it.
func (w *World) Clone() *World {
	cloned := &World{
		characters:      make(map[uint64]*Character, len(w.characters)),
		nextCharacterID: w.nextCharacterID,
	}
	for id, c := range w.characters {
		clone := c.Clone()
		cloned.characters[id] = &clone
	}
	return cloned
}
