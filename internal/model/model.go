// Package model implements the authoritative, deterministic world
// state shared by client prediction and the server tick loop: players,
// their controlled characters, and per-tick physics.
//
// Grounded on original_source/shared/src/model/**: Model wraps a
// World and a player table, exactly mirroring the Rust source's
// add_player/remove_player/set_character_input/do_tick surface.
package model

// Model is the full simulated game state for one tick: every player
// and the world their characters live in.
type Model struct {
	players      map[uint64]*Player
	world        *World
	nextPlayerID uint64
}

// New returns an empty model.
func New() *Model {
	return &Model{
		players: make(map[uint64]*Player),
		world:   NewWorld(),
	}
}

// NewFromParts reconstructs a Model from a decoded player table, world,
// and player-id counter, preserving ids exactly as received rather than
// reassigning them. Used when decoding a snapshot off the wire.
func NewFromParts(players map[uint64]*Player, world *World, nextPlayerID uint64) *Model {
	return &Model{players: players, world: world, nextPlayerID: nextPlayerID}
}

// SetCharacterInput routes input to the character controlled by
// playerID. Panics if playerID does not name a player, matching the
// source's unwrap() on an unconditionally-valid caller invariant.
func (m *Model) SetCharacterInput(playerID uint64, input CharacterInput) {
	player, ok := m.players[playerID]
	if !ok {
		panic("set_character_input: unknown player id")
	}
	if characterID := player.CharacterID(); characterID != nil {
		m.world.SetCharacterInput(*characterID, input)
	}
}

// AddPlayer spawns a character, creates a player controlling it, and
// returns the new player's id.
func (m *Model) AddPlayer(name string) uint64 {
	id := m.nextPlayerID
	characterID := m.world.SpawnCharacter()
	player := NewPlayer(name)
	player.SetCharacterID(&characterID)
	m.players[id] = player
	m.nextPlayerID++
	return id
}

// RemovePlayer deletes a player and its character, returning the
// removed player if it existed.
func (m *Model) RemovePlayer(playerID uint64) *Player {
	player, ok := m.players[playerID]
	if !ok {
		return nil
	}
	delete(m.players, playerID)
	if characterID := player.CharacterID(); characterID != nil {
		m.world.RemoveCharacter(*characterID)
		player.SetCharacterID(nil)
	}
	return player
}

// Player returns the player with the given id, if any.
func (m *Model) Player(playerID uint64) (*Player, bool) {
	p, ok := m.players[playerID]
	return p, ok
}

// World returns the model's world.
func (m *Model) World() *World {
	return m.world
}

// Players returns the model's player table, keyed by player id.
func (m *Model) Players() map[uint64]*Player {
	return m.players
}

// NextPlayerID returns the id that will be assigned to the next
// AddPlayer call.
func (m *Model) NextPlayerID() uint64 {
	return m.nextPlayerID
}

// DoTick advances the world by one simulation step.
func (m *Model) DoTick() {
	m.world.DoTick()
}

// Clone deep-copies the model, used by the prediction engine to branch
// off a retained snapshot before replaying locally-predicted ticks.
func (m *Model) Clone() *Model {
	cloned := &Model{
		players:      make(map[uint64]*Player, len(m.players)),
		world:        m.world.Clone(),
		nextPlayerID: m.nextPlayerID,
	}
	for id, p := range m.players {
		var characterID *uint64
		if p.CharacterID() != nil {
			cid := *p.CharacterID()
			characterID = &cid
		}
		cloned.players[id] = &Player{Name: p.Name, characterID: characterID}
	}
	return cloned
}
