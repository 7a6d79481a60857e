package model

// Player is the persistent identity behind a connected client: a name
// plus, while alive in the world, the id of the character it controls.
type Player struct {
	Name        string
	characterID *uint64
}

// NewPlayer creates a player with no character spawned yet.
func NewPlayer(name string) *Player {
	return &Player{Name: name}
}

// Rename changes the player's display name.
func (p *Player) Rename(newName string) {
	p.Name = newName
}

// SetCharacterID assigns or clears (nil) the player's controlled character.
func (p *Player) SetCharacterID(characterID *uint64) {
	p.characterID = characterID
}

// CharacterID returns the player's character id, or nil if it has none.
func (p *Player) CharacterID() *uint64 {
	return p.characterID
}
