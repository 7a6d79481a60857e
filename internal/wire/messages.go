package wire

import (
	"fmt"
	"sort"

	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/ticktime"
)

// ClientMessageKind tags the payload of a ClientMessage.
type ClientMessageKind byte

const (
	ClientConnectionRequest ClientMessageKind = iota
	ClientDisconnectRequest
	ClientInput
)

// ClientMessage is anything a client can send the server, spanning the
// connectionless, reliable, and unreliable delivery categories.
type ClientMessage struct {
	Kind  ClientMessageKind
	Tick  uint64               // valid only when Kind == ClientInput
	Input model.CharacterInput // valid only when Kind == ClientInput
}

// ServerMessageKind tags the payload of a ServerMessage.
type ServerMessageKind byte

const (
	ServerConnectionConfirm ServerMessageKind = iota
	ServerConnectionClose
	ServerSnapshot
	ServerInputAck
)

// DisconnectReasonKind tags why a connection was closed.
type DisconnectReasonKind byte

const (
	ReasonUserDisconnect DisconnectReasonKind = iota
	ReasonKicked
	ReasonTimedOut
)

// DisconnectReason explains a ConnectionClose to the receiving client.
type DisconnectReason struct {
	Kind    DisconnectReasonKind
	Message string // valid only when Kind == ReasonKicked
}

// Snapshot pairs a tick with the authoritative world model as of that
// tick. Two snapshots at the same tick are incomparable: Rust's
// PartialOrd returns None on equal ticks, so callers must not assume a
// total order across ties.
type Snapshot struct {
	Tick  uint64
	Model *model.Model
}

// Less reports whether s was produced at an earlier tick than other.
// It is undefined (and should not be relied on) when ticks are equal.
func (s Snapshot) Less(other Snapshot) bool {
	return s.Tick < other.Tick
}

// ServerMessage is anything the server can send a client.
type ServerMessage struct {
	Kind ServerMessageKind

	MyPlayerID uint64 // ServerConnectionConfirm

	Reason DisconnectReason // ServerConnectionClose

	Snapshot Snapshot // ServerSnapshot

	InputTick           uint64                // ServerInputAck
	ArrivalTickInstant  ticktime.TickInstant // ServerInputAck
}

// EncodeClientMessage appends msg's bit-stable encoding to bs.
func EncodeClientMessage(bs *BitStream, msg ClientMessage) error {
	bs.WriteByte(byte(msg.Kind))
	switch msg.Kind {
	case ClientConnectionRequest, ClientDisconnectRequest:
	case ClientInput:
		bs.WriteUint64(msg.Tick)
		encodeCharacterInput(bs, msg.Input)
	default:
		return fmt.Errorf("wire: unknown client message kind %d", msg.Kind)
	}
	if len(bs.GetData()) > MaxMessageLength {
		return ErrTooLarge
	}
	return nil
}

// DecodeClientMessage reads a ClientMessage from bs.
func DecodeClientMessage(bs *BitStream) (ClientMessage, error) {
	kindByte, err := bs.ReadByte()
	if err != nil {
		return ClientMessage{}, err
	}
	kind := ClientMessageKind(kindByte)
	switch kind {
	case ClientConnectionRequest, ClientDisconnectRequest:
		return ClientMessage{Kind: kind}, nil
	case ClientInput:
		tick, err := bs.ReadUint64()
		if err != nil {
			return ClientMessage{}, err
		}
		input, err := decodeCharacterInput(bs)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: kind, Tick: tick, Input: input}, nil
	default:
		return ClientMessage{}, fmt.Errorf("wire: unknown client message kind %d", kindByte)
	}
}

// EncodeServerMessage appends msg's bit-stable encoding to bs.
func EncodeServerMessage(bs *BitStream, msg ServerMessage) error {
	bs.WriteByte(byte(msg.Kind))
	switch msg.Kind {
	case ServerConnectionConfirm:
		bs.WriteUint64(msg.MyPlayerID)
	case ServerConnectionClose:
		encodeDisconnectReason(bs, msg.Reason)
	case ServerSnapshot:
		bs.WriteUint64(msg.Snapshot.Tick)
		encodeModel(bs, msg.Snapshot.Model)
	case ServerInputAck:
		bs.WriteUint64(msg.InputTick)
		bs.WriteUint64(msg.ArrivalTickInstant.Tick)
		bs.WriteFloat64(msg.ArrivalTickInstant.IntraTick)
	default:
		return fmt.Errorf("wire: unknown server message kind %d", msg.Kind)
	}
	if len(bs.GetData()) > MaxMessageLength {
		return ErrTooLarge
	}
	return nil
}

// DecodeServerMessage reads a ServerMessage from bs.
func DecodeServerMessage(bs *BitStream) (ServerMessage, error) {
	kindByte, err := bs.ReadByte()
	if err != nil {
		return ServerMessage{}, err
	}
	kind := ServerMessageKind(kindByte)
	switch kind {
	case ServerConnectionConfirm:
		id, err := bs.ReadUint64()
		if err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Kind: kind, MyPlayerID: id}, nil
	case ServerConnectionClose:
		reason, err := decodeDisconnectReason(bs)
		if err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Kind: kind, Reason: reason}, nil
	case ServerSnapshot:
		tick, err := bs.ReadUint64()
		if err != nil {
			return ServerMessage{}, err
		}
		m, err := decodeModel(bs)
		if err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Kind: kind, Snapshot: Snapshot{Tick: tick, Model: m}}, nil
	case ServerInputAck:
		inputTick, err := bs.ReadUint64()
		if err != nil {
			return ServerMessage{}, err
		}
		tick, err := bs.ReadUint64()
		if err != nil {
			return ServerMessage{}, err
		}
		intraTick, err := bs.ReadFloat64()
		if err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{
			Kind:               kind,
			InputTick:          inputTick,
			ArrivalTickInstant: ticktime.TickInstant{Tick: tick, IntraTick: intraTick},
		}, nil
	default:
		return ServerMessage{}, fmt.Errorf("wire: unknown server message kind %d", kindByte)
	}
}

func encodeDisconnectReason(bs *BitStream, r DisconnectReason) {
	bs.WriteByte(byte(r.Kind))
	if r.Kind == ReasonKicked {
		bs.WriteString(r.Message)
	}
}

func decodeDisconnectReason(bs *BitStream) (DisconnectReason, error) {
	kindByte, err := bs.ReadByte()
	if err != nil {
		return DisconnectReason{}, err
	}
	kind := DisconnectReasonKind(kindByte)
	if kind == ReasonKicked {
		msg, err := bs.ReadString()
		if err != nil {
			return DisconnectReason{}, err
		}
		return DisconnectReason{Kind: kind, Message: msg}, nil
	}
	return DisconnectReason{Kind: kind}, nil
}

func encodeCharacterInput(bs *BitStream, in model.CharacterInput) {
	var flags byte
	if in.Forward {
		flags |= 1 << 0
	}
	if in.Backward {
		flags |= 1 << 1
	}
	if in.Right {
		flags |= 1 << 2
	}
	if in.Left {
		flags |= 1 << 3
	}
	if in.Crouch {
		flags |= 1 << 4
	}
	bs.WriteByte(flags)
	bs.WriteUint32(in.NumJumps)
	bs.WriteInt64(in.YawRaw())
	bs.WriteInt64(in.PitchRaw())
}

func decodeCharacterInput(bs *BitStream) (model.CharacterInput, error) {
	flags, err := bs.ReadByte()
	if err != nil {
		return model.CharacterInput{}, err
	}
	numJumps, err := bs.ReadUint32()
	if err != nil {
		return model.CharacterInput{}, err
	}
	yaw, err := bs.ReadInt64()
	if err != nil {
		return model.CharacterInput{}, err
	}
	pitch, err := bs.ReadInt64()
	if err != nil {
		return model.CharacterInput{}, err
	}
	var in model.CharacterInput
	in.Forward = flags&(1<<0) != 0
	in.Backward = flags&(1<<1) != 0
	in.Right = flags&(1<<2) != 0
	in.Left = flags&(1<<3) != 0
	in.Crouch = flags&(1<<4) != 0
	in.NumJumps = numJumps
	in.SetYawPitchRaw(yaw, pitch)
	return in, nil
}

// encodeModel writes a deterministic encoding of the full model: the
// player table and the world's character table, each sorted by id so
// that two equal models always produce byte-identical output. This
// mirrors the source's whole-Model (de)serialization, not just the
// world: a player's name and which character it controls must survive
// the trip for prediction.Engine's replay to route local input.
func encodeModel(bs *BitStream, m *model.Model) {
	characters := m.World().Characters()
	charIDs := make([]uint64, 0, len(characters))
	for id := range characters {
		charIDs = append(charIDs, id)
	}
	sort.Slice(charIDs, func(i, j int) bool { return charIDs[i] < charIDs[j] })

	bs.WriteUint32(uint32(len(charIDs)))
	for _, id := range charIDs {
		c := characters[id]
		bs.WriteUint64(id)
		x, y, z := c.Pos()
		bs.WriteFloat64(x)
		bs.WriteFloat64(y)
		bs.WriteFloat64(z)
		bs.WriteFloat64(c.Yaw())
		bs.WriteFloat64(c.Pitch())
	}

	players := m.Players()
	playerIDs := make([]uint64, 0, len(players))
	for id := range players {
		playerIDs = append(playerIDs, id)
	}
	sort.Slice(playerIDs, func(i, j int) bool { return playerIDs[i] < playerIDs[j] })

	bs.WriteUint32(uint32(len(playerIDs)))
	for _, id := range playerIDs {
		p := players[id]
		bs.WriteUint64(id)
		bs.WriteString(p.Name)
		if characterID := p.CharacterID(); characterID != nil {
			bs.WriteBool(true)
			bs.WriteUint64(*characterID)
		} else {
			bs.WriteBool(false)
		}
	}
	bs.WriteUint64(m.NextPlayerID())
}

// decodeModel reads a model encoded by encodeModel back into a fresh
// model.Model with its player table, world character table, and id
// counters reconstructed exactly as sent.
func decodeModel(bs *BitStream) (*model.Model, error) {
	charCount, err := bs.ReadUint32()
	if err != nil {
		return nil, err
	}
	world := model.NewWorld()
	for i := uint32(0); i < charCount; i++ {
		id, err := bs.ReadUint64()
		if err != nil {
			return nil, err
		}
		x, err := bs.ReadFloat64()
		if err != nil {
			return nil, err
		}
		y, err := bs.ReadFloat64()
		if err != nil {
			return nil, err
		}
		z, err := bs.ReadFloat64()
		if err != nil {
			return nil, err
		}
		yaw, err := bs.ReadFloat64()
		if err != nil {
			return nil, err
		}
		pitch, err := bs.ReadFloat64()
		if err != nil {
			return nil, err
		}
		c := model.NewCharacter()
		c.SetPos(x, y, z)
		c.SetFacing(yaw, pitch)
		world.SpawnCharacterWithID(id, c)
	}

	playerCount, err := bs.ReadUint32()
	if err != nil {
		return nil, err
	}
	players := make(map[uint64]*model.Player, playerCount)
	for i := uint32(0); i < playerCount; i++ {
		id, err := bs.ReadUint64()
		if err != nil {
			return nil, err
		}
		name, err := bs.ReadString()
		if err != nil {
			return nil, err
		}
		hasCharacter, err := bs.ReadBool()
		if err != nil {
			return nil, err
		}
		p := model.NewPlayer(name)
		if hasCharacter {
			characterID, err := bs.ReadUint64()
			if err != nil {
				return nil, err
			}
			p.SetCharacterID(&characterID)
		}
		players[id] = p
	}
	nextPlayerID, err := bs.ReadUint64()
	if err != nil {
		return nil, err
	}

	return model.NewFromParts(players, world, nextPlayerID), nil
}
