package wire

import (
	"testing"

	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/ticktime"
)

func TestHeaderRoundTripConless(t *testing.T) {
	bs := NewEmptyBitStream()
	EncodeHeader(bs, Header{Kind: FrameConless})
	got, err := DecodeHeader(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got.Kind != FrameConless {
		t.Errorf("Kind = %v, want FrameConless", got.Kind)
	}
}

func TestHeaderRoundTripConful(t *testing.T) {
	h := Header{
		Kind:   FrameConful,
		Ack:    42,
		Resend: true,
		Body:   ConfulBody{Kind: BodyReliable, ID: 7},
	}
	bs := NewEmptyBitStream()
	EncodeHeader(bs, h)
	got, err := DecodeHeader(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Errorf("DecodeHeader = %+v, want %+v", got, h)
	}
}

func TestHeaderRoundTripConReset(t *testing.T) {
	bs := NewEmptyBitStream()
	EncodeHeader(bs, Header{Kind: FrameConReset})
	got, err := DecodeHeader(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got.Kind != FrameConReset {
		t.Errorf("Kind = %v, want FrameConReset", got.Kind)
	}
}

func TestClientMessageRoundTripInput(t *testing.T) {
	var in model.CharacterInput
	in.Forward = true
	in.Crouch = true
	in.NumJumps = 7
	in.AddYaw(1.25)
	msg := ClientMessage{Kind: ClientInput, Tick: 99, Input: in}

	bs := NewEmptyBitStream()
	if err := EncodeClientMessage(bs, msg); err != nil {
		t.Fatalf("EncodeClientMessage: %v", err)
	}
	got, err := DecodeClientMessage(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	if got.Tick != msg.Tick || got.Input.Forward != in.Forward || got.Input.Yaw() != in.Yaw() {
		t.Errorf("DecodeClientMessage = %+v, want tick=%d forward=%v yaw=%v", got, msg.Tick, in.Forward, in.Yaw())
	}
	if got.Input.Crouch != in.Crouch || got.Input.NumJumps != in.NumJumps {
		t.Errorf("DecodeClientMessage crouch/numJumps = %v/%d, want %v/%d", got.Input.Crouch, got.Input.NumJumps, in.Crouch, in.NumJumps)
	}
}

func TestServerMessageRoundTripConnectionConfirm(t *testing.T) {
	msg := ServerMessage{Kind: ServerConnectionConfirm, MyPlayerID: 5}
	bs := NewEmptyBitStream()
	if err := EncodeServerMessage(bs, msg); err != nil {
		t.Fatalf("EncodeServerMessage: %v", err)
	}
	got, err := DecodeServerMessage(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeServerMessage: %v", err)
	}
	if got.MyPlayerID != 5 {
		t.Errorf("MyPlayerID = %d, want 5", got.MyPlayerID)
	}
}

func TestServerMessageRoundTripConnectionCloseKicked(t *testing.T) {
	msg := ServerMessage{
		Kind:   ServerConnectionClose,
		Reason: DisconnectReason{Kind: ReasonKicked, Message: "too slow"},
	}
	bs := NewEmptyBitStream()
	if err := EncodeServerMessage(bs, msg); err != nil {
		t.Fatalf("EncodeServerMessage: %v", err)
	}
	got, err := DecodeServerMessage(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeServerMessage: %v", err)
	}
	if got.Reason.Kind != ReasonKicked || got.Reason.Message != "too slow" {
		t.Errorf("Reason = %+v, want Kicked(\"too slow\")", got.Reason)
	}
}

func TestServerMessageRoundTripInputAck(t *testing.T) {
	msg := ServerMessage{
		Kind:               ServerInputAck,
		InputTick:          10,
		ArrivalTickInstant: ticktime.TickInstant{Tick: 11, IntraTick: 0.75},
	}
	bs := NewEmptyBitStream()
	if err := EncodeServerMessage(bs, msg); err != nil {
		t.Fatalf("EncodeServerMessage: %v", err)
	}
	got, err := DecodeServerMessage(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeServerMessage: %v", err)
	}
	if got.InputTick != 10 || got.ArrivalTickInstant.Tick != 11 || got.ArrivalTickInstant.IntraTick != 0.75 {
		t.Errorf("DecodeServerMessage = %+v, want InputTick=10 Tick=11 IntraTick=0.75", got)
	}
}

func TestServerMessageRoundTripSnapshot(t *testing.T) {
	m := model.New()
	id := m.AddPlayer("alice")
	p, _ := m.Player(id)
	c, _ := m.World().Character(*p.CharacterID())
	c.SetPos(1.5, -2.25, 0.7)
	c.SetFacing(0.3, -0.1)

	msg := ServerMessage{Kind: ServerSnapshot, Snapshot: Snapshot{Tick: 123, Model: m}}
	bs := NewEmptyBitStream()
	if err := EncodeServerMessage(bs, msg); err != nil {
		t.Fatalf("EncodeServerMessage: %v", err)
	}
	got, err := DecodeServerMessage(NewBitStream(bs.GetData()))
	if err != nil {
		t.Fatalf("DecodeServerMessage: %v", err)
	}
	if got.Snapshot.Tick != 123 {
		t.Fatalf("Tick = %d, want 123", got.Snapshot.Tick)
	}
	characters := got.Snapshot.Model.World().Characters()
	if len(characters) != 1 {
		t.Fatalf("decoded %d characters, want 1", len(characters))
	}
	for _, dc := range characters {
		x, y, z := dc.Pos()
		if x != 1.5 || y != -2.25 || z != 0.7 {
			t.Errorf("decoded pos = (%v,%v,%v), want (1.5,-2.25,0.7)", x, y, z)
		}
	}

	dp, ok := got.Snapshot.Model.Player(id)
	if !ok {
		t.Fatalf("decoded model is missing player %d", id)
	}
	if dp.Name != "alice" {
		t.Errorf("decoded player name = %q, want %q", dp.Name, "alice")
	}
	if dp.CharacterID() == nil || *dp.CharacterID() != *p.CharacterID() {
		t.Errorf("decoded player character id = %v, want %v", dp.CharacterID(), p.CharacterID())
	}
	if got.Snapshot.Model.NextPlayerID() != m.NextPlayerID() {
		t.Errorf("decoded NextPlayerID = %d, want %d", got.Snapshot.Model.NextPlayerID(), m.NextPlayerID())
	}
}

func TestEncodeTooLargeMessageFails(t *testing.T) {
	msg := ServerMessage{
		Kind:   ServerConnectionClose,
		Reason: DisconnectReason{Kind: ReasonKicked, Message: string(make([]byte, MaxMessageLength))},
	}
	bs := NewEmptyBitStream()
	if err := EncodeServerMessage(bs, msg); err != ErrTooLarge {
		t.Errorf("EncodeServerMessage error = %v, want ErrTooLarge", err)
	}
}
