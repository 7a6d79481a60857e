package wire

import "fmt"

// FrameKind tags the outermost header variant of every datagram.
type FrameKind byte

const (
	FrameConless FrameKind = iota
	FrameConful
	FrameConReset
)

// ConfulBodyKind tags the payload carried by a Conful frame.
type ConfulBodyKind byte

const (
	BodyReliable ConfulBodyKind = iota
	BodyUnreliable
	BodyAck
)

// ConfulBody is the tagged union of what a Conful frame carries beyond
// its ack bookkeeping: a reliable message with an id, an unreliable
// message, or a bare ack with no payload of its own.
type ConfulBody struct {
	Kind ConfulBodyKind
	ID   uint64 // valid only when Kind == BodyReliable
}

// Header is the frame header preceding every datagram's payload.
type Header struct {
	Kind FrameKind

	// The following are only meaningful when Kind == FrameConful.
	Ack    uint64
	Resend bool
	Body   ConfulBody
}

// EncodeHeader appends the header's bit-stable encoding to bs.
func EncodeHeader(bs *BitStream, h Header) {
	bs.WriteByte(byte(h.Kind))
	switch h.Kind {
	case FrameConless, FrameConReset:
		// no additional fields
	case FrameConful:
		bs.WriteUint64(h.Ack)
		bs.WriteBool(h.Resend)
		bs.WriteByte(byte(h.Body.Kind))
		if h.Body.Kind == BodyReliable {
			bs.WriteUint64(h.Body.ID)
		}
	}
}

// DecodeHeader reads a header from bs.
func DecodeHeader(bs *BitStream) (Header, error) {
	kindByte, err := bs.ReadByte()
	if err != nil {
		return Header{}, err
	}
	kind := FrameKind(kindByte)

	var h Header
	h.Kind = kind
	switch kind {
	case FrameConless, FrameConReset:
		return h, nil
	case FrameConful:
		ack, err := bs.ReadUint64()
		if err != nil {
			return Header{}, err
		}
		resend, err := bs.ReadBool()
		if err != nil {
			return Header{}, err
		}
		bodyKindByte, err := bs.ReadByte()
		if err != nil {
			return Header{}, err
		}
		bodyKind := ConfulBodyKind(bodyKindByte)
		body := ConfulBody{Kind: bodyKind}
		if bodyKind == BodyReliable {
			id, err := bs.ReadUint64()
			if err != nil {
				return Header{}, err
			}
			body.ID = id
		}
		h.Ack = ack
		h.Resend = resend
		h.Body = body
		return h, nil
	default:
		return Header{}, fmt.Errorf("wire: unknown frame kind %d", kindByte)
	}
}
