// Package wire implements the canonical little-endian, length-prefix-
// free wire codec shared by every frame and message exchanged between
// client and server.
//
// Grounded on source/protocol/raknet.go's BitStream (read/write
// primitives over a growable byte slice), adapted to the message
// taxonomy of original_source/shared/src/net/mod.rs.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxMessageLength is the largest serialized message the protocol
// permits; exceeding it is a fatal protocol error.
const MaxMessageLength = 1024

// ErrTooLarge is returned when an encoded message would exceed MaxMessageLength.
var ErrTooLarge = fmt.Errorf("wire: message exceeds %d bytes", MaxMessageLength)

// BitStream is a cursor over a byte slice supporting the fixed-endian
// primitive reads and writes every wire message is built from.
type BitStream struct {
	data   []byte
	offset int
}

// NewBitStream wraps an existing byte slice for reading.
func NewBitStream(data []byte) *BitStream {
	return &BitStream{data: data}
}

// NewEmptyBitStream returns a BitStream ready for writing.
func NewEmptyBitStream() *BitStream {
	return &BitStream{data: make([]byte, 0, 64)}
}

func (bs *BitStream) ReadByte() (byte, error) {
	if bs.offset >= len(bs.data) {
		return 0, fmt.Errorf("wire: buffer overflow")
	}
	b := bs.data[bs.offset]
	bs.offset++
	return b, nil
}

func (bs *BitStream) ReadBytes(n int) ([]byte, error) {
	if bs.offset+n > len(bs.data) {
		return nil, fmt.Errorf("wire: buffer overflow")
	}
	result := bs.data[bs.offset : bs.offset+n]
	bs.offset += n
	return result, nil
}

func (bs *BitStream) ReadBool() (bool, error) {
	b, err := bs.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (bs *BitStream) ReadUint16() (uint16, error) {
	data, err := bs.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (bs *BitStream) ReadUint32() (uint32, error) {
	data, err := bs.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (bs *BitStream) ReadUint64() (uint64, error) {
	data, err := bs.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (bs *BitStream) ReadInt64() (int64, error) {
	v, err := bs.ReadUint64()
	return int64(v), err
}

func (bs *BitStream) ReadFloat64() (float64, error) {
	v, err := bs.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (bs *BitStream) ReadString() (string, error) {
	length, err := bs.ReadUint16()
	if err != nil {
		return "", err
	}
	data, err := bs.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (bs *BitStream) WriteByte(b byte) {
	bs.data = append(bs.data, b)
}

func (bs *BitStream) WriteBytes(data []byte) {
	bs.data = append(bs.data, data...)
}

func (bs *BitStream) WriteBool(v bool) {
	if v {
		bs.WriteByte(1)
	} else {
		bs.WriteByte(0)
	}
}

func (bs *BitStream) WriteUint16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	bs.data = append(bs.data, buf[:]...)
}

func (bs *BitStream) WriteUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	bs.data = append(bs.data, buf[:]...)
}

func (bs *BitStream) WriteUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	bs.data = append(bs.data, buf[:]...)
}

func (bs *BitStream) WriteInt64(v int64) {
	bs.WriteUint64(uint64(v))
}

func (bs *BitStream) WriteFloat64(v float64) {
	bs.WriteUint64(math.Float64bits(v))
}

func (bs *BitStream) WriteString(s string) {
	bs.WriteUint16(uint16(len(s)))
	bs.data = append(bs.data, s...)
}

// GetData returns the accumulated written bytes.
func (bs *BitStream) GetData() []byte {
	return bs.data
}

// Remaining returns the number of unread bytes.
func (bs *BitStream) Remaining() int {
	return len(bs.data) - bs.offset
}
