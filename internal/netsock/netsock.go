// Package netsock implements the reliable-over-UDP overlay multiplexing
// connectionless, reliable (in-order exactly-once), and unreliable
// (at-most-once) message delivery over a single datagram endpoint.
//
// Grounded on original_source/shared/src/net/socket.rs's
// ReliableSocket/Connection, translated from Rust generics over a
// Message trait into Go generics parameterized by explicit encode/
// decode functions (protoconst.MaxUnackedMessages and friends supply
// the constants socket.rs imports from consts.rs).
package netsock

import (
	"fmt"
	"net"
	"time"

	"github.com/duskrun-game/netcore/internal/distribution"
	netlog "github.com/duskrun-game/netcore/internal/log"
	"github.com/duskrun-game/netcore/internal/protoconst"
	"github.com/duskrun-game/netcore/internal/transport"
	"github.com/duskrun-game/netcore/internal/wire"
)

var logger = netlog.New("netsock")

// ConID is a dense, process-lifetime-unique connection handle.
type ConID = uint64

// EndReason explains why a connection was torn down.
type EndReason int

const (
	EndTimedOut EndReason = iota
	EndReset
	EndBufferFull
)

func (r EndReason) String() string {
	switch r {
	case EndTimedOut:
		return "timed-out"
	case EndReset:
		return "reset"
	case EndBufferFull:
		return "buffer-full"
	default:
		return "unknown"
	}
}

// EventKind tags the variant of Event populated.
type EventKind int

const (
	EventMessageConless EventKind = iota
	EventMessageConful
	EventDoneDisconnecting
	EventDisconnectingConnectionEnd
	EventConnectionEnd
	EventNetworkError
)

// Event is everything recv_from_until or do_tick can surface to the caller.
type Event[RecvT any] struct {
	Kind EventKind

	// EventMessageConless
	Addr  net.Addr
	ConID *ConID // nil if the sender address is not a known connection
	Msg   RecvT

	// EventMessageConful
	ConfulConID ConID
	Reliable    bool // true if delivered as a Reliable frame, false if Unreliable

	// EventDoneDisconnecting / EventDisconnectingConnectionEnd / EventConnectionEnd
	EndConID ConID
	Reason   EndReason

	// EventNetworkError
	Err error
}

type sentMessage struct {
	id       uint64
	sendTime time.Time
	data     []byte
}

type connection struct {
	addr             net.Addr
	sentMessages     []sentMessage
	ackDistribution  *distribution.OnlineDistribution[distribution.DurationSample]
	nextMsgID        uint64
	myAck            uint64
	myResend         bool
	theirAck         uint64
	theirResend      bool
	lastRecvTime     time.Time
	lastResendTime   *time.Time
	disconnecting    bool
}

// Codec packages the encode/decode pair for one direction's message type.
type Codec[T any] struct {
	Encode func(*wire.BitStream, T) error
	Decode func(*wire.BitStream) (T, error)
}

// ReliableSocket multiplexes connectionless, reliable, and unreliable
// traffic for one side of the protocol (server-facing or
// client-facing), parameterized by the message type it sends (SendT)
// and receives (RecvT).
type ReliableSocket[SendT any, RecvT any] struct {
	nextConnectionID ConID
	connections      map[ConID]*connection
	conIDsByAddr     map[string]ConID

	transport transport.Transport

	nextTickTime                time.Time
	timeoutDuration              time.Duration
	timeoutDurationDisconnecting time.Duration

	sendCodec Codec[SendT]
	recvCodec Codec[RecvT]
}

// New builds a ReliableSocket over the given transport.
func New[SendT any, RecvT any](
	t transport.Transport,
	sendCodec Codec[SendT],
	recvCodec Codec[RecvT],
) *ReliableSocket[SendT, RecvT] {
	return &ReliableSocket[SendT, RecvT]{
		connections:                  make(map[ConID]*connection),
		conIDsByAddr:                 make(map[string]ConID),
		transport:                    t,
		nextTickTime:                 time.Now(),
		timeoutDuration:              protoconst.TimeoutDuration,
		timeoutDurationDisconnecting: protoconst.DisconnectForceTimeout,
		sendCodec:                    sendCodec,
		recvCodec:                    recvCodec,
	}
}

// Connect registers a new connection to addr and returns its id.
func (s *ReliableSocket[SendT, RecvT]) Connect(addr net.Addr) ConID {
	if _, exists := s.conIDsByAddr[addr.String()]; exists {
		logger.Warnf("tried to create connection with address of existing connection %s", addr)
	}
	id := s.nextConnectionID
	s.nextConnectionID++
	s.connections[id] = &connection{
		addr:            addr,
		ackDistribution: distribution.New(distribution.DurationSample(protoconst.InitialAckDurationGuess)),
		lastRecvTime:    time.Now(),
	}
	s.conIDsByAddr[addr.String()] = id
	return id
}

// Disconnect marks a connection as disconnecting; further sends are rejected.
func (s *ReliableSocket[SendT, RecvT]) Disconnect(conID ConID) {
	if con, ok := s.connections[conID]; ok {
		con.disconnecting = true
	} else {
		logger.Warnf("tried to disconnect non-existing connection %d", conID)
	}
}

// Terminate sends a final ack and removes the connection immediately.
func (s *ReliableSocket[SendT, RecvT]) Terminate(conID ConID) {
	con, ok := s.connections[conID]
	if !ok {
		logger.Warnf("tried to terminate non-existing connection %d", conID)
		return
	}
	delete(s.connections, conID)
	delete(s.conIDsByAddr, con.addr.String())
	if err := s.sendAck(con); err != nil {
		logger.Warnf("send ack on terminate: %v", err)
	}
}

// SendConless transmits a header-only-wrapped connectionless message.
func (s *ReliableSocket[SendT, RecvT]) SendConless(addr net.Addr, msg SendT) error {
	bs := wire.NewEmptyBitStream()
	wire.EncodeHeader(bs, wire.Header{Kind: wire.FrameConless})
	if err := s.sendCodec.Encode(bs, msg); err != nil {
		return err
	}
	return s.transport.SendTo(bs.GetData(), addr)
}

// SendReliable enqueues msg for in-order, exactly-once delivery to
// conID. If the connection's unacked queue is full, the connection is
// torn down and an EventConnectionEnd is returned.
func (s *ReliableSocket[SendT, RecvT]) SendReliable(conID ConID, msg SendT) *Event[RecvT] {
	con, ok := s.connections[conID]
	if !ok {
		logger.Warnf("tried to send reliable message without connection %d", conID)
		return nil
	}
	if con.disconnecting {
		logger.Warnf("tried to send message on disconnecting connection %d", conID)
		return nil
	}
	if err := s.sendReliableOnConn(con, msg); err != nil {
		if err == errBufferFull {
			delete(s.connections, conID)
			delete(s.conIDsByAddr, con.addr.String())
			return &Event[RecvT]{Kind: EventConnectionEnd, EndConID: conID, Reason: EndBufferFull}
		}
		logger.Warnf("send reliable to %d: %v", conID, err)
	}
	return nil
}

// SendUnreliable transmits msg at-most-once to conID.
func (s *ReliableSocket[SendT, RecvT]) SendUnreliable(conID ConID, msg SendT) {
	con, ok := s.connections[conID]
	if !ok {
		logger.Warnf("tried to send unreliable message without connection %d", conID)
		return
	}
	if con.disconnecting {
		logger.Warnf("tried to send message on disconnecting connection %d", conID)
		return
	}
	if err := s.sendUnreliableOnConn(con, msg); err != nil {
		logger.Warnf("send unreliable to %d: %v", conID, err)
	}
}

// BroadcastReliable sends msg reliably to every non-disconnecting connection.
func (s *ReliableSocket[SendT, RecvT]) BroadcastReliable(msg SendT) []Event[RecvT] {
	var events []Event[RecvT]
	var toRemove []ConID
	for conID, con := range s.connections {
		if con.disconnecting {
			continue
		}
		if err := s.sendReliableOnConn(con, msg); err != nil {
			if err == errBufferFull {
				toRemove = append(toRemove, conID)
			} else {
				logger.Warnf("broadcast reliable to %d: %v", conID, err)
			}
		}
	}
	for _, conID := range toRemove {
		con := s.connections[conID]
		delete(s.connections, conID)
		delete(s.conIDsByAddr, con.addr.String())
		events = append(events, Event[RecvT]{Kind: EventConnectionEnd, EndConID: conID, Reason: EndBufferFull})
	}
	return events
}

// BroadcastUnreliable sends msg unreliably to every non-disconnecting connection.
func (s *ReliableSocket[SendT, RecvT]) BroadcastUnreliable(msg SendT) {
	for conID, con := range s.connections {
		if con.disconnecting {
			continue
		}
		if err := s.sendUnreliableOnConn(con, msg); err != nil {
			logger.Warnf("broadcast unreliable to %d: %v", conID, err)
		}
	}
}

var errBufferFull = fmt.Errorf("netsock: maximum number of unacked messages reached")

func (s *ReliableSocket[SendT, RecvT]) sendReliableOnConn(con *connection, msg SendT) error {
	if len(con.sentMessages) >= protoconst.MaxUnackedMessages {
		return errBufferFull
	}
	now := time.Now()
	id := con.nextMsgID
	con.nextMsgID++

	bs := wire.NewEmptyBitStream()
	wire.EncodeHeader(bs, wire.Header{
		Kind:   wire.FrameConful,
		Ack:    con.myAck,
		Resend: con.myResend,
		Body:   wire.ConfulBody{Kind: wire.BodyReliable, ID: id},
	})
	con.myResend = false
	headerLen := len(bs.GetData())
	if err := s.sendCodec.Encode(bs, msg); err != nil {
		return err
	}
	payload := append([]byte(nil), bs.GetData()[headerLen:]...)

	if err := s.transport.SendTo(bs.GetData(), con.addr); err != nil {
		return err
	}
	con.sentMessages = append(con.sentMessages, sentMessage{id: id, sendTime: now, data: payload})
	if con.lastResendTime == nil {
		sentAt := now
		con.lastResendTime = &sentAt
	}
	return nil
}

func (s *ReliableSocket[SendT, RecvT]) sendUnreliableOnConn(con *connection, msg SendT) error {
	bs := wire.NewEmptyBitStream()
	wire.EncodeHeader(bs, wire.Header{
		Kind:   wire.FrameConful,
		Ack:    con.myAck,
		Resend: con.myResend,
		Body:   wire.ConfulBody{Kind: wire.BodyUnreliable},
	})
	con.myResend = false
	if err := s.sendCodec.Encode(bs, msg); err != nil {
		return err
	}
	return s.transport.SendTo(bs.GetData(), con.addr)
}

func (s *ReliableSocket[SendT, RecvT]) sendAck(con *connection) error {
	bs := wire.NewEmptyBitStream()
	wire.EncodeHeader(bs, wire.Header{
		Kind:   wire.FrameConful,
		Ack:    con.myAck,
		Resend: con.myResend,
		Body:   wire.ConfulBody{Kind: wire.BodyAck},
	})
	con.myResend = false
	return s.transport.SendTo(bs.GetData(), con.addr)
}

func onAck(con *connection, theirAck uint64, theirResend bool) {
	con.lastRecvTime = time.Now()
	con.theirAck = theirAck
	con.theirResend = theirResend

	for len(con.sentMessages) > 0 {
		front := con.sentMessages[0]
		if front.id >= theirAck {
			break
		}
		con.sentMessages = con.sentMessages[1:]
		con.ackDistribution.AddSample(distribution.DurationSample(time.Since(front.sendTime)), protoconst.NewestAckDurationWeight)
		if len(con.sentMessages) == 0 {
			con.lastResendTime = nil
		}
	}
}

// DoTick runs the per-connection timeout/resend pass. It should be
// called at a fixed cadence of roughly 8.3ms; NextTickTime reports when
// the next call is due.
func (s *ReliableSocket[SendT, RecvT]) DoTick() []Event[RecvT] {
	now := time.Now()
	var events []Event[RecvT]
	var toRemove []ConID

	for conID, con := range s.connections {
		if len(con.sentMessages) > 0 {
			ackSilence := now.Sub(con.sentMessages[0].sendTime)
			timedOut := ackSilence > s.timeoutDuration
			if con.disconnecting {
				timedOut = ackSilence > s.timeoutDurationDisconnecting
			}
			if timedOut {
				toRemove = append(toRemove, conID)
				continue
			}
		}

		resendTimeout := con.ackDistribution.Mean().AsDuration() +
			time.Duration(con.ackDistribution.SigmaDev(protoconst.AckDurationSigmaFactor))
		resend := con.theirResend
		if con.lastResendTime != nil && now.After(con.lastResendTime.Add(resendTimeout)) {
			resend = true
		}
		if resend {
			for _, sent := range con.sentMessages {
				bs := wire.NewEmptyBitStream()
				wire.EncodeHeader(bs, wire.Header{
					Kind:   wire.FrameConful,
					Ack:    con.myAck,
					Resend: con.myResend,
					Body:   wire.ConfulBody{Kind: wire.BodyReliable, ID: sent.id},
				})
				con.myResend = false
				bs.WriteBytes(sent.data)
				if err := s.transport.SendTo(bs.GetData(), con.addr); err != nil {
					events = append(events, Event[RecvT]{Kind: EventNetworkError, Err: err})
				}
			}
			resendNow := now
			con.lastResendTime = &resendNow
			con.theirResend = false
		}
	}

	for _, conID := range toRemove {
		con := s.connections[conID]
		delete(s.connections, conID)
		delete(s.conIDsByAddr, con.addr.String())
		kind := EventConnectionEnd
		if con.disconnecting {
			kind = EventDisconnectingConnectionEnd
		}
		events = append(events, Event[RecvT]{Kind: kind, EndConID: conID, Reason: EndTimedOut})
	}

	s.nextTickTime = now.Add(8333333 * time.Nanosecond)
	return events
}

// NextTickTime reports when DoTick should next run, or false if there
// are no live connections to service.
func (s *ReliableSocket[SendT, RecvT]) NextTickTime() (time.Time, bool) {
	if len(s.connections) == 0 {
		return time.Time{}, false
	}
	return s.nextTickTime, true
}

// RecvFromUntil drains any immediately available datagram, then blocks
// (respecting the transport's read timeout) until `until` for the next
// one. Returns nil if nothing arrived in time.
func (s *ReliableSocket[SendT, RecvT]) RecvFromUntil(until time.Time) *Event[RecvT] {
	if err := s.transport.SetNonblocking(true); err != nil {
		logger.Warnf("set nonblocking: %v", err)
	}
	if ev := s.recvFrom(); ev != nil {
		if err := s.transport.SetNonblocking(false); err != nil {
			logger.Warnf("clear nonblocking: %v", err)
		}
		return ev
	}
	if err := s.transport.SetNonblocking(false); err != nil {
		logger.Warnf("clear nonblocking: %v", err)
	}

	remaining := time.Until(until)
	if remaining <= 0 {
		return nil
	}
	if err := s.transport.SetReadTimeout(remaining); err != nil {
		logger.Warnf("set read timeout: %v", err)
	}
	return s.recvFrom()
}

func (s *ReliableSocket[SendT, RecvT]) recvFrom() *Event[RecvT] {
	buf := make([]byte, wire.MaxMessageLength)
	for {
		n, addr, err := s.transport.RecvFrom(buf)
		if err != nil {
			if err == transport.ErrWouldBlock || err == transport.ErrTimedOut {
				return nil
			}
			return &Event[RecvT]{Kind: EventNetworkError, Err: err}
		}

		bs := wire.NewBitStream(buf[:n])
		header, err := wire.DecodeHeader(bs)
		if err != nil {
			logger.Warnf("malformed header from %v: %v", addr, err)
			continue
		}

		switch header.Kind {
		case wire.FrameConless:
			msg, err := s.recvCodec.Decode(bs)
			if err != nil {
				logger.Warnf("malformed conless message from %v: %v", addr, err)
				continue
			}
			var conID *ConID
			if id, ok := s.conIDsByAddr[addr.String()]; ok {
				conID = &id
			}
			return &Event[RecvT]{Kind: EventMessageConless, Addr: addr, ConID: conID, Msg: msg}

		case wire.FrameConful:
			conID, known := s.conIDsByAddr[addr.String()]
			if !known {
				resetBs := wire.NewEmptyBitStream()
				wire.EncodeHeader(resetBs, wire.Header{Kind: wire.FrameConReset})
				if err := s.transport.SendTo(resetBs.GetData(), addr); err != nil {
					return &Event[RecvT]{Kind: EventNetworkError, Err: err}
				}
				logger.Warnf("received connectionful message from unknown host %v", addr)
				continue
			}
			if ev := s.handleConMessage(conID, header, bs); ev != nil {
				return ev
			}

		case wire.FrameConReset:
			if conID, known := s.conIDsByAddr[addr.String()]; known {
				con := s.connections[conID]
				delete(s.connections, conID)
				delete(s.conIDsByAddr, addr.String())
				kind := EventConnectionEnd
				if con.disconnecting {
					kind = EventDisconnectingConnectionEnd
				}
				return &Event[RecvT]{Kind: kind, EndConID: conID, Reason: EndReset}
			}
		}
	}
}

func (s *ReliableSocket[SendT, RecvT]) handleConMessage(conID ConID, header wire.Header, bs *wire.BitStream) *Event[RecvT] {
	con := s.connections[conID]
	onAck(con, header.Ack, header.Resend)

	if con.disconnecting {
		switch header.Body.Kind {
		case wire.BodyReliable:
			logger.Warnf("received reliable message from disconnecting connection %d", conID)
		case wire.BodyUnreliable:
			logger.Warnf("received unreliable message from disconnecting connection %d", conID)
		}
		if len(con.sentMessages) != 0 {
			return nil
		}
		delete(s.connections, conID)
		delete(s.conIDsByAddr, con.addr.String())
		return &Event[RecvT]{Kind: EventDoneDisconnecting, EndConID: conID}
	}

	switch header.Body.Kind {
	case wire.BodyReliable:
		id := header.Body.ID
		switch {
		case id == con.myAck:
			msg, err := s.recvCodec.Decode(bs)
			if err != nil {
				logger.Warnf("malformed reliable message from %d: %v", conID, err)
				return nil
			}
			con.myAck++
			return &Event[RecvT]{Kind: EventMessageConful, ConfulConID: conID, Reliable: true, Msg: msg}
		case id > con.myAck:
			con.myResend = true
		default:
			// late packet, drop silently
		}
	case wire.BodyUnreliable:
		msg, err := s.recvCodec.Decode(bs)
		if err != nil {
			logger.Warnf("malformed unreliable message from %d: %v", conID, err)
			return nil
		}
		return &Event[RecvT]{Kind: EventMessageConful, ConfulConID: conID, Reliable: false, Msg: msg}
	case wire.BodyAck:
		// ack bookkeeping already ran above
	}
	return nil
}
