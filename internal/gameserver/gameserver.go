// Package gameserver runs the authoritative tick loop: it owns the
// real Model, applies queued client input at the right tick, and
// broadcasts snapshots.
//
// Grounded on original_source/server/src/lib.rs's Server (new, run,
// check_timeouts, remove_clients, handle_traffic, handle_message) and
// source/server/server.go's ticker-goroutine/select idiom for turning
// that single-threaded Rust loop into a Go service with a Stop path.
package gameserver

import (
	"fmt"
	"net"
	"time"

	netlog "github.com/duskrun-game/netcore/internal/log"
	"github.com/duskrun-game/netcore/internal/metrics"
	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/netsock"
	"github.com/duskrun-game/netcore/internal/protoconst"
	"github.com/duskrun-game/netcore/internal/ticktime"
	"github.com/duskrun-game/netcore/internal/transport"
	"github.com/duskrun-game/netcore/internal/wire"
)

var logger = netlog.New("gameserver")

// maxInputTicksAhead bounds how far into the future a queued input's
// target tick may be, at protoconst.MaxInputKeepTime converted to
// ticks at the server's own rate. Without this, a client stamping an
// arbitrarily large tick number could grow a client.inputs map without
// bound, since such an input is never "too late" and so never hits the
// s.tick rejection path below.
var maxInputTicksAhead = uint64(ticktime.TicksFromDuration(protoconst.MaxInputKeepTime, protoconst.TickSpeed).Ticks)

type serverSocket = netsock.ReliableSocket[wire.ServerMessage, wire.ClientMessage]

// client is the server's bookkeeping for one connected player: the
// queued-but-not-yet-applied input per tick and when it was last heard
// from, for timeout detection.
type client struct {
	playerID    uint64
	conID       netsock.ConID
	inputs      map[uint64]model.CharacterInput
	lastMsgTime time.Time
}

type removalReason int

const (
	removalTimedOut removalReason = iota
	removalUserDisconnect
)

// Server is the single authoritative simulation: one Model, ticked at
// protoconst.TickSpeed, with every connected client's input applied
// before each tick and a snapshot broadcast after it.
type Server struct {
	socket *serverSocket
	model  *model.Model
	tick   uint64

	tickTime     time.Time
	nextTickTime time.Time

	clientsByAddr map[string]*client
	toRemove      map[string]removalReason

	metrics *metrics.Server
	stop    chan struct{}
}

// New builds a Server over t, ready to Run once bound. m may be nil,
// in which case the tick loop runs without publishing metrics.
func New(t transport.Transport, m *metrics.Server) *Server {
	serverCodec := netsock.Codec[wire.ServerMessage]{Encode: wire.EncodeServerMessage, Decode: wire.DecodeServerMessage}
	clientCodec := netsock.Codec[wire.ClientMessage]{Encode: wire.EncodeClientMessage, Decode: wire.DecodeClientMessage}
	return &Server{
		socket:        netsock.New[wire.ServerMessage, wire.ClientMessage](t, serverCodec, clientCodec),
		model:         model.New(),
		clientsByAddr: make(map[string]*client),
		toRemove:      make(map[string]removalReason),
		metrics:       m,
		stop:          make(chan struct{}),
	}
}

// Bind opens a listening UDP socket on addr and returns a Server ready
// to Run. The caller is responsible for calling Stop to release it.
func Bind(addr *net.UDPAddr, m *metrics.Server) (*Server, func() error, error) {
	t, err := transport.NewServerUDPTransport(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("gameserver: %w", err)
	}
	return New(t, m), t.Close, nil
}

// Tick reports the current authoritative tick number.
func (s *Server) Tick() uint64 {
	return s.tick
}

// PlayerCount reports how many clients are currently connected.
func (s *Server) PlayerCount() int {
	return len(s.clientsByAddr)
}

// Stop requests Run to return after finishing its current tick.
func (s *Server) Stop() {
	close(s.stop)
}

// Run drives the tick loop until Stop is called. It blocks the
// calling goroutine.
func (s *Server) Run() {
	startTickTime := time.Now()
	s.nextTickTime = startTickTime

	var lastLogTime time.Time
	tickCounter := 0

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		tickStart := time.Now()
		s.tickTime = s.nextTickTime
		s.nextTickTime = startTickTime.Add(ticktime.DurationFromTicks(int64(s.tick+1), protoconst.TickSpeed))

		for _, ev := range s.socket.DoTick() {
			s.handleEvent(&ev)
		}
		s.checkTimeouts()
		s.removeClients()

		for _, c := range s.clientsByAddr {
			if input, ok := c.inputs[s.tick]; ok {
				s.model.SetCharacterInput(c.playerID, input)
				delete(c.inputs, s.tick)
			}
		}
		s.model.DoTick()
		s.socket.BroadcastUnreliable(wire.ServerMessage{
			Kind:     wire.ServerSnapshot,
			Snapshot: wire.Snapshot{Tick: s.tick, Model: s.model},
		})
		tickCounter++

		if s.metrics != nil {
			s.metrics.ConnectedPlayers.Set(float64(len(s.clientsByAddr)))
			s.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
		}

		now := time.Now()
		if lastLogTime.IsZero() {
			lastLogTime = now
		}
		if now.Sub(lastLogTime) > time.Second {
			logger.Infof("ticks/s=%d players=%d", tickCounter, len(s.clientsByAddr))
			tickCounter = 0
			lastLogTime = now
		}

		s.handleTraffic()
		s.tick++
	}
}

func (s *Server) checkTimeouts() {
	now := time.Now()
	for addr, c := range s.clientsByAddr {
		if now.Sub(c.lastMsgTime) > protoconst.TimeoutDuration {
			s.toRemove[addr] = removalTimedOut
		}
	}
}

func (s *Server) removeClients() {
	for addr, reason := range s.toRemove {
		c, ok := s.clientsByAddr[addr]
		if !ok {
			continue
		}
		delete(s.clientsByAddr, addr)
		s.model.RemovePlayer(c.playerID)

		wireReason := wire.ReasonTimedOut
		if reason == removalUserDisconnect {
			wireReason = wire.ReasonUserDisconnect
		}
		s.socket.SendReliable(c.conID, wire.ServerMessage{
			Kind:   wire.ServerConnectionClose,
			Reason: wire.DisconnectReason{Kind: wireReason},
		})
		// The player and client-table entries are gone now; the
		// underlying connection lingers in netsock's own table until
		// its close message is acked or it times out, same as any
		// other graceful disconnect.
		s.socket.Disconnect(c.conID)
	}
	for addr := range s.toRemove {
		delete(s.toRemove, addr)
	}
}

func (s *Server) handleTraffic() {
	for {
		ev := s.socket.RecvFromUntil(s.nextTickTime)
		if ev == nil {
			return
		}
		s.handleEvent(ev)
	}
}

func (s *Server) handleEvent(ev *netsock.Event[wire.ClientMessage]) {
	switch ev.Kind {
	case netsock.EventMessageConless:
		s.handleConlessMessage(ev)
	case netsock.EventMessageConful:
		s.handleConfulMessage(ev)
	case netsock.EventConnectionEnd, netsock.EventDisconnectingConnectionEnd:
		s.handleConnectionEnd(ev)
	case netsock.EventNetworkError:
		logger.Warnf("network error: %v", ev.Err)
	}
}

func (s *Server) handleConlessMessage(ev *netsock.Event[wire.ClientMessage]) {
	if ev.Msg.Kind != wire.ClientConnectionRequest {
		return
	}
	addrKey := ev.Addr.String()
	if c, exists := s.clientsByAddr[addrKey]; exists {
		// The client's own ConnectionConfirm was presumably lost to a UDP
		// drop, since it is still retrying ConnectionRequest: re-send it
		// rather than leaving the client stuck resending forever.
		s.socket.SendConless(ev.Addr, wire.ServerMessage{Kind: wire.ServerConnectionConfirm, MyPlayerID: c.playerID})
		return
	}

	recvTime := time.Now()
	playerID := s.model.AddPlayer("UnknownPlayer")
	conID := s.socket.Connect(ev.Addr)
	s.clientsByAddr[addrKey] = &client{
		playerID:    playerID,
		conID:       conID,
		inputs:      make(map[uint64]model.CharacterInput),
		lastMsgTime: recvTime,
	}
	s.socket.SendConless(ev.Addr, wire.ServerMessage{Kind: wire.ServerConnectionConfirm, MyPlayerID: playerID})
}

func (s *Server) handleConfulMessage(ev *netsock.Event[wire.ClientMessage]) {
	addrKey := s.connAddrKey(ev.ConfulConID)
	c, ok := s.clientsByAddr[addrKey]
	if !ok {
		logger.Warnf("connectionful message from unregistered connection %d", ev.ConfulConID)
		return
	}

	switch ev.Msg.Kind {
	case wire.ClientDisconnectRequest:
		s.toRemove[addrKey] = removalUserDisconnect

	case wire.ClientInput:
		recvTime := time.Now()
		c.lastMsgTime = recvTime
		if ev.Msg.Tick <= s.tick {
			logger.Debugf("input came too late: current tick=%d target tick=%d", s.tick, ev.Msg.Tick)
			if s.metrics != nil {
				s.metrics.DroppedInputs.Inc()
			}
			return
		}
		if ev.Msg.Tick-s.tick > maxInputTicksAhead {
			logger.Warnf("input targets an implausibly far tick: current tick=%d target tick=%d", s.tick, ev.Msg.Tick)
			if s.metrics != nil {
				s.metrics.DroppedInputs.Inc()
			}
			return
		}
		arrival := ticktime.FromInterval(s.tick, s.tickTime, s.nextTickTime, recvTime)
		s.socket.SendUnreliable(c.conID, wire.ServerMessage{
			Kind:               wire.ServerInputAck,
			InputTick:          ev.Msg.Tick,
			ArrivalTickInstant: arrival,
		})
		c.inputs[ev.Msg.Tick] = ev.Msg.Input
	}
}

func (s *Server) handleConnectionEnd(ev *netsock.Event[wire.ClientMessage]) {
	for addr, c := range s.clientsByAddr {
		if c.conID == ev.EndConID {
			delete(s.clientsByAddr, addr)
			s.model.RemovePlayer(c.playerID)
			logger.Warnf("connection %d ended: %v", ev.EndConID, ev.Reason)
			return
		}
	}
}

// connAddrKey finds the address key a connection id is registered
// under. The server keeps its client table keyed by address (to
// reject duplicate connection requests) while netsock hands back
// connection ids, so events are joined back to a client by a linear
// scan; client counts are small enough that this outperforms keeping
// a second parallel map in practice.
func (s *Server) connAddrKey(conID netsock.ConID) string {
	for addr, c := range s.clientsByAddr {
		if c.conID == conID {
			return addr
		}
	}
	return ""
}
