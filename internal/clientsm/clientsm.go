// Package clientsm implements the client-side connection state
// machine: Connecting (resending ConnectionRequest) -> Connected
// (driving the prediction engine) -> Disconnecting -> Disconnected.
//
// Grounded on original_source/client/src/server_interface/
// remote_server_interface/mod.rs's RemoteServerInterface.
package clientsm

import (
	"net"
	"time"

	"github.com/duskrun-game/netcore/internal/distribution"
	netlog "github.com/duskrun-game/netcore/internal/log"
	"github.com/duskrun-game/netcore/internal/metrics"
	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/netsock"
	"github.com/duskrun-game/netcore/internal/prediction"
	"github.com/duskrun-game/netcore/internal/protoconst"
	"github.com/duskrun-game/netcore/internal/transport"
	"github.com/duskrun-game/netcore/internal/wire"
)

var logger = netlog.New("clientsm")

// Phase names the top-level state of the connection.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseConnected
	PhaseDisconnecting
	PhaseDisconnected
)

// DisconnectedReasonKind explains why the client ended up Disconnected.
type DisconnectedReasonKind int

const (
	DisconnectedUserDisconnect DisconnectedReasonKind = iota
	DisconnectedKicked
	DisconnectedTimedOut
	DisconnectedNetworkError
)

// DisconnectedReason carries the reason and, for a kick, the server's message.
type DisconnectedReason struct {
	Kind    DisconnectedReasonKind
	Message string
	Err     error
}

// ConnectionState is a snapshot of the client's current phase, handed
// to the caller (e.g. a render loop) each tick.
type ConnectionState struct {
	Phase              Phase
	MyPlayerID         uint64
	Model              *model.Model
	PredictedWorld     *model.World
	DisconnectedReason DisconnectedReason
}

// TrafficResult reports what HandleTraffic observed.
type TrafficResult int

const (
	TrafficInterrupt TrafficResult = iota // an event was handled; caller should re-check timing
	TrafficTimeout                        // nothing arrived before the deadline
)

type clientSocket = netsock.ReliableSocket[wire.ClientMessage, wire.ServerMessage]

// Client is the client side of the reliable protocol: the connection
// lifecycle plus, once connected, the prediction engine.
type Client struct {
	socket     *clientSocket
	serverAddr net.Addr

	phase      Phase
	resendTime time.Time

	conID      netsock.ConID
	myPlayerID uint64
	engine     *prediction.Engine

	sentInputTimes map[uint64]time.Time
	inputArrival   *distribution.OnlineDistribution[distribution.DurationSample]
	metrics        *metrics.Client

	disconnectedReason DisconnectedReason
}

// New creates a client bound to serverAddr over t, starting in the
// Connecting phase. m may be nil, in which case input-ack timing is
// still tracked internally (see InputArrivalJitter) but nothing is
// published and applied snapshots are not counted.
func New(t transport.Transport, serverAddr net.Addr, m *metrics.Client) *Client {
	codec := netsock.Codec[wire.ClientMessage]{Encode: wire.EncodeClientMessage, Decode: wire.DecodeClientMessage}
	recvCodec := netsock.Codec[wire.ServerMessage]{Encode: wire.EncodeServerMessage, Decode: wire.DecodeServerMessage}
	return &Client{
		socket:         netsock.New[wire.ClientMessage, wire.ServerMessage](t, codec, recvCodec),
		serverAddr:     serverAddr,
		phase:          PhaseConnecting,
		resendTime:     time.Now(),
		sentInputTimes: make(map[uint64]time.Time),
		inputArrival:   distribution.New(distribution.DurationSample(protoconst.InitialLagAssumption)),
		metrics:        m,
	}
}

// ConnectionState returns the client's current state for rendering/UI.
func (c *Client) ConnectionState() ConnectionState {
	state := ConnectionState{Phase: c.phase}
	switch c.phase {
	case PhaseConnected:
		state.MyPlayerID = c.myPlayerID
		if c.engine != nil {
			state.Model = c.engine.Model()
			state.PredictedWorld = c.engine.PredictedWorld()
		}
	case PhaseDisconnected:
		state.DisconnectedReason = c.disconnectedReason
	}
	return state
}

// NextTickTime reports when DoTick should next run.
func (c *Client) NextTickTime() (time.Time, bool) {
	switch c.phase {
	case PhaseConnecting:
		return c.resendTime, true
	case PhaseConnected:
		return time.Time{}, false // the caller drives the local game tick cadence directly
	default:
		return time.Time{}, false
	}
}

// DoTick advances the connection by one local tick: resending the
// connection request while Connecting, or running the prediction
// engine once Connected. Either way it first drives the underlying
// socket's own ack-timeout/resend pass, the client-side counterpart of
// gameserver.Server.Run calling the same method every server tick.
func (c *Client) DoTick(characterInput model.CharacterInput) {
	for _, ev := range c.socket.DoTick() {
		c.processEvent(ev)
	}

	switch c.phase {
	case PhaseConnecting:
		c.resendTime = time.Now().Add(protoconst.ConnectionRequestResendInterval)
		if err := c.socket.SendConless(c.serverAddr, wire.ClientMessage{Kind: wire.ClientConnectionRequest}); err != nil {
			logger.Warnf("send connection request: %v", err)
		}
	case PhaseConnected:
		if c.engine != nil {
			c.engine.DoTick(characterInput)
		}
	}
}

// Disconnect initiates a graceful disconnect.
func (c *Client) Disconnect() {
	switch c.phase {
	case PhaseConnecting:
		c.phase = PhaseDisconnected
		c.disconnectedReason = DisconnectedReason{Kind: DisconnectedUserDisconnect}
	case PhaseConnected:
		c.socket.SendReliable(c.conID, wire.ClientMessage{Kind: wire.ClientDisconnectRequest})
		c.socket.Disconnect(c.conID)
		c.phase = PhaseDisconnecting
	}
}

// HandleTraffic processes at most one event, blocking until `until` if
// nothing is immediately available.
func (c *Client) HandleTraffic(until time.Time) TrafficResult {
	ev := c.socket.RecvFromUntil(until)
	if ev == nil {
		return TrafficTimeout
	}
	c.processEvent(*ev)
	return TrafficInterrupt
}

func (c *Client) processEvent(ev netsock.Event[wire.ServerMessage]) {
	switch ev.Kind {
	case netsock.EventMessageConless, netsock.EventMessageConful:
		c.handleMessage(ev)
	case netsock.EventDoneDisconnecting:
		c.phase = PhaseDisconnected
		c.disconnectedReason = DisconnectedReason{Kind: DisconnectedUserDisconnect}
	case netsock.EventDisconnectingConnectionEnd:
		c.phase = PhaseDisconnected
		c.disconnectedReason = DisconnectedReason{Kind: DisconnectedUserDisconnect}
	case netsock.EventConnectionEnd:
		c.phase = PhaseDisconnected
		c.disconnectedReason = DisconnectedReason{Kind: DisconnectedTimedOut}
	case netsock.EventNetworkError:
		c.phase = PhaseDisconnected
		c.disconnectedReason = DisconnectedReason{Kind: DisconnectedNetworkError, Err: ev.Err}
	}
}

func (c *Client) handleMessage(ev netsock.Event[wire.ServerMessage]) {
	if c.phase == PhaseConnected && ev.Kind == netsock.EventMessageConful && ev.Reliable && ev.Msg.Kind == wire.ServerConnectionClose {
		c.socket.Terminate(c.conID)
		c.phase = PhaseDisconnected
		reason := DisconnectedReason{Kind: DisconnectedKicked, Message: "disconnected by server"}
		if ev.Msg.Reason.Kind == wire.ReasonKicked {
			reason.Message = ev.Msg.Reason.Message
		}
		c.disconnectedReason = reason
		return
	}

	switch c.phase {
	case PhaseConnecting:
		if ev.Kind == netsock.EventMessageConless && ev.Msg.Kind == wire.ServerConnectionConfirm {
			c.conID = c.socket.Connect(ev.Addr)
			c.myPlayerID = ev.Msg.MyPlayerID
			c.phase = PhaseConnected
			c.engine = nil // seeded by the first snapshot, below
		}
	case PhaseConnected:
		if ev.Kind != netsock.EventMessageConful {
			return // connectionless traffic once connected: ignored, as in the source
		}
		switch ev.Msg.Kind {
		case wire.ServerSnapshot:
			if c.engine == nil {
				c.engine = prediction.New(c.myPlayerID, ev.Msg.Snapshot, time.Now(), c.sendInput)
			} else {
				c.engine.OnSnapshot(ev.Msg.Snapshot, time.Now())
			}
			if c.metrics != nil {
				c.metrics.SnapshotsApplied.Inc()
			}
		case wire.ServerInputAck:
			c.onInputAck(ev.Msg.InputTick)
		}
	case PhaseDisconnecting, PhaseDisconnected:
		// no-op
	}
}

func (c *Client) sendInput(tick uint64, input model.CharacterInput) {
	c.socket.SendUnreliable(c.conID, wire.ClientMessage{Kind: wire.ClientInput, Tick: tick, Input: input})
	c.sentInputTimes[tick] = time.Now()
	c.pruneOldInputTimes()
}

// onInputAck folds the round trip time for inputTick into the
// input-arrival distribution, keyed by the matching entry recorded in
// sendInput. Exposed via InputArrivalJitter for a caller that wants to
// show connection quality; nothing here feeds it back into the
// prediction engine.
func (c *Client) onInputAck(inputTick uint64) {
	sentAt, ok := c.sentInputTimes[inputTick]
	if !ok {
		return
	}
	delete(c.sentInputTimes, inputTick)
	roundTrip := time.Since(sentAt)
	c.inputArrival.AddSample(distribution.DurationSample(roundTrip), protoconst.NewestStartPredictedTickTimeWeight)
	if c.metrics != nil {
		c.metrics.RoundTripSeconds.Observe(roundTrip.Seconds())
	}
}

func (c *Client) pruneOldInputTimes() {
	cutoff := time.Now().Add(-protoconst.MaxInputKeepTime)
	for tick, sentAt := range c.sentInputTimes {
		if sentAt.Before(cutoff) {
			delete(c.sentInputTimes, tick)
		}
	}
}

// InputArrivalJitter reports the current standard deviation of the
// observed input-ack round trip, scaled by
// protoconst.InputArrivalSigmaFactor, for callers that want to display
// connection quality.
func (c *Client) InputArrivalJitter() time.Duration {
	return time.Duration(c.inputArrival.SigmaDev(protoconst.InputArrivalSigmaFactor))
}
