package clientsm

import (
	"testing"
	"time"

	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/netsock"
	"github.com/duskrun-game/netcore/internal/transport"
	"github.com/duskrun-game/netcore/internal/wire"
)

type memAddrForTest string

func (a memAddrForTest) Network() string { return "mem" }
func (a memAddrForTest) String() string  { return string(a) }

func newTestPair(t *testing.T) (*Client, *netsock.ReliableSocket[wire.ServerMessage, wire.ClientMessage]) {
	t.Helper()
	net := transport.NewInMemoryNetwork()
	clientTransport := transport.NewInMemoryTransport("client", net)
	serverTransport := transport.NewInMemoryTransport("server", net)

	client := New(clientTransport, memAddrForTest("server"), nil)
	serverCodec := netsock.Codec[wire.ServerMessage]{Encode: wire.EncodeServerMessage, Decode: wire.DecodeServerMessage}
	clientCodec := netsock.Codec[wire.ClientMessage]{Encode: wire.EncodeClientMessage, Decode: wire.DecodeClientMessage}
	server := netsock.New[wire.ServerMessage, wire.ClientMessage](serverTransport, serverCodec, clientCodec)
	return client, server
}

func TestConnectingResendsConnectionRequest(t *testing.T) {
	client, server := newTestPair(t)

	client.DoTick(model.CharacterInput{})

	ev := server.RecvFromUntil(time.Now().Add(200 * time.Millisecond))
	if ev == nil || ev.Kind != netsock.EventMessageConless {
		t.Fatalf("server did not see the connection request, got %+v", ev)
	}
	if ev.Msg.Kind != wire.ClientConnectionRequest {
		t.Errorf("Msg.Kind = %v, want ClientConnectionRequest", ev.Msg.Kind)
	}
	if client.ConnectionState().Phase != PhaseConnecting {
		t.Errorf("Phase = %v, want PhaseConnecting", client.ConnectionState().Phase)
	}
}

func TestConnectionConfirmTransitionsToConnected(t *testing.T) {
	client, server := newTestPair(t)

	client.DoTick(model.CharacterInput{})
	ev := server.RecvFromUntil(time.Now().Add(200 * time.Millisecond))
	if ev == nil {
		t.Fatalf("server did not receive connection request")
	}

	_ = server.Connect(ev.Addr)
	// ConnectionConfirm is delivered connectionlessly, before the client
	// has registered the server in its connection table.
	server.SendConless(ev.Addr, wire.ServerMessage{Kind: wire.ServerConnectionConfirm, MyPlayerID: 3})

	result := client.HandleTraffic(time.Now().Add(200 * time.Millisecond))
	if result != TrafficInterrupt {
		t.Fatalf("HandleTraffic result = %v, want TrafficInterrupt", result)
	}

	state := client.ConnectionState()
	if state.Phase != PhaseConnected {
		t.Fatalf("Phase = %v, want PhaseConnected", state.Phase)
	}
	if state.MyPlayerID != 3 {
		t.Errorf("MyPlayerID = %d, want 3", state.MyPlayerID)
	}
}

func TestSnapshotSeedsEngineOnceConnected(t *testing.T) {
	client, server := newTestPair(t)

	client.DoTick(model.CharacterInput{})
	reqEv := server.RecvFromUntil(time.Now().Add(200 * time.Millisecond))
	if reqEv == nil {
		t.Fatalf("server did not receive connection request")
	}
	serverConID := server.Connect(reqEv.Addr)
	server.SendConless(reqEv.Addr, wire.ServerMessage{Kind: wire.ServerConnectionConfirm, MyPlayerID: 9})
	if client.HandleTraffic(time.Now().Add(200*time.Millisecond)) != TrafficInterrupt {
		t.Fatalf("expected connection confirm to be handled")
	}

	m := model.New()
	m.AddPlayer("alice")
	server.SendReliable(serverConID, wire.ServerMessage{Kind: wire.ServerSnapshot, Snapshot: wire.Snapshot{Tick: 5, Model: m}})

	if client.HandleTraffic(time.Now().Add(200*time.Millisecond)) != TrafficInterrupt {
		t.Fatalf("expected snapshot to be handled")
	}

	if client.engine == nil {
		t.Fatalf("expected prediction engine to be seeded by the first snapshot")
	}
	if client.engine.Tick() != 5 {
		t.Errorf("engine tick = %d, want 5", client.engine.Tick())
	}
}

func TestDisconnectFromConnectingIsImmediate(t *testing.T) {
	client, _ := newTestPair(t)
	client.Disconnect()
	state := client.ConnectionState()
	if state.Phase != PhaseDisconnected {
		t.Fatalf("Phase = %v, want PhaseDisconnected", state.Phase)
	}
	if state.DisconnectedReason.Kind != DisconnectedUserDisconnect {
		t.Errorf("DisconnectedReason.Kind = %v, want DisconnectedUserDisconnect", state.DisconnectedReason.Kind)
	}
}

func TestKickedWhileConnectedCarriesMessage(t *testing.T) {
	client, server := newTestPair(t)

	client.DoTick(model.CharacterInput{})
	reqEv := server.RecvFromUntil(time.Now().Add(200 * time.Millisecond))
	if reqEv == nil {
		t.Fatalf("server did not receive connection request")
	}
	serverConID := server.Connect(reqEv.Addr)
	server.SendConless(reqEv.Addr, wire.ServerMessage{Kind: wire.ServerConnectionConfirm, MyPlayerID: 1})
	if client.HandleTraffic(time.Now().Add(200*time.Millisecond)) != TrafficInterrupt {
		t.Fatalf("expected connection confirm to be handled")
	}

	server.SendReliable(serverConID, wire.ServerMessage{
		Kind:   wire.ServerConnectionClose,
		Reason: wire.DisconnectReason{Kind: wire.ReasonKicked, Message: "griefing"},
	})
	if client.HandleTraffic(time.Now().Add(200*time.Millisecond)) != TrafficInterrupt {
		t.Fatalf("expected connection close to be handled")
	}

	state := client.ConnectionState()
	if state.Phase != PhaseDisconnected {
		t.Fatalf("Phase = %v, want PhaseDisconnected", state.Phase)
	}
	if state.DisconnectedReason.Kind != DisconnectedKicked || state.DisconnectedReason.Message != "griefing" {
		t.Errorf("DisconnectedReason = %+v, want Kicked(\"griefing\")", state.DisconnectedReason)
	}
}
