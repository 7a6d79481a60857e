package transport

import (
	"testing"
	"time"
)

func TestInMemoryTransportSendRecv(t *testing.T) {
	net := NewInMemoryNetwork()
	a := NewInMemoryTransport("a", net)
	b := NewInMemoryTransport("b", net)

	if err := a.SendTo([]byte("hello"), b.Addr()); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	buf := make([]byte, 64)
	if err := b.SetReadTimeout(100 * time.Millisecond); err != nil {
		t.Fatalf("SetReadTimeout: %v", err)
	}
	n, from, err := b.RecvFrom(buf)
	if err != nil {
		t.Fatalf("RecvFrom: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("got %q, want %q", buf[:n], "hello")
	}
	if from.String() != a.Addr().String() {
		t.Errorf("from = %v, want %v", from, a.Addr())
	}
}

func TestInMemoryTransportNonblockingWouldBlock(t *testing.T) {
	net := NewInMemoryNetwork()
	a := NewInMemoryTransport("a", net)
	if err := a.SetNonblocking(true); err != nil {
		t.Fatalf("SetNonblocking: %v", err)
	}
	buf := make([]byte, 64)
	_, _, err := a.RecvFrom(buf)
	if err != ErrWouldBlock {
		t.Errorf("RecvFrom error = %v, want ErrWouldBlock", err)
	}
}

func TestInMemoryTransportUnknownPeerDropsSilently(t *testing.T) {
	net := NewInMemoryNetwork()
	a := NewInMemoryTransport("a", net)
	if err := a.SendTo([]byte("x"), memAddr("ghost")); err != nil {
		t.Errorf("SendTo to unknown peer should not error, got %v", err)
	}
}

func TestInMemoryTransportReadTimeout(t *testing.T) {
	net := NewInMemoryNetwork()
	a := NewInMemoryTransport("a", net)
	if err := a.SetReadTimeout(10 * time.Millisecond); err != nil {
		t.Fatalf("SetReadTimeout: %v", err)
	}
	buf := make([]byte, 64)
	_, _, err := a.RecvFrom(buf)
	if err != ErrTimedOut {
		t.Errorf("RecvFrom error = %v, want ErrTimedOut", err)
	}
}
