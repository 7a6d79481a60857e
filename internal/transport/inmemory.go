package transport

import (
	"net"
	"sync"
	"time"
)

// memAddr is a string-keyed stand-in for net.Addr used by InMemoryTransport.
type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

type memDatagram struct {
	payload []byte
	from    net.Addr
}

// InMemoryNetwork is a shared address book that InMemoryTransports
// register themselves into, so sends can resolve a peer name to its
// inbox without any real socket.
type InMemoryNetwork struct {
	mu    sync.Mutex
	peers map[string]*InMemoryTransport
}

// NewInMemoryNetwork returns an empty address book.
func NewInMemoryNetwork() *InMemoryNetwork {
	return &InMemoryNetwork{peers: make(map[string]*InMemoryTransport)}
}

// InMemoryTransport is a deterministic Transport backed by a Go
// channel, used to drive the reliable socket's tests without a real
// network.
type InMemoryTransport struct {
	self    net.Addr
	inbox   chan memDatagram
	net     *InMemoryNetwork
	timeout time.Duration
	block   bool
}

// NewInMemoryTransport creates a transport addressed by name and
// registers it into the shared network.
func NewInMemoryTransport(name string, network *InMemoryNetwork) *InMemoryTransport {
	t := &InMemoryTransport{
		self:  memAddr(name),
		inbox: make(chan memDatagram, 256),
		net:   network,
	}
	network.mu.Lock()
	network.peers[name] = t
	network.mu.Unlock()
	return t
}

// Addr returns this transport's address.
func (t *InMemoryTransport) Addr() net.Addr {
	return t.self
}

func (t *InMemoryTransport) SendTo(b []byte, addr net.Addr) error {
	cp := make([]byte, len(b))
	copy(cp, b)

	t.net.mu.Lock()
	dest, ok := t.net.peers[addr.String()]
	t.net.mu.Unlock()
	if !ok {
		return nil // unknown peer: datagram silently lost, as on a real network
	}
	select {
	case dest.inbox <- memDatagram{payload: cp, from: t.self}:
	default:
		// inbox full: drop, matching UDP's no-delivery-guarantee semantics
	}
	return nil
}

func (t *InMemoryTransport) RecvFrom(buf []byte) (int, net.Addr, error) {
	if t.block {
		select {
		case dg := <-t.inbox:
			n := copy(buf, dg.payload)
			return n, dg.from, nil
		case <-time.After(t.timeout):
			return 0, nil, ErrTimedOut
		}
	}
	select {
	case dg := <-t.inbox:
		n := copy(buf, dg.payload)
		return n, dg.from, nil
	default:
		return 0, nil, ErrWouldBlock
	}
}

func (t *InMemoryTransport) SetNonblocking(nonblocking bool) error {
	t.block = !nonblocking
	return nil
}

func (t *InMemoryTransport) SetReadTimeout(d time.Duration) error {
	t.timeout = d
	t.block = true
	return nil
}
