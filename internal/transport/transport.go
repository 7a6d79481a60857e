// Package transport abstracts the raw datagram send/receive surface so
// the reliable socket above it can run identically over a real UDP
// connection or a deterministic in-memory stand-in during tests.
//
// The UDP implementation follows source/server/server.go's
// net.ListenUDP usage and its fmt.Errorf("...: %w", err) wrapping idiom.
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrWouldBlock is returned by RecvFrom when SetNonblocking(true) is in
// effect and no datagram is currently available.
var ErrWouldBlock = errors.New("transport: would block")

// ErrTimedOut is returned by RecvFrom when a read deadline set via
// SetReadTimeout elapses before a datagram arrives.
var ErrTimedOut = errors.New("transport: timed out")

// Transport is the datagram capability the reliable socket is built
// on. Every error other than ErrWouldBlock/ErrTimedOut is fatal for
// the containing socket.
type Transport interface {
	SendTo(b []byte, addr net.Addr) error
	RecvFrom(buf []byte) (n int, addr net.Addr, err error)
	SetNonblocking(bool) error
	SetReadTimeout(d time.Duration) error
}

// UDPTransport wraps a net.UDPConn. When remote is non-nil the
// transport is a client bound to a single peer: SendTo ignores its addr
// argument and always targets remote, and RecvFrom reports remote as
// the sender. When remote is nil the
// transport is a server and carries full peer addresses on every call.
type UDPTransport struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

// NewServerUDPTransport binds a listening UDP socket carrying full peer
// addresses on every send/receive.
func NewServerUDPTransport(addr *net.UDPAddr) (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to bind UDP socket: %w", err)
	}
	return &UDPTransport{conn: conn}, nil
}

// NewClientUDPTransport connects to a single remote server.
func NewClientUDPTransport(remote *net.UDPAddr) (*UDPTransport, error) {
	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to connect UDP socket: %w", err)
	}
	return &UDPTransport{conn: conn, remote: remote}, nil
}

func (t *UDPTransport) SendTo(b []byte, addr net.Addr) error {
	var err error
	if t.remote != nil {
		_, err = t.conn.Write(b)
	} else {
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			return fmt.Errorf("transport: addr is not a *net.UDPAddr: %v", addr)
		}
		_, err = t.conn.WriteToUDP(b, udpAddr)
	}
	if err != nil {
		return fmt.Errorf("transport: send failed: %w", err)
	}
	return nil
}

func (t *UDPTransport) RecvFrom(buf []byte) (int, net.Addr, error) {
	n, addr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil, ErrTimedOut
		}
		return 0, nil, fmt.Errorf("transport: recv failed: %w", err)
	}
	if t.remote != nil {
		addr = t.remote
	}
	return n, addr, nil
}

func (t *UDPTransport) SetNonblocking(nonblocking bool) error {
	if nonblocking {
		return t.conn.SetReadDeadline(time.Now().Add(time.Microsecond))
	}
	return t.conn.SetReadDeadline(time.Time{})
}

func (t *UDPTransport) SetReadTimeout(d time.Duration) error {
	return t.conn.SetReadDeadline(time.Now().Add(d))
}

// Close releases the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
