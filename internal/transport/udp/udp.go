// Package udp implements the datagram transport: one non-blocking broadcast
// socket per topic, with the destination port derived deterministically from
// the domain and topic name. Delivery is best-effort, unordered, unreliable
package udp

import (
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kode4food/tinydds/dds"
)

type (
	// Transport maps topic names to datagram sockets for one domain and
	// participant
	Transport struct {
		domain          dds.DomainID
		participantName string
		sockets         map[string]*socketInfo
		mu              sync.Mutex
	}

	// socketInfo records one topic's socket: the descriptor, the derived
	// port, the bind address, and whether this side writes or reads
	socketInfo struct {
		fd       int
		port     int
		address  string
		isWriter bool
	}
)

var broadcastAddr = [4]byte{255, 255, 255, 255}

// New creates a UDP Transport for a domain. No OS work happens until a
// topic is advertised or subscribed
func New(domain dds.DomainID, participantName string) *Transport {
	return &Transport{
		domain:          domain,
		participantName: participantName,
		sockets:         map[string]*socketInfo{},
	}
}

// Kind returns the transport kind
func (*Transport) Kind() dds.TransportKind {
	return dds.TransportUDP
}

// Advertise creates a non-blocking broadcast socket for the topic. The
// socket is not bound; it is used only for sending
func (t *Transport) Advertise(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sockets[topic]; ok {
		return true
	}
	fd, err := openSocket()
	if err != nil {
		slog.Error("failed to create socket", "topic", topic, "error", err)
		return false
	}
	if err := unix.SetsockoptInt(
		fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1,
	); err != nil {
		slog.Error("failed to set socket options",
			"topic", topic, "error", err)
		_ = unix.Close(fd)
		return false
	}
	t.sockets[topic] = &socketInfo{
		fd:       fd,
		port:     DerivePort(t.domain, topic),
		address:  "0.0.0.0",
		isWriter: true,
	}
	return true
}

// Subscribe creates a non-blocking socket bound to the topic's derived port
// on all interfaces
func (t *Transport) Subscribe(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sockets[topic]; ok {
		return true
	}
	fd, err := openSocket()
	if err != nil {
		slog.Error("failed to create socket", "topic", topic, "error", err)
		return false
	}
	port := DerivePort(t.domain, topic)
	sa := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, sa); err != nil {
		slog.Error("failed to bind socket",
			"topic", topic, "port", port, "error", err)
		_ = unix.Close(fd)
		return false
	}
	t.sockets[topic] = &socketInfo{
		fd:      fd,
		port:    port,
		address: "0.0.0.0",
	}
	return true
}

// Send transmits one datagram to the topic's derived port at the broadcast
// address
func (t *Transport) Send(topic string, data []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.sockets[topic]
	if !ok {
		slog.Error("socket not found", "topic", topic)
		return false
	}
	dest := &unix.SockaddrInet4{Port: info.port, Addr: broadcastAddr}
	if err := unix.Sendto(info.fd, data, 0, dest); err != nil {
		slog.Error("failed to send data", "topic", topic, "error", err)
		return false
	}
	return true
}

// Receive issues one non-blocking read into buf. A would-block result
// returns false with no recorded error
func (t *Transport) Receive(topic string, buf []byte) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.sockets[topic]
	if !ok {
		slog.Error("socket not found", "topic", topic)
		return 0, false
	}
	n, _, err := unix.Recvfrom(info.fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, false
		}
		slog.Error("failed to receive data", "topic", topic, "error", err)
		return 0, false
	}
	return n, true
}

// Close closes every socket this transport owns
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for topic, info := range t.sockets {
		if info.fd >= 0 {
			_ = unix.Close(info.fd)
		}
		delete(t.sockets, topic)
	}
}

func openSocket() (int, error) {
	return unix.Socket(
		unix.AF_INET,
		unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC,
		0,
	)
}
