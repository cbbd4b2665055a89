// Package transport multiplexes transports per domain: one process-wide
// Manager holds a UDP and a shared-memory registry, each keyed by domain
// identifier, and routes entity operations to the right instance
package transport

import (
	"log/slog"
	"sync"

	"github.com/kode4food/tinydds/dds"
	"github.com/kode4food/tinydds/internal/transport/shm"
	"github.com/kode4food/tinydds/internal/transport/udp"
)

type (
	// Transport is the operation set every transport kind provides. The
	// payload is opaque; the routing key is the topic name alone
	Transport interface {
		Kind() dds.TransportKind
		Advertise(topic string) bool
		Subscribe(topic string) bool
		Send(topic string, data []byte) bool
		Receive(topic string, buf []byte) (int, bool)
		Close()
	}

	// Manager is the per-process transport registry. Lookups release the
	// manager's lock before invoking into the located transport, which
	// holds its own
	Manager struct {
		udp          map[dds.DomainID]*domainTransport
		sharedMemory map[dds.DomainID]*domainTransport
		mu           sync.Mutex
	}

	// domainTransport pairs a transport with the names of participants
	// attached to it; OS resources are released when the last detaches
	domainTransport struct {
		transport    Transport
		participants map[string]struct{}
	}
)

var (
	managerOnce sync.Once
	manager     *Manager
)

// Shared returns the process-wide Manager, constructing it on first access.
// All OS work is deferred to method bodies
func Shared() *Manager {
	managerOnce.Do(func() {
		manager = NewManager()
	})
	return manager
}

// NewManager creates an empty Manager. Most callers want Shared; separate
// instances exist for tests
func NewManager() *Manager {
	return &Manager{
		udp:          map[dds.DomainID]*domainTransport{},
		sharedMemory: map[dds.DomainID]*domainTransport{},
	}
}

// CreateTransport ensures a transport of the given kind exists for the
// domain and attaches the participant to it. Creating an existing transport
// is idempotent
func (m *Manager) CreateTransport(
	domain dds.DomainID, participantName, _ string,
	bufferSize, maxMessageSize uint32, kind dds.TransportKind,
) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg := m.registry(kind)
	if reg == nil {
		slog.Error("unsupported transport type", "kind", kind)
		return false
	}
	dt, ok := reg[domain]
	if !ok {
		var t Transport
		switch kind {
		case dds.TransportUDP:
			t = udp.New(domain, participantName)
		case dds.TransportSharedMemory:
			t = shm.New(
				domain, participantName, bufferSize, maxMessageSize,
			)
		}
		dt = &domainTransport{
			transport:    t,
			participants: map[string]struct{}{},
		}
		reg[domain] = dt
	}
	dt.participants[participantName] = struct{}{}
	return true
}

// DetachParticipant removes a participant's claim on the domain transport,
// closing the transport's OS resources once no participants remain
func (m *Manager) DetachParticipant(
	domain dds.DomainID, participantName string, kind dds.TransportKind,
) {
	m.mu.Lock()
	reg := m.registry(kind)
	var doomed Transport
	if dt, ok := reg[domain]; ok {
		delete(dt.participants, participantName)
		if len(dt.participants) == 0 {
			doomed = dt.transport
			delete(reg, domain)
		}
	}
	m.mu.Unlock()

	if doomed != nil {
		doomed.Close()
	}
}

// Advertise forwards to the domain's transport of the given kind
func (m *Manager) Advertise(
	domain dds.DomainID, topic string, kind dds.TransportKind,
) bool {
	t := m.lookup(domain, kind)
	if t == nil {
		return false
	}
	return t.Advertise(topic)
}

// Subscribe forwards to the domain's transport of the given kind
func (m *Manager) Subscribe(
	domain dds.DomainID, topic string, kind dds.TransportKind,
) bool {
	t := m.lookup(domain, kind)
	if t == nil {
		return false
	}
	return t.Subscribe(topic)
}

// Send forwards to the domain's transport of the given kind
func (m *Manager) Send(
	domain dds.DomainID, topic string, data []byte, kind dds.TransportKind,
) bool {
	t := m.lookup(domain, kind)
	if t == nil {
		return false
	}
	return t.Send(topic, data)
}

// Receive forwards to the domain's transport of the given kind
func (m *Manager) Receive(
	domain dds.DomainID, topic string, buf []byte, kind dds.TransportKind,
) (int, bool) {
	t := m.lookup(domain, kind)
	if t == nil {
		return 0, false
	}
	return t.Receive(topic, buf)
}

// Shutdown closes every transport the Manager holds and empties both
// registries
func (m *Manager) Shutdown() {
	m.mu.Lock()
	var doomed []Transport
	for domain, dt := range m.udp {
		doomed = append(doomed, dt.transport)
		delete(m.udp, domain)
	}
	for domain, dt := range m.sharedMemory {
		doomed = append(doomed, dt.transport)
		delete(m.sharedMemory, domain)
	}
	m.mu.Unlock()

	for _, t := range doomed {
		t.Close()
	}
}

func (m *Manager) lookup(
	domain dds.DomainID, kind dds.TransportKind,
) Transport {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg := m.registry(kind)
	if reg == nil {
		slog.Error("unsupported transport type", "kind", kind)
		return nil
	}
	dt, ok := reg[domain]
	if !ok {
		slog.Error("transport not found", "domain", domain, "kind", kind)
		return nil
	}
	return dt.transport
}

func (m *Manager) registry(
	kind dds.TransportKind,
) map[dds.DomainID]*domainTransport {
	switch kind {
	case dds.TransportUDP:
		return m.udp
	case dds.TransportSharedMemory:
		return m.sharedMemory
	default:
		return nil
	}
}
