// Package entity implements the dispatch graph that binds user-level
// operations to transport calls: participants own topics, publishers, and
// subscribers; writers and readers bind one topic each and forward into the
// process-wide transport manager
package entity

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kode4food/tinydds/dds"
	"github.com/kode4food/tinydds/internal/transport"
	"github.com/kode4food/tinydds/internal/transport/shm"
)

type participant struct {
	domain      dds.DomainID
	name        string
	id          uuid.UUID
	manager     *transport.Manager
	kind        dds.TransportKind
	topics      map[string]*topic
	publishers  []*publisher
	subscribers []*subscriber
	attached    bool
	closeOnce   sync.Once
	closed      chan struct{}
	mu          sync.Mutex
}

// MakeParticipant instantiates a Participant in the given domain, bound to
// the process-wide transport manager. The transport kind defaults to UDP
func MakeParticipant(domain dds.DomainID, name string) dds.Participant {
	return makeParticipant(domain, name, transport.Shared())
}

func makeParticipant(
	domain dds.DomainID, name string, m *transport.Manager,
) *participant {
	return &participant{
		domain:  domain,
		name:    name,
		id:      uuid.New(),
		manager: m,
		kind:    dds.TransportUDP,
		topics:  map[string]*topic{},
		closed:  make(chan struct{}),
	}
}

func (p *participant) DomainID() dds.DomainID {
	return p.domain
}

func (p *participant) Name() string {
	return p.name
}

// SetTransportType selects the transport kind. The kind freezes once the
// participant has created any publisher or subscriber
func (p *participant) SetTransportType(kind dds.TransportKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.publishers) > 0 || len(p.subscribers) > 0 {
		slog.Error("transport type is frozen once children exist",
			"participant", p.name)
		return false
	}
	p.kind = kind
	return true
}

func (p *participant) TransportType() dds.TransportKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kind
}

// CreateTopic returns the named Topic, creating it if needed. Two topics
// with the same name must carry the same type name; a mismatch returns nil
func (p *participant) CreateTopic(name, typeName string) dds.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.topics[name]; ok {
		if t.typeName == typeName {
			return t
		}
		slog.Error("topic already exists with a different type name",
			"topic", name, "type_name", t.typeName, "requested", typeName)
		return nil
	}
	t := &topic{name: name, typeName: typeName}
	p.topics[name] = t
	return t
}

func (p *participant) CreatePublisher() dds.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()

	pub := makePublisher(p)
	p.publishers = append(p.publishers, pub)
	return pub
}

func (p *participant) CreateSubscriber() dds.Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := makeSubscriber(p)
	p.subscribers = append(p.subscribers, sub)
	return sub
}

// Close closes every publisher and subscriber this participant created and
// detaches the participant from its domain transport, releasing the
// transport's OS resources when no other participant remains attached
func (p *participant) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		pubs := p.publishers
		subs := p.subscribers
		p.publishers = nil
		p.subscribers = nil
		attached := p.attached
		p.attached = false
		kind := p.kind
		p.mu.Unlock()

		for _, s := range subs {
			s.Close()
		}
		for _, pub := range pubs {
			pub.Close()
		}
		if attached {
			p.manager.DetachParticipant(p.domain, p.name, kind)
		}
		close(p.closed)
	})
}

func (p *participant) IsClosed() <-chan struct{} {
	return p.closed
}

// ensureTransport runs the manager-side setup shared by writer and reader
// creation: create-or-attach the domain transport, then advertise or
// subscribe the topic
func (p *participant) ensureTransport(
	topicName string, advertise bool,
) bool {
	p.mu.Lock()
	kind := p.kind
	p.attached = true
	p.mu.Unlock()

	ok := p.manager.CreateTransport(
		p.domain, p.name, topicName,
		shm.DefaultBufferSize, shm.DefaultMaxMessageSize, kind,
	)
	if !ok {
		return false
	}
	if advertise {
		return p.manager.Advertise(p.domain, topicName, kind)
	}
	return p.manager.Subscribe(p.domain, topicName, kind)
}
