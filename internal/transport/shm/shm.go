package shm

import (
	"log/slog"
	"sync"

	"github.com/kode4food/tinydds/dds"
)

type (
	// Transport maps topic names to shared-memory segments for one domain
	// and participant. A coarse mutex serializes access from threads in
	// the same process; across processes the ring's atomic indices carry
	// the ordering
	Transport struct {
		domain          dds.DomainID
		participantName string
		bufferSize      uint32
		maxMessageSize  uint32
		segments        map[string]*segment
		mu              sync.Mutex
	}
)

// Default segment sizing used when a writer or reader is created without
// explicit transport configuration
const (
	DefaultBufferSize     = 1024 * 1024
	DefaultMaxMessageSize = 64 * 1024
)

// New creates a shared-memory Transport for a domain. No OS work happens
// until a topic is advertised or subscribed
func New(
	domain dds.DomainID, participantName string,
	bufferSize, maxMessageSize uint32,
) *Transport {
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	}
	if maxMessageSize == 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return &Transport{
		domain:          domain,
		participantName: participantName,
		bufferSize:      bufferSize,
		maxMessageSize:  maxMessageSize,
		segments:        map[string]*segment{},
	}
}

// Kind returns the transport kind
func (*Transport) Kind() dds.TransportKind {
	return dds.TransportSharedMemory
}

// Advertise creates or opens the topic's segment and initializes its ring
// header. Advertising an already-known topic succeeds
func (t *Transport) Advertise(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.segments[topic]; ok {
		return true
	}
	seg, err := openSegment(SegmentName(t.domain, topic), t.bufferSize)
	if err != nil {
		slog.Error("failed to create shared memory segment",
			"topic", topic, "error", err)
		return false
	}
	seg.created = true
	seg.ring().init(t.bufferSize, t.maxMessageSize)
	t.segments[topic] = seg
	return true
}

// Subscribe creates or opens the topic's segment without reinitializing the
// ring header; zero-filled fresh memory is a valid empty ring
func (t *Transport) Subscribe(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.segments[topic]; ok {
		return true
	}
	seg, err := openSegment(SegmentName(t.domain, topic), t.bufferSize)
	if err != nil {
		slog.Error("failed to open shared memory segment",
			"topic", topic, "error", err)
		return false
	}
	t.segments[topic] = seg
	return true
}

// Send frames data into the topic's ring. It fails when the topic is
// unknown, the frame exceeds the maximum message size, or the ring is full
func (t *Transport) Send(topic string, data []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	seg, ok := t.segments[topic]
	if !ok {
		slog.Error("topic not found", "transport", "shm", "topic", topic)
		return false
	}
	switch seg.ring().send(topic, t.participantName, data) {
	case sendTooLarge:
		slog.Error("message exceeds maximum allowed size",
			"topic", topic, "size", len(data))
		return false
	case sendNoSpace:
		slog.Warn("not enough space in ring buffer", "topic", topic)
		return false
	default:
		return true
	}
}

// Receive copies the next frame for the topic into buf, reporting the
// payload length. It returns false without advancing the ring when buf is
// smaller than the waiting payload, preserving the message for a retry
func (t *Transport) Receive(topic string, buf []byte) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seg, ok := t.segments[topic]
	if !ok {
		slog.Error("topic not found", "transport", "shm", "topic", topic)
		return 0, false
	}
	n, res := seg.ring().receive(topic, buf)
	switch res {
	case recvOK:
		return n, true
	case recvCorrupt:
		slog.Error("invalid message header in ring buffer", "topic", topic)
		return 0, false
	case recvBufferTooSmall:
		slog.Warn("buffer too small to receive message", "topic", topic)
		return 0, false
	default:
		return 0, false
	}
}

// Close unmaps every segment and unlinks the ones this transport created
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for topic, seg := range t.segments {
		seg.close()
		delete(t.segments, topic)
	}
}
