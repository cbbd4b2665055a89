package entity

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/kode4food/tinydds/closer"
	"github.com/kode4food/tinydds/dds"
	"github.com/kode4food/tinydds/internal/transport/shm"
)

type reader struct {
	closer.Closer
	id         uuid.UUID
	subscriber *subscriber
	topic      dds.Topic
	simpleCB   dds.DataCallback
	routedCB   dds.RoutedDataCallback
	scratch    []byte
	matched    dds.SubscriptionMatchedStatus
	mu         sync.Mutex
}

func makeReader(s *subscriber, t dds.Topic) *reader {
	res := &reader{
		id:         uuid.New(),
		subscriber: s,
		topic:      t,
		scratch:    make([]byte, shm.DefaultMaxMessageSize),
	}
	res.Closer = makeCloser(nil)
	runtime.SetFinalizer(res, readerDebugFinalizer)

	s.participant.ensureTransport(t.Name(), false)
	return res
}

func readerDebugFinalizer(r *reader) {
	select {
	case <-r.IsClosed():
	default:
		slog.Debug("reader not closed before garbage collection", "id", r.id)
	}
}

// Read copies the next available payload into buf, reporting its length or
// -1 when nothing is available. On the shared-memory transport a too-small
// buf yields -1 and leaves the message in place for a retry; on UDP the
// datagram is truncated to len(buf) and consumed
func (r *reader) Read(buf []byte, info *dds.SampleInfo) int {
	p := r.subscriber.participant
	n, ok := p.manager.Receive(
		p.domain, r.topic.Name(), buf, p.TransportType(),
	)
	if !ok {
		return -1
	}
	if info != nil {
		info.ValidData = true
	}
	return n
}

// Take behaves as Read: the transport consumes the frame during Receive,
// so the returned message is never visible to a subsequent call
func (r *reader) Take(buf []byte, info *dds.SampleInfo) int {
	return r.Read(buf, info)
}

// SetDataReceivedCallback installs the simple per-sample callback and
// starts the subscriber's delivery task if it is not yet running
func (r *reader) SetDataReceivedCallback(cb dds.DataCallback) {
	r.mu.Lock()
	r.simpleCB = cb
	r.mu.Unlock()
	if cb != nil && !closer.IsClosed(r.subscriber) {
		r.subscriber.startDispatch()
		r.subscriber.ready.Notify()
	}
}

// SetDataCallback installs the routed per-sample callback and starts the
// subscriber's delivery task if it is not yet running
func (r *reader) SetDataCallback(cb dds.RoutedDataCallback) {
	r.mu.Lock()
	r.routedCB = cb
	r.mu.Unlock()
	if cb != nil && !closer.IsClosed(r.subscriber) {
		r.subscriber.startDispatch()
		r.subscriber.ready.Notify()
	}
}

func (r *reader) Topic() dds.Topic {
	return r.topic
}

func (r *reader) SubscriptionMatchedStatus() dds.SubscriptionMatchedStatus {
	return r.matched
}

// poll drains the reader's transport on behalf of the subscriber's delivery
// task, invoking installed callbacks outside the reader's lock
func (r *reader) poll() {
	r.mu.Lock()
	simple := r.simpleCB
	routed := r.routedCB
	r.mu.Unlock()
	if simple == nil && routed == nil {
		return
	}
	if closer.IsClosed(r) {
		return
	}

	p := r.subscriber.participant
	for {
		n, ok := p.manager.Receive(
			p.domain, r.topic.Name(), r.scratch, p.TransportType(),
		)
		if !ok {
			return
		}
		data := r.scratch[:n]
		if simple != nil {
			simple(data, dds.SampleInfo{ValidData: true})
		}
		if routed != nil {
			routed(p.domain, r.topic.Name(), data)
		}
	}
}
