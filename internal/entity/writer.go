package entity

import (
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/kode4food/tinydds/closer"
	"github.com/kode4food/tinydds/dds"
)

type writer struct {
	closer.Closer
	id        uuid.UUID
	publisher *publisher
	topic     dds.Topic
	matched   dds.PublicationMatchedStatus
}

func makeWriter(p *publisher, t dds.Topic) *writer {
	res := &writer{
		id:        uuid.New(),
		publisher: p,
		topic:     t,
	}
	res.Closer = makeCloser(nil)
	runtime.SetFinalizer(res, writerDebugFinalizer)

	// The segment or socket persists with the transport; a writer's
	// destruction does not unadvertise the topic
	p.participant.ensureTransport(t.Name(), true)
	return res
}

func writerDebugFinalizer(w *writer) {
	select {
	case <-w.IsClosed():
	default:
		slog.Debug("writer not closed before garbage collection", "id", w.id)
	}
}

// Write forwards one payload into the participant's transport
func (w *writer) Write(data []byte) bool {
	p := w.publisher.participant
	return p.manager.Send(p.domain, w.topic.Name(), data, p.TransportType())
}

func (w *writer) Topic() dds.Topic {
	return w.topic
}

func (w *writer) PublicationMatchedStatus() dds.PublicationMatchedStatus {
	return w.matched
}
