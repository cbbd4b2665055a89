package entity

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kode4food/tinydds/closer"
	"github.com/kode4food/tinydds/dds"
)

type publisher struct {
	closer.Closer
	id          uuid.UUID
	participant *participant
	writers     map[string]*writer
	mu          sync.Mutex
}

func makePublisher(p *participant) *publisher {
	res := &publisher{
		id:          uuid.New(),
		participant: p,
		writers:     map[string]*writer{},
	}
	res.Closer = makeCloser(func() {
		res.mu.Lock()
		writers := res.writers
		res.writers = map[string]*writer{}
		res.mu.Unlock()
		for _, w := range writers {
			w.Close()
		}
	})
	return res
}

// CreateDataWriter creates a writer bound to the given topic, keyed by
// topic name. Creation advertises the topic on the participant's transport
func (p *publisher) CreateDataWriter(t dds.Topic) dds.DataWriter {
	w := makeWriter(p, t)
	p.mu.Lock()
	p.writers[t.Name()] = w
	p.mu.Unlock()
	return w
}
