package entity

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kode4food/tinydds/closer"
	"github.com/kode4food/tinydds/dds"
	"github.com/kode4food/tinydds/internal/sync/channel"
)

type subscriber struct {
	closer.Closer
	id          uuid.UUID
	participant *participant
	readers     map[string]*reader
	ready       *channel.ReadyWait
	loopOnce    sync.Once
	loopStarted bool
	done        chan struct{}
	mu          sync.Mutex
}

// pollInterval is the delivery task's cadence between transport polls
const pollInterval = 10 * time.Millisecond

func makeSubscriber(p *participant) *subscriber {
	res := &subscriber{
		id:          uuid.New(),
		participant: p,
		readers:     map[string]*reader{},
		ready:       channel.MakeReadyWait(),
		done:        make(chan struct{}),
	}
	res.Closer = makeCloser(func() {
		res.mu.Lock()
		started := res.loopStarted
		readers := res.readers
		res.readers = map[string]*reader{}
		res.mu.Unlock()

		// Readers and their callback state are released only after the
		// delivery task has observed termination
		if started {
			<-res.done
		}
		res.ready.Close()
		for _, r := range readers {
			r.Close()
		}
	})
	return res
}

// CreateDataReader creates a reader bound to the given topic, keyed by
// topic name. Creation subscribes the topic on the participant's transport
func (s *subscriber) CreateDataReader(t dds.Topic) dds.DataReader {
	r := makeReader(s, t)
	s.mu.Lock()
	s.readers[t.Name()] = r
	s.mu.Unlock()
	return r
}

// startDispatch launches the subscriber's delivery task. It is invoked
// lazily, when the first callback is installed on one of its readers
func (s *subscriber) startDispatch() {
	s.loopOnce.Do(func() {
		s.mu.Lock()
		s.loopStarted = true
		s.mu.Unlock()
		go s.dispatchLoop()
	})
}

// dispatchLoop polls every owned reader at the poll cadence, waking early
// when a callback is installed. Callbacks run synchronously here, outside
// any lock held on the subscriber or its readers
func (s *subscriber) dispatchLoop() {
	defer close(s.done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.IsClosed():
			return
		case <-ticker.C:
		case <-s.ready.Wait():
		}
		for _, r := range s.snapshotReaders() {
			r.poll()
		}
	}
}

func (s *subscriber) snapshotReaders() []*reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]*reader, 0, len(s.readers))
	for _, r := range s.readers {
		res = append(res, r)
	}
	return res
}
