package tinydds_test

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/tinydds"
	"github.com/kode4food/tinydds/dds"
)

func requireDevShm(t *testing.T) {
	t.Helper()
	if info, err := os.Stat("/dev/shm"); err != nil || !info.IsDir() {
		t.Skip("/dev/shm not available")
	}
}

func uniqueTopic(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, os.Getpid(),
		time.Now().UnixNano())
}

func TestTopicCreationIdempotent(t *testing.T) {
	as := assert.New(t)

	p := tinydds.NewParticipant(93001, "topics")
	defer p.Close()

	first := p.CreateTopic("x", "T1")
	as.NotNil(first)

	second := p.CreateTopic("x", "T1")
	as.Same(first, second)

	as.Nil(p.CreateTopic("x", "T2"))
}

func TestTransportTypeFreeze(t *testing.T) {
	as := assert.New(t)

	p := tinydds.NewParticipant(93002, "freeze")
	defer p.Close()

	as.Equal(dds.TransportUDP, p.TransportType())
	as.True(p.SetTransportType(dds.TransportSharedMemory))
	as.True(p.SetTransportType(dds.TransportUDP))

	p.CreatePublisher()
	as.False(p.SetTransportType(dds.TransportSharedMemory))
	as.Equal(dds.TransportUDP, p.TransportType())
}

func TestTransportTypeFreezeBySubscriber(t *testing.T) {
	as := assert.New(t)

	p := tinydds.NewParticipant(93003, "freeze_sub")
	defer p.Close()

	p.CreateSubscriber()
	as.False(p.SetTransportType(dds.TransportSharedMemory))
}

func TestSharedMemoryRoundTrip(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topicName := uniqueTopic("rt")

	a := tinydds.NewParticipant(42, "A")
	b := tinydds.NewParticipant(42, "B")
	defer a.Close()
	defer b.Close()
	as.True(a.SetTransportType(dds.TransportSharedMemory))
	as.True(b.SetTransportType(dds.TransportSharedMemory))

	topicA := a.CreateTopic(topicName, "u32")
	topicB := b.CreateTopic(topicName, "u32")
	as.NotNil(topicA)
	as.NotNil(topicB)

	writer := a.CreatePublisher().CreateDataWriter(topicA)
	reader := b.CreateSubscriber().CreateDataReader(topicB)

	payload := []byte{0x01, 0x02, 0x03, 0x04}
	as.True(writer.Write(payload))

	buf := make([]byte, 64)
	var info dds.SampleInfo
	n := reader.Read(buf, &info)
	as.Equal(4, n)
	as.Equal(payload, buf[:n])
	as.True(info.ValidData)
}

func TestTakeConsumes(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topicName := uniqueTopic("take")

	p := tinydds.NewParticipant(93004, "taker")
	defer p.Close()
	as.True(p.SetTransportType(dds.TransportSharedMemory))

	topic := p.CreateTopic(topicName, "bytes")
	writer := p.CreatePublisher().CreateDataWriter(topic)
	reader := p.CreateSubscriber().CreateDataReader(topic)

	as.True(writer.Write([]byte("once")))

	buf := make([]byte, 64)
	var info dds.SampleInfo
	as.Equal(4, reader.Take(buf, &info))

	// The taken message is never visible to a subsequent call
	as.Equal(-1, reader.Take(buf, &info))
	as.Equal(-1, reader.Read(buf, &info))
}

func TestReadWithoutData(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	p := tinydds.NewParticipant(93005, "empty")
	defer p.Close()
	as.True(p.SetTransportType(dds.TransportSharedMemory))

	topic := p.CreateTopic(uniqueTopic("empty"), "bytes")
	reader := p.CreateSubscriber().CreateDataReader(topic)

	var info dds.SampleInfo
	as.Equal(-1, reader.Read(make([]byte, 64), &info))
	as.False(info.ValidData)
}

func TestCallbackDelivery(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topicName := uniqueTopic("cb")

	p := tinydds.NewParticipant(93006, "callbacks")
	defer p.Close()
	as.True(p.SetTransportType(dds.TransportSharedMemory))

	topic := p.CreateTopic(topicName, "bytes")
	writer := p.CreatePublisher().CreateDataWriter(topic)
	reader := p.CreateSubscriber().CreateDataReader(topic)

	var mu sync.Mutex
	var simple [][]byte
	var routedDomain dds.DomainID
	var routedTopic string

	reader.SetDataReceivedCallback(
		func(data []byte, info dds.SampleInfo) {
			mu.Lock()
			defer mu.Unlock()
			as.True(info.ValidData)
			simple = append(simple, append([]byte(nil), data...))
		})
	reader.SetDataCallback(
		func(domain dds.DomainID, topic string, _ []byte) {
			mu.Lock()
			defer mu.Unlock()
			routedDomain = domain
			routedTopic = topic
		})

	as.True(writer.Write([]byte("first")))
	as.True(writer.Write([]byte("second")))

	as.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(simple) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	as.Equal([]byte("first"), simple[0])
	as.Equal([]byte("second"), simple[1])
	as.Equal(dds.DomainID(93006), routedDomain)
	as.Equal(topicName, routedTopic)
}

func TestSubscriberCloseStopsDelivery(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topicName := uniqueTopic("stop")

	p := tinydds.NewParticipant(93007, "stopper")
	defer p.Close()
	as.True(p.SetTransportType(dds.TransportSharedMemory))

	topic := p.CreateTopic(topicName, "bytes")
	sub := p.CreateSubscriber()
	reader := sub.CreateDataReader(topic)
	reader.SetDataReceivedCallback(func([]byte, dds.SampleInfo) {})

	done := make(chan struct{})
	go func() {
		sub.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		as.Fail("subscriber close did not terminate the delivery task")
	}
}

func TestDomainIsolation(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topicName := uniqueTopic("iso")

	a := tinydds.NewParticipant(93008, "A")
	b := tinydds.NewParticipant(93009, "B")
	defer a.Close()
	defer b.Close()
	as.True(a.SetTransportType(dds.TransportSharedMemory))
	as.True(b.SetTransportType(dds.TransportSharedMemory))

	writer := a.CreatePublisher().
		CreateDataWriter(a.CreateTopic(topicName, "bytes"))
	reader := b.CreateSubscriber().
		CreateDataReader(b.CreateTopic(topicName, "bytes"))

	as.True(writer.Write([]byte("stay home")))

	// Different domains never exchange data
	var info dds.SampleInfo
	as.Equal(-1, reader.Read(make([]byte, 64), &info))
}

func TestParticipantAccessors(t *testing.T) {
	as := assert.New(t)

	p := tinydds.NewParticipant(93010, "named")
	defer p.Close()

	as.Equal(dds.DomainID(93010), p.DomainID())
	as.Equal("named", p.Name())
}
