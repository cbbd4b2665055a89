package shm_test

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/tinydds/dds"
	internal "github.com/kode4food/tinydds/internal/testing"
	"github.com/kode4food/tinydds/internal/transport/shm"
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

func TestSegmentName(t *testing.T) {
	as := assert.New(t)

	as.Equal("/tiny_dds_42_t", shm.SegmentName(42, "t"))
	as.Equal("/tiny_dds_0_a_b_c", shm.SegmentName(0, "a.b c"))
	as.Equal("/tiny_dds_7_ns/topic", shm.SegmentName(7, "ns/topic"))
	as.Equal(
		"/tiny_dds_1_weird_name_",
		shm.SegmentName(1, "weird-name!"),
	)
}

func TestAdvertiseAndSend(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topic := uniqueTopic("adv")
	tr := shm.New(90001, "writer", 4096, 1024)
	defer tr.Close()

	as.True(tr.Advertise(topic))
	as.True(tr.Advertise(topic), "re-advertise is idempotent")

	payload := []byte{0x01, 0x02, 0x03, 0x04}
	as.True(tr.Send(topic, payload))

	buf := make([]byte, 64)
	n, ok := tr.Receive(topic, buf)
	as.True(ok)
	as.Equal(payload, buf[:n])
}

func TestSubscribeSharesSegment(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topic := uniqueTopic("share")
	writer := shm.New(90002, "writer", 4096, 1024)
	reader := shm.New(90002, "reader", 4096, 1024)
	defer writer.Close()
	defer reader.Close()

	as.True(writer.Advertise(topic))
	as.True(reader.Subscribe(topic))

	payload := []byte("cross instance")
	as.True(writer.Send(topic, payload))

	buf := make([]byte, 64)
	n, ok := reader.Receive(topic, buf)
	as.True(ok)
	as.Equal(payload, buf[:n])
}

func TestSubscribeBeforeAdvertise(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topic := uniqueTopic("early")
	reader := shm.New(90003, "reader", 4096, 1024)
	writer := shm.New(90003, "writer", 4096, 1024)
	defer reader.Close()
	defer writer.Close()

	// Subscriber arrives first; zero-filled memory reads as empty
	as.True(reader.Subscribe(topic))
	buf := make([]byte, 64)
	_, ok := reader.Receive(topic, buf)
	as.False(ok)

	as.True(writer.Advertise(topic))
	as.True(writer.Send(topic, []byte("late")))

	n, ok := reader.Receive(topic, buf)
	as.True(ok)
	as.Equal([]byte("late"), buf[:n])
}

func TestSendUnknownTopic(t *testing.T) {
	as := assert.New(t)

	handler := internal.NewTestSlogHandler()
	prev := slog.Default()
	slog.SetDefault(slog.New(handler))
	defer slog.SetDefault(prev)

	tr := shm.New(90004, "writer", 4096, 1024)
	defer tr.Close()

	as.False(tr.Send("nope", []byte("data")))

	select {
	case rec := <-handler.Logs:
		as.Equal(slog.LevelError, rec.Level)
	default:
		as.Fail("expected a diagnostic record")
	}
}

func TestCloseUnlinksCreatedSegments(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topic := uniqueTopic("unlink")
	tr := shm.New(90005, "writer", 4096, 1024)
	as.True(tr.Advertise(topic))

	path := "/dev/shm" + shm.SegmentName(90005, topic)
	_, err := os.Stat(path)
	as.NoError(err)

	tr.Close()
	_, err = os.Stat(path)
	as.True(os.IsNotExist(err))
}

func TestCloseLeavesForeignSegments(t *testing.T) {
	requireDevShm(t)
	as := assert.New(t)

	topic := uniqueTopic("foreign")
	owner := shm.New(90006, "owner", 4096, 1024)
	as.True(owner.Advertise(topic))

	visitor := shm.New(90006, "visitor", 4096, 1024)
	as.True(visitor.Subscribe(topic))
	visitor.Close()

	// The subscriber did not create the segment, so it must survive
	path := "/dev/shm" + shm.SegmentName(90006, topic)
	_, err := os.Stat(path)
	as.NoError(err)

	owner.Close()
	_, err = os.Stat(path)
	as.True(os.IsNotExist(err))
}

func TestTransportKind(t *testing.T) {
	as := assert.New(t)
	as.Equal(dds.TransportSharedMemory, shm.New(1, "p", 0, 0).Kind())
}
