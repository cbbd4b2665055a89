package shm

import (
	"encoding/binary"
	"sync/atomic"
	"time"
	"unsafe"
)

type (
	// ring is a view over a mapped segment: a ring header holding the
	// atomic producer and consumer indices followed by the payload area.
	// One producer and one consumer per topic; the acquire/release pair on
	// the indices is what makes frame bytes written before the index store
	// visible to the other process after the index load
	ring struct {
		mem []byte
	}

	// messageHeader precedes every frame in the payload area
	messageHeader struct {
		magic      uint32
		sequence   uint32
		size       uint32
		checksum   uint32
		timestamp  uint64
		topicName  string
		senderName string
	}
)

const (
	// frameMagic identifies a well-formed frame header
	frameMagic = 0x44445348

	// padMagic marks the remainder of the payload area as padding; the
	// next frame starts at offset zero
	padMagic = 0x44445350

	// ring header layout: write_index, read_index, buffer_size,
	// max_message_size, each a u32
	ringHeaderSize = 16

	offWriteIndex     = 0
	offReadIndex      = 4
	offBufferSize     = 8
	offMaxMessageSize = 12

	// message header layout: four u32 fields, a u64 timestamp, then two
	// 64-byte NUL-terminated name fields
	messageHeaderSize = 152

	nameFieldSize = 64
)

func (r *ring) writeIndexPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[offWriteIndex]))
}

func (r *ring) readIndexPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[offReadIndex]))
}

func (r *ring) bufferSize() uint32 {
	return binary.LittleEndian.Uint32(r.mem[offBufferSize:])
}

func (r *ring) maxMessageSize() uint32 {
	return binary.LittleEndian.Uint32(r.mem[offMaxMessageSize:])
}

// init stamps the ring header for a fresh segment. Only the advertising
// side initializes; subscribers rely on zero-filled memory being a valid
// empty ring
func (r *ring) init(bufferSize, maxMessageSize uint32) {
	atomic.StoreUint32(r.writeIndexPtr(), 0)
	atomic.StoreUint32(r.readIndexPtr(), 0)
	binary.LittleEndian.PutUint32(r.mem[offBufferSize:], bufferSize)
	binary.LittleEndian.PutUint32(r.mem[offMaxMessageSize:], maxMessageSize)
}

func (r *ring) data() []byte {
	return r.mem[ringHeaderSize:]
}

// send appends one frame. It fails when the frame would exceed the ring's
// maximum message size or when too little space remains between producer
// and consumer. Frames never cross the physical end of the payload area:
// when one would, the writer stamps a pad marker, skips to offset zero, and
// accounts for the skipped bytes in the space check
func (r *ring) send(topic, sender string, payload []byte) sendResult {
	size := r.bufferSize()
	if size == 0 {
		return sendNoSpace
	}
	frameSize := uint32(messageHeaderSize + len(payload))
	if frameSize > r.maxMessageSize() {
		return sendTooLarge
	}

	w := atomic.LoadUint32(r.writeIndexPtr())
	rd := atomic.LoadUint32(r.readIndexPtr())

	// The indices are modular u32 counters; the unsigned difference is
	// the number of bytes in flight even across wrap
	used := w - rd
	available := size - used

	pos := w % size
	var pad uint32
	if pos+frameSize > size {
		pad = size - pos
	}
	if available <= pad+frameSize {
		return sendNoSpace
	}

	data := r.data()
	if pad > 0 {
		if pad >= 4 {
			binary.LittleEndian.PutUint32(data[pos:], padMagic)
		}
		w += pad
		pos = 0
	}

	hdr := messageHeader{
		magic:      frameMagic,
		sequence:   w,
		size:       uint32(len(payload)),
		timestamp:  uint64(time.Now().UnixMilli()),
		topicName:  topic,
		senderName: sender,
	}
	hdr.marshal(data[pos : pos+messageHeaderSize])
	copy(data[pos+messageHeaderSize:], payload)

	atomic.StoreUint32(r.writeIndexPtr(), w+frameSize)
	return sendOK
}

// receive copies the next frame's payload into buf. A too-small buf leaves
// the read index untouched so that a retry with a larger buffer returns the
// same payload. Corrupt headers are skipped defensively
func (r *ring) receive(topic string, buf []byte) (int, recvResult) {
	rd := atomic.LoadUint32(r.readIndexPtr())
	w := atomic.LoadUint32(r.writeIndexPtr())
	if rd == w {
		return 0, recvNoData
	}

	size := r.bufferSize()
	if size == 0 {
		return 0, recvNoData
	}
	pos := rd % size
	data := r.data()

	// Padding: either no header fits before the physical end, or the
	// writer stamped a pad marker there
	rem := size - pos
	if rem < messageHeaderSize ||
		binary.LittleEndian.Uint32(data[pos:]) == padMagic {
		atomic.StoreUint32(r.readIndexPtr(), rd+rem)
		return 0, recvSkipped
	}

	var hdr messageHeader
	hdr.unmarshal(data[pos : pos+messageHeaderSize])

	if hdr.magic != frameMagic {
		// Corrupt relative to this reader's view; skip the header
		atomic.StoreUint32(r.readIndexPtr(), rd+messageHeaderSize)
		return 0, recvCorrupt
	}
	if hdr.topicName != topic {
		// A frame for another subscriber of this segment
		atomic.StoreUint32(
			r.readIndexPtr(), rd+messageHeaderSize+hdr.size,
		)
		return 0, recvSkipped
	}
	if uint32(len(buf)) < hdr.size {
		return 0, recvBufferTooSmall
	}

	copy(buf, data[pos+messageHeaderSize:pos+messageHeaderSize+hdr.size])
	atomic.StoreUint32(r.readIndexPtr(), rd+messageHeaderSize+hdr.size)
	return int(hdr.size), recvOK
}

type (
	sendResult int
	recvResult int
)

const (
	sendOK sendResult = iota
	sendTooLarge
	sendNoSpace
)

const (
	recvOK recvResult = iota
	recvNoData
	recvSkipped
	recvCorrupt
	recvBufferTooSmall
)

func (h *messageHeader) marshal(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], h.magic)
	binary.LittleEndian.PutUint32(b[4:], h.sequence)
	binary.LittleEndian.PutUint32(b[8:], h.size)
	binary.LittleEndian.PutUint32(b[12:], h.checksum)
	binary.LittleEndian.PutUint64(b[16:], h.timestamp)
	putName(b[24:24+nameFieldSize], h.topicName)
	putName(b[24+nameFieldSize:24+2*nameFieldSize], h.senderName)
}

func (h *messageHeader) unmarshal(b []byte) {
	h.magic = binary.LittleEndian.Uint32(b[0:])
	h.sequence = binary.LittleEndian.Uint32(b[4:])
	h.size = binary.LittleEndian.Uint32(b[8:])
	h.checksum = binary.LittleEndian.Uint32(b[12:])
	h.timestamp = binary.LittleEndian.Uint64(b[16:])
	h.topicName = getName(b[24 : 24+nameFieldSize])
	h.senderName = getName(b[24+nameFieldSize : 24+2*nameFieldSize])
}

// putName copies a NUL-terminated name into a fixed field, truncating to
// leave room for the terminator
func putName(field []byte, name string) {
	n := copy(field[:len(field)-1], name)
	for i := n; i < len(field); i++ {
		field[i] = 0
	}
}

func getName(field []byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}
