// Package shm implements the shared-memory transport: one single-producer
// ring buffer per topic, backed by an OS-named shared memory object visible
// to other processes within the same domain
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/kode4food/tinydds/dds"
)

type (
	// segment is a mapped shared-memory object holding one ring buffer
	segment struct {
		name    string
		mem     []byte
		created bool
	}
)

const (
	segmentNamePrefix = "/tiny_dds_"

	// shmDir is where POSIX shared memory objects live on Linux;
	// shm_open("/x") is open("/dev/shm/x")
	shmDir = "/dev/shm"
)

// SegmentName derives the OS shared-memory object name for a domain and
// topic. The mapping is deterministic so that independent processes resolve
// the same segment
func SegmentName(domain dds.DomainID, topic string) string {
	name := fmt.Sprintf("%s%d_%s", segmentNamePrefix, domain, topic)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z',
			r >= 'a' && r <= 'z',
			r >= '0' && r <= '9',
			r == '_', r == '/':
			return r
		default:
			return '_'
		}
	}, name)
}

func segmentPath(name string) string {
	return filepath.Join(shmDir, strings.TrimPrefix(name, "/"))
}

// openSegment creates or opens the named shared-memory object, sizes it to
// hold the ring header plus bufferSize payload bytes, and maps it. The first
// party through wins the init race; the OS zero-fills fresh objects, which
// is a valid empty ring
func openSegment(name string, bufferSize uint32) (*segment, error) {
	total := ringHeaderSize + int(bufferSize)
	path := segmentPath(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm open %s: %w", name, err)
	}
	defer func() {
		// The mapping keeps the object alive without the descriptor
		_ = f.Close()
	}()

	if err := f.Truncate(int64(total)); err != nil {
		return nil, fmt.Errorf("shm truncate %s: %w", name, err)
	}
	mem, err := unix.Mmap(
		int(f.Fd()), 0, total,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("shm mmap %s: %w", name, err)
	}

	return &segment{
		name: name,
		mem:  mem,
	}, nil
}

// close unmaps the segment and, when this transport created it, unlinks the
// OS name. Segments created by other processes are left intact
func (s *segment) close() {
	if s.mem != nil {
		_ = unix.Munmap(s.mem)
		s.mem = nil
	}
	if s.created {
		_ = os.Remove(segmentPath(s.name))
	}
}

func (s *segment) ring() *ring {
	return &ring{mem: s.mem}
}
