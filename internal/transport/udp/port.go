package udp

import (
	"fmt"
	"hash/fnv"

	"github.com/kode4food/tinydds/dds"
)

const (
	basePort      = 40000
	portRangeSize = 10000
)

// DerivePort maps a domain and topic to a UDP port. The derivation hashes
// the topic, combines the decimal domain with the decimal topic hash, and
// hashes again: the same pair yields the same port in any process on the
// host. FNV-1a is used for both rounds so the result is stable across
// runtimes
func DerivePort(domain dds.DomainID, topic string) int {
	h1 := stringHash(topic)
	h2 := stringHash(fmt.Sprintf("%d_%d", domain, h1))
	return basePort + int(h2%portRangeSize)
}

func stringHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
