// Package tinydds is a lightweight publish/subscribe middleware. Applications
// create a domain participant scoped to a numeric domain, obtain publishers
// and subscribers from it, declare typed topics, and attach data writers and
// readers. Payloads are opaque bytes routed by domain and topic name over a
// shared-memory ring buffer or UDP broadcast transport
package tinydds

import (
	"github.com/kode4food/tinydds/dds"
	"github.com/kode4food/tinydds/internal/entity"
	"github.com/kode4food/tinydds/internal/transport"
)

// NewParticipant instantiates a Participant in the given domain. The
// transport kind defaults to UDP and may be changed with SetTransportType
// until the participant creates its first publisher or subscriber
func NewParticipant(domain dds.DomainID, name string) dds.Participant {
	return entity.MakeParticipant(domain, name)
}

// Shutdown tears down the process-wide transport registry, closing every
// socket and unmapping and unlinking every shared-memory segment created by
// this process
func Shutdown() {
	transport.Shared().Shutdown()
}
