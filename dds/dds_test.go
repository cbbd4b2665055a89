package dds_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/tinydds/dds"
)

func TestTransportKindStrings(t *testing.T) {
	as := assert.New(t)

	as.Equal("UDP", dds.TransportUDP.String())
	as.Equal("SHARED_MEMORY", dds.TransportSharedMemory.String())
	as.Equal("UNKNOWN", dds.TransportKind(99).String())
}

func TestParseTransportKind(t *testing.T) {
	as := assert.New(t)

	as.Equal(dds.TransportUDP, dds.ParseTransportKind("UDP"))
	as.Equal(
		dds.TransportSharedMemory,
		dds.ParseTransportKind("SHARED_MEMORY"),
	)

	// Unrecognized strings fall back to the default transport
	as.Equal(dds.TransportUDP, dds.ParseTransportKind("rfc1149"))
}

func TestQosKindStrings(t *testing.T) {
	as := assert.New(t)

	as.Equal("BEST_EFFORT", dds.BestEffort.String())
	as.Equal("RELIABLE", dds.Reliable.String())
	as.Equal("VOLATILE", dds.Volatile.String())
	as.Equal("TRANSIENT_LOCAL", dds.TransientLocal.String())
	as.Equal("TRANSIENT", dds.Transient.String())
	as.Equal("PERSISTENT", dds.Persistent.String())
}
