// Package dds exposes the public entity surface of the middleware: domain
// participants, the publishers and subscribers they create, and the data
// writers and readers that move opaque payloads over a domain's transport
package dds

import "github.com/kode4food/tinydds/closer"

type (
	// DomainID labels an isolated communication namespace. Participants in
	// different domains never exchange data
	DomainID uint32

	// TransportKind selects which transport a participant's writers and
	// readers are bound to
	TransportKind int

	// ReliabilityKind is a QoS reliability setting. Only BestEffort
	// behavior is implemented; Reliable is accepted and stored
	ReliabilityKind int

	// DurabilityKind is a QoS durability setting. Only Volatile behavior
	// is implemented; the rest are accepted and stored
	DurabilityKind int

	// SampleInfo describes a sample returned from a DataReader
	SampleInfo struct {
		ValidData bool
	}

	// PublicationMatchedStatus reports discovery counts for a DataWriter.
	// Discovery is not implemented, so all counts remain zero
	PublicationMatchedStatus struct {
		TotalCount         int32
		TotalCountChange   int32
		CurrentCount       int32
		CurrentCountChange int32
	}

	// SubscriptionMatchedStatus reports discovery counts for a DataReader
	SubscriptionMatchedStatus struct {
		TotalCount         int32
		TotalCountChange   int32
		CurrentCount       int32
		CurrentCountChange int32
	}

	// DataCallback receives a sample delivered to a DataReader
	DataCallback func(data []byte, info SampleInfo)

	// RoutedDataCallback receives a sample along with its routing context
	RoutedDataCallback func(domain DomainID, topic string, data []byte)

	// Participant is the root of an entity tree within a domain. It owns
	// the topics, publishers, and subscribers it creates, and closing it
	// closes all of them
	Participant interface {
		closer.Closer

		// DomainID returns the domain this Participant belongs to
		DomainID() DomainID

		// Name returns the Participant's name. Names are opaque to
		// routing and need not be unique within a domain
		Name() string

		// SetTransportType selects the transport kind for entities
		// created by this Participant. It fails once any publisher or
		// subscriber exists
		SetTransportType(TransportKind) bool

		// TransportType returns the currently selected transport kind
		TransportType() TransportKind

		// CreateTopic returns the Topic for the given name, creating it
		// if needed. A second creation with the same name succeeds only
		// if the type name matches; otherwise nil is returned
		CreateTopic(name, typeName string) Topic

		// CreatePublisher creates a new Publisher owned by this
		// Participant
		CreatePublisher() Publisher

		// CreateSubscriber creates a new Subscriber owned by this
		// Participant
		CreateSubscriber() Subscriber
	}

	// Topic is a named, typed channel scoped to a Participant. The routing
	// key is the name alone; the type name is carried for matching
	// discipline and never inspected by the transport
	Topic interface {
		Name() string
		TypeName() string
	}

	// Publisher is a factory for DataWriters
	Publisher interface {
		closer.Closer

		// CreateDataWriter creates a writer bound to the given Topic,
		// advertising the topic on the participant's transport
		CreateDataWriter(Topic) DataWriter
	}

	// Subscriber is a factory for DataReaders. It runs the delivery task
	// that services reader callbacks
	Subscriber interface {
		closer.Closer

		// CreateDataReader creates a reader bound to the given Topic,
		// subscribing the topic on the participant's transport
		CreateDataReader(Topic) DataReader
	}

	// DataWriter produces payloads on one Topic
	DataWriter interface {
		closer.Closer

		// Write sends one payload on the writer's topic. It reports
		// whether the transport accepted the payload
		Write(data []byte) bool

		// Topic returns the Topic this writer is bound to
		Topic() Topic

		// PublicationMatchedStatus returns the writer's matched status
		PublicationMatchedStatus() PublicationMatchedStatus
	}

	// DataReader consumes payloads on one Topic. Read and Take are
	// non-blocking; callbacks may be installed instead, in which case the
	// owning Subscriber's delivery task invokes them
	DataReader interface {
		closer.Closer

		// Read copies the next available payload into buf and reports
		// its length, or -1 when no data is available. On the
		// shared-memory transport a too-small buf also yields -1; on UDP
		// the datagram is truncated to len(buf). On success
		// info.ValidData is set
		Read(buf []byte, info *SampleInfo) int

		// Take behaves as Read. The returned message is never visible
		// to a subsequent call on the same reader
		Take(buf []byte, info *SampleInfo) int

		// SetDataReceivedCallback installs a callback receiving each
		// delivered sample
		SetDataReceivedCallback(DataCallback)

		// SetDataCallback installs a callback receiving each delivered
		// sample along with its routing context
		SetDataCallback(RoutedDataCallback)

		// Topic returns the Topic this reader is bound to
		Topic() Topic

		// SubscriptionMatchedStatus returns the reader's matched status
		SubscriptionMatchedStatus() SubscriptionMatchedStatus
	}
)

const (
	// TransportUDP is the default transport kind
	TransportUDP TransportKind = iota

	// TransportSharedMemory selects the shared-memory ring transport
	TransportSharedMemory
)

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

const (
	Volatile DurabilityKind = iota
	TransientLocal
	Transient
	Persistent
)

// String returns the canonical name of a TransportKind
func (k TransportKind) String() string {
	switch k {
	case TransportSharedMemory:
		return "SHARED_MEMORY"
	case TransportUDP:
		return "UDP"
	default:
		return "UNKNOWN"
	}
}

// ParseTransportKind maps a string to a TransportKind. Unrecognized
// strings map to TransportUDP
func ParseTransportKind(s string) TransportKind {
	if s == "SHARED_MEMORY" {
		return TransportSharedMemory
	}
	return TransportUDP
}

// String returns the canonical name of a ReliabilityKind
func (k ReliabilityKind) String() string {
	if k == Reliable {
		return "RELIABLE"
	}
	return "BEST_EFFORT"
}

// String returns the canonical name of a DurabilityKind
func (k DurabilityKind) String() string {
	switch k {
	case TransientLocal:
		return "TRANSIENT_LOCAL"
	case Transient:
		return "TRANSIENT"
	case Persistent:
		return "PERSISTENT"
	default:
		return "VOLATILE"
	}
}
