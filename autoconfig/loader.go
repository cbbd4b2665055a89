// Package autoconfig constructs entity trees from declarative configuration
// by invoking the same public operations an application would: participants,
// topics, publishers with writers, and subscribers with readers. The
// transport type is always applied before any child is created
package autoconfig

import (
	"fmt"
	"log/slog"

	"github.com/kode4food/tinydds"
	"github.com/kode4food/tinydds/config"
	"github.com/kode4food/tinydds/dds"
)

type (
	// Loader builds and indexes entities from a configuration document
	Loader struct {
		participants map[string]dds.Participant
		publishers   map[string]dds.Publisher
		subscribers  map[string]dds.Subscriber
		topics       map[string]dds.Topic
		writers      map[string]dds.DataWriter
		readers      map[string]dds.DataReader
	}
)

// NewLoader instantiates an empty Loader
func NewLoader() *Loader {
	return &Loader{
		participants: map[string]dds.Participant{},
		publishers:   map[string]dds.Publisher{},
		subscribers:  map[string]dds.Subscriber{},
		topics:       map[string]dds.Topic{},
		writers:      map[string]dds.DataWriter{},
		readers:      map[string]dds.DataReader{},
	}
}

// LoadFromFile loads, validates, and applies a YAML configuration file
func (l *Loader) LoadFromFile(path string) bool {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		slog.Error("failed to load configuration", "path", path,
			"error", err)
		return false
	}
	return l.apply(cfg)
}

// LoadFromString loads, validates, and applies a YAML configuration
// document
func (l *Loader) LoadFromString(src string) bool {
	cfg, err := config.LoadFromString(src)
	if err != nil {
		slog.Error("failed to parse configuration", "error", err)
		return false
	}
	return l.apply(cfg)
}

// Participants returns every participant the Loader created
func (l *Loader) Participants() []dds.Participant {
	res := make([]dds.Participant, 0, len(l.participants))
	for _, p := range l.participants {
		res = append(res, p)
	}
	return res
}

// Participant returns the named participant, or nil
func (l *Loader) Participant(name string) dds.Participant {
	return l.participants[name]
}

// Publisher returns a publisher by participant and publisher name, or nil
func (l *Loader) Publisher(participant, name string) dds.Publisher {
	return l.publishers[scopedKey(participant, name)]
}

// Subscriber returns a subscriber by participant and subscriber name, or
// nil
func (l *Loader) Subscriber(participant, name string) dds.Subscriber {
	return l.subscribers[scopedKey(participant, name)]
}

// Topic returns a topic by participant and topic name, or nil
func (l *Loader) Topic(participant, name string) dds.Topic {
	return l.topics[scopedKey(participant, name)]
}

// Writer returns a data writer by participant and topic name, or nil
func (l *Loader) Writer(participant, topic string) dds.DataWriter {
	return l.writers[scopedKey(participant, topic)]
}

// Reader returns a data reader by participant and topic name, or nil
func (l *Loader) Reader(participant, topic string) dds.DataReader {
	return l.readers[scopedKey(participant, topic)]
}

func (l *Loader) apply(cfg *config.Config) bool {
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return false
	}
	for _, pc := range cfg.Participants {
		if !l.applyParticipant(pc) {
			return false
		}
	}
	return true
}

func (l *Loader) applyParticipant(pc config.Participant) bool {
	p := tinydds.NewParticipant(dds.DomainID(pc.DomainID), pc.Name)

	// The transport type must be frozen before any child exists. The
	// first configured transport wins; the config model carries one kind
	// per participant in practice
	if kind, ok := configuredKind(pc); ok {
		if !p.SetTransportType(kind) {
			slog.Error("failed to set transport type",
				"participant", pc.Name)
			return false
		}
	}
	l.participants[pc.Name] = p

	for _, tc := range pc.Topics {
		t := p.CreateTopic(tc.Name, tc.TypeName)
		if t == nil {
			slog.Error("failed to create topic",
				"participant", pc.Name, "topic", tc.Name)
			return false
		}
		l.topics[scopedKey(pc.Name, tc.Name)] = t
	}

	for _, pub := range pc.Publishers {
		if !l.applyPublisher(p, pc.Name, pub) {
			return false
		}
	}
	for _, sub := range pc.Subscribers {
		if !l.applySubscriber(p, pc.Name, sub) {
			return false
		}
	}
	return true
}

func (l *Loader) applyPublisher(
	p dds.Participant, participant string, pub config.Publisher,
) bool {
	created := p.CreatePublisher()
	l.publishers[scopedKey(participant, pub.Name)] = created

	for _, name := range pub.TopicNames {
		t := l.topics[scopedKey(participant, name)]
		if t == nil {
			slog.Error("publisher references unknown topic",
				"participant", participant, "publisher", pub.Name,
				"topic", name)
			return false
		}
		l.writers[scopedKey(participant, name)] = created.CreateDataWriter(t)
	}
	return true
}

func (l *Loader) applySubscriber(
	p dds.Participant, participant string, sub config.Subscriber,
) bool {
	created := p.CreateSubscriber()
	l.subscribers[scopedKey(participant, sub.Name)] = created

	for _, name := range sub.TopicNames {
		t := l.topics[scopedKey(participant, name)]
		if t == nil {
			slog.Error("subscriber references unknown topic",
				"participant", participant, "subscriber", sub.Name,
				"topic", name)
			return false
		}
		l.readers[scopedKey(participant, name)] = created.CreateDataReader(t)
	}
	return true
}

func configuredKind(pc config.Participant) (dds.TransportKind, bool) {
	for _, pub := range pc.Publishers {
		if pub.Transport.Type != "" {
			return dds.ParseTransportKind(pub.Transport.Type), true
		}
	}
	for _, sub := range pc.Subscribers {
		if sub.Transport.Type != "" {
			return dds.ParseTransportKind(sub.Transport.Type), true
		}
	}
	return dds.TransportUDP, false
}

func scopedKey(participant, name string) string {
	return fmt.Sprintf("%s:%s", participant, name)
}
