// Package config models the declarative YAML description from which entity
// trees are constructed: participants, their topics, publishers, and
// subscribers, along with QoS and transport settings. QoS fields are parsed
// and stored; only best-effort volatile behavior is implemented
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type (
	// Config is the root of a declarative description
	Config struct {
		Participants []Participant `yaml:"participants"`
	}

	// Participant describes one domain participant and its children
	Participant struct {
		Name        string       `yaml:"name"`
		DomainID    uint32       `yaml:"domain_id"`
		Topics      []Topic      `yaml:"topics"`
		Publishers  []Publisher  `yaml:"publishers"`
		Subscribers []Subscriber `yaml:"subscribers"`
	}

	// Topic describes a named, typed channel
	Topic struct {
		Name     string `yaml:"name"`
		TypeName string `yaml:"type_name"`
		QoS      QoS    `yaml:"qos"`
	}

	// Publisher describes a publisher and the topics it writes
	Publisher struct {
		Name       string    `yaml:"name"`
		QoS        QoS       `yaml:"qos"`
		Transport  Transport `yaml:"transport"`
		TopicNames []string  `yaml:"topic_names"`
	}

	// Subscriber describes a subscriber and the topics it reads
	Subscriber struct {
		Name       string    `yaml:"name"`
		QoS        QoS       `yaml:"qos"`
		Transport  Transport `yaml:"transport"`
		TopicNames []string  `yaml:"topic_names"`
	}

	// QoS carries quality-of-service settings
	QoS struct {
		Reliability string `yaml:"reliability"`
		Durability  string `yaml:"durability"`
	}

	// Transport carries transport selection and sizing
	Transport struct {
		Type           string `yaml:"type"`
		BufferSize     uint32 `yaml:"buffer_size"`
		MaxMessageSize uint32 `yaml:"max_message_size"`
		Address        string `yaml:"address"`
		Port           int    `yaml:"port"`
	}
)

var (
	validReliability = map[string]bool{
		"": true, "BEST_EFFORT": true, "RELIABLE": true,
	}

	validDurability = map[string]bool{
		"": true, "VOLATILE": true, "TRANSIENT_LOCAL": true,
		"TRANSIENT": true, "PERSISTENT": true,
	}

	validTransport = map[string]bool{
		"": true, "UDP": true, "SHARED_MEMORY": true,
	}
)

// LoadFromFile reads and parses a YAML configuration file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadFromString(string(data))
}

// LoadFromString parses a YAML configuration document
func LoadFromString(src string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(src), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks a parsed configuration for structural problems: missing
// names, duplicate participants, and unrecognized QoS or transport values
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, p := range c.Participants {
		if p.Name == "" {
			return fmt.Errorf("participant %d: missing name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate participant name: %s", p.Name)
		}
		seen[p.Name] = true

		for _, t := range p.Topics {
			if t.Name == "" {
				return fmt.Errorf(
					"participant %s: topic missing name", p.Name,
				)
			}
			if err := t.QoS.validate(); err != nil {
				return fmt.Errorf("topic %s: %w", t.Name, err)
			}
		}
		for _, pub := range p.Publishers {
			if err := pub.QoS.validate(); err != nil {
				return fmt.Errorf("publisher %s: %w", pub.Name, err)
			}
			if err := pub.Transport.validate(); err != nil {
				return fmt.Errorf("publisher %s: %w", pub.Name, err)
			}
		}
		for _, sub := range p.Subscribers {
			if err := sub.QoS.validate(); err != nil {
				return fmt.Errorf("subscriber %s: %w", sub.Name, err)
			}
			if err := sub.Transport.validate(); err != nil {
				return fmt.Errorf("subscriber %s: %w", sub.Name, err)
			}
		}
	}
	return nil
}

func (q QoS) validate() error {
	if !validReliability[q.Reliability] {
		return fmt.Errorf("unknown reliability: %s", q.Reliability)
	}
	if !validDurability[q.Durability] {
		return fmt.Errorf("unknown durability: %s", q.Durability)
	}
	return nil
}

func (t Transport) validate() error {
	if !validTransport[t.Type] {
		return fmt.Errorf("unknown transport type: %s", t.Type)
	}
	return nil
}
