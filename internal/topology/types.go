package topology

import (
	"encoding/json"
	"fmt"
)

// Direction tells whether a channel consumes from or produces to its topic.
type Direction string

const (
	Incoming Direction = "incoming" // consumer side
	Outgoing Direction = "outgoing" // producer side
)

// ParseDirection converts a raw string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Incoming, Outgoing:
		return Direction(s), nil
	default:
		return "", &Error{
			Kind:    ErrorInvalidInput,
			Message: fmt.Sprintf("unknown direction %q", s),
		}
	}
}

// String returns the direction as it appears on the wire.
func (d Direction) String() string {
	return string(d)
}

// Channel is a named, directional binding between a service's code and a topic.
//
// Schema and Example are kept as raw JSON so this package does not depend on the
// schema introspection layer; they are filled in during enrichment.
type Channel struct {
	Name        string          `json:"channelName" yaml:"name" validate:"required"`
	Direction   Direction       `json:"direction" yaml:"direction" validate:"required,oneof=incoming outgoing"`
	OwnerType   string          `json:"className" yaml:"ownerType"`
	OwnerMember string          `json:"methodName" yaml:"ownerMember"`
	Topic       string          `json:"topic,omitempty" yaml:"topic,omitempty"`
	Connector   string          `json:"connector,omitempty" yaml:"connector,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty" yaml:"-"`
	Example     json.RawMessage `json:"examplePayload,omitempty" yaml:"-"`
}

// NewChannel creates a channel whose topic defaults to its name.
func NewChannel(name string, direction Direction, ownerType, ownerMember string) Channel {
	return Channel{
		Name:        name,
		Direction:   direction,
		OwnerType:   ownerType,
		OwnerMember: ownerMember,
		Topic:       name,
	}
}

// EffectiveTopic returns the topic the channel is bound to, falling back to its name.
func (c Channel) EffectiveTopic() string {
	if c.Topic != "" {
		return c.Topic
	}
	return c.Name
}

// Topology is one service's full channel inventory plus identity metadata.
// ServiceName is the identity key used for file naming and dedup across the cluster.
type Topology struct {
	ServiceName string    `json:"serviceName" yaml:"serviceName" validate:"required"`
	GroupID     string    `json:"groupId" yaml:"groupId"`
	ArtifactID  string    `json:"artifactId" yaml:"artifactId"`
	Version     string    `json:"version" yaml:"version"`
	ProjectName string    `json:"projectName,omitempty" yaml:"projectName,omitempty"`
	ServiceURL  string    `json:"serviceUrl,omitempty" yaml:"-"`
	Channels    []Channel `json:"channels" yaml:"channels" validate:"dive"`
}

// FindChannel returns the channel with the given name and direction.
func (t *Topology) FindChannel(name string, direction Direction) (Channel, bool) {
	if t == nil {
		return Channel{}, false
	}
	for _, ch := range t.Channels {
		if ch.Name == name && ch.Direction == direction {
			return ch, true
		}
	}
	return Channel{}, false
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (t *Topology) Clone() *Topology {
	if t == nil {
		return nil
	}
	c := *t
	c.Channels = make([]Channel, len(t.Channels))
	for i, ch := range t.Channels {
		c.Channels[i] = ch
		c.Channels[i].Schema = cloneRaw(ch.Schema)
		c.Channels[i].Example = cloneRaw(ch.Example)
	}
	return &c
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
