package topology

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Binding maps a channel onto its broker topic and connector.
type Binding struct {
	Topic     string `yaml:"topic"`
	Connector string `yaml:"connector"`
}

// Manifest is the channel inventory produced by the build-time scan, plus the
// per-channel broker bindings that would otherwise come from messaging configuration.
type Manifest struct {
	Topology `yaml:",inline"`
	Bindings map[Direction]map[string]Binding `yaml:"bindings"`
}

// LoadManifest reads a YAML manifest from fs and turns it into a Topology.
func LoadManifest(fs afero.Fs, path, defaultConnector string) (*Topology, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(data, defaultConnector)
}

// ParseManifest decodes a YAML manifest and applies its bindings.
func ParseManifest(data []byte, defaultConnector string) (*Topology, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	t := m.Topology
	if t.ArtifactID == "" {
		t.ArtifactID = t.ServiceName
	}
	for i := range t.Channels {
		t.Channels[i] = m.bind(t.Channels[i], defaultConnector)
	}

	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// bind resolves topic and connector; the topic defaults to the channel name.
func (m *Manifest) bind(ch Channel, defaultConnector string) Channel {
	b := m.Bindings[ch.Direction][ch.Name]

	switch {
	case b.Topic != "":
		ch.Topic = b.Topic
	case ch.Topic == "":
		ch.Topic = ch.Name
	}

	switch {
	case b.Connector != "":
		ch.Connector = b.Connector
	case ch.Connector == "":
		ch.Connector = defaultConnector
	}
	return ch
}
