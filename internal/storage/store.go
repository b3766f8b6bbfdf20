package storage

import "github.com/nfrund/msgtopology/internal/topology"

// Store persists topology snapshots so sibling processes can read them.
type Store interface {
	Save(t *topology.Topology, serviceURL string) error
	Load(serviceName string) (*topology.Topology, error)
	LoadAll(projectFilter string) ([]*topology.Topology, error)
	Delete(serviceName string) error
}

var _ Store = (*FileStore)(nil)
