package aggregator

import "github.com/nfrund/msgtopology/internal/topology"

// Stats summarizes an aggregated view.
type Stats struct {
	Services  int `json:"services"`
	Topics    int `json:"topics"`
	Producers int `json:"producers"`
	Consumers int `json:"consumers"`
}

// ComputeStats counts distinct services and topics plus producer and consumer channels.
func ComputeStats(topologies []*topology.Topology) Stats {
	var stats Stats
	services := make(map[string]bool)
	topics := make(map[string]bool)

	for _, t := range topologies {
		if t == nil {
			continue
		}
		services[t.ServiceName] = true
		for _, ch := range t.Channels {
			topics[ch.EffectiveTopic()] = true
			switch ch.Direction {
			case topology.Outgoing:
				stats.Producers++
			case topology.Incoming:
				stats.Consumers++
			}
		}
	}

	stats.Services = len(services)
	stats.Topics = len(topics)
	return stats
}
