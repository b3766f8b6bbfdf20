// Package diagram turns a set of topologies into a service/topic graph and renders it
// as Mermaid flowchart text.
//
// Output is deterministic for a given input order: services and topics appear in the
// order they are first seen, and connections keep their first-seen order within a topic.
package diagram

import (
	"strings"

	"github.com/nfrund/msgtopology/internal/topology"
)

// HotTopicThreshold is the number of distinct connections at which a topic is highlighted.
const HotTopicThreshold = 4

// Connection is one service's use of a topic through one channel member.
type Connection struct {
	Service   string
	Method    string
	Direction topology.Direction
}

// ServiceNode is a service box.
type ServiceNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TopicNode is a topic bubble with its producer and consumer counts.
type TopicNode struct {
	ID          string       `json:"id"`
	Topic       string       `json:"topic"`
	Producers   int          `json:"producers"`
	Consumers   int          `json:"consumers"`
	Connections []Connection `json:"-"`
}

// Hot reports whether the topic has at least HotTopicThreshold connections.
func (n *TopicNode) Hot() bool {
	return len(n.Connections) >= HotTopicThreshold
}

// Edge is a labelled arrow between a service and a topic.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Graph is the intermediate model between topologies and rendered text.
type Graph struct {
	Services []ServiceNode `json:"services"`
	Topics   []*TopicNode  `json:"topics"`
	Edges    []Edge        `json:"edges"`
}

// Build groups every channel by its effective topic. Identical connections collapse
// into one, and a service appearing in several topologies yields one node.
func Build(topologies []*topology.Topology) *Graph {
	g := &Graph{}
	seenServices := make(map[string]bool)
	topics := make(map[string]*TopicNode)
	seenConns := make(map[string]map[Connection]bool)

	for _, t := range topologies {
		if t == nil {
			continue
		}
		if !seenServices[t.ServiceName] {
			seenServices[t.ServiceName] = true
			g.Services = append(g.Services, ServiceNode{ID: Sanitize(t.ServiceName), Name: t.ServiceName})
		}

		for _, ch := range t.Channels {
			name := ch.EffectiveTopic()
			node, ok := topics[name]
			if !ok {
				node = &TopicNode{ID: topicID(name), Topic: name}
				topics[name] = node
				seenConns[name] = make(map[Connection]bool)
				g.Topics = append(g.Topics, node)
			}

			conn := Connection{Service: t.ServiceName, Method: ch.OwnerMember, Direction: ch.Direction}
			if seenConns[name][conn] {
				continue
			}
			seenConns[name][conn] = true
			node.Connections = append(node.Connections, conn)

			switch conn.Direction {
			case topology.Outgoing:
				node.Producers++
			case topology.Incoming:
				node.Consumers++
			}
		}
	}

	for _, node := range g.Topics {
		for _, conn := range node.Connections {
			serviceID := Sanitize(conn.Service)
			if conn.Direction == topology.Outgoing {
				g.Edges = append(g.Edges, Edge{From: serviceID, To: node.ID, Label: conn.Method})
			} else {
				g.Edges = append(g.Edges, Edge{From: node.ID, To: serviceID, Label: conn.Method})
			}
		}
	}
	return g
}

// Sanitize replaces every character outside [A-Za-z0-9_] with an underscore.
// Distinct names may collide after sanitizing.
func Sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

func topicID(topic string) string {
	return Sanitize("topic_" + topic)
}
