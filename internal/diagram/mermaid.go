package diagram

import (
	"fmt"
	"strings"

	"github.com/nfrund/msgtopology/internal/topology"
)

const (
	serviceClass  = "classDef serviceClass fill:#4A90E2,stroke:#2E5C8A,stroke-width:2px,color:#fff"
	topicClass    = "classDef topicClass fill:#F5A623,stroke:#D68910,stroke-width:2px,color:#fff"
	hotTopicClass = "classDef hotTopicClass fill:#E74C3C,stroke:#C0392B,stroke-width:3px,color:#fff"
)

// Render builds the graph for topologies and returns its Mermaid text.
func Render(topologies []*topology.Topology) string {
	return Build(topologies).Mermaid()
}

// label escapes text placed inside a quoted Mermaid label.
func label(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

// Mermaid renders the graph as a left-to-right Mermaid flowchart.
func (g *Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	b.WriteString("\n    %% Services\n")
	for _, s := range g.Services {
		fmt.Fprintf(&b, "    %s[\"📦 %s\"]\n", s.ID, label(s.Name))
	}

	b.WriteString("\n    %% Topics\n")
	for _, t := range g.Topics {
		fmt.Fprintf(&b, "    %s((\"💬 %s<br/><small>P:%d C:%d</small>\"))\n", t.ID, label(t.Topic), t.Producers, t.Consumers)
	}

	b.WriteString("\n    %% Connections\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "    %s -->|\"%s\"| %s\n", e.From, label(e.Label), e.To)
	}

	b.WriteString("\n    %% Styling\n")
	for _, def := range []string{serviceClass, topicClass, hotTopicClass} {
		b.WriteString("    " + def + "\n")
	}
	for _, s := range g.Services {
		fmt.Fprintf(&b, "    class %s serviceClass\n", s.ID)
	}
	for _, t := range g.Topics {
		class := "topicClass"
		if t.Hot() {
			class = "hotTopicClass"
		}
		fmt.Fprintf(&b, "    class %s %s\n", t.ID, class)
	}
	return b.String()
}
