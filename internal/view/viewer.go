// Package view renders the topology viewer page with gomponents and htmx.
package view

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	. "maragu.dev/gomponents/html"

	"github.com/nfrund/msgtopology/internal/app"
	"github.com/nfrund/msgtopology/internal/topology"
)

const (
	mermaidSrc = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"
	htmxSrc    = "https://unpkg.com/htmx.org@2.0.4"

	// DiagramID is the element the diagram fragment is swapped into.
	DiagramID = "topology-diagram"
)

// Page renders the full viewer for v. fragmentURL is polled by htmx to refresh the
// diagram; an empty URL disables polling.
func Page(v app.View, fragmentURL string) g.Node {
	return Doctype(
		HTML(Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				TitleEl(g.Text("Messaging Topology")),
				Script(Src(htmxSrc)),
				Script(Src(mermaidSrc)),
				Script(g.Raw(renderScript)),
			),
			Body(
				H1(g.Text("Messaging Topology")),
				Stats(v),
				Failures(v.FailedServices),
				Section(
					ID(DiagramID),
					g.If(fragmentURL != "", hx.Get(fragmentURL)),
					g.If(fragmentURL != "", hx.Trigger("every 10s")),
					g.If(fragmentURL != "", hx.Swap("innerHTML")),
					Diagram(v.Diagram),
				),
				Services(v.Topologies),
			),
		),
	)
}

// renderScript re-runs mermaid whenever htmx swaps in a new diagram.
const renderScript = `
mermaid.initialize({ startOnLoad: true });
document.addEventListener("htmx:afterSwap", function () { mermaid.run(); });
`

// Diagram renders the Mermaid source for client-side rendering.
func Diagram(source string) g.Node {
	return Pre(Class("mermaid"), g.Text(source))
}

// Stats renders the summary counters.
func Stats(v app.View) g.Node {
	items := []struct {
		label string
		value int
	}{
		{"services", v.Stats.Services},
		{"topics", v.Stats.Topics},
		{"producers", v.Stats.Producers},
		{"consumers", v.Stats.Consumers},
		{"discovered peers", v.DiscoveredServices},
	}

	return Ul(Class("stats"),
		g.Map(items, func(item struct {
			label string
			value int
		}) g.Node {
			return Li(
				Strong(g.Textf("%d", item.value)),
				g.Text(" "+titled(item.label)),
			)
		}),
	)
}

// Failures lists peers that could not be reached. Nothing is rendered when all peers answered.
func Failures(failed []string) g.Node {
	if len(failed) == 0 {
		return nil
	}
	return Section(Class("failures"),
		H2(g.Text("Unreachable Services")),
		Ul(g.Map(failed, func(f string) g.Node { return Li(g.Text(f)) })),
	)
}

// Services renders one channel table per topology.
func Services(topologies []*topology.Topology) g.Node {
	return g.Map(topologies, func(t *topology.Topology) g.Node {
		return Section(Class("service"),
			H2(g.Text(t.ServiceName), g.If(t.Version != "", Small(g.Text(" "+t.Version)))),
			Table(
				THead(Tr(
					Th(g.Text("Channel")),
					Th(g.Text("Direction")),
					Th(g.Text("Topic")),
					Th(g.Text("Owner")),
				)),
				TBody(g.Map(t.Channels, func(ch topology.Channel) g.Node {
					return Tr(
						Td(g.Text(ch.Name)),
						Td(g.Text(titled(string(ch.Direction)))),
						Td(g.Text(ch.EffectiveTopic())),
						Td(g.Text(simpleName(ch.OwnerType)+"."+ch.OwnerMember)),
					)
				})),
			),
		)
	})
}

// titled upper-cases the first letter of each word. A Caser keeps state, so each
// call gets its own.
func titled(s string) string {
	return cases.Title(language.English).String(s)
}

// simpleName drops any package qualifier from a type name.
func simpleName(qualified string) string {
	if i := strings.LastIndexAny(qualified, "./"); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
