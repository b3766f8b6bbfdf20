// Package app assembles the topology components into the operations served over HTTP
// and the process lifecycle: publish on start, withdraw on stop.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"

	"github.com/nfrund/msgtopology/internal/aggregator"
	"github.com/nfrund/msgtopology/internal/config"
	"github.com/nfrund/msgtopology/internal/diagram"
	"github.com/nfrund/msgtopology/internal/discovery"
	"github.com/nfrund/msgtopology/internal/messaging"
	"github.com/nfrund/msgtopology/internal/metrics"
	"github.com/nfrund/msgtopology/internal/pubsub"
	"github.com/nfrund/msgtopology/internal/schema"
	"github.com/nfrund/msgtopology/internal/storage"
	"github.com/nfrund/msgtopology/internal/topology"
)

// TopologyChanged is published on the internal bus whenever a snapshot in the
// topology directory appears, changes or disappears.
var TopologyChanged = pubsub.NewEvent[storage.Change]("topology.changed")

// UnknownService names the placeholder shown when no local topology is registered.
const UnknownService = "Unknown"

// View is the aggregated state of every reachable service.
type View struct {
	Topologies         []*topology.Topology `json:"topologies"`
	Stats              aggregator.Stats     `json:"stats"`
	DiscoveredServices int                  `json:"discoveredServices"`
	FailedServices     []string             `json:"failedServices"`
	Diagram            string               `json:"diagram"`
}

// App is the messaging topology engine of one process.
type App struct {
	cfg          *config.Config
	store        *topology.Store
	introspector *schema.Introspector
	files        storage.Store
	registry     *discovery.Registry
	collector    *aggregator.Collector
	sender       *messaging.Sender
	bus          *pubsub.WatermillBridge
	tracing      *Tracing
	watcher      *storage.Watcher

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New builds the App from the injector's components.
func New(i do.Injector) (*App, error) {
	a := &App{
		cfg:          do.MustInvoke[*config.Config](i),
		store:        do.MustInvoke[*topology.Store](i),
		introspector: do.MustInvoke[*schema.Introspector](i),
		files:        do.MustInvoke[storage.Store](i),
		registry:     do.MustInvoke[*discovery.Registry](i),
		collector:    do.MustInvoke[*aggregator.Collector](i),
		sender:       do.MustInvoke[*messaging.Sender](i),
		bus:          do.MustInvoke[*pubsub.WatermillBridge](i),
		tracing:      do.MustInvoke[*Tracing](i),
	}

	// fsnotify only sees the OS filesystem
	if _, ok := do.MustInvoke[afero.Fs](i).(*afero.OsFs); ok && a.cfg.Enabled {
		a.watcher = storage.NewWatcher(a.cfg.Directory, a.publishChange)
	}
	return a, nil
}

// Start enriches the local topology with schemas, publishes it to the shared
// directory and registers this process as a peer. Publishing failures are logged
// and leave the topology temporarily unpublished; they never fail startup.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}
	if !a.cfg.Enabled {
		slog.Info("Messaging topology is disabled")
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.started = true

	if a.cfg.IncludeSchema {
		a.enrich()
	}

	local := a.store.Get()
	if local == nil {
		slog.Warn("No local topology registered; serving peers only")
	} else if a.cfg.AutoSave {
		if err := a.files.Save(local, a.cfg.SelfURL()); err != nil {
			metrics.TopologySavesTotal.WithLabelValues("error").Inc()
			slog.Warn("Topology temporarily unpublished", "service", local.ServiceName, "error", err)
		} else {
			metrics.TopologySavesTotal.WithLabelValues("ok").Inc()
			slog.Info("Topology saved", "service", local.ServiceName, "directory", a.cfg.Directory, "project", local.ProjectName)
		}
	}

	if err := a.registry.Register(a.cfg.SelfURL()); err != nil {
		slog.Warn("Could not register in peer registry", "registry", a.registry.Path(), "error", err)
	}

	if a.watcher != nil {
		if err := a.watcher.Start(runCtx); err != nil {
			slog.Warn("Topology directory watcher not started", "error", err)
		}
	}
	return nil
}

// Stop withdraws this process's snapshot and registry entry, then shuts down the bus
// and tracing.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}
	a.started = false

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			slog.Warn("Failed to stop topology directory watcher", "error", err)
		}
	}
	a.cancel()

	if local := a.store.Get(); local != nil {
		if err := a.files.Delete(local.ServiceName); err != nil {
			slog.Warn("Could not delete topology files", "service", local.ServiceName, "error", err)
		} else {
			slog.Info("Topology files removed", "service", local.ServiceName)
		}
	}
	if err := a.registry.Unregister(a.cfg.SelfURL()); err != nil {
		slog.Warn("Could not unregister from peer registry", "error", err)
	}

	return errors.Join(a.bus.Close(), a.tracing.Shutdown(ctx))
}

// enrich attaches schema and example payload to every channel.
func (a *App) enrich() {
	t := a.store.Get()
	if t == nil {
		return
	}

	resolved := 0
	for i := range t.Channels {
		ch := &t.Channels[i]
		res := a.introspector.Resolve(ch.Name, ch.Direction)
		if res.Resolved {
			ch.Schema = res.Schema.JSON()
			resolved++
		}
		if example, err := json.Marshal(a.introspector.ExampleFor(ch.Name, ch.Direction)); err == nil {
			ch.Example = example
		}
	}
	a.store.Set(t)
	slog.Debug("Enriched channels with schemas", "channels", len(t.Channels), "resolved", resolved)
}

// LocalTopology returns this process's topology, or nil when none is registered.
func (a *App) LocalTopology() *topology.Topology {
	return a.store.Get()
}

// AggregatedView merges the local topology with every registered peer when
// autoDiscover is set, and renders the combined diagram.
func (a *App) AggregatedView(ctx context.Context, autoDiscover bool) View {
	local := a.store.Get()
	if local == nil {
		local = &topology.Topology{ServiceName: UnknownService, Channels: []topology.Channel{}}
	}

	var peers []string
	if autoDiscover {
		var err error
		if peers, err = a.registry.List(); err != nil {
			slog.Warn("Could not read peer registry", "registry", a.registry.Path(), "error", err)
		}
		metrics.KnownPeers.Set(float64(len(peers)))
	}

	res := a.collector.Collect(ctx, local, peers)
	return View{
		Topologies:         res.Topologies,
		Stats:              aggregator.ComputeStats(res.Topologies),
		DiscoveredServices: len(peers),
		FailedServices:     res.Failures,
		Diagram:            diagram.Render(res.Topologies),
	}
}

// Schema resolves a channel's message schema.
func (a *App) Schema(channel, direction string) (schema.Result, error) {
	dir, err := parseQuery(channel, direction)
	if err != nil {
		return schema.Result{}, err
	}
	return a.introspector.Resolve(channel, dir), nil
}

// Example returns an example payload for a channel. Unresolvable channels get a
// generic payload.
func (a *App) Example(channel, direction string) (any, error) {
	dir, err := parseQuery(channel, direction)
	if err != nil {
		return nil, err
	}
	return a.introspector.ExampleFor(channel, dir), nil
}

// RenderDiagram renders topologies as Mermaid text.
func (a *App) RenderDiagram(topologies []*topology.Topology) string {
	return diagram.Render(topologies)
}

// StoredTopologies loads the snapshots in the topology directory, scoped to the
// configured project.
func (a *App) StoredTopologies() ([]*topology.Topology, error) {
	if !a.cfg.Enabled {
		return []*topology.Topology{}, nil
	}
	return a.files.LoadAll(a.cfg.ProjectName)
}

// Peers lists registered peer URLs other than this process.
func (a *App) Peers() ([]string, error) {
	return a.registry.List()
}

// Send publishes payload on one of this process's outgoing channels.
func (a *App) Send(ctx context.Context, channel string, payload any) (string, error) {
	return a.sender.Send(ctx, channel, payload)
}

// SubscribeChanges calls fn for every snapshot change until ctx is cancelled.
func (a *App) SubscribeChanges(ctx context.Context, fn func(context.Context, storage.Change) error) error {
	return pubsub.Subscribe(ctx, a.bus, TopologyChanged, fn)
}

// NotifyChange publishes a snapshot change on the bus.
func (a *App) NotifyChange(ctx context.Context, change storage.Change) error {
	return pubsub.Publish(ctx, a.bus, TopologyChanged, change)
}

func (a *App) publishChange(change storage.Change) {
	if err := a.NotifyChange(context.Background(), change); err != nil {
		slog.Warn("Failed to publish topology change", "service", change.Service, "error", err)
	}
}

func parseQuery(channel, direction string) (topology.Direction, error) {
	if channel == "" {
		return "", &topology.Error{Kind: topology.ErrorInvalidInput, Message: "channel is required"}
	}
	dir, err := topology.ParseDirection(direction)
	if err != nil {
		return "", fmt.Errorf("channel %s: %w", channel, err)
	}
	return dir, nil
}
