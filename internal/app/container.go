package app

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/msgtopology/internal/aggregator"
	"github.com/nfrund/msgtopology/internal/config"
	"github.com/nfrund/msgtopology/internal/discovery"
	"github.com/nfrund/msgtopology/internal/messaging"
	"github.com/nfrund/msgtopology/internal/pubsub"
	"github.com/nfrund/msgtopology/internal/schema"
	"github.com/nfrund/msgtopology/internal/storage"
	"github.com/nfrund/msgtopology/internal/topology"
)

// Tracing holds the publish tracer and the function flushing it.
type Tracing struct {
	Tracer   trace.Tracer
	Shutdown func(context.Context) error
}

// NewInjector wires every component of the application. local is the topology read
// from the manifest and may be nil; configured identity overrides are applied to it.
func NewInjector(cfg *config.Config, fs afero.Fs, types *schema.TypeRegistry, local *topology.Topology) *do.RootScope {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, fs)
	do.ProvideValue(i, types)

	do.Provide(i, func(i do.Injector) (*topology.Store, error) {
		return topology.NewStore(withOverrides(local, do.MustInvoke[*config.Config](i))), nil
	})

	do.Provide(i, func(i do.Injector) (*schema.Introspector, error) {
		return schema.NewIntrospector(
			do.MustInvoke[*topology.Store](i),
			do.MustInvoke[*schema.TypeRegistry](i),
		), nil
	})

	do.Provide(i, func(i do.Injector) (storage.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return storage.NewFileStore(do.MustInvoke[afero.Fs](i), cfg.Directory), nil
	})

	do.Provide(i, func(i do.Injector) (*discovery.Registry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return discovery.NewRegistry(do.MustInvoke[afero.Fs](i), cfg.PeersFile, cfg.SelfURL()), nil
	})

	do.Provide(i, func(i do.Injector) (*aggregator.Collector, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return aggregator.NewCollector(&http.Client{}, aggregator.DefaultPath, cfg.FetchTimeout), nil
	})

	do.Provide(i, func(i do.Injector) (*Tracing, error) {
		cfg := do.MustInvoke[*config.Config](i)
		tracer, shutdown, err := pubsub.SetupTracing(context.Background(), pubsub.TracingConfig{
			Enabled:     cfg.TracingEnabled,
			ServiceName: serviceNameOf(do.MustInvoke[*topology.Store](i)),
			ZipkinURL:   cfg.ZipkinURL,
		})
		if err != nil {
			return nil, err
		}
		return &Tracing{Tracer: tracer, Shutdown: shutdown}, nil
	})

	do.Provide(i, func(i do.Injector) (*pubsub.WatermillBridge, error) {
		tracing := do.MustInvoke[*Tracing](i)
		return pubsub.NewWatermillBridge(pubsub.WithTracer(tracing.Tracer)), nil
	})

	do.Provide(i, func(i do.Injector) (*messaging.Sender, error) {
		return messaging.NewSender(
			do.MustInvoke[*topology.Store](i),
			do.MustInvoke[*pubsub.WatermillBridge](i),
		), nil
	})

	do.Provide(i, New)

	return i
}

// withOverrides applies configured identity to the manifest topology. Without a
// manifest, a configured service name still yields an empty topology.
func withOverrides(local *topology.Topology, cfg *config.Config) *topology.Topology {
	t := local.Clone()
	if t == nil {
		if cfg.ServiceName == "" {
			return nil
		}
		t = &topology.Topology{Channels: []topology.Channel{}}
	}

	if cfg.ServiceName != "" {
		t.ServiceName = cfg.ServiceName
	}
	if t.ArtifactID == "" {
		t.ArtifactID = t.ServiceName
	}
	if cfg.GroupID != "" {
		t.GroupID = cfg.GroupID
	}
	if cfg.ProjectName != "" {
		t.ProjectName = cfg.ProjectName
	}
	return t
}

func serviceNameOf(store *topology.Store) string {
	if t := store.Get(); t != nil {
		return t.ServiceName
	}
	return "msgtopology"
}
