package schema

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nfrund/msgtopology/internal/metrics"
	"github.com/nfrund/msgtopology/internal/topology"
)

// Result is the outcome of resolving a channel's message schema.
type Result struct {
	Schema   *Schema
	Resolved bool
	Reason   string
}

func unresolved(format string, args ...any) Result {
	return Result{Schema: &Schema{}, Reason: fmt.Sprintf(format, args...)}
}

// Introspector resolves and memoizes channel schemas.
//
// Successful resolutions are cached by (channel, direction) for the life of the
// process; message types are static, so entries never expire. Misses are not cached
// so a channel registered later can still resolve.
type Introspector struct {
	store *topology.Store
	types *TypeRegistry
	now   func() time.Time

	mu    sync.RWMutex
	cache map[string]*Schema
	group singleflight.Group

	resolutions atomic.Int64
}

// NewIntrospector creates an introspector reading channels from store and owner types from types.
func NewIntrospector(store *topology.Store, types *TypeRegistry) *Introspector {
	return &Introspector{
		store: store,
		types: types,
		now:   time.Now,
		cache: make(map[string]*Schema),
	}
}

// WithClock overrides the time source used for example payloads.
func (in *Introspector) WithClock(now func() time.Time) *Introspector {
	in.now = now
	return in
}

// Resolve returns the schema for a channel or the reason it could not be derived.
func (in *Introspector) Resolve(channel string, direction topology.Direction) Result {
	key := cacheKey(channel, direction)
	if s, ok := in.cached(key); ok {
		metrics.SchemaLookupsTotal.WithLabelValues(metrics.LookupHit).Inc()
		return Result{Schema: s, Resolved: true}
	}

	v, _, _ := in.group.Do(key, func() (any, error) {
		// another caller may have filled the cache while we waited
		if s, ok := in.cached(key); ok {
			return Result{Schema: s, Resolved: true}, nil
		}

		res := in.resolve(channel, direction)
		if res.Resolved {
			in.mu.Lock()
			in.cache[key] = res.Schema
			in.mu.Unlock()
			metrics.SchemaLookupsTotal.WithLabelValues(metrics.LookupResolved).Inc()
		} else {
			metrics.SchemaLookupsTotal.WithLabelValues(metrics.LookupUnresolved).Inc()
			slog.Debug("Schema not resolved", "channel", channel, "direction", direction, "reason", res.Reason)
		}
		return res, nil
	})
	return v.(Result)
}

// SchemaFor returns the channel's schema, or an empty schema when it cannot be resolved.
func (in *Introspector) SchemaFor(channel string, direction topology.Direction) *Schema {
	return in.Resolve(channel, direction).Schema
}

// ExampleFor synthesizes an example payload for the channel.
func (in *Introspector) ExampleFor(channel string, direction topology.Direction) any {
	return Example(in.SchemaFor(channel, direction), in.now())
}

// Resolutions reports how many times type resolution actually ran.
func (in *Introspector) Resolutions() int64 {
	return in.resolutions.Load()
}

func (in *Introspector) cached(key string) (*Schema, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	s, ok := in.cache[key]
	return s, ok
}

func (in *Introspector) resolve(channel string, direction topology.Direction) Result {
	in.resolutions.Add(1)

	t := in.store.Get()
	if t == nil {
		return unresolved("topology not registered")
	}

	ch, ok := t.FindChannel(channel, direction)
	if !ok {
		return unresolved("no %s channel named %q", direction, channel)
	}

	owner, ok := in.types.Lookup(ch.OwnerType)
	if !ok {
		return unresolved("owner type %q is not registered", ch.OwnerType)
	}

	msg, err := payloadType(owner, ch.OwnerMember, direction)
	if err != nil {
		return unresolved("%v", err)
	}

	s := extract(msg)
	if s.IsEmpty() {
		return unresolved("type %s produced an empty schema", msg)
	}
	return Result{Schema: s, Resolved: true}
}

func cacheKey(channel string, direction topology.Direction) string {
	return channel + ":" + string(direction)
}
