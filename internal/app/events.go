package app

import (
	"github.com/nfrund/msgtopology/internal/pubsub"
	"github.com/nfrund/msgtopology/internal/schema"
	"github.com/nfrund/msgtopology/internal/storage"
)

// EventsType is the owner type name under which the engine's own events are registered.
const EventsType = "msgtopology.Events"

// Events lists the events the engine itself publishes, so a manifest can declare
// them as channels and have their schemas resolved like any other.
type Events struct {
	TopologyChanged pubsub.Event[storage.Change]
}

// RegisterTypes adds the engine's own owner types to types.
func RegisterTypes(types *schema.TypeRegistry) {
	types.Register(EventsType, Events{TopologyChanged: TopologyChanged})
}
