package topology_test

import (
	"encoding/json"
	"errors"
	iofs "io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/msgtopology/internal/topology"
)

const manifestYAML = `
serviceName: orders
groupId: com.example
version: 1.0.0
channels:
  - name: new-order
    direction: outgoing
    ownerType: example.OrderService
    ownerMember: NewOrders
  - name: payments-in
    direction: incoming
    ownerType: example.OrderService
    ownerMember: OnPayment
bindings:
  outgoing:
    new-order:
      topic: orders.new
      connector: kafka
`

func TestChannel_EffectiveTopic(t *testing.T) {
	ch := topology.Channel{Name: "new-order", Direction: topology.Outgoing}
	assert.Equal(t, "new-order", ch.EffectiveTopic())

	ch.Topic = "orders.new"
	assert.Equal(t, "orders.new", ch.EffectiveTopic())

	assert.Equal(t, "x", topology.NewChannel("x", topology.Incoming, "T", "M").Topic)
}

func TestParseDirection(t *testing.T) {
	d, err := topology.ParseDirection("incoming")
	require.NoError(t, err)
	assert.Equal(t, topology.Incoming, d)

	_, err = topology.ParseDirection("sideways")
	require.Error(t, err)
	assert.True(t, errors.Is(err, &topology.Error{Kind: topology.ErrorInvalidInput}))
}

func TestStore(t *testing.T) {
	t.Run("empty store returns nil", func(t *testing.T) {
		s := topology.NewStore(nil)
		assert.Nil(t, s.Get())
		assert.False(t, s.Update(func(*topology.Topology) {}))
	})

	t.Run("Get returns an isolated copy", func(t *testing.T) {
		s := topology.NewStore(&topology.Topology{
			ServiceName: "orders",
			Channels:    []topology.Channel{{Name: "a", Direction: topology.Outgoing, Schema: json.RawMessage(`{}`)}},
		})

		got := s.Get()
		got.ServiceName = "changed"
		got.Channels[0].Name = "changed"

		again := s.Get()
		assert.Equal(t, "orders", again.ServiceName)
		assert.Equal(t, "a", again.Channels[0].Name)
	})

	t.Run("Update replaces the value", func(t *testing.T) {
		s := topology.NewStore(&topology.Topology{ServiceName: "orders"})
		ok := s.Update(func(t *topology.Topology) { t.ProjectName = "shop" })
		assert.True(t, ok)
		assert.Equal(t, "shop", s.Get().ProjectName)
	})
}

func TestValidate(t *testing.T) {
	err := topology.Validate(&topology.Topology{
		ServiceName: "orders",
		Channels:    []topology.Channel{{Name: "", Direction: topology.Outgoing}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name")

	err = topology.ValidateChannel(topology.Channel{Name: "a", Direction: "sideways"})
	require.Error(t, err)

	assert.NoError(t, topology.Validate(&topology.Topology{ServiceName: "orders"}))
}

func TestLoadManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "topology.yaml", []byte(manifestYAML), 0644))

	topo, err := topology.LoadManifest(fs, "topology.yaml", "gochannel")
	require.NoError(t, err)

	assert.Equal(t, "orders", topo.ServiceName)
	assert.Equal(t, "orders", topo.ArtifactID, "artifact id defaults to the service name")
	require.Len(t, topo.Channels, 2)

	out := topo.Channels[0]
	assert.Equal(t, "orders.new", out.Topic)
	assert.Equal(t, "kafka", out.Connector)
	assert.Equal(t, "NewOrders", out.OwnerMember)

	in := topo.Channels[1]
	assert.Equal(t, topology.Incoming, in.Direction)
	assert.Equal(t, "payments-in", in.Topic, "unbound channels fall back to their name")
	assert.Equal(t, "gochannel", in.Connector)

	t.Run("missing file", func(t *testing.T) {
		_, err := topology.LoadManifest(fs, "nope.yaml", "gochannel")
		assert.ErrorIs(t, err, iofs.ErrNotExist)
	})

	t.Run("invalid channel is rejected", func(t *testing.T) {
		_, err := topology.ParseManifest([]byte("serviceName: x\nchannels:\n  - direction: incoming\n"), "")
		assert.Error(t, err)
	})
}

func TestTopology_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(topology.Topology{
		ServiceName: "orders",
		Channels:    []topology.Channel{topology.NewChannel("c", topology.Incoming, "T", "M")},
	})
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"serviceName":"orders"`)
	assert.Contains(t, s, `"channelName":"c"`)
	assert.Contains(t, s, `"className":"T"`)
	assert.Contains(t, s, `"methodName":"M"`)
	assert.NotContains(t, s, "examplePayload")
}
