package discovery

import (
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryPath = "/tmp/topology/services.txt"

func TestRegistry_SelfExclusion(t *testing.T) {
	fs := afero.NewMemMapFs()
	orders := NewRegistry(fs, registryPath, "http://localhost:8081")
	billing := NewRegistry(fs, registryPath, "http://localhost:8082")

	require.NoError(t, orders.Register("http://localhost:8081"))

	own, err := orders.List()
	require.NoError(t, err)
	assert.Empty(t, own, "a process never sees itself")

	other, err := billing.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:8081"}, other)
}

func TestRegistry_Mutations(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRegistry(fs, registryPath, "")

	t.Run("missing file lists nothing", func(t *testing.T) {
		peers, err := r.List()
		require.NoError(t, err)
		assert.Empty(t, peers)
	})

	t.Run("register appends and dedups", func(t *testing.T) {
		require.NoError(t, r.Register("http://a:1"))
		require.NoError(t, r.Register("http://b:2"))
		require.NoError(t, r.Register("http://a:1/"))

		peers, err := r.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"http://b:2", "http://a:1"}, peers)
	})

	t.Run("unregister is idempotent", func(t *testing.T) {
		require.NoError(t, r.Unregister("http://b:2"))
		require.NoError(t, r.Unregister("http://b:2"))

		peers, err := r.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"http://a:1"}, peers)
	})

	t.Run("blank and duplicate lines are dropped", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, registryPath, []byte("\nhttp://x:1\n\n  \nhttp://x:1\nhttp://y:2\n"), 0644))

		peers, err := r.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"http://x:1", "http://y:2"}, peers)

		require.NoError(t, r.Register("http://z:3"))
		data, err := afero.ReadFile(fs, registryPath)
		require.NoError(t, err)
		assert.Equal(t, "http://x:1\nhttp://y:2\nhttp://z:3\n", string(data))
	})

	t.Run("empty url is rejected", func(t *testing.T) {
		assert.Error(t, r.Register("  "))
	})
}

func TestRegistry_NoTempFilesLeftBehind(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRegistry(fs, registryPath, "")
	require.NoError(t, r.Register("http://a:1"))

	entries, err := afero.ReadDir(fs, "/tmp/topology")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "services.txt", entries[0].Name())
}

func TestRegistry_ConcurrentRegisterInProcess(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRegistry(fs, registryPath, "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.Register(fmt.Sprintf("http://peer-%d:80", i)))
		}(i)
	}
	wg.Wait()

	peers, err := r.List()
	require.NoError(t, err)
	assert.Len(t, peers, 20, "no registration may be lost within one process")
}
