package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/msgtopology/internal/topology"
)

const dir = "/tmp/topology"

func sampleTopology(service, project string) *topology.Topology {
	return &topology.Topology{
		ServiceName: service,
		GroupID:     "com.example",
		ArtifactID:  service,
		Version:     "1.0.0",
		ProjectName: project,
		Channels: []topology.Channel{
			topology.NewChannel(service+"-out", topology.Outgoing, service+".Service", "Emit"),
		},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, dir)

	original := sampleTopology("orders", "shop")
	require.NoError(t, store.Save(original, "http://localhost:8081"))

	all, err := store.LoadAll("")
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, "http://localhost:8081", got.ServiceURL)
	got.ServiceURL = ""
	assert.Equal(t, original, got)

	data, err := afero.ReadFile(fs, filepath.Join(dir, "orders.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"serviceName\": \"orders\"", "snapshots are pretty printed")
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), dir)

	require.NoError(t, store.Save(sampleTopology("orders", ""), "http://a"))
	updated := sampleTopology("orders", "")
	updated.Version = "2.0.0"
	require.NoError(t, store.Save(updated, "http://b"))

	got, err := store.Load("orders")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Version)
	assert.Equal(t, "http://b", got.ServiceURL)
}

func TestFileStore_SaveWithoutURLDropsStaleURL(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, dir)

	require.NoError(t, store.Save(sampleTopology("orders", ""), "http://old:8080"))
	require.NoError(t, store.Save(sampleTopology("orders", ""), ""))

	got, err := store.Load("orders")
	require.NoError(t, err)
	assert.Empty(t, got.ServiceURL)

	exists, err := afero.Exists(fs, filepath.Join(dir, "orders.url"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStore_LoadAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, dir)

	t.Run("missing directory is empty", func(t *testing.T) {
		all, err := store.LoadAll("")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	require.NoError(t, store.Save(sampleTopology("billing", "shop"), ""))
	require.NoError(t, store.Save(sampleTopology("orders", "shop"), "http://localhost:8081"))
	require.NoError(t, store.Save(sampleTopology("crm", "sales"), ""))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	t.Run("corrupt files are skipped", func(t *testing.T) {
		all, err := store.LoadAll("")
		require.NoError(t, err)

		var names []string
		for _, tp := range all {
			names = append(names, tp.ServiceName)
		}
		assert.Equal(t, []string{"billing", "crm", "orders"}, names)
	})

	t.Run("project filter", func(t *testing.T) {
		all, err := store.LoadAll("shop")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "billing", all[0].ServiceName)
		assert.Empty(t, all[0].ServiceURL, "no url file means no url")
		assert.Equal(t, "http://localhost:8081", all[1].ServiceURL)
	})
}

func TestFileStore_Delete(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, dir)
	require.NoError(t, store.Save(sampleTopology("orders", ""), "http://localhost:8081"))

	require.NoError(t, store.Delete("orders"))
	require.NoError(t, store.Delete("orders"), "deleting twice is not an error")

	for _, name := range []string{"orders.json", "orders.url"} {
		exists, err := afero.Exists(fs, filepath.Join(dir, name))
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
}

func TestFileStore_SaveRejectsAnonymousTopology(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), dir)
	assert.Error(t, store.Save(&topology.Topology{}, ""))
	assert.Error(t, store.Save(nil, ""))
}

func TestChangeFor(t *testing.T) {
	cases := []struct {
		event fsnotify.Event
		want  Change
		ok    bool
	}{
		{fsnotify.Event{Name: "/d/orders.json", Op: fsnotify.Create}, Change{"orders", OpUpdated}, true},
		{fsnotify.Event{Name: "/d/orders.json", Op: fsnotify.Write}, Change{"orders", OpUpdated}, true},
		{fsnotify.Event{Name: "/d/orders.json", Op: fsnotify.Remove}, Change{"orders", OpRemoved}, true},
		{fsnotify.Event{Name: "/d/orders.json", Op: fsnotify.Rename}, Change{"orders", OpRemoved}, true},
		{fsnotify.Event{Name: "/d/orders.json", Op: fsnotify.Chmod}, Change{}, false},
		{fsnotify.Event{Name: "/d/orders.url", Op: fsnotify.Write}, Change{}, false},
		{fsnotify.Event{Name: "/d/.services.txt-123", Op: fsnotify.Create}, Change{}, false},
	}
	for _, tc := range cases {
		got, ok := changeFor(tc.event)
		assert.Equal(t, tc.ok, ok, tc.event.String())
		assert.Equal(t, tc.want, got, tc.event.String())
	}
}

func TestWatcher_ReportsSnapshotChanges(t *testing.T) {
	root := t.TempDir()

	var mu sync.Mutex
	var changes []Change
	w := NewWatcher(root, func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, c)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	store := NewFileStore(afero.NewOsFs(), root)
	require.NoError(t, store.Save(sampleTopology("orders", ""), ""))

	seen := func(want Change) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range changes {
				if c == want {
					return true
				}
			}
			return false
		}
	}
	assert.Eventually(t, seen(Change{"orders", OpUpdated}), 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "orders.json")))
	assert.Eventually(t, seen(Change{"orders", OpRemoved}), 2*time.Second, 10*time.Millisecond)
}
