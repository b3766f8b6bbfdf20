package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/nfrund/msgtopology/internal/topology"
)

const (
	snapshotExt = ".json"
	urlExt      = ".url"
)

// FileStore keeps one JSON snapshot and one URL file per service in a shared directory.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes <serviceName>.json and, when serviceURL is set, <serviceName>.url.
// Existing files are truncated; an empty serviceURL removes any earlier .url file.
func (s *FileStore) Save(t *topology.Topology, serviceURL string) error {
	if t == nil || t.ServiceName == "" {
		return errors.New("cannot save a topology without a service name")
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create topology directory %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode topology %s: %w", t.ServiceName, err)
	}
	if err := afero.WriteFile(s.fs, s.snapshotPath(t.ServiceName), data, 0644); err != nil {
		return fmt.Errorf("failed to write topology %s: %w", t.ServiceName, err)
	}

	if serviceURL == "" {
		if err := s.fs.Remove(s.urlPath(t.ServiceName)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale service url for %s: %w", t.ServiceName, err)
		}
	} else if err := afero.WriteFile(s.fs, s.urlPath(t.ServiceName), []byte(serviceURL), 0644); err != nil {
		return fmt.Errorf("failed to write service url for %s: %w", t.ServiceName, err)
	}

	slog.Debug("Saved topology snapshot", "service", t.ServiceName, "dir", s.dir, "channels", len(t.Channels))
	return nil
}

// Load reads a single service's snapshot.
func (s *FileStore) Load(serviceName string) (*topology.Topology, error) {
	return s.load(s.snapshotPath(serviceName))
}

// LoadAll reads every snapshot in the directory, sorted by file name. Files that cannot
// be decoded are skipped. A non-empty projectFilter keeps only matching topologies.
func (s *FileStore) LoadAll(projectFilter string) ([]*topology.Topology, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list topology directory %s: %w", s.dir, err)
	}

	var result []*topology.Topology
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != snapshotExt {
			continue
		}

		t, err := s.load(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			slog.Warn("Skipping unreadable topology snapshot", "file", entry.Name(), "error", err)
			continue
		}
		if projectFilter != "" && t.ProjectName != projectFilter {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

// Delete removes a service's snapshot and URL file. Missing files are ignored.
func (s *FileStore) Delete(serviceName string) error {
	var errs []error
	for _, path := range []string{s.snapshotPath(serviceName), s.urlPath(serviceName)} {
		if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to delete topology %s: %w", serviceName, err)
	}
	return nil
}

func (s *FileStore) load(path string) (*topology.Topology, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}

	var t topology.Topology
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	urlFile := strings.TrimSuffix(path, snapshotExt) + urlExt
	if raw, err := afero.ReadFile(s.fs, urlFile); err == nil {
		t.ServiceURL = strings.TrimSpace(string(raw))
	}
	return &t, nil
}

func (s *FileStore) snapshotPath(serviceName string) string {
	return filepath.Join(s.dir, serviceName+snapshotExt)
}

func (s *FileStore) urlPath(serviceName string) string {
	return filepath.Join(s.dir, serviceName+urlExt)
}
