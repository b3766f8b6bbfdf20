// Package discovery implements the file-backed peer registry co-located services
// use to find each other.
//
// The registry is a single text file with one base URL per line. Mutations rewrite
// the whole file through a temp file and rename, so readers never see a partial
// write. Calls within one process are serialized; concurrent read-modify-write from
// different processes can still lose an update. That race is accepted: the registry
// is best-effort discovery for development and operations tooling.
package discovery

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Registry is a file-backed set of peer base URLs.
type Registry struct {
	fs   afero.Fs
	path string
	self string
	mu   sync.Mutex
}

// NewRegistry creates a registry backed by the file at path. selfURL is never
// returned by List.
func NewRegistry(fs afero.Fs, path, selfURL string) *Registry {
	return &Registry{
		fs:   fs,
		path: path,
		self: normalize(selfURL),
	}
}

// Path returns the backing file location.
func (r *Registry) Path() string {
	return r.path
}

// Register adds url to the registry, moving it to the end if already present.
func (r *Registry) Register(url string) error {
	url = normalize(url)
	if url == "" {
		return errors.New("cannot register an empty url")
	}
	return r.mutate(url, true)
}

// Unregister removes url from the registry. Removing an absent url is not an error.
func (r *Registry) Unregister(url string) error {
	url = normalize(url)
	if url == "" {
		return nil
	}
	return r.mutate(url, false)
}

// List returns the registered peers in file order, excluding this process's own URL.
// A missing file means no peers yet.
func (r *Registry) List() ([]string, error) {
	lines, err := r.read()
	if err != nil {
		return nil, err
	}

	peers := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != r.self {
			peers = append(peers, line)
		}
	}
	return peers, nil
}

func (r *Registry) mutate(url string, add bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := r.read()
	if err != nil {
		return err
	}

	next := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if line != url {
			next = append(next, line)
		}
	}
	if add {
		next = append(next, url)
	}

	if err := r.write(next); err != nil {
		return fmt.Errorf("failed to update peer registry %s: %w", r.path, err)
	}
	slog.Debug("Peer registry updated", "path", r.path, "url", url, "registered", add, "peers", len(next))
	return nil
}

// read returns the distinct non-blank lines of the registry file.
func (r *Registry) read() ([]string, error) {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read peer registry %s: %w", r.path, err)
	}

	var lines []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := normalize(scanner.Text())
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// write replaces the registry file atomically.
func (r *Registry) write(lines []string) error {
	dir := filepath.Dir(r.path)
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(r.fs, dir, "."+filepath.Base(r.path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		r.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		r.fs.Remove(tmpName)
		return err
	}
	if err := r.fs.Rename(tmpName, r.path); err != nil {
		r.fs.Remove(tmpName)
		return err
	}
	return nil
}

func normalize(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}
