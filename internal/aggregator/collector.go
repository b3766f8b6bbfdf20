// Package aggregator merges the local topology with those served by peer processes.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nfrund/msgtopology/internal/metrics"
	"github.com/nfrund/msgtopology/internal/topology"
)

// DefaultPath is where every process serves its own topology.
const DefaultPath = "/q/messaging-topology"

// DefaultTimeout bounds a single peer fetch.
const DefaultTimeout = 2 * time.Second

// Result is the merged view of one collection round.
type Result struct {
	// Topologies holds the local topology first, then reachable peers in input order.
	Topologies []*topology.Topology `json:"topologies"`
	// Failures describes each peer that could not be fetched.
	Failures []string `json:"failures"`
}

// Collector fetches topologies from peers over HTTP.
type Collector struct {
	client  *http.Client
	path    string
	timeout time.Duration
}

// NewCollector creates a collector. A nil client uses http.DefaultClient, an empty path
// uses DefaultPath and a non-positive timeout uses DefaultTimeout.
func NewCollector(client *http.Client, path string, timeout time.Duration) *Collector {
	if client == nil {
		client = http.DefaultClient
	}
	if path == "" {
		path = DefaultPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Collector{client: client, path: path, timeout: timeout}
}

type outcome struct {
	topology *topology.Topology
	failure  string
}

// Collect fetches every peer concurrently and merges the results after local, which
// is element zero whenever it is non-nil. A nil local is only passed by the CLI,
// which has no topology of its own; the result then holds peers alone.
// A peer that fails never affects the others.
func (c *Collector) Collect(ctx context.Context, local *topology.Topology, peers []string) Result {
	result := Result{
		Topologies: []*topology.Topology{},
		Failures:   []string{},
	}
	if local != nil {
		result.Topologies = append(result.Topologies, local)
	}
	if len(peers) == 0 {
		return result
	}

	outcomes := make([]outcome, len(peers))
	var g errgroup.Group
	for i, peer := range peers {
		g.Go(func() error {
			t, err := c.fetch(ctx, peer)
			if err != nil {
				outcomes[i].failure = err.Error()
				return nil
			}
			outcomes[i].topology = t
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.topology != nil {
			result.Topologies = append(result.Topologies, o.topology)
		} else {
			result.Failures = append(result.Failures, o.failure)
		}
	}

	slog.Debug("Collected peer topologies",
		"peers", len(peers),
		"reachable", len(result.Topologies)-boolToInt(local != nil),
		"failed", len(result.Failures))
	return result
}

func (c *Collector) fetch(ctx context.Context, peer string) (*topology.Topology, error) {
	start := time.Now()
	defer func() { metrics.PeerFetchDuration.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := strings.TrimRight(peer, "/") + c.path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.PeerFetchesTotal.WithLabelValues(metrics.OutcomeUnreachable).Inc()
		return nil, fmt.Errorf("%s (%v)", peer, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.PeerFetchesTotal.WithLabelValues(metrics.OutcomeUnreachable).Inc()
		slog.Debug("Peer unreachable", "peer", peer, "error", err)
		return nil, fmt.Errorf("%s (%v)", peer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PeerFetchesTotal.WithLabelValues(metrics.OutcomeHTTPError).Inc()
		return nil, fmt.Errorf("%s (HTTP %d)", peer, resp.StatusCode)
	}

	var t topology.Topology
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		metrics.PeerFetchesTotal.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, fmt.Errorf("%s (%v)", peer, err)
	}
	if t.ServiceURL == "" {
		t.ServiceURL = strings.TrimRight(peer, "/")
	}

	metrics.PeerFetchesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
