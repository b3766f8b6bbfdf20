// Package cmd implements the topology-cli commands for inspecting a shared topology
// directory and peer registry without running a server.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nfrund/msgtopology/internal/config"
	"github.com/nfrund/msgtopology/internal/discovery"
	"github.com/nfrund/msgtopology/internal/storage"
)

var version = "0.1.0" // set at build time using -ldflags

// options are the persistent flags shared by every command.
type options struct {
	fs        afero.Fs
	dir       string
	project   string
	peersFile string
}

func (o *options) store() *storage.FileStore {
	return storage.NewFileStore(o.fs, o.dir)
}

func (o *options) registry() *discovery.Registry {
	path := o.peersFile
	if path == "" {
		path = filepath.Join(o.dir, "services.txt")
	}
	return discovery.NewRegistry(o.fs, path, "")
}

// NewRootCmd builds the command tree operating on fs.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	opts := &options{fs: fs}

	root := &cobra.Command{
		Use:   "topology-cli",
		Short: "Inspect the messaging topology of a service cluster",
		Long: `topology-cli reads the topology snapshots and peer registry that running
services publish to a shared directory.

Available commands:
  list      List stored topologies
  diagram   Render a Mermaid diagram of stored or live topologies
  peers     Inspect and edit the peer registry

Use "topology-cli [command] --help" for more information about a specific command.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "d", envOr("TOPOLOGY_DIRECTORY", config.DefaultDirectory), "Topology directory")
	flags.StringVarP(&opts.project, "project", "p", os.Getenv("TOPOLOGY_PROJECT_NAME"), "Only include topologies of this project")
	flags.StringVar(&opts.peersFile, "peers-file", os.Getenv("TOPOLOGY_PEERS_FILE"), "Peer registry file (default <dir>/services.txt)")

	root.AddCommand(
		newListCmd(opts),
		newDiagramCmd(opts),
		newPeersCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI against the OS filesystem.
func Execute() {
	if err := NewRootCmd(afero.NewOsFs()).Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of topology-cli",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "topology-cli v%s\n", version)
		},
	}
}
