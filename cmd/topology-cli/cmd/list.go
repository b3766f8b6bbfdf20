package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nfrund/msgtopology/internal/topology"
)

func newListCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored topologies",
		Long: `List the topology snapshots currently published to the topology directory.

Examples:
  topology-cli list                      # table of every stored topology
  topology-cli list --project shop       # only topologies of project "shop"
  topology-cli list --format json        # full snapshots as JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topologies, err := opts.store().LoadAll(opts.project)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				if topologies == nil {
					topologies = []*topology.Topology{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(topologies)
			case "table":
				printTable(cmd, topologies)
				return nil
			default:
				return fmt.Errorf("unsupported output format %q, use table or json", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	return cmd
}

func printTable(cmd *cobra.Command, topologies []*topology.Topology) {
	if len(topologies) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No topologies found")
		return
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "SERVICE\tVERSION\tPROJECT\tCHANNELS\tURL")
	fmt.Fprintln(w, "-------\t-------\t-------\t--------\t---")
	for _, t := range topologies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			t.ServiceName,
			orDash(t.Version),
			orDash(t.ProjectName),
			len(t.Channels),
			orDash(t.ServiceURL))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
