package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfrund/msgtopology/internal/aggregator"
	"github.com/nfrund/msgtopology/internal/diagram"
)

func newDiagramCmd(opts *options) *cobra.Command {
	var (
		collect bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Render a Mermaid diagram",
		Long: `Render the topology as a Mermaid flowchart.

By default the diagram is built from the stored snapshots. With --collect every
registered peer is queried over HTTP instead; unreachable peers are reported on
stderr and left out of the diagram.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !collect {
				topologies, err := opts.store().LoadAll(opts.project)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), diagram.Render(topologies))
				return nil
			}

			peers, err := opts.registry().List()
			if err != nil {
				return err
			}
			res := aggregator.NewCollector(&http.Client{}, aggregator.DefaultPath, timeout).Collect(cmd.Context(), nil, peers)
			for _, f := range res.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "unreachable: %s\n", f)
			}
			fmt.Fprint(cmd.OutOrStdout(), diagram.Render(res.Topologies))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&collect, "collect", "c", false, "Query registered peers instead of reading stored snapshots")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", aggregator.DefaultTimeout, "Per-peer request timeout")
	return cmd
}
