package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPeersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Inspect and edit the peer registry",
		Long: `The peers command manages the shared registry file that running services
use to find each other.

Examples:
  topology-cli peers list
  topology-cli peers register http://billing:8080
  topology-cli peers unregister http://billing:8080`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registered peer URLs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				peers, err := opts.registry().List()
				if err != nil {
					return err
				}
				if len(peers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No peers registered")
					return nil
				}
				for _, p := range peers {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "register <url>",
			Short: "Add a peer URL to the registry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := opts.registry().Register(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "unregister <url>",
			Short: "Remove a peer URL from the registry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := opts.registry().Unregister(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unregistered %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
