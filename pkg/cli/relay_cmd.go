package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRelayCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Re-dispatch undelivered membership notifications",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run-once",
		Short: "Redeliver one batch of undelivered events and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.app.Relay.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int{"delivered": n})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "redelivered %d event(s)\n", n)
			return nil
		},
	})
	return cmd
}
