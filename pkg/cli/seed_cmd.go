package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/admbtski/miglee-sub001/internal/app"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create a demo group with members in several states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			g, err := app.SeedDemo(cmd.Context(), rt.app.Service, time.Now())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), groupRecord(g))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded demo group %s\n", g.ID)
			return nil
		},
	}
}
