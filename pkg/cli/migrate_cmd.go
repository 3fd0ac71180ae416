package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	internaldb "github.com/admbtski/miglee-sub001/internal/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			v, err := internaldb.SchemaVersion(cmd.Context(), rt.writeDB)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"db": opts.loadedDB, "schemaVersion": v})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", opts.loadedDB, v)
			return nil
		},
	}
}
