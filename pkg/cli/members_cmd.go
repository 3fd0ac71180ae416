package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

func newMembersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Inspect group memberships",
	}
	cmd.AddCommand(newMembersListCmd(opts))
	return cmd
}

func newMembersListCmd(opts *rootOptions) *cobra.Command {
	var (
		status     string
		maxResults int
		pageToken  string
	)
	cmd := &cobra.Command{
		Use:   "list <group-id>",
		Short: "List memberships of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *domain.Status
			if status != "" {
				st, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = &st
			}

			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			page := domain.PageRequest{MaxResults: maxResults, PageToken: pageToken}
			members, total, err := rt.app.Service.ListMembers(cmd.Context(), args[0], filter, page)
			if err != nil {
				return err
			}
			next := domain.NextPageToken(page.Offset(), page.Limit(), total)

			if getOutputFormat(cmd) == "json" {
				data := make([]map[string]interface{}, len(members))
				for i, m := range members {
					data[i] = map[string]interface{}{
						"userId":    m.UserID,
						"role":      m.Role,
						"status":    m.Status,
						"joinedAt":  m.JoinedAt,
						"leftAt":    m.LeftAt,
						"addedById": m.AddedByID,
						"version":   m.Version,
					}
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"data":          data,
					"total":         total,
					"nextPageToken": next,
				})
			}

			rows := make([][]string, len(members))
			for i, m := range members {
				rows[i] = []string{m.UserID, string(m.Role), string(m.Status), formatTime(m.JoinedAt), formatTime(m.LeftAt), formatOptional(m.AddedByID)}
			}
			if err := printTable(cmd.OutOrStdout(), []string{"user", "role", "status", "joined", "left", "added by"}, rows); err != nil {
				return err
			}
			if next != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nmore results: --page-token %s\n", next)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list memberships in this status")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Page size")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Continue from a previous page")
	return cmd
}
