package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

func newGroupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create, inspect, cancel and delete groups",
	}
	cmd.AddCommand(
		newGroupCreateCmd(opts),
		newGroupShowCmd(opts),
		newGroupCancelCmd(opts),
		newGroupDeleteCmd(opts),
	)
	return cmd
}

func newGroupCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		owner     string
		title     string
		flavor    string
		mode      string
		start     string
		minP      int
		maxP      int
		allowLate bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group and its owner membership",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startAt, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return domain.ErrValidation("startAt", "--start must be RFC3339: %v", err)
			}
			req := domain.CreateGroupRequest{
				Flavor:          domain.GroupFlavor(flavor),
				Title:           title,
				MinParticipants: minP,
				AllowJoinLate:   allowLate,
				JoinMode:        domain.JoinMode(mode),
				StartAt:         startAt,
			}
			if cmd.Flags().Changed("max") {
				req.MaxParticipants = &maxP
			}

			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			g, _, err := rt.app.Service.CreateGroup(cmd.Context(), owner, req)
			if err != nil {
				return err
			}
			return printGroup(cmd, g)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner user id (required)")
	cmd.Flags().StringVar(&title, "title", "", "Group title (required)")
	cmd.Flags().StringVar(&flavor, "flavor", "INTENT", "Group flavor: INTENT|EVENT")
	cmd.Flags().StringVar(&mode, "mode", "OPEN", "Join mode: OPEN|REQUEST|INVITE_ONLY")
	cmd.Flags().StringVar(&start, "start", "", "Start time, RFC3339 (required)")
	cmd.Flags().IntVar(&minP, "min", 0, "Minimum participants")
	cmd.Flags().IntVar(&maxP, "max", 0, "Maximum participants (omit for unlimited)")
	cmd.Flags().BoolVar(&allowLate, "allow-late", false, "Allow joining after the start time")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newGroupShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			g, err := rt.app.Service.GetGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printGroup(cmd, g)
		},
	}
}

func newGroupCancelCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "cancel <group-id>",
		Short: "Cancel a group; its memberships become read-only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.app.Service.CancelGroup(cmd.Context(), as, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "group %s cancelled\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "Acting user id; must be the owner (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newGroupDeleteCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Soft-delete a group; its memberships become read-only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.app.Service.DeleteGroup(cmd.Context(), as, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "group %s deleted\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "Acting user id; must be the owner (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
