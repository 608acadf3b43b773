package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"expansioncore/pkg/domain"
)

func newFollowUpCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "followup",
		Aliases: []string{"follow-up"},
		Short:   "Manage follow-up tasks on candidate locations",
	}
	cmd.AddCommand(newFollowUpCreateCmd(opts))
	cmd.AddCommand(newFollowUpGetCmd(opts))
	cmd.AddCommand(newFollowUpStatusCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts, domain.EntityFollowUp))
	return cmd
}

func newFollowUpCreateCmd(opts *rootOptions) *cobra.Command {
	var followUp domain.FollowUpRecord
	var kind, due string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a follow-up task on a candidate location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			followUp.Type = domain.FollowUpType(kind)
			if due != "" {
				ts, err := time.Parse(time.RFC3339, due)
				if err != nil {
					return domain.NewBadRequestError("invalid --due %q: %v", due, err)
				}
				followUp.DueAt = &ts
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.CreateFollowUp(ctx, followUp, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&followUp.LocationID, "location", "", "Candidate location id")
	cmd.Flags().StringVar(&kind, "type", "", "SITE_VISIT, NEGOTIATION, SURVEY or OTHER")
	cmd.Flags().StringVar(&followUp.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&followUp.AssigneeID, "assignee", "", "Assignee id (defaults to the operator)")
	cmd.Flags().StringVar(&due, "due", "", "Due time (RFC3339)")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newFollowUpGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a follow-up task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				followUp, err := rt.store.GetFollowUp(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), followUp)
			})
		},
	}
}

func newFollowUpStatusCmd(opts *rootOptions) *cobra.Command {
	var flags statusFlags

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a follow-up task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := flags.change(args[1])
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				followUp, err := rt.svc.ChangeFollowUpStatus(ctx, args[0], change, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), followUp)
			})
		},
	}
	flags.register(cmd)
	return cmd
}
