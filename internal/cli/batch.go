package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"expansioncore/internal/core"
	"expansioncore/pkg/domain"
)

// errBatchFailures marks a batch that ran but had failing items. The summary
// has already been printed, so Execute only sets the exit code.
var errBatchFailures = errors.New("batch had failures")

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var payload core.BatchPayload

	actions := make([]string, 0, len(core.BatchActions))
	for _, a := range core.BatchActions {
		actions = append(actions, string(a))
	}

	cmd := &cobra.Command{
		Use:   "batch <entity> <action> <id>...",
		Short: "Apply one action to many records, reporting per-item results",
		Long: fmt.Sprintf("Entities: %s, %s, %s, %s.\nActions: %s.",
			domain.EntityStorePlan, domain.EntityCandidateLocation, domain.EntityStoreFile, domain.EntityFollowUp,
			strings.Join(actions, ", ")),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := core.BatchRequest{
				Entity: domain.EntityType(args[0]),
				Action: core.BatchAction(args[1]),
				IDs:    args[2:],
			}
			if req.Action == core.BatchReplaceTags && payload.Tags == nil {
				payload.Tags = []string{}
			}
			if payload.Status != "" || payload.Reason != "" || payload.Tags != nil {
				req.Payload = &payload
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				result, err := rt.svc.ExecuteBatch(ctx, req, rt.operator)
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
				if err != nil {
					return err
				}
				if result.FailureCount > 0 {
					return errBatchFailures
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&payload.Status, "status", "", "Target status for change_status")
	cmd.Flags().StringVar(&payload.Reason, "reason", "", "Reason recorded on every item")
	cmd.Flags().StringSliceVar(&payload.Tags, "tags", nil, "Replacement tags for replace_tags")
	return cmd
}
