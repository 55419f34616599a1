package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
)

func newPurgeCommand(factory Factory) *cobra.Command {
	var (
		voucherID int64
		actorID   int64
		reason    string
		confirm   bool
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Irreversibly remove a posted or cancelled voucher and its ledger rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("purge: refusing without --yes")
			}
			if strings.TrimSpace(reason) == "" {
				return errors.New("purge: --reason is required")
			}
			return withDeps(cmd, factory, func(deps *Deps) error {
				if deps.Vouchers == nil {
					return errors.New("purge: voucher service not configured")
				}
				err := deps.Vouchers.Delete(cmd.Context(), vouchers.DeleteInput{
					VoucherID: voucherID,
					ActorID:   actorID,
					Purge:     true,
					Reason:    reason,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "voucher %d purged\n", voucherID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&voucherID, "voucher", 0, "voucher id")
	cmd.Flags().Int64Var(&actorID, "actor", 0, "operator user id recorded in the audit log")
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the audit log")
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the irreversible purge")
	_ = cmd.MarkFlagRequired("voucher")
	return cmd
}
