package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrViolations is returned when a scan reports findings.
var ErrViolations = errors.New("ledger integrity violations found")

func newIntegrityCommand(factory Factory) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Check posted and cancelled vouchers against their ledger rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, factory, func(deps *Deps) error {
				if deps.Integrity == nil {
					return errors.New("integrity: scanner not configured")
				}
				report, err := deps.Integrity.Scan(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(report); err != nil {
						return err
					}
				} else {
					for _, v := range report.Violations {
						fmt.Fprintln(out, v.String())
					}
					fmt.Fprintf(out, "%d violation(s)\n", len(report.Violations))
				}
				if !report.OK() {
					return ErrViolations
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}
