package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/statement"
)

type exportOptions struct {
	account      string
	from         string
	to           string
	carryOpening bool
	outDir       string
	stdout       bool
}

func newExportCommand(factory Factory) *cobra.Command {
	opts := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an account statement as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, factory, func(deps *Deps) error {
				return runExport(cmd, deps, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.account, "account", "", "account code")
	cmd.Flags().StringVar(&opts.from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.carryOpening, "carry-opening", false, "seed the balance with activity before --from")
	cmd.Flags().StringVar(&opts.outDir, "out", ".", "output directory")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "write to stdout instead of a file")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func runExport(cmd *cobra.Command, deps *Deps, opts exportOptions) error {
	if deps.Accounts == nil || deps.Statements == nil {
		return errors.New("export: services not configured")
	}
	ctx := cmd.Context()
	list, err := deps.Accounts.List(ctx)
	if err != nil {
		return err
	}
	var accountID int64
	for _, a := range list {
		if strings.EqualFold(a.Code, opts.account) {
			accountID = a.ID
			break
		}
	}
	if accountID == 0 {
		return fmt.Errorf("export: account %q not found", opts.account)
	}
	q := statement.Query{AccountID: accountID, CarryOpening: opts.carryOpening}
	if q.From, err = parseDay(opts.from); err != nil {
		return err
	}
	if q.To, err = parseDay(opts.to); err != nil {
		return err
	}
	st, err := deps.Statements.Project(ctx, q)
	if err != nil {
		return err
	}
	if opts.stdout {
		return statement.WriteCSV(cmd.OutOrStdout(), st, deps.DateLayout)
	}
	name := filepath.Join(opts.outDir, statement.Filename(st.Account.Code, time.Now()))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := statement.WriteCSV(f, st, deps.DateLayout); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), name+"\n")
	return err
}

func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return &t, nil
}
