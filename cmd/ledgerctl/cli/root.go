// Package cli implements the ledgerctl operator commands.
package cli

import (
	"context"
	"io"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/integrity"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/statement"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
)

// StatementProjector builds account statements.
type StatementProjector interface {
	Project(ctx context.Context, q statement.Query) (statement.Statement, error)
}

// AccountFinder resolves an account by code.
type AccountFinder interface {
	List(ctx context.Context) ([]accounts.Account, error)
}

// IntegrityScanner runs the ledger checks.
type IntegrityScanner interface {
	Scan(ctx context.Context) (integrity.Report, error)
}

// VoucherRemover deletes or purges vouchers.
type VoucherRemover interface {
	Delete(ctx context.Context, in vouchers.DeleteInput) error
}

// TaskEnqueuer submits background tasks.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Deps are the services a command may use. Unused fields may be nil.
type Deps struct {
	Statements StatementProjector
	Accounts   AccountFinder
	Integrity  IntegrityScanner
	Vouchers   VoucherRemover
	Tasks      TaskEnqueuer
	DateLayout string
}

// Factory builds dependencies on demand and returns a release function.
type Factory func(ctx context.Context) (*Deps, func(), error)

// NewRootCommand assembles the ledgerctl command tree.
func NewRootCommand(factory Factory, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the voucher ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(
		newExportCommand(factory),
		newIntegrityCommand(factory),
		newPurgeCommand(factory),
		newJobsCommand(factory),
	)
	return root
}

func withDeps(cmd *cobra.Command, factory Factory, fn func(*Deps) error) error {
	deps, release, err := factory(cmd.Context())
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}
	return fn(deps)
}
