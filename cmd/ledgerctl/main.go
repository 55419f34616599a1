package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/practice-ledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/practice-ledger/internal/app"
	"github.com/odyssey-erp/practice-ledger/internal/platform/cache"
	"github.com/odyssey-erp/practice-ledger/internal/platform/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(factory, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		if errors.Is(err, cli.ErrViolations) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func factory(ctx context.Context) (*cli.Deps, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2, ApplicationName: "ledgerctl", StatementTimeout: cfg.PGStatementTimeout})
	if err != nil {
		return nil, nil, err
	}
	redisClient, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	ledger := app.NewLedger(cfg, pool, redisClient, nil)
	client := asynq.NewClient(cfg.AsynqRedis())
	release := func() {
		_ = client.Close()
		_ = redisClient.Close()
		pool.Close()
	}
	return &cli.Deps{
		Statements: ledger.Statements,
		Accounts:   ledger.Accounts,
		Integrity:  ledger.Integrity,
		Vouchers:   ledger.Vouchers,
		Tasks:      client,
		DateLayout: cfg.LedgerDateLayout,
	}, release, nil
}
