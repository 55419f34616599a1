package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/integrity"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/statement"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
	"github.com/odyssey-erp/practice-ledger/internal/platform/cache"
	"github.com/odyssey-erp/practice-ledger/internal/shared"
)

// Ledger groups the wired ledger services shared by the binaries.
type Ledger struct {
	Cache       *cache.Versioned
	Accounts    *accounts.Service
	Vouchers    *vouchers.Service
	Statements  *statement.Service
	Integrity   *integrity.Scanner
	Audit       *shared.AuditLogger
	Idempotency *shared.IdempotencyStore
}

// NewLedger wires repositories, cache and services. redisClient may be nil,
// which disables caching. authz may be nil to allow every action.
func NewLedger(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, authz vouchers.Authorizer) *Ledger {
	versioned := cache.NewVersioned(redisClient, cfg.LedgerCacheTTL)
	chart := accounts.NewService(accounts.NewRepository(pool), versioned)
	audit := shared.NewAuditLogger(pool)
	voucherService := vouchers.NewService(vouchers.NewRepository(pool), chart, audit, authz, vouchers.Options{
		AllowPurge:   cfg.LedgerAllowPurge,
		StrictDrafts: cfg.LedgerStrictDrafts,
	})
	voucherService.WithInvalidator(versioned)
	return &Ledger{
		Cache:       versioned,
		Accounts:    chart,
		Vouchers:    voucherService,
		Statements:  statement.NewService(statement.NewRepository(pool), chart, versioned),
		Integrity:   integrity.NewScanner(integrity.NewRepository(pool)),
		Audit:       audit,
		Idempotency: shared.NewIdempotencyStore(pool),
	}
}
