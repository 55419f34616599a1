package accounts

import (
	"context"
	"sort"
	"strconv"

	"github.com/odyssey-erp/practice-ledger/internal/platform/cache"
)

// Service is the read-only chart of accounts consumed by the ledger engine.
type Service struct {
	repo  Repository
	cache *cache.Versioned
}

// NewService constructs the chart. cache may be nil.
func NewService(repo Repository, cache *cache.Versioned) *Service {
	return &Service{repo: repo, cache: cache}
}

// Lookup resolves an account by id, returning shared.ErrAccountNotFound when missing.
func (s *Service) Lookup(ctx context.Context, id int64) (Account, error) {
	key, err := s.cache.BuildKey(ctx, "ledger", "account", strconv.FormatInt(id, 10))
	if err != nil {
		return s.repo.Get(ctx, id)
	}
	var account Account
	err = s.cache.FetchJSON(ctx, key, &account, func(ctx context.Context) (any, error) {
		return s.repo.Get(ctx, id)
	})
	return account, err
}

// ListActive returns selectable accounts ordered by code.
func (s *Service) ListActive(ctx context.Context) ([]Account, error) {
	accounts, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	sortByCode(accounts)
	return accounts, nil
}

// List returns every account, active or not, ordered by code.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	accounts, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, err
	}
	sortByCode(accounts)
	return accounts, nil
}

// Resolve batch-loads accounts keyed by id. Unknown ids are simply absent.
func (s *Service) Resolve(ctx context.Context, ids []int64) (map[int64]Account, error) {
	out := make(map[int64]Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	accounts, err := s.repo.ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

func sortByCode(accounts []Account) {
	sort.SliceStable(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
