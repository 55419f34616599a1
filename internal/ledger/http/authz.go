package ledgerhttp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/shared"
	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
	"github.com/odyssey-erp/practice-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/practice-ledger/internal/shared"
)

// ActorAuthorizer grants lifecycle actions from the permissions of the actor
// stored in the request context.
type ActorAuthorizer struct{}

// Authorize implements vouchers.Authorizer.
func (ActorAuthorizer) Authorize(ctx context.Context, actorID int64, action vouchers.Action) error {
	actor, ok := internalShared.ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no actor", shared.ErrForbidden)
	}
	if actor.ID != actorID {
		return fmt.Errorf("%w: actor mismatch", shared.ErrForbidden)
	}
	if !actor.Can(string(action)) {
		return fmt.Errorf("%w: missing %s", shared.ErrForbidden, action)
	}
	return nil
}

func (h *Handler) require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := internalShared.ActorFromContext(r.Context())
			if !ok {
				h.respondError(w, httpx.ErrUnauthorized)
				return
			}
			if !actor.Can(perm) {
				h.respondError(w, fmt.Errorf("%w: missing %s", shared.ErrForbidden, perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorID(r *http.Request) int64 {
	actor, _ := internalShared.ActorFromContext(r.Context())
	return actor.ID
}
