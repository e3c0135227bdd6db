package revocation

import (
	"context"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/chain"
)

// Hook builds an inspectCapabilityChain callback (spec.md §4.4 step 8) that
// rejects a dereferenced chain if any capability in it, root to tail, has
// been revoked.
func Hook(store *Store) func(ctx context.Context, dereferencedChain []*zcap.Capability, meta *chain.Meta) (bool, error) {
	return func(ctx context.Context, dereferencedChain []*zcap.Capability, meta *chain.Meta) (bool, error) {
		for _, c := range dereferencedChain {
			revoked, err := store.IsRevoked(ctx, c.ID)
			if err != nil {
				return false, err
			}
			if revoked {
				return false, nil
			}
		}
		return true, nil
	}
}
