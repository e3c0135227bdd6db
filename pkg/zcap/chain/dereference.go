package chain

import (
	"context"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// RootCapabilityGetter resolves a claimed root capability id to its
// document. Implementations MUST return an error if id is not a member of
// the caller's expected-root set (spec §4.2 step 4: "the callback MUST
// throw if the ID is not an expected root").
type RootCapabilityGetter func(ctx context.Context, id string) (*zcap.Capability, error)

// DereferenceCapabilityChain transforms tail into an ordered
// [root, d1, ..., tail] sequence by walking the capabilityChain array found
// in tail's delegation proof, per spec §4.2. It is a pure function of its
// inputs modulo the getRoot callback, so running it twice on the same tail
// (with a deterministic getRoot) produces an identical sequence.
func DereferenceCapabilityChain(
	ctx context.Context,
	tail *zcap.Capability,
	getRoot RootCapabilityGetter,
	maxChainLength int,
) ([]*zcap.Capability, error) {
	chain, err := dereference(ctx, tail, getRoot, maxChainLength)
	if err != nil {
		return nil, err
	}
	if err := validateAssembled(chain, maxChainLength); err != nil {
		return nil, err
	}
	return chain, nil
}

func dereference(
	ctx context.Context,
	tail *zcap.Capability,
	getRoot RootCapabilityGetter,
	maxChainLength int,
) ([]*zcap.Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeCancelled, err, "dereference cancelled")
	}

	if tail.IsRoot() {
		if err := zcap.CheckCapability(tail, true); err != nil {
			return nil, err
		}
		return []*zcap.Capability{tail}, nil
	}

	if err := zcap.CheckCapability(tail, false); err != nil {
		return nil, err
	}

	proof, err := tail.SoleDelegationProof()
	if err != nil {
		return nil, err
	}

	k := len(proof.CapabilityChain)
	if k == 0 {
		return nil, zcaperr.New(zcaperr.CodeChainEmbedding,
			"capability %q has an empty capabilityChain", tail.ID)
	}
	if k+1 > maxChainLength {
		return nil, zcaperr.New(zcaperr.CodeChainTooLong,
			"capability %q's delegation chain has length %d, exceeding the maximum of %d",
			tail.ID, k+1, maxChainLength)
	}

	// Every entry before the last must be a bare id.
	for j := 0; j < k-1; j++ {
		if proof.CapabilityChain[j].Capability != nil {
			return nil, zcaperr.New(zcaperr.CodeChainEmbedding,
				"capability %q's capabilityChain entry %d must be a bare id, not an embedded capability", tail.ID, j)
		}
	}

	last := proof.CapabilityChain[k-1]

	var ancestors []*zcap.Capability
	if k == 1 {
		// Root-only ancestor: the last (and only) entry must be a bare id.
		if last.Capability != nil {
			return nil, zcaperr.New(zcaperr.CodeChainEmbedding,
				"capability %q's single-entry capabilityChain must be the root id, not an embedded capability", tail.ID)
		}
		root, err := getRoot(ctx, last.ID)
		if err != nil {
			return nil, zcaperr.Wrap(zcaperr.CodeUnexpectedRoot, err,
				"failed to resolve claimed root capability %q", last.ID)
		}
		ancestors = []*zcap.Capability{root}
	} else {
		// k >= 2: the last entry must be the fully embedded direct parent.
		// The engine trusts this embedding as the authoritative bearer of
		// the remainder of the chain and recurses into the parent's own
		// capabilityChain rather than trusting the intermediate bare ids
		// in this proof's array (spec §4.2 step 5).
		if last.Capability == nil {
			return nil, zcaperr.New(zcaperr.CodeChainEmbedding,
				"capability %q's capabilityChain last entry must be the embedded direct parent", tail.ID)
		}
		parentChain, err := dereference(ctx, last.Capability, getRoot, maxChainLength)
		if err != nil {
			return nil, err
		}
		ancestors = parentChain
	}

	return append(ancestors, tail), nil
}

// validateAssembled applies spec §4.2 steps 7-8 to the fully stitched
// chain: model-check every element, reject cycles, and enforce that each
// element's parentCapability points at the previous element's id.
func validateAssembled(chain []*zcap.Capability, maxChainLength int) error {
	if len(chain) > maxChainLength {
		return zcaperr.New(zcaperr.CodeChainTooLong,
			"dereferenced chain has length %d, exceeding the maximum of %d", len(chain), maxChainLength)
	}

	seen := make(map[string]bool, len(chain))
	for i, cap := range chain {
		expectRoot := i == 0
		if err := zcap.CheckCapability(cap, expectRoot); err != nil {
			return err
		}
		if seen[cap.ID] {
			return zcaperr.New(zcaperr.CodeChainCycle, "capability id %q appears more than once in the chain", cap.ID)
		}
		seen[cap.ID] = true

		if i > 0 && cap.ParentCapability != chain[i-1].ID {
			return zcaperr.New(zcaperr.CodeParentMismatch,
				"capability %q has parentCapability %q, expected %q",
				cap.ID, cap.ParentCapability, chain[i-1].ID)
		}
	}
	return nil
}
