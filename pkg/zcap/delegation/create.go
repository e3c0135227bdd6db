package delegation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/suite"
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// CreateDelegationInput bundles the parameters of spec §4.6's
// createDelegationProof.
type CreateDelegationInput struct {
	// Parent is the direct parent capability being delegated from. It
	// must already carry a valid delegation proof unless it is the root.
	Parent *zcap.Capability

	// Capability is the new, not-yet-proved delegated capability: its
	// ID, Controller, InvocationTarget, ParentCapability, AllowedAction
	// and Expires must already be set by the caller.
	Capability *zcap.Capability

	// Suite is the single signature suite used to sign the new proof.
	// Verification elsewhere accepts a suite.Suites list because a chain
	// may mix key types across delegations; creating a proof always
	// signs with exactly one suite.
	Suite              suite.SignatureSuite
	VerificationMethod string
	Created            time.Time
}

// CreateDelegationProof implements spec §4.6: it derives the new
// capability's capabilityChain from the parent (embedding the parent in
// full, per the chain dereferencer's embedding rule of spec §4.2), runs the
// pre-sign checks, signs, and attaches the resulting proof to
// in.Capability.
func CreateDelegationProof(ctx context.Context, in CreateDelegationInput) error {
	if in.Parent == nil || in.Capability == nil {
		return zcaperr.New(zcaperr.CodeMissingField, "createDelegationProof requires both a parent and a capability")
	}
	if in.Capability.ParentCapability != in.Parent.ID {
		return zcaperr.New(zcaperr.CodeParentMismatch,
			"capability %q's parentCapability %q does not match the supplied parent %q",
			in.Capability.ID, in.Capability.ParentCapability, in.Parent.ID)
	}

	created := in.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	if in.Capability.Expires == nil {
		return zcaperr.New(zcaperr.CodeMissingField, "delegated capability %q must set expires", in.Capability.ID)
	}
	if created.After(*in.Capability.Expires) {
		return zcaperr.New(zcaperr.CodeExpirationOrder,
			"capability %q would be created at %s, after its own expiration %s",
			in.Capability.ID, created, *in.Capability.Expires)
	}
	if !in.Capability.AllowedAction.SubsetOf(in.Parent.AllowedAction) {
		return zcaperr.New(zcaperr.CodeActionNotAllowed,
			"capability %q's allowedAction %v is not a subset of its parent's %v",
			in.Capability.ID, in.Capability.AllowedAction, in.Parent.AllowedAction)
	}
	if in.Parent.Expires != nil && in.Capability.Expires.After(*in.Parent.Expires) {
		return zcaperr.New(zcaperr.CodeExpirationOrder,
			"capability %q expires at %s, after its parent's %s",
			in.Capability.ID, *in.Capability.Expires, *in.Parent.Expires)
	}

	chainEntries, err := buildChain(in.Parent)
	if err != nil {
		return err
	}

	if !in.Parent.IsRoot() {
		parentProof, err := in.Parent.SoleDelegationProof()
		if err != nil {
			return err
		}
		if parentProof.Created.After(created) {
			return zcaperr.New(zcaperr.CodeDelegationTimeOrder,
				"capability %q would be delegated at %s, before its parent's delegation at %s",
				in.Capability.ID, created, parentProof.Created)
		}
	}

	proof := &zcap.DelegationProof{
		Context:            zcap.ContextSet{zcap.ContextURL},
		Type:               in.Suite.ID(),
		ProofPurpose:       zcap.ProofPurposeCapabilityDelegation,
		Created:            created,
		VerificationMethod: in.VerificationMethod,
		CapabilityChain:    chainEntries,
	}

	signingInput, err := proof.SigningInput(in.Capability.ID)
	if err != nil {
		return err
	}
	proofValue, verificationMethod, err := in.Suite.Sign(ctx, signingInput)
	if err != nil {
		return zcaperr.Wrap(zcaperr.CodeSignatureInvalid, err, "failed to sign delegation proof for capability %q", in.Capability.ID)
	}
	proof.ProofValue = proofValue
	if verificationMethod != "" {
		proof.VerificationMethod = verificationMethod
	}

	return attachDelegationProof(in.Capability, proof)
}

// buildChain computes the capabilityChain array a new delegation from
// parent must carry, per spec §4.2's embedding rule: every ancestor before
// the direct parent is a bare id, and the direct parent itself is fully
// embedded.
func buildChain(parent *zcap.Capability) ([]zcap.ChainEntry, error) {
	if parent.IsRoot() {
		return []zcap.ChainEntry{{ID: parent.ID}}, nil
	}
	parentProof, err := parent.SoleDelegationProof()
	if err != nil {
		return nil, err
	}
	if len(parentProof.CapabilityChain) == 0 {
		return nil, zcaperr.New(zcaperr.CodeChainEmbedding, "parent capability %q has an empty capabilityChain", parent.ID)
	}
	ancestorIDs := make([]zcap.ChainEntry, 0, len(parentProof.CapabilityChain)+1)
	for _, entry := range parentProof.CapabilityChain {
		ancestorIDs = append(ancestorIDs, zcap.ChainEntry{ID: entry.ID})
	}
	parentCopy := *parent
	ancestorIDs = append(ancestorIDs, zcap.ChainEntry{ID: parent.ID, Capability: &parentCopy})
	return ancestorIDs, nil
}

// attachDelegationProof marshals proof into capability.Proof.
func attachDelegationProof(capability *zcap.Capability, proof *zcap.DelegationProof) error {
	raw, err := json.Marshal(proof)
	if err != nil {
		return zcaperr.Wrap(zcaperr.CodeInvalidShape, err, "failed to encode delegation proof for capability %q", capability.ID)
	}
	capability.Proof = raw
	return nil
}
