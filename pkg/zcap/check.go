package zcap

import (
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// CheckCapability is the pure structural-validation function of spec
// §4.1. It never performs I/O or cryptography; it only checks that a
// capability document has the shape a root or delegated ZCAP requires.
//
// If expectRoot is true, cap must look like a root (no parentCapability, no
// expires, no proof); otherwise it must look like a delegated capability
// (all three required, exactly one delegation proof).
func CheckCapability(cap *Capability, expectRoot bool) error {
	if cap == nil {
		return zcaperr.New(zcaperr.CodeMissingField, "capability is nil")
	}
	if cap.ID == "" {
		return zcaperr.New(zcaperr.CodeMissingField, "capability is missing required field \"id\"")
	}
	if cap.Controller == "" {
		return zcaperr.New(zcaperr.CodeMissingField, "capability %q is missing required field \"controller\"", cap.ID)
	}
	if cap.InvocationTarget == "" {
		return zcaperr.New(zcaperr.CodeMissingField, "capability %q is missing required field \"invocationTarget\"", cap.ID)
	}

	if !MatchesContext(cap.Context) {
		return zcaperr.New(zcaperr.CodeWrongContext, "capability %q does not match the ZCAP context", cap.ID)
	}

	if expectRoot {
		if cap.ParentCapability != "" {
			return zcaperr.New(zcaperr.CodeInvalidShape, "root capability %q must not have a \"parentCapability\"", cap.ID)
		}
		if cap.Expires != nil {
			return zcaperr.New(zcaperr.CodeInvalidShape, "root capability %q must not have an \"expires\"", cap.ID)
		}
		if len(cap.Proof) != 0 {
			return zcaperr.New(zcaperr.CodeInvalidShape, "root capability %q must not have a \"proof\"", cap.ID)
		}
	} else {
		if cap.ParentCapability == "" {
			return zcaperr.New(zcaperr.CodeMissingField, "delegated capability %q is missing required field \"parentCapability\"", cap.ID)
		}
		if cap.Expires == nil {
			return zcaperr.New(zcaperr.CodeMissingField, "delegated capability %q is missing required field \"expires\"", cap.ID)
		}
		proof, err := cap.SoleDelegationProof()
		if err != nil {
			return err
		}
		if !MatchesContext(proof.Context) {
			return zcaperr.New(zcaperr.CodeWrongContext, "capability %q delegation proof does not match the ZCAP context", cap.ID)
		}
		if proof.ProofPurpose != ProofPurposeCapabilityDelegation {
			return zcaperr.New(zcaperr.CodeWrongProofPurpose,
				"capability %q delegation proof has proofPurpose %q, expected %q",
				cap.ID, proof.ProofPurpose, ProofPurposeCapabilityDelegation)
		}
		if proof.VerificationMethod == "" {
			return zcaperr.New(zcaperr.CodeMissingField, "capability %q delegation proof is missing \"verificationMethod\"", cap.ID)
		}
	}

	if len(cap.AllowedAction) == 0 && cap.AllowedAction != nil {
		return zcaperr.New(zcaperr.CodeInvalidShape, "capability %q has an empty \"allowedAction\"", cap.ID)
	}
	for _, action := range cap.AllowedAction {
		if action == "" {
			return zcaperr.New(zcaperr.CodeInvalidShape, "capability %q has an empty action name in \"allowedAction\"", cap.ID)
		}
	}

	return nil
}

// MatchesContext reports whether a document's @context set includes the
// canonical ZCAP context. Per spec §4.1, a document whose context does not
// include it is not an error in itself — callers treat this as a soft
// "does not match" from the match predicate — but CheckCapability applies
// it as a hard requirement on every capability, root or delegated, and on
// each delegation proof, since spec §4.1 requires the canonical context on
// both the capability and each proof before semantic reasoning begins. Invocation documents
// and invocation proofs apply the same check themselves in pkg/zcap/invocation.
func MatchesContext(ctx ContextSet) bool {
	return ctx.Has(ContextURL)
}
