package delegation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/suite"
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// CreateInvocationInput bundles the parameters of spec §4.6's
// createInvocationProof.
type CreateInvocationInput struct {
	// Capability is the tail being invoked, already fully delegated (or
	// the root itself).
	Capability *zcap.Capability

	CapabilityAction string
	InvocationTarget string

	Suite              suite.SignatureSuite
	VerificationMethod string
	Created            time.Time

	// EmbedCapability embeds the full capability in the invocation
	// proof's `capability` field instead of a bare id. Useful when the
	// verifying party has no document loader configured for this id.
	EmbedCapability bool
}

// invocationDocument is the shape CreateInvocationProof returns: a document
// whose @context and proof are ready to ship to a verifier, per spec §6.
type invocationDocument struct {
	Context zcap.ContextSet       `json:"@context"`
	Proof   *zcap.InvocationProof `json:"proof"`
}

// CreateInvocationProof implements spec §4.6's second half: a minimal
// invocation document bearing capability, capabilityAction and
// invocationTarget, signed over by in.Suite.
func CreateInvocationProof(ctx context.Context, in CreateInvocationInput) ([]byte, error) {
	if in.Capability == nil {
		return nil, zcaperr.New(zcaperr.CodeMissingField, "createInvocationProof requires a capability")
	}
	if in.CapabilityAction == "" {
		return nil, zcaperr.New(zcaperr.CodeMissingField, "createInvocationProof requires capabilityAction")
	}
	if !in.Capability.AllowedAction.Contains(in.CapabilityAction) {
		return nil, zcaperr.New(zcaperr.CodeActionNotAllowed,
			"capability %q does not allow action %q", in.Capability.ID, in.CapabilityAction)
	}
	target := in.InvocationTarget
	if target == "" {
		target = in.Capability.InvocationTarget
	}

	created := in.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	ref := zcap.ChainEntry{ID: in.Capability.ID}
	if in.EmbedCapability {
		ref.Capability = in.Capability
	}

	proof := &zcap.InvocationProof{
		Context:            zcap.ContextSet{zcap.ContextURL},
		Type:               in.Suite.ID(),
		ProofPurpose:       zcap.ProofPurposeCapabilityInvocation,
		Capability:         ref,
		CapabilityAction:   in.CapabilityAction,
		InvocationTarget:   target,
		Created:            created,
		VerificationMethod: in.VerificationMethod,
	}

	signingInput, err := proof.SigningInput()
	if err != nil {
		return nil, err
	}
	proofValue, verificationMethod, err := in.Suite.Sign(ctx, signingInput)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeSignatureInvalid, err, "failed to sign invocation proof for capability %q", in.Capability.ID)
	}
	proof.ProofValue = proofValue
	if verificationMethod != "" {
		proof.VerificationMethod = verificationMethod
	}

	doc := invocationDocument{Context: zcap.ContextSet{zcap.ContextURL}, Proof: proof}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeInvalidShape, err, "failed to encode invocation document")
	}
	return raw, nil
}
