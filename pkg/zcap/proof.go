package zcap

import (
	"encoding/json"
	"time"

	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// ProofPurposeCapabilityDelegation is the required proofPurpose of a
// delegation proof.
const ProofPurposeCapabilityDelegation = "capabilityDelegation"

// ProofPurposeCapabilityInvocation is the required proofPurpose of an
// invocation proof.
const ProofPurposeCapabilityInvocation = "capabilityInvocation"

// ChainEntry is one element of a capabilityChain array, or the `capability`
// field of an invocation proof: either a bare capability ID (a string) or a
// fully embedded Capability object.
type ChainEntry struct {
	ID         string
	Capability *Capability
}

// UnmarshalJSON accepts a bare string id or an embedded capability object.
func (e *ChainEntry) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		e.ID = id
		e.Capability = nil
		return nil
	}
	var cap Capability
	if err := json.Unmarshal(data, &cap); err != nil {
		return err
	}
	e.Capability = &cap
	e.ID = cap.ID
	return nil
}

// MarshalJSON emits the embedded capability when present, otherwise the
// bare id string.
func (e ChainEntry) MarshalJSON() ([]byte, error) {
	if e.Capability != nil {
		return json.Marshal(e.Capability)
	}
	return json.Marshal(e.ID)
}

// DelegationProof is the proof embedded in each delegated capability,
// per spec §3. Its own `@context` is required to include the canonical
// ZCAP context (spec §4.1) independently of the capability's — a proof
// whose context doesn't match does not match, regardless of the document
// that embeds it.
type DelegationProof struct {
	Context            ContextSet   `json:"@context,omitempty"`
	Type               string       `json:"type,omitempty"`
	ProofPurpose       string       `json:"proofPurpose"`
	Created            time.Time    `json:"created"`
	VerificationMethod string       `json:"verificationMethod"`
	CapabilityChain    []ChainEntry `json:"capabilityChain"`
	ProofValue         string       `json:"proofValue,omitempty"`
	Domain             string       `json:"domain,omitempty"`
	Challenge          string       `json:"challenge,omitempty"`
}

// InvocationProof is the proof embedded in the document being acted upon,
// per spec §3. See DelegationProof's Context field: the same "proof's own
// context" requirement applies here.
type InvocationProof struct {
	Context            ContextSet `json:"@context,omitempty"`
	Type               string     `json:"type,omitempty"`
	ProofPurpose       string     `json:"proofPurpose"`
	Capability         ChainEntry `json:"capability"`
	CapabilityAction   string     `json:"capabilityAction"`
	InvocationTarget   string     `json:"invocationTarget"`
	Created            time.Time  `json:"created"`
	VerificationMethod string     `json:"verificationMethod"`
	ProofValue         string     `json:"proofValue,omitempty"`
	Domain             string     `json:"domain,omitempty"`
	Challenge          string     `json:"challenge,omitempty"`
}

// SigningInput returns the bytes a SignatureSuite signs/verifies over: the
// proof with ProofValue cleared, canonically encoded. This is a
// deterministic stand-in for the JSON-LD canonicalization step that a real
// Linked Data Signature suite performs; that step is explicitly the
// injected suite's concern (spec §1), not this package's.
func (p *DelegationProof) SigningInput(capabilityID string) ([]byte, error) {
	cp := *p
	cp.ProofValue = ""
	buf, err := json.Marshal(struct {
		Capability string `json:"capability"`
		Proof      DelegationProof
	}{Capability: capabilityID, Proof: cp})
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeInvalidShape, err, "failed to encode delegation proof signing input")
	}
	return buf, nil
}

// SigningInput returns the bytes a SignatureSuite signs/verifies over for
// an invocation proof.
func (p *InvocationProof) SigningInput() ([]byte, error) {
	cp := *p
	cp.ProofValue = ""
	buf, err := json.Marshal(cp)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeInvalidShape, err, "failed to encode invocation proof signing input")
	}
	return buf, nil
}
