// Package zcap implements the data model of an Authorization Capability
// (ZCAP): the schema of root and delegated capabilities, their embedded
// delegation proofs, and the structural checks applied before any semantic
// reasoning about a delegation chain.
package zcap

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// ContextURL is the canonical ZCAP v1 JSON-LD context. It MAY appear
// anywhere in a document's @context array and MAY coexist with other
// protected contexts; the engine never requires a fixed position.
const ContextURL = "https://w3id.org/zcap/v1"

// ContextSet models a JSON-LD @context value, which is either a single
// string/object or an ordered array of them.
type ContextSet []any

// UnmarshalJSON accepts both a bare context value and an array of them.
func (c *ContextSet) UnmarshalJSON(data []byte) error {
	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil {
		*c = arr
		return nil
	}
	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*c = ContextSet{single}
	return nil
}

// MarshalJSON emits a bare value when there is exactly one entry, and an
// array otherwise, matching common ZCAP document conventions.
func (c ContextSet) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]any(c))
}

// Has reports whether url is present anywhere in the context set, ignoring
// position.
func (c ContextSet) Has(url string) bool {
	for _, entry := range c {
		if s, ok := entry.(string); ok && s == url {
			return true
		}
	}
	return false
}

// ActionSet models `allowedAction`: absent (nil) means the universal set of
// actions; otherwise a non-empty ordered sequence of action names. On the
// wire it may be a bare string or an array of strings.
type ActionSet []string

// UnmarshalJSON accepts a bare string or an array of strings.
func (a *ActionSet) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = ActionSet{s}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	*a = arr
	return nil
}

// MarshalJSON emits a bare string for a single action, an array otherwise.
func (a ActionSet) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// Contains reports whether action is a member of the set. An absent
// (nil/empty) set is the universal set and contains every action.
func (a ActionSet) Contains(action string) bool {
	if len(a) == 0 {
		return true
	}
	for _, allowed := range a {
		if allowed == action {
			return true
		}
	}
	return false
}

// SubsetOf reports whether a is a subset of parent under the semantics of
// invariant 4 in spec §3: absent parent means any child is valid; absent
// child requires the parent to also be absent (the child would otherwise
// widen authority to the universal set).
func (a ActionSet) SubsetOf(parent ActionSet) bool {
	if len(parent) == 0 {
		return true
	}
	if len(a) == 0 {
		return false
	}
	for _, action := range a {
		if !parent.Contains(action) {
			return false
		}
	}
	return true
}

// Capability is the abstract capability of spec §3: a root ZCAP has no
// ParentCapability, no Expires, and no Proof; a delegated ZCAP requires all
// three.
type Capability struct {
	Context          ContextSet      `json:"@context"`
	ID               string          `json:"id"`
	Controller       string          `json:"controller,omitempty"`
	InvocationTarget string          `json:"invocationTarget,omitempty"`
	ParentCapability string          `json:"parentCapability,omitempty"`
	AllowedAction    ActionSet       `json:"allowedAction,omitempty"`
	Expires          *time.Time      `json:"expires,omitempty"`
	Proof            json.RawMessage `json:"proof,omitempty"`
}

// IsRoot reports whether the capability is structurally a root: no parent
// and no proof. This is a shape test only; CheckCapability still applies
// the full set of required/forbidden-field rules.
func (c *Capability) IsRoot() bool {
	return c.ParentCapability == "" && len(c.Proof) == 0
}

// DelegationProofs parses the Proof field, which may hold a single proof
// object or an array of them. A delegated capability must carry exactly
// one; a root must carry none.
func (c *Capability) DelegationProofs() ([]*DelegationProof, error) {
	if len(c.Proof) == 0 {
		return nil, nil
	}
	// Try a single object first, then an array.
	var one DelegationProof
	if err := json.Unmarshal(c.Proof, &one); err == nil && one.ProofPurpose != "" {
		return []*DelegationProof{&one}, nil
	}
	var many []*DelegationProof
	if err := json.Unmarshal(c.Proof, &many); err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeInvalidShape, err, "capability %q has a malformed proof", c.ID)
	}
	return many, nil
}

// SoleDelegationProof returns the capability's one delegation proof,
// failing if there are zero or more than one (spec §4.1: "zero or many is
// fatal").
func (c *Capability) SoleDelegationProof() (*DelegationProof, error) {
	proofs, err := c.DelegationProofs()
	if err != nil {
		return nil, err
	}
	if len(proofs) != 1 {
		return nil, zcaperr.New(zcaperr.CodeProofCount,
			"capability %q must carry exactly one delegation proof, found %d", c.ID, len(proofs))
	}
	return proofs[0], nil
}

// CreateRootCapability builds a minimal, valid root capability for
// controller over invocationTarget, per spec §6.
func CreateRootCapability(controller, invocationTarget string) *Capability {
	return &Capability{
		Context:          ContextSet{ContextURL},
		ID:               "urn:zcap:" + uuid.NewString(),
		Controller:       controller,
		InvocationTarget: invocationTarget,
	}
}
