// Package chain implements the Chain Dereferencer and Chain Verifier: the
// heart of the ZCAP engine. It turns a tail capability into an ordered
// root-to-tail sequence and then walks that sequence enforcing the
// cryptographic, identity, attenuation, temporal, and TTL invariants of
// spec §3/§4.3.
package chain

import "github.com/relves/zcapcore/pkg/zcap"

// EntryMeta records what the verifier learned about one delegated
// capability in a chain: whether its delegation proof has already been
// cryptographically verified, and (if so) against which parent. The
// VerifiedParentCapability field is the `_verifiedParentCapability` marker
// of spec §9 — carrying it on a plain struct field, rather than an
// inheritance hierarchy, is what lets the delegation adapter short-circuit
// instead of re-entering full chain verification (spec §4.5 step 6).
type EntryMeta struct {
	CapabilityID             string
	Verified                 bool
	VerifiedParentCapability *zcap.Capability
}

// Meta accumulates one EntryMeta per delegated capability walked by
// VerifyCapabilityChain. Callers may pass a Meta in to observe verification
// results after the fact, or to seed already-known results: a capability
// whose entry is already marked Verified has its delegation proof's
// signature and identity check skipped by the chain verifier. The
// delegation adapter passes through whatever Meta its own caller supplied
// (or a fresh one); it does not seed entries itself.
type Meta struct {
	entries map[string]*EntryMeta
	order   []string
}

// NewMeta returns an empty Meta ready for use.
func NewMeta() *Meta {
	return &Meta{entries: make(map[string]*EntryMeta)}
}

// Get returns the recorded entry for capabilityID, or nil if none exists
// yet.
func (m *Meta) Get(capabilityID string) *EntryMeta {
	if m == nil {
		return nil
	}
	return m.entries[capabilityID]
}

// Set records (or overwrites) the entry for a capability id.
func (m *Meta) Set(e *EntryMeta) {
	if _, ok := m.entries[e.CapabilityID]; !ok {
		m.order = append(m.order, e.CapabilityID)
	}
	m.entries[e.CapabilityID] = e
}

// Entries returns the recorded entries in the order they were first set.
func (m *Meta) Entries() []*EntryMeta {
	if m == nil {
		return nil
	}
	out := make([]*EntryMeta, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id])
	}
	return out
}
