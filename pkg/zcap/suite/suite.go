// Package suite defines the SignatureSuite collaborator the ZCAP engine
// injects for cryptographic work (spec §1: "the underlying Linked Data
// Signature suite ... is injected"), plus a reference Ed25519Signature2020
// implementation used by this module's own tests and HTTP API.
package suite

import "context"

// SignatureSuite cryptographically verifies and creates delegation and
// invocation proofs. The chain verifier and proof-purpose adapters never
// perform signature math themselves; they call into a SignatureSuite and
// interpret only its pass/fail result and resolved controller, per spec §1
// ("a suite that cryptographically verifies one proof on one document").
type SignatureSuite interface {
	// ID returns the suite's proof `type` value, e.g. "Ed25519Signature2020".
	ID() string

	// Verify checks proofValue against signingInput, resolves
	// verificationMethod to a key, and returns the DID/URI of that key's
	// controller (invariant 8 of spec §3: "the key named by cᵢ's
	// delegation proof is cᵢ₋₁.controller or is controlled by it" — the
	// caller compares the returned controller against the expected one).
	// Verify returns an error for any cryptographic failure: bad
	// signature, unresolvable verification method, or unsupported key
	// type.
	Verify(ctx context.Context, signingInput []byte, proofValue string, verificationMethod string) (controller string, err error)

	// Sign produces a proofValue over signingInput using the suite's own
	// key material, along with the verificationMethod identifying the
	// signing key.
	Sign(ctx context.Context, signingInput []byte) (proofValue string, verificationMethod string, err error)
}
