package invocation

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/loader"
	"github.com/relves/zcapcore/pkg/zcap/suite"
)

type testIdentity struct {
	controller string
	keyID      string
	suite      *suite.Ed25519Signature2020
}

func newTestIdentity(t *testing.T, controller string) testIdentity {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	keyID := controller + "#key-1"
	return testIdentity{controller: controller, keyID: keyID, suite: suite.NewEd25519Signature2020(priv, pub, keyID, controller)}
}

// buildRootAndDelegated builds a root capability controlled by alice and a
// capability delegated from it to bob, with a valid delegation proof.
func buildRootAndDelegated(t *testing.T) (alice, bob testIdentity, root, tail *zcap.Capability, docs *loader.MapLoader, suites suite.Suites) {
	t.Helper()
	alice = newTestIdentity(t, "did:example:alice")
	bob = newTestIdentity(t, "did:example:bob")

	root = zcap.CreateRootCapability(alice.controller, "https://example.com/resource/1")

	now := time.Now().UTC()
	expires := now.Add(90 * 24 * time.Hour)
	tail = &zcap.Capability{
		Context:          zcap.ContextSet{zcap.ContextURL},
		ID:               "urn:zcap:tail",
		Controller:       bob.controller,
		InvocationTarget: root.InvocationTarget,
		ParentCapability: root.ID,
		AllowedAction:    zcap.ActionSet{"read"},
		Expires:          &expires,
	}

	proof := &zcap.DelegationProof{
		Context:            zcap.ContextSet{zcap.ContextURL},
		ProofPurpose:       zcap.ProofPurposeCapabilityDelegation,
		Created:            now.Add(-time.Hour),
		VerificationMethod: alice.keyID,
		CapabilityChain:    []zcap.ChainEntry{{ID: root.ID}},
	}
	signingInput, err := proof.SigningInput(tail.ID)
	require.NoError(t, err)
	proofValue, _, err := alice.suite.Sign(nil, signingInput)
	require.NoError(t, err)
	proof.ProofValue = proofValue
	raw, err := json.Marshal(proof)
	require.NoError(t, err)
	tail.Proof = raw

	docs = loader.NewMapLoader(root)
	suites = suite.Suites{alice.suite, bob.suite}
	return alice, bob, root, tail, docs, suites
}

// invocationDocumentJSON builds a raw invocation document JSON for tail,
// signed by signerIdentity, with the given action/target. The invoked
// capability is embedded in full unless embed is false, in which case a
// bare id is used — valid only when tail is an expected root (the
// document loader's bare-id path is reserved for roots, per §4.2's
// getRoot contract).
func invocationDocumentJSON(t *testing.T, tail *zcap.Capability, signerIdentity testIdentity, action, target string, created time.Time, embed bool) []byte {
	t.Helper()
	ref := zcap.ChainEntry{ID: tail.ID}
	if embed {
		ref.Capability = tail
	}
	proof := &zcap.InvocationProof{
		Context:            zcap.ContextSet{zcap.ContextURL},
		ProofPurpose:       zcap.ProofPurposeCapabilityInvocation,
		Capability:         ref,
		CapabilityAction:   action,
		InvocationTarget:   target,
		Created:            created,
		VerificationMethod: signerIdentity.keyID,
	}
	signingInput, err := proof.SigningInput()
	require.NoError(t, err)
	proofValue, _, err := signerIdentity.suite.Sign(nil, signingInput)
	require.NoError(t, err)
	proof.ProofValue = proofValue

	doc := struct {
		Context zcap.ContextSet       `json:"@context"`
		Proof   *zcap.InvocationProof `json:"proof"`
	}{Context: zcap.ContextSet{zcap.ContextURL}, Proof: proof}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}
