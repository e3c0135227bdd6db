package chain

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/suite"
)

// testIdentity is one controller/key pair used to build a fixture chain.
type testIdentity struct {
	controller string
	suite      *suite.Ed25519Signature2020
	keyID      string
}

func newTestIdentity(t *testing.T, controller string) testIdentity {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	keyID := controller + "#key-1"
	return testIdentity{
		controller: controller,
		keyID:      keyID,
		suite:      suite.NewEd25519Signature2020(priv, pub, keyID, controller),
	}
}

// delegate signs a delegation proof on child (whose fields are already set
// except Proof) using parentIdentity's key. parentAncestorChain is parent's
// own capabilityChain (its ancestors, not including parent itself) — pass
// nil when parent is the root. The new capabilityChain is parentAncestorChain
// plus one entry for parent itself, embedded in full per the dereferencer's
// embedding rule unless that would make parent the sole (root) entry, which
// must stay a bare id resolved via the root getter (spec §4.2 step 4).
func delegate(t *testing.T, parent *zcap.Capability, parentAncestorChain []zcap.ChainEntry, parentIdentity testIdentity, child *zcap.Capability, created time.Time) {
	t.Helper()

	ancestorIDs := make([]zcap.ChainEntry, 0, len(parentAncestorChain)+1)
	for _, e := range parentAncestorChain {
		ancestorIDs = append(ancestorIDs, zcap.ChainEntry{ID: e.ID})
	}
	if len(ancestorIDs) == 0 {
		ancestorIDs = append(ancestorIDs, zcap.ChainEntry{ID: parent.ID})
	} else {
		parentCopy := *parent
		ancestorIDs = append(ancestorIDs, zcap.ChainEntry{ID: parent.ID, Capability: &parentCopy})
	}

	proof := &zcap.DelegationProof{
		Context:            zcap.ContextSet{zcap.ContextURL},
		ProofPurpose:       zcap.ProofPurposeCapabilityDelegation,
		Created:            created,
		VerificationMethod: parentIdentity.keyID,
		CapabilityChain:    ancestorIDs,
	}
	signingInput, err := proof.SigningInput(child.ID)
	require.NoError(t, err)
	proofValue, _, err := parentIdentity.suite.Sign(nil, signingInput)
	require.NoError(t, err)
	proof.ProofValue = proofValue

	raw, err := json.Marshal(proof)
	require.NoError(t, err)
	child.Proof = raw
}

// setDelegationProof overwrites capability's Proof with proof, re-encoded.
// Used by tests that need to mutate a proof field (e.g. Created) after the
// fact without affecting its signature, which this package's signature
// check can be made to skip via a pre-seeded Meta entry.
func setDelegationProof(t *testing.T, capability *zcap.Capability, proof *zcap.DelegationProof) {
	t.Helper()
	raw, err := json.Marshal(proof)
	require.NoError(t, err)
	capability.Proof = raw
}

// buildChainFixture builds root -(alice)-> c1 -(bob)-> c2, each delegation
// created one hour apart and expiring well within maxDelegationTTL, suitable
// as a passing baseline that individual tests mutate.
func buildChainFixture(t *testing.T) (alice, bob, carol testIdentity, root, c1, c2 *zcap.Capability, suites suite.Suites) {
	t.Helper()

	alice = newTestIdentity(t, "did:example:alice")
	bob = newTestIdentity(t, "did:example:bob")
	carol = newTestIdentity(t, "did:example:carol")

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	root = zcap.CreateRootCapability(alice.controller, "https://example.com/resource/1")

	c1Expires := now.Add(48 * time.Hour)
	c1 = &zcap.Capability{
		Context:          zcap.ContextSet{zcap.ContextURL},
		ID:               "urn:zcap:c1",
		Controller:       bob.controller,
		InvocationTarget: root.InvocationTarget,
		ParentCapability: root.ID,
		AllowedAction:    zcap.ActionSet{"read", "write"},
		Expires:          &c1Expires,
	}
	delegate(t, root, nil, alice, c1, now)

	c1Proof, err := c1.SoleDelegationProof()
	require.NoError(t, err)

	c2Expires := now.Add(24 * time.Hour)
	c2 = &zcap.Capability{
		Context:          zcap.ContextSet{zcap.ContextURL},
		ID:               "urn:zcap:c2",
		Controller:       carol.controller,
		InvocationTarget: root.InvocationTarget,
		ParentCapability: c1.ID,
		AllowedAction:    zcap.ActionSet{"read"},
		Expires:          &c2Expires,
	}
	delegate(t, c1, c1Proof.CapabilityChain, bob, c2, now.Add(time.Hour))

	suites = suite.Suites{alice.suite, bob.suite, carol.suite}
	return alice, bob, carol, root, c1, c2, suites
}
