package delegation

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relves/zcapcore/pkg/zcap"
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

// buildDepthTwoChain builds root -(alice)-> c1 -(bob)-> c2, mirroring the
// chain package's own fixture but constructed independently here since proof
// creation (not just verification) is under test.
func buildDepthTwoChain(t *testing.T) (alice, bob testIdentity, root, c1, c2 *zcap.Capability, suites suite.Suites) {
	t.Helper()
	alice = newTestIdentity(t, "did:example:alice")
	bob = newTestIdentity(t, "did:example:bob")

	root = zcap.CreateRootCapability(alice.controller, "https://example.com/resource/1")

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
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
	err := CreateDelegationProof(context.Background(), CreateDelegationInput{
		Parent:             root,
		Capability:         c1,
		Suite:              alice.suite,
		VerificationMethod: alice.keyID,
		Created:            now,
	})
	require.NoError(t, err)

	carol := newTestIdentity(t, "did:example:carol")
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
	err = CreateDelegationProof(context.Background(), CreateDelegationInput{
		Parent:             c1,
		Capability:         c2,
		Suite:              bob.suite,
		VerificationMethod: bob.keyID,
		Created:            now.Add(time.Hour),
	})
	require.NoError(t, err)

	suites = suite.Suites{alice.suite, bob.suite, carol.suite}
	return alice, bob, root, c1, c2, suites
}

func setDelegationProof(t *testing.T, capability *zcap.Capability, proof *zcap.DelegationProof) {
	t.Helper()
	raw, err := json.Marshal(proof)
	require.NoError(t, err)
	capability.Proof = raw
}
