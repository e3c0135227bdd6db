package invocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/chain"
	"github.com/relves/zcapcore/pkg/zcap/loader"
	"github.com/relves/zcapcore/pkg/zcap/suite"
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

func TestVerifySelfInvokedRoot(t *testing.T) {
	alice := newTestIdentity(t, "did:example:alice")
	root := zcap.CreateRootCapability(alice.controller, "https://example.com/resource/1")
	docs := loader.NewMapLoader(root)

	doc := invocationDocumentJSON(t, root, alice, "read", root.InvocationTarget, time.Now().UTC(), false)

	result := Verify(context.Background(), Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suite.Suites{alice.suite},
		DocumentLoader:         docs,
		Date:                   time.Now().UTC(),
	})
	require.NoError(t, result.Error)
	assert.True(t, result.Verified)
	assert.Equal(t, alice.controller, result.Results[0].PurposeResult.Invoker)
}

func TestVerifyDelegatedInvocationSuccess(t *testing.T) {
	alice, bob, root, tail, docs, suites := buildRootAndDelegated(t)

	doc := invocationDocumentJSON(t, tail, bob, "read", root.InvocationTarget, time.Now().UTC(), true)

	result := Verify(context.Background(), Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suites,
		DocumentLoader:         docs,
		Date:                   time.Now().UTC(),
	})
	require.NoError(t, result.Error)
	assert.True(t, result.Verified)
	assert.Equal(t, bob.controller, result.Results[0].PurposeResult.Invoker)
	assert.Len(t, result.DereferencedChain, 2)
	_ = alice
}

func TestVerifyWrongAction(t *testing.T) {
	_, bob, root, tail, docs, suites := buildRootAndDelegated(t)

	// The invoked document names a different action than the verifier
	// expects (step 3 of the adapter), independent of whether the tail
	// capability itself would have allowed it.
	doc := invocationDocumentJSON(t, tail, bob, "write", root.InvocationTarget, time.Now().UTC(), true)

	result := Verify(context.Background(), Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suites,
		DocumentLoader:         docs,
		Date:                   time.Now().UTC(),
	})
	require.Error(t, result.Error)
	assert.False(t, result.Verified)
	var zerr *zcaperr.Error
	require.ErrorAs(t, result.Error, &zerr)
	assert.Equal(t, zcaperr.CodeActionNotAllowed, zerr.Code)
}

func TestVerifyTargetMismatch(t *testing.T) {
	_, bob, root, tail, docs, suites := buildRootAndDelegated(t)

	subTarget := root.InvocationTarget + "/sub/path"
	doc := invocationDocumentJSON(t, tail, bob, "read", subTarget, time.Now().UTC(), true)

	t.Run("rejected by default", func(t *testing.T) {
		result := Verify(context.Background(), Input{
			Document:               doc,
			ExpectedTarget:         []string{subTarget},
			ExpectedAction:         "read",
			ExpectedRootCapability: []string{root.ID},
			Suite:                  suites,
			DocumentLoader:         docs,
			Date:                   time.Now().UTC(),
		})
		require.Error(t, result.Error)
		var zerr *zcaperr.Error
		require.ErrorAs(t, result.Error, &zerr)
		assert.Equal(t, zcaperr.CodeTargetMismatch, zerr.Code)
	})

	t.Run("allowed when AllowTargetAttenuation is set", func(t *testing.T) {
		result := Verify(context.Background(), Input{
			Document:               doc,
			ExpectedTarget:         []string{subTarget},
			ExpectedAction:         "read",
			ExpectedRootCapability: []string{root.ID},
			Suite:                  suites,
			DocumentLoader:         docs,
			Date:                   time.Now().UTC(),
			AllowTargetAttenuation: true,
		})
		require.NoError(t, result.Error)
		assert.True(t, result.Verified)
	})
}

func TestVerifyExpiredChain(t *testing.T) {
	_, bob, root, tail, docs, suites := buildRootAndDelegated(t)

	doc := invocationDocumentJSON(t, tail, bob, "read", root.InvocationTarget, time.Now().UTC(), true)

	result := Verify(context.Background(), Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suites,
		DocumentLoader:         docs,
		Date:                   tail.Expires.Add(time.Hour),
	})
	require.Error(t, result.Error)
	var zerr *zcaperr.Error
	require.ErrorAs(t, result.Error, &zerr)
	assert.Equal(t, zcaperr.CodeExpired, zerr.Code)
}

func TestVerifyInvocationControllerMismatch(t *testing.T) {
	_, _, root, tail, docs, suites := buildRootAndDelegated(t)
	mallory := newTestIdentity(t, "did:example:mallory")

	// Signed by mallory, who is not tail's controller (bob), even though
	// the chain itself is perfectly valid.
	doc := invocationDocumentJSON(t, tail, mallory, "read", root.InvocationTarget, time.Now().UTC(), true)

	suitesWithMallory := append(append(suite.Suites{}, suites...), mallory.suite)

	result := Verify(context.Background(), Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suitesWithMallory,
		DocumentLoader:         docs,
		Date:                   time.Now().UTC(),
	})
	require.Error(t, result.Error)
	var zerr *zcaperr.Error
	require.ErrorAs(t, result.Error, &zerr)
	assert.Equal(t, zcaperr.CodeControllerMismatch, zerr.Code)
}

func TestVerifyCancelledContext(t *testing.T) {
	_, bob, root, tail, docs, suites := buildRootAndDelegated(t)
	doc := invocationDocumentJSON(t, tail, bob, "read", root.InvocationTarget, time.Now().UTC(), true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Verify(ctx, Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suites,
		DocumentLoader:         docs,
		Date:                   time.Now().UTC(),
	})
	require.Error(t, result.Error)
	var zerr *zcaperr.Error
	require.ErrorAs(t, result.Error, &zerr)
	assert.Equal(t, zcaperr.CodeCancelled, zerr.Code)
}

func TestVerifyInspectHookRejects(t *testing.T) {
	_, bob, root, tail, docs, suites := buildRootAndDelegated(t)
	doc := invocationDocumentJSON(t, tail, bob, "read", root.InvocationTarget, time.Now().UTC(), true)

	result := Verify(context.Background(), Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suites,
		DocumentLoader:         docs,
		Date:                   time.Now().UTC(),
		InspectCapabilityChain: func(ctx context.Context, dereferencedChain []*zcap.Capability, meta *chain.Meta) (bool, error) {
			assert.Len(t, dereferencedChain, 2)
			return false, nil
		},
	})
	require.Error(t, result.Error)
	var zerr *zcaperr.Error
	require.ErrorAs(t, result.Error, &zerr)
	assert.Equal(t, zcaperr.CodeHookRejected, zerr.Code)
}

func TestVerifyInspectHookApproves(t *testing.T) {
	_, bob, root, tail, docs, suites := buildRootAndDelegated(t)
	doc := invocationDocumentJSON(t, tail, bob, "read", root.InvocationTarget, time.Now().UTC(), true)

	called := false
	result := Verify(context.Background(), Input{
		Document:               doc,
		ExpectedTarget:         []string{root.InvocationTarget},
		ExpectedAction:         "read",
		ExpectedRootCapability: []string{root.ID},
		Suite:                  suites,
		DocumentLoader:         docs,
		Date:                   time.Now().UTC(),
		InspectCapabilityChain: func(ctx context.Context, dereferencedChain []*zcap.Capability, meta *chain.Meta) (bool, error) {
			called = true
			return true, nil
		},
	})
	require.NoError(t, result.Error)
	assert.True(t, result.Verified)
	assert.True(t, called)
}
