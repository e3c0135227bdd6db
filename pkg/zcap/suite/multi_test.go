package suite

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuitesVerifyTriesEachInTurn(t *testing.T) {
	ctx := context.Background()

	_, priv1, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, priv2, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pub1 := priv1.Public().(ed25519.PublicKey)
	pub2 := priv2.Public().(ed25519.PublicKey)

	s1 := NewEd25519Signature2020(priv1, pub1, "did:example:alice#key-1", "did:example:alice")
	s2 := NewEd25519Signature2020(priv2, pub2, "did:example:bob#key-1", "did:example:bob")
	suites := Suites{s1, s2}

	proofValue, verificationMethod, err := s2.Sign(ctx, []byte("payload"))
	require.NoError(t, err)

	controller, err := suites.Verify(ctx, []byte("payload"), proofValue, verificationMethod)
	require.NoError(t, err)
	assert.Equal(t, "did:example:bob", controller)
}

func TestSuitesVerifyFailsWhenNoneResolve(t *testing.T) {
	ctx := context.Background()
	var suites Suites
	_, err := suites.Verify(ctx, []byte("payload"), "whatever", "did:example:nobody#key-1")
	assert.Error(t, err)
}
