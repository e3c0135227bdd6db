package suite

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Ed25519Signature2020 is a reference SignatureSuite, grounded on the
// teacher's own Ed25519Signer (pkg/tlog/signer.go): a small wrapper over
// crypto/ed25519 that hashes the signing input with blake2b before signing,
// and exposes its key's DID-shaped verification method and controller.
//
// It is not required by the core engine — spec §1 treats the signature
// suite as injected — but the dereferencer, verifier, and adapters need a
// concrete, exercisable suite for their own tests and for pkg/zcap/httpapi.
type Ed25519Signature2020 struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	keyID      string
	controller string
}

// NewEd25519Signature2020 builds a suite instance around a single keypair.
// keyID is the verificationMethod URI this suite signs with; controller is
// the DID/URI that keyID's controller document names as in control of the
// key (for a self-controlled key, pass the same value as controller).
func NewEd25519Signature2020(priv ed25519.PrivateKey, pub ed25519.PublicKey, keyID, controller string) *Ed25519Signature2020 {
	return &Ed25519Signature2020{privateKey: priv, publicKey: pub, keyID: keyID, controller: controller}
}

// ID implements SignatureSuite.
func (s *Ed25519Signature2020) ID() string {
	return "Ed25519Signature2020"
}

func digest(signingInput []byte) [32]byte {
	return blake2b.Sum256(signingInput)
}

// Sign implements SignatureSuite.
func (s *Ed25519Signature2020) Sign(_ context.Context, signingInput []byte) (string, string, error) {
	d := digest(signingInput)
	sig := ed25519.Sign(s.privateKey, d[:])
	return base64.RawURLEncoding.EncodeToString(sig), s.keyID, nil
}

// Verify implements SignatureSuite. This reference suite only knows about
// its own single key, so it can verify a proof iff verificationMethod
// names that key; a real suite would dereference verificationMethod
// through a document loader / DID resolver to find arbitrary keys.
func (s *Ed25519Signature2020) Verify(_ context.Context, signingInput []byte, proofValue string, verificationMethod string) (string, error) {
	if verificationMethod != s.keyID {
		return "", fmt.Errorf("verification method %q cannot be resolved by this suite", verificationMethod)
	}
	sig, err := base64.RawURLEncoding.DecodeString(proofValue)
	if err != nil {
		return "", fmt.Errorf("malformed proof value: %w", err)
	}
	d := digest(signingInput)
	if !ed25519.Verify(s.publicKey, d[:], sig) {
		return "", fmt.Errorf("signature does not verify for verification method %q", verificationMethod)
	}
	return s.controller, nil
}
