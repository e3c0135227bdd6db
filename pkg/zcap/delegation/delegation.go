// Package delegation implements the CapabilityDelegation proof purpose
// adapter of spec §4.5 (validating an already-signed but not-yet-invoked
// delegation) and proof creation of spec §4.6.
package delegation

import (
	"context"
	"log/slog"
	"time"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/chain"
	"github.com/relves/zcapcore/pkg/zcap/loader"
	"github.com/relves/zcapcore/pkg/zcap/suite"
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// Input bundles the parameters needed to validate a delegation proof, per
// spec §4.5.
type Input struct {
	// Capability is the tail bearing the delegation proof under
	// validation.
	Capability *zcap.Capability

	DocumentLoader         loader.DocumentLoader
	Suite                  suite.Suites
	ExpectedRootCapability []string

	Date                   time.Time
	MaxClockSkew           time.Duration
	MaxChainLength         int
	MaxDelegationTTL       time.Duration
	AllowTargetAttenuation bool

	// VerifiedParentCapability is the `_verifiedParentCapability` marker
	// of spec §9: when set by a caller that is itself verifying the
	// enclosing chain, dereference and full chain verification are
	// skipped; only the identity check and this one proof's signature are
	// validated. The chain verifier in pkg/zcap/chain does not call Verify;
	// it checks each delegation proof inline, so no recursion arises there
	// (spec §4.5 step 6).
	VerifiedParentCapability *zcap.Capability

	Meta   *chain.Meta
	Logger *slog.Logger
}

func (in *Input) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

func (in *Input) maxChainLength() int {
	if in.MaxChainLength > 0 {
		return in.MaxChainLength
	}
	return zcap.MaxChainLength
}

func (in *Input) maxClockSkew() time.Duration {
	if in.MaxClockSkew > 0 {
		return in.MaxClockSkew
	}
	return zcap.DefaultMaxClockSkew
}

// Result is the outcome of Verify.
type Result struct {
	Verified          bool
	Error             error
	DereferencedChain []*zcap.Capability
}

// Verify implements spec §4.5.
func Verify(ctx context.Context, in Input) *Result {
	result, err := verify(ctx, in)
	if err != nil {
		in.logger().Warn("delegation verification failed", "capability", in.Capability.ID, "error", err)
		return &Result{Verified: false, Error: err}
	}
	return result
}

func verify(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeCancelled, err, "delegation verification cancelled")
	}
	if !zcap.MatchesContext(in.Capability.Context) {
		return nil, zcaperr.New(zcaperr.CodeWrongContext, "capability %q does not match the ZCAP context", in.Capability.ID)
	}

	proof, err := in.Capability.SoleDelegationProof()
	if err != nil {
		return nil, err
	}

	if in.VerifiedParentCapability != nil {
		// Short-circuit: spec §4.5 step 6. Only the identity check and
		// this one proof's own signature are validated here; the chain
		// this capability belongs to was already (or is being) verified
		// by the Chain Verifier loop that called into us.
		signingInput, err := proof.SigningInput(in.Capability.ID)
		if err != nil {
			return nil, err
		}
		controller, err := in.Suite.Verify(ctx, signingInput, proof.ProofValue, proof.VerificationMethod)
		if err != nil {
			return nil, zcaperr.Wrap(zcaperr.CodeSignatureInvalid, err,
				"delegation proof on capability %q failed cryptographic verification", in.Capability.ID)
		}
		if controller != in.VerifiedParentCapability.Controller && proof.VerificationMethod != in.VerifiedParentCapability.Controller {
			return nil, zcaperr.New(zcaperr.CodeControllerMismatch,
				"capability %q's delegation proof key is controlled by %q, expected parent controller %q",
				in.Capability.ID, controller, in.VerifiedParentCapability.Controller)
		}
		return &Result{Verified: true}, nil
	}

	getRoot := func(ctx context.Context, id string) (*zcap.Capability, error) {
		if !contains(in.ExpectedRootCapability, id) {
			return nil, zcaperr.New(zcaperr.CodeUnexpectedRoot, "capability id %q is not an expected root", id)
		}
		return in.DocumentLoader.LoadCapability(ctx, id)
	}

	dereferencedChain, err := chain.DereferenceCapabilityChain(ctx, in.Capability, getRoot, in.maxChainLength())
	if err != nil {
		return nil, err
	}
	if len(dereferencedChain) < 2 {
		return nil, zcaperr.New(zcaperr.CodeInvalidShape,
			"capability %q's delegation proof has no parent in the dereferenced chain", in.Capability.ID)
	}
	parent := dereferencedChain[len(dereferencedChain)-2]

	meta := in.Meta
	if meta == nil {
		meta = chain.NewMeta()
	}
	if err := chain.VerifyCapabilityChain(ctx, chain.VerifyInput{
		DereferencedChain:      dereferencedChain,
		Meta:                   meta,
		Suite:                  in.Suite,
		Date:                   in.Date,
		MaxClockSkew:           in.maxClockSkew(),
		AllowTargetAttenuation: in.AllowTargetAttenuation,
		MaxDelegationTTL:       in.MaxDelegationTTL,
		Logger:                 in.logger(),
	}); err != nil {
		return nil, err
	}

	// The tail's delegation proof verification method must resolve to the
	// parent's controller (spec §4.5 steps 4-5, the same identity test
	// used by the invocation adapter's step 7).
	entry := meta.Get(in.Capability.ID)
	if entry == nil || !entry.Verified {
		signingInput, err := proof.SigningInput(in.Capability.ID)
		if err != nil {
			return nil, err
		}
		controller, err := in.Suite.Verify(ctx, signingInput, proof.ProofValue, proof.VerificationMethod)
		if err != nil {
			return nil, zcaperr.Wrap(zcaperr.CodeSignatureInvalid, err,
				"delegation proof on capability %q failed cryptographic verification", in.Capability.ID)
		}
		if controller != parent.Controller && proof.VerificationMethod != parent.Controller {
			return nil, zcaperr.New(zcaperr.CodeControllerMismatch,
				"capability %q's delegation proof key is controlled by %q, expected parent controller %q",
				in.Capability.ID, controller, parent.Controller)
		}
	}

	return &Result{Verified: true, DereferencedChain: dereferencedChain}, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
