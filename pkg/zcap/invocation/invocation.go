// Package invocation implements the CapabilityInvocation proof purpose
// adapter of spec §4.4: the view onto the Chain Verifier used when a tail
// capability is being invoked to act on a target resource.
package invocation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/chain"
	"github.com/relves/zcapcore/pkg/zcap/loader"
	"github.com/relves/zcapcore/pkg/zcap/suite"
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// InspectHook is the optional inspectCapabilityChain collaborator of spec
// §4.4 step 8. Implementations may consult a revocation store; a falsy
// valid return is fatal to verification.
type InspectHook func(ctx context.Context, dereferencedChain []*zcap.Capability, meta *chain.Meta) (valid bool, err error)

// Input bundles the parameters of spec §6's verifyInvocation.
type Input struct {
	// Document is the JSON document bearing the invocation proof to
	// verify (expanded or not, per spec §6).
	Document []byte

	ExpectedTarget         []string
	ExpectedAction         string
	ExpectedRootCapability []string
	Suite                  suite.Suites
	DocumentLoader         loader.DocumentLoader

	Date                   time.Time
	MaxClockSkew           time.Duration
	MaxChainLength         int
	MaxDelegationTTL       time.Duration
	AllowTargetAttenuation bool
	InspectCapabilityChain InspectHook
	MaxTimestampDelta      time.Duration
	Logger                 *slog.Logger
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

// PurposeResult carries the identity established by a verified invocation
// proof.
type PurposeResult struct {
	Invoker string
}

// ProofResult is one element of Result.Results, per spec §6.
type ProofResult struct {
	Proof              *zcap.InvocationProof
	Verified           bool
	VerificationMethod string
	PurposeResult      PurposeResult
}

// Result is the output of Verify, per spec §6: `{verified, error?,
// results?, dereferencedChain?}`.
type Result struct {
	Verified          bool
	Error             error
	Results           []ProofResult
	DereferencedChain []*zcap.Capability
	InvocationID      string
}

type invocationDocument struct {
	Context zcap.ContextSet       `json:"@context"`
	Proof   *zcap.InvocationProof `json:"proof"`
}

// Verify implements spec §4.4. The core never throws across the API
// boundary (spec §7): every failure, including a cancelled context, comes
// back as a Result with Verified=false and Error set.
func Verify(ctx context.Context, in Input) *Result {
	id := uuid.NewString()
	logger := in.logger().With("invocationId", id)

	result, err := verify(ctx, in, logger)
	if err != nil {
		logger.Warn("invocation verification failed", "error", err)
		return &Result{Verified: false, Error: err, InvocationID: id}
	}
	result.InvocationID = id
	logger.Debug("invocation verified", "chainLength", len(result.DereferencedChain))
	return result
}

func verify(ctx context.Context, in Input, logger *slog.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeCancelled, err, "invocation verification cancelled")
	}

	var doc invocationDocument
	if err := json.Unmarshal(in.Document, &doc); err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeInvalidShape, err, "invocation document is not well-formed JSON")
	}
	if !zcap.MatchesContext(doc.Context) {
		return nil, zcaperr.New(zcaperr.CodeWrongContext, "invocation document does not match the ZCAP context")
	}
	if doc.Proof == nil {
		return nil, zcaperr.New(zcaperr.CodeMissingField, "invocation document is missing its proof")
	}
	proof := doc.Proof
	if !zcap.MatchesContext(proof.Context) {
		return nil, zcaperr.New(zcaperr.CodeWrongContext, "invocation proof does not match the ZCAP context")
	}
	if proof.ProofPurpose != zcap.ProofPurposeCapabilityInvocation {
		return nil, zcaperr.New(zcaperr.CodeWrongProofPurpose,
			"invocation proof has proofPurpose %q, expected %q", proof.ProofPurpose, zcap.ProofPurposeCapabilityInvocation)
	}
	if proof.CapabilityAction == "" {
		return nil, zcaperr.New(zcaperr.CodeMissingField, "invocation proof is missing capabilityAction")
	}

	if in.MaxTimestampDelta > 0 {
		now := in.Date
		if now.IsZero() {
			now = time.Now().UTC()
		}
		if d := now.Sub(proof.Created); d > in.MaxTimestampDelta || d < -in.MaxTimestampDelta {
			return nil, zcaperr.New(zcaperr.CodeDelegationInFuture,
				"invocation proof created at %s is outside the allowed timestamp delta", proof.Created)
		}
	}

	// 3. capabilityAction must match what the caller expects.
	if proof.CapabilityAction != in.ExpectedAction {
		return nil, zcaperr.New(zcaperr.CodeActionNotAllowed,
			"capability action %q does not match the expected capability action of %q",
			proof.CapabilityAction, in.ExpectedAction)
	}

	// 4. invocationTarget must be in the expected-target set.
	if !contains(in.ExpectedTarget, proof.InvocationTarget) {
		return nil, zcaperr.New(zcaperr.CodeTargetMismatch,
			"invocation target %q is not among the expected targets %v", proof.InvocationTarget, in.ExpectedTarget)
	}

	// 2. Fetch/resolve the tail capability.
	tail, err := resolveTail(ctx, proof.Capability, in.ExpectedRootCapability, in.DocumentLoader)
	if err != nil {
		return nil, err
	}

	// 5. tail's invocationTarget must match the proof's target, honoring
	// attenuation.
	if tail.InvocationTarget != proof.InvocationTarget {
		if !in.AllowTargetAttenuation {
			return nil, zcaperr.New(zcaperr.CodeTargetMismatch,
				"invocation target %q must be equivalent to the capability's invocationTarget %q",
				proof.InvocationTarget, tail.InvocationTarget)
		}
		prefix := tail.InvocationTarget + "/"
		if len(proof.InvocationTarget) <= len(prefix) || proof.InvocationTarget[:len(prefix)] != prefix {
			return nil, zcaperr.New(zcaperr.CodeTargetMismatch,
				"invocation target %q must be, or be a path-attenuated descendant of, the capability's invocationTarget %q",
				proof.InvocationTarget, tail.InvocationTarget)
		}
	}

	getRoot := rootGetter(in.ExpectedRootCapability, in.DocumentLoader)

	dereferencedChain, err := chain.DereferenceCapabilityChain(ctx, tail, getRoot, in.maxChainLength())
	if err != nil {
		return nil, err
	}

	meta := chain.NewMeta()
	if err := chain.VerifyCapabilityChain(ctx, chain.VerifyInput{
		DereferencedChain:      dereferencedChain,
		Meta:                   meta,
		Suite:                  in.Suite,
		Date:                   in.Date,
		MaxClockSkew:           in.maxClockSkew(),
		AllowTargetAttenuation: in.AllowTargetAttenuation,
		MaxDelegationTTL:       in.MaxDelegationTTL,
		Logger:                 logger,
	}); err != nil {
		return nil, err
	}

	// 7. the tail's controller must equal the invocation proof's verifying
	// key's identifier or its controller.
	signingInput, err := proof.SigningInput()
	if err != nil {
		return nil, err
	}
	controller, err := in.Suite.Verify(ctx, signingInput, proof.ProofValue, proof.VerificationMethod)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeSignatureInvalid, err, "invocation proof failed cryptographic verification")
	}
	if controller != tail.Controller && proof.VerificationMethod != tail.Controller {
		return nil, zcaperr.New(zcaperr.CodeControllerMismatch,
			"the authorized invoker %q does not match the capability's controller %q", controller, tail.Controller).
			WithDetails(map[string]string{"capability": tail.ID, "verificationMethod": proof.VerificationMethod})
	}

	// 8. optional revocation/inspection hook.
	if in.InspectCapabilityChain != nil {
		valid, err := in.InspectCapabilityChain(ctx, dereferencedChain, meta)
		if err != nil {
			return nil, zcaperr.Wrap(zcaperr.CodeHookRejected, err, "inspectCapabilityChain failed")
		}
		if !valid {
			return nil, zcaperr.New(zcaperr.CodeHookRejected, "inspectCapabilityChain rejected the chain")
		}
	}

	return &Result{
		Verified:          true,
		DereferencedChain: dereferencedChain,
		Results: []ProofResult{{
			Proof:              proof,
			Verified:           true,
			VerificationMethod: proof.VerificationMethod,
			PurposeResult:      PurposeResult{Invoker: controller},
		}},
	}, nil
}

func resolveTail(ctx context.Context, ref zcap.ChainEntry, expectedRoots []string, docLoader loader.DocumentLoader) (*zcap.Capability, error) {
	if ref.Capability != nil {
		return ref.Capability, nil
	}
	if ref.ID == "" {
		return nil, zcaperr.New(zcaperr.CodeMissingField, `"capability" was not found in the capability invocation proof`)
	}
	if !contains(expectedRoots, ref.ID) {
		return nil, zcaperr.New(zcaperr.CodeUnexpectedRoot,
			"invoked capability id %q is a bare id but is not among the expected root capabilities", ref.ID)
	}
	root, err := docLoader.LoadCapability(ctx, ref.ID)
	if err != nil {
		return nil, zcaperr.Wrap(zcaperr.CodeUnexpectedRoot, err, "failed to load root capability %q", ref.ID)
	}
	return root, nil
}

func rootGetter(expectedRoots []string, docLoader loader.DocumentLoader) chain.RootCapabilityGetter {
	return func(ctx context.Context, id string) (*zcap.Capability, error) {
		if !contains(expectedRoots, id) {
			return nil, zcaperr.New(zcaperr.CodeUnexpectedRoot, "capability id %q is not an expected root", id)
		}
		return docLoader.LoadCapability(ctx, id)
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
