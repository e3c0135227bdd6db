package chain

import (
	"context"
	"log/slog"
	"time"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/suite"
	"github.com/relves/zcapcore/pkg/zcap/zcaperr"
)

// VerifyInput bundles everything VerifyCapabilityChain needs, per spec
// §4.3's parameter list.
type VerifyInput struct {
	DereferencedChain      []*zcap.Capability
	Meta                   *Meta
	Suite                  suite.Suites
	Date                   time.Time
	MaxClockSkew           time.Duration
	AllowTargetAttenuation bool
	// MaxDelegationTTL <= 0 means "no bound" (∞), per spec §6 default.
	MaxDelegationTTL time.Duration
	Logger           *slog.Logger
}

func (in *VerifyInput) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

// VerifyCapabilityChain walks dereferencedChain root-to-tail, per spec
// §4.3, enforcing invariants 2-8 of spec §3 at each delegated capability
// and appending one Meta entry per delegated capability. It returns nil
// when the chain verifies. A chain of length 1 (root only) short-circuits
// to success: the root's trustworthiness is the caller's concern (it chose
// to dereference down to this root via its expected-root set).
func VerifyCapabilityChain(ctx context.Context, in VerifyInput) error {
	chain := in.DereferencedChain
	if len(chain) == 0 {
		return zcaperr.New(zcaperr.CodeInvalidShape, "dereferenced chain is empty")
	}
	if len(chain) == 1 {
		return nil
	}
	if in.Meta == nil {
		in.Meta = NewMeta()
	}

	now := in.Date
	if now.IsZero() {
		now = time.Now().UTC()
	}

	parentAllowedAction := chain[0].AllowedAction
	var parentExpirationTime *time.Time
	var parentDelegationTime *time.Time
	parentInvocationTarget := chain[0].InvocationTarget

	for i := 1; i < len(chain); i++ {
		if err := ctx.Err(); err != nil {
			return zcaperr.Wrap(zcaperr.CodeCancelled, err, "chain verification cancelled")
		}

		child := chain[i]
		parent := chain[i-1]

		proof, err := child.SoleDelegationProof()
		if err != nil {
			return err
		}

		// 1. Cryptographic verification, skipped if Meta already has a
		// verified entry for this capability (the delegation adapter's
		// short-circuit, spec §9).
		entry := in.Meta.Get(child.ID)
		if entry == nil || !entry.Verified {
			signingInput, err := proof.SigningInput(child.ID)
			if err != nil {
				return err
			}
			controller, err := in.Suite.Verify(ctx, signingInput, proof.ProofValue, proof.VerificationMethod)
			if err != nil {
				return zcaperr.Wrap(zcaperr.CodeSignatureInvalid, err,
					"delegation proof on capability %q failed cryptographic verification", child.ID)
			}
			if controller != parent.Controller && proof.VerificationMethod != parent.Controller {
				return zcaperr.New(zcaperr.CodeControllerMismatch,
					"capability %q's delegation proof key is controlled by %q, expected parent controller %q",
					child.ID, controller, parent.Controller).WithDetails(map[string]string{
					"capability":          child.ID,
					"verificationMethod": proof.VerificationMethod,
				})
			}
			entry = &EntryMeta{CapabilityID: child.ID, Verified: true, VerifiedParentCapability: parent}
			in.Meta.Set(entry)
		}

		// 2. Action attenuation (invariant 4).
		if !child.AllowedAction.SubsetOf(parentAllowedAction) {
			return zcaperr.New(zcaperr.CodeActionNotAllowed,
				"capability %q's allowedAction %v is not a subset of its parent's %v",
				child.ID, child.AllowedAction, parentAllowedAction)
		}

		// 3. Target attenuation (invariant 3).
		if child.InvocationTarget != parentInvocationTarget {
			if !in.AllowTargetAttenuation {
				return zcaperr.New(zcaperr.CodeTargetMismatch,
					"capability %q's invocationTarget %q must be equivalent to its parent's %q",
					child.ID, child.InvocationTarget, parentInvocationTarget)
			}
			if !hasPathPrefix(child.InvocationTarget, parentInvocationTarget) {
				return zcaperr.New(zcaperr.CodeTargetMismatch,
					"capability %q's invocationTarget %q must be, or be a path-attenuated descendant of, its parent's %q",
					child.ID, child.InvocationTarget, parentInvocationTarget)
			}
		}

		// 4. Expiration (invariant 5) and liveness of the parent's and this
		// capability's own expiry.
		childExpires := *child.Expires
		if parentExpirationTime != nil && childExpires.After(*parentExpirationTime) {
			return zcaperr.New(zcaperr.CodeExpirationOrder,
				"capability %q expires at %s, after its parent's %s",
				child.ID, childExpires, *parentExpirationTime)
		}
		if parentExpirationTime != nil && compareTime(now, *parentExpirationTime, in.MaxClockSkew) > 0 {
			return zcaperr.New(zcaperr.CodeExpired, "a capability in the delegation chain has expired.")
		}
		if compareTime(now, childExpires, in.MaxClockSkew) > 0 {
			return zcaperr.New(zcaperr.CodeExpired, "a capability in the delegation chain has expired.")
		}

		// 5. Delegation-time monotonicity (invariant 6).
		childDelegationTime := proof.Created
		if parentDelegationTime != nil && parentDelegationTime.After(childDelegationTime) {
			return zcaperr.New(zcaperr.CodeDelegationTimeOrder,
				"capability %q was delegated before its parent.", child.ID)
		}

		// 6. TTL bound (invariant 7).
		if in.MaxDelegationTTL > 0 {
			if compareTime(childDelegationTime, now, in.MaxClockSkew) > 0 {
				return zcaperr.New(zcaperr.CodeDelegationInFuture,
					"capability %q was delegated in the future.", child.ID)
			}
			currentTTL := childExpires.Sub(now)
			maxTTL := childExpires.Sub(childDelegationTime)
			if compareDuration(currentTTL, in.MaxDelegationTTL, in.MaxClockSkew) > 0 || maxTTL > in.MaxDelegationTTL {
				return zcaperr.New(zcaperr.CodeTTLExceeded,
					"capability %q has a time to live that is too long.", child.ID)
			}
		}

		in.logger().Debug("delegation step verified",
			"capability", child.ID, "parent", parent.ID, "step", i)

		parentAllowedAction = child.AllowedAction
		parentExpirationTime = &childExpires
		parentDelegationTime = &childDelegationTime
		parentInvocationTarget = child.InvocationTarget
	}

	return nil
}

// hasPathPrefix reports whether target is child begins with parent + "/",
// the path-attenuation rule of spec invariant 3.
func hasPathPrefix(target, parent string) bool {
	prefix := parent + "/"
	return len(target) > len(prefix) && target[:len(prefix)] == prefix
}
