// Package zcaperr defines the error taxonomy for the ZCAP verification
// engine. Every failure the engine returns is a *Error carrying a stable
// Code so callers can branch on failure kind with errors.As, without
// parsing messages.
package zcaperr

import "fmt"

// Code identifies the taxonomy an error belongs to.
type Code string

// Structural errors: missing required field, wrong shape, zero or many
// delegation proofs, wrong context, wrong proof purpose.
const (
	CodeMissingField      Code = "MISSING_FIELD"
	CodeInvalidShape      Code = "INVALID_SHAPE"
	CodeProofCount        Code = "PROOF_COUNT"
	CodeWrongContext      Code = "WRONG_CONTEXT"
	CodeWrongProofPurpose Code = "WRONG_PROOF_PURPOSE"
)

// Chain structure errors: chain too long, cyclic chain, unexpected root,
// parentCapability mismatch.
const (
	CodeChainTooLong     Code = "CHAIN_TOO_LONG"
	CodeChainCycle       Code = "CHAIN_CYCLE"
	CodeUnexpectedRoot   Code = "UNEXPECTED_ROOT"
	CodeParentMismatch   Code = "PARENT_MISMATCH"
	CodeChainEmbedding   Code = "CHAIN_EMBEDDING"
	CodeChainDereference Code = "CHAIN_DEREFERENCE"
)

// Cryptographic errors: signature does not verify, verification method
// cannot be resolved, key type not supported by the suite.
const (
	CodeSignatureInvalid   Code = "SIGNATURE_INVALID"
	CodeVerificationMethod Code = "VERIFICATION_METHOD_UNRESOLVABLE"
	CodeUnsupportedKeyType Code = "UNSUPPORTED_KEY_TYPE"
)

// Identity errors: controller does not match the verifying key or its
// controller.
const (
	CodeControllerMismatch Code = "CONTROLLER_MISMATCH"
)

// Semantic errors: attenuation violations, expiration/delegation-time
// ordering violations, TTL bound exceeded, expired capability, delegation
// in the future.
const (
	CodeActionNotAllowed    Code = "ACTION_NOT_ALLOWED"
	CodeTargetMismatch      Code = "TARGET_MISMATCH"
	CodeExpirationOrder     Code = "EXPIRATION_ORDER"
	CodeExpired             Code = "EXPIRED"
	CodeDelegationTimeOrder Code = "DELEGATION_TIME_ORDER"
	CodeDelegationInFuture  Code = "DELEGATION_IN_FUTURE"
	CodeTTLExceeded         Code = "TTL_EXCEEDED"
)

// Hook-driven and cancellation errors.
const (
	CodeHookRejected Code = "HOOK_REJECTED"
	CodeCancelled    Code = "CANCELLED"
)

// Error is the error type returned across the engine's API boundary.
// Details carries non-essential diagnostic context (e.g. the offending
// capability id or verification method); callers MAY strip it before
// surfacing an error to an untrusted peer, to avoid correlation leakage.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped error, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an *Error with no wrapped cause.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error that wraps an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithDetails attaches diagnostic details and returns the same error for
// chaining at the call site, e.g. `return zcaperr.New(...).WithDetails(...)`.
func (e *Error) WithDetails(details map[string]string) *Error {
	e.Details = details
	return e
}
