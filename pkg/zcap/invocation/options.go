package invocation

import (
	"time"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/loader"
	"github.com/relves/zcapcore/pkg/zcap/suite"
)

// Option configures an Input, mirroring the teacher's functional-options
// pattern in pkg/server/options.go (Option func(*Config), WithSigner,
// WithValidator, ...).
type Option func(*Input)

// WithMaxChainLength bounds the dereferenced chain length (spec §6;
// default zcap.MaxChainLength).
func WithMaxChainLength(n int) Option {
	return func(in *Input) { in.MaxChainLength = n }
}

// WithMaxClockSkew bounds the clock-skew tolerance applied to timestamp
// comparisons (spec §6; default zcap.DefaultMaxClockSkew).
func WithMaxClockSkew(d time.Duration) Option {
	return func(in *Input) { in.MaxClockSkew = d }
}

// WithMaxDelegationTTL bounds how far in the future a delegated
// capability's expiration may sit relative to both the current time and
// its own delegation time (spec §6; default 0, meaning no bound).
func WithMaxDelegationTTL(d time.Duration) Option {
	return func(in *Input) { in.MaxDelegationTTL = d }
}

// WithAllowTargetAttenuation permits a delegated capability's
// invocationTarget, and the invocation proof's target, to be a path
// beneath the parent capability's target (parent target + "/" prefix); any
// other difference is still rejected (spec §6; default false).
func WithAllowTargetAttenuation(allow bool) Option {
	return func(in *Input) { in.AllowTargetAttenuation = allow }
}

// WithDate overrides the "now" used for expiration and timestamp-delta
// checks (spec §6; default time.Now().UTC()).
func WithDate(t time.Time) Option {
	return func(in *Input) { in.Date = t }
}

// WithInspectHook installs the optional inspectCapabilityChain callback of
// spec §4.4 step 8 (default: none).
func WithInspectHook(hook InspectHook) Option {
	return func(in *Input) { in.InspectCapabilityChain = hook }
}

// NewInput builds an Input for verifying an invocation document, applying
// opts over the spec's defaults, mirroring the teacher's own applyOptions
// in pkg/server/options.go.
func NewInput(document []byte, expectedAction string, suites suite.Suites, docs loader.DocumentLoader, opts ...Option) Input {
	in := Input{
		Document:       document,
		ExpectedAction: expectedAction,
		Suite:          suites,
		DocumentLoader: docs,
		MaxChainLength: zcap.MaxChainLength,
		MaxClockSkew:   zcap.DefaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}
