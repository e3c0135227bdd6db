package delegation

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
// invocationTarget to be a path beneath its parent's (parent target + "/"
// prefix); any other difference is still rejected (spec §6; default false).
func WithAllowTargetAttenuation(allow bool) Option {
	return func(in *Input) { in.AllowTargetAttenuation = allow }
}

// WithDate overrides the "now" used for expiration and delegation-time
// checks (spec §6; default time.Now().UTC()).
func WithDate(t time.Time) Option {
	return func(in *Input) { in.Date = t }
}

// NewInput builds an Input for validating a delegation proof, applying
// opts over the spec's defaults, mirroring the teacher's own applyOptions
// in pkg/server/options.go.
func NewInput(capability *zcap.Capability, docs loader.DocumentLoader, suites suite.Suites, expectedRootCapability []string, opts ...Option) Input {
	in := Input{
		Capability:             capability,
		DocumentLoader:         docs,
		Suite:                  suites,
		ExpectedRootCapability: expectedRootCapability,
		MaxChainLength:         zcap.MaxChainLength,
		MaxClockSkew:           zcap.DefaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}
