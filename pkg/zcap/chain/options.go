package chain

import (
	"time"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/suite"
)

// Option configures a VerifyInput, mirroring the teacher's functional-
// options pattern in pkg/server/options.go (Option func(*Config),
// WithSigner, WithValidator, ...).
type Option func(*VerifyInput)

// WithMaxClockSkew bounds the clock-skew tolerance applied to timestamp
// comparisons (spec §6; default zcap.DefaultMaxClockSkew).
func WithMaxClockSkew(d time.Duration) Option {
	return func(in *VerifyInput) { in.MaxClockSkew = d }
}

// WithMaxDelegationTTL bounds how far in the future a delegated
// capability's expiration may sit relative to both the current time and
// its own delegation time (spec §6; default 0, meaning no bound).
func WithMaxDelegationTTL(d time.Duration) Option {
	return func(in *VerifyInput) { in.MaxDelegationTTL = d }
}

// WithAllowTargetAttenuation permits a delegated capability's
// invocationTarget to be a path beneath its parent's (parent target + "/"
// prefix); any other difference is still rejected (spec §6; default false).
func WithAllowTargetAttenuation(allow bool) Option {
	return func(in *VerifyInput) { in.AllowTargetAttenuation = allow }
}

// WithDate overrides the "now" used for expiration and delegation-time
// checks (spec §6; default time.Now().UTC()).
func WithDate(t time.Time) Option {
	return func(in *VerifyInput) { in.Date = t }
}

// NewVerifyInput builds a VerifyInput for the given dereferenced chain,
// applying opts over the spec's defaults, mirroring the teacher's own
// applyOptions in pkg/server/options.go.
func NewVerifyInput(dereferencedChain []*zcap.Capability, meta *Meta, suites suite.Suites, opts ...Option) VerifyInput {
	in := VerifyInput{
		DereferencedChain: dereferencedChain,
		Meta:              meta,
		Suite:             suites,
		MaxClockSkew:      zcap.DefaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}
