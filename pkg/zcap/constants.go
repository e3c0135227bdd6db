package zcap

import "time"

// MaxChainLength is the default bound on a dereferenced chain's length
// (spec §6).
const MaxChainLength = 10

// DefaultMaxClockSkew is the default clock-skew tolerance applied wherever
// a live clock is compared to an embedded instant (spec §6).
const DefaultMaxClockSkew = 300 * time.Second
