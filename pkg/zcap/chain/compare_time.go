package chain

import "time"

// compareTime compares t1 to t2 the way spec §4.3's skew-tolerant
// discipline requires: it returns sign(t1-t2), except it returns 0 whenever
// the two instants are within skew of each other. This primitive is only
// ever used to compare a live clock (`now`) against a value embedded in
// the chain — never to compare two embedded values against each other,
// which spec §9 calls out as a latent-bug trap ("Cross-use is a latent
// bug"). Embedded-vs-embedded comparisons use plain time.Time methods
// directly at the call site instead.
func compareTime(t1, t2 time.Time, skew time.Duration) int {
	diff := t1.Sub(t2)
	if diff < 0 {
		diff = -diff
	}
	if diff <= skew {
		return 0
	}
	if t1.After(t2) {
		return 1
	}
	return -1
}

// compareDuration applies the same skew-tolerant comparison to two
// durations. spec §4.3 step 6 uses it for currentTtl (which depends on the
// live clock) against maxDelegationTtl; maxTtl, computed from two embedded
// instants, is compared to maxDelegationTtl without skew.
func compareDuration(d1, d2, skew time.Duration) int {
	diff := d1 - d2
	if diff < 0 {
		diff = -diff
	}
	if diff <= skew {
		return 0
	}
	if d1 > d2 {
		return 1
	}
	return -1
}
