package suite

import (
	"context"
	"fmt"
)

// Suites lets VerifyInvocation/VerifyDelegation accept "one or more"
// injected signature suites (spec §6), trying each in turn until one
// resolves the verification method.
type Suites []SignatureSuite

// Verify tries each suite in order, returning the first successful result.
// If none succeed, it returns the last suite's error (or a generic one if
// Suites is empty).
func (s Suites) Verify(ctx context.Context, signingInput []byte, proofValue, verificationMethod string) (string, error) {
	var lastErr error
	for _, suite := range s {
		controller, err := suite.Verify(ctx, signingInput, proofValue, verificationMethod)
		if err == nil {
			return controller, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no signature suite configured")
	}
	return "", lastErr
}
