package jwtx

import (
	"errors"
	"time"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrWeakSecret  = errors.New("jwtx: secret too short")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrPurpose      = errors.New("jwtx: wrong token purpose")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// PurposeVerifier only accepts tokens minted for one purpose.
type PurposeVerifier struct {
	Verifier
	Purpose Purpose
}

func (v PurposeVerifier) Verify(token string) (Claims, error) {
	c, err := v.Verifier.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	if err := c.ValidatePurpose(v.Purpose); err != nil {
		return Claims{}, err
	}
	return c, nil
}
