package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret NewHS256 accepts (256 bits).
const MinSecretLength = 32

// HS256 signs and verifies tokens with a shared HMAC-SHA256 secret. Use one
// instance per secret; access and refresh tokens must never share one.
type HS256 struct {
	secret []byte
	opts   VerifyOptions
}

// NewHS256 creates a symmetric signer/verifier. Short secrets are rejected so
// a misconfigured deployment fails at startup instead of minting weak tokens.
func NewHS256(secret []byte, opts VerifyOptions) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	// Copy so the caller can't mutate the key underneath us
	key := make([]byte, len(secret))
	copy(key, secret)
	return &HS256{secret: key, opts: opts}, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (h *HS256) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(h.secret)
}

// Verify validates signature, issuer and lifetime. It never panics on
// attacker-controlled input; every failure maps to one of the jwtx errors.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(h.opts.Leeway),
	}
	if h.opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(h.opts.Issuer))
	}
	if h.opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(h.opts.Now))
	}

	var claims Claims
	token, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAlgMismatch
		}
		return h.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidClaim
	}
	if claims.Subject == "" || claims.Purpose == "" {
		return Claims{}, ErrInvalidClaim
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	default:
		return ErrInvalidClaim
	}
}

// ensure HS256 satisfies both halves
var _ SignVerifier = (*HS256)(nil)

