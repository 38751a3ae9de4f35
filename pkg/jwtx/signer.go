package jwtx

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// SignVerifier is a symmetric key: the same secret signs and verifies.
type SignVerifier interface {
	Signer
	Verifier
}
