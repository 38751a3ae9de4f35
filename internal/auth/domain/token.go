package domain

import "time"

// TokenPair is a signed-in session: a short-lived access token and the
// longer-lived refresh token that renews it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // access token lifetime
}
