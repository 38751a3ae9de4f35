package app

import (
	"fmt"

	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
)

// InitAuthKeys builds the two HMAC keys. Access, pending and reset tokens
// are signed with the access secret, refresh tokens with the refresh secret.
func InitAuthKeys(cfg Config) (access, refresh *jwtx.HS256, err error) {
	opts := jwtx.VerifyOptions{Issuer: cfg.Issuer}

	access, err = jwtx.NewHS256([]byte(cfg.AccessTokenSecret), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("access token key: %w", err)
	}
	refresh, err = jwtx.NewHS256([]byte(cfg.RefreshTokenSecret), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh token key: %w", err)
	}
	return access, refresh, nil
}
