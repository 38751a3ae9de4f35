package jwtx_test

import (
	"testing"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestValidatePurpose(t *testing.T) {
	c := jwtx.NewPurposeClaims(jwtx.PurposeMFAPending, "user-1", time.Minute, "", time.Now())

	require.NoError(t, c.ValidatePurpose(jwtx.PurposeMFAPending))
	require.ErrorIs(t, c.ValidatePurpose(jwtx.PurposeAccess), jwtx.ErrPurpose)
	require.ErrorIs(t, c.ValidatePurpose(jwtx.PurposePasswordReset), jwtx.ErrPurpose)
}

func TestNewSessionClaims(t *testing.T) {
	now := time.Now().UTC()
	c := jwtx.NewSessionClaims(
		jwtx.PurposeAccess,
		"user-1",
		"alice@example.com",
		"admin",
		[]string{jwtx.AMRPassword, jwtx.AMRMFA},
		jwtx.DefaultAccessTokenTTL,
		"auth",
		now,
	)

	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "alice@example.com", c.Email)
	require.Equal(t, "admin", c.Role)
	require.True(t, c.HasAMR(jwtx.AMRMFA))
	require.False(t, c.HasAMR(jwtx.AMROTP))
	require.WithinDuration(t, now.Add(15*time.Minute), c.ExpiresAt.Time, time.Second)

	// jti differs between two otherwise identical mints
	c2 := jwtx.NewSessionClaims(jwtx.PurposeAccess, "user-1", "", "", nil, time.Minute, "auth", now)
	require.NotEqual(t, c.ID, c2.ID)
}
