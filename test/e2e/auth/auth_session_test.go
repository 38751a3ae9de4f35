//go:build e2e

package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLoginRefreshLogout walks a session from password login to logout:
// 1. Login returns a token pair
// 2. /auth/me works with the access token
// 3. Refresh rotates both tokens
// 4. The rotated-out refresh token is rejected
// 5. Logout revokes the session's refresh token
func TestLoginRefreshLogout(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	session := loginAdmin(t, client)

	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, adminEmail, me.Email)
	require.Equal(t, "admin", me.Role)
	require.False(t, me.MFAEnabled)

	oldAccess, oldRefresh := session.AccessToken(), session.RefreshToken()

	rotated, err := client.Refresh(t.Context(), oldRefresh)
	require.NoError(t, err)
	assertTokenResponse(t, rotated)
	require.NotEqual(t, oldAccess, rotated.AccessToken, "Access token should be rotated")
	require.NotEqual(t, oldRefresh, rotated.RefreshToken, "Refresh token should be rotated")

	_, err = client.Refresh(t.Context(), oldRefresh)
	assertAPIError(t, err, http.StatusUnauthorized, "Reused refresh token")

	// Reuse revokes the whole session, so sign in again
	session = loginAdmin(t, client)
	refreshToken := session.RefreshToken()
	require.NoError(t, session.Logout(t.Context()))

	_, err = client.Refresh(t.Context(), refreshToken)
	require.True(t, errors.Is(err, authsdk.ErrInvalidRefreshToken), "got: %v", err)
}

// TestLoginRejectsBadCredentials verifies wrong passwords and unknown users
// get the same answer.
func TestLoginRejectsBadCredentials(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	_, err := client.Login(t.Context(), adminEmail, "wrong-password")
	wrongPassword := assertAPIError(t, err, http.StatusUnauthorized, "Wrong password")

	_, err = client.Login(t.Context(), "nobody@example.com", adminPassword)
	unknownUser := assertAPIError(t, err, http.StatusUnauthorized, "Unknown user")

	require.Equal(t, wrongPassword.Code, unknownUser.Code)
	require.Equal(t, wrongPassword.Message, unknownUser.Message)
}

// TestProtectedEndpointsRequireBearer verifies /auth/me rejects requests
// without a valid access token.
func TestProtectedEndpointsRequireBearer(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	session := client.NewSession(&authsdk.TokenResponse{AccessToken: "not-a-jwt", ExpiresIn: 900})
	_, err := session.Me(t.Context())
	assertAPIError(t, err, http.StatusUnauthorized, "Garbage bearer")
}

// TestForgotPasswordHidesAccounts verifies forgot-password answers the same
// for known and unknown emails.
func TestForgotPasswordHidesAccounts(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	known, err := client.ForgotPassword(t.Context(), adminEmail)
	require.NoError(t, err)
	unknown, err := client.ForgotPassword(t.Context(), "nobody@example.com")
	require.NoError(t, err)
	require.Equal(t, known.Message, unknown.Message)

	_, err = client.VerifyResetOTP(t.Context(), adminEmail, "000000")
	assertAPIError(t, err, http.StatusUnauthorized, "Wrong reset code")
}
