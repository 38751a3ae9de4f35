//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestForgotPasswordRateLimited verifies the strict per-address limit on
// forgot-password with the production defaults.
func TestForgotPasswordRateLimited(t *testing.T) {
	baseURL := setupAuthContainerWithDefaultRateLimits(t)
	client := authsdk.NewSDKClient(baseURL)

	var limited *authsdk.APIError
	for i := range 20 {
		_, err := client.ForgotPassword(t.Context(), adminEmail)
		if err == nil {
			continue
		}
		limited = assertAPIError(t, err, http.StatusTooManyRequests, "Forgot password")
		t.Logf("rate limited after %d requests", i)
		break
	}

	require.NotNil(t, limited, "Should be rate limited within 20 requests")
	require.Equal(t, authsdk.ErrorCodeRateLimited, limited.Code)

	// Health checks use their own bucket
	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}
