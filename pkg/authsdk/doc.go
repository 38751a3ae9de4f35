// Package authsdk is the Go client for the authentication service, and the
// home of the request/response types the server and client share.
//
// Signing in:
//
//	c := authsdk.NewSDKClient("http://localhost:8080")
//	res, err := c.Login(ctx, "alice@example.com", "correct horse")
//	if err != nil {
//		return err
//	}
//	if res.MFARequired {
//		// ask the user for the emailed code or the authenticator code
//		tokens, err := c.VerifyMFA(ctx, authsdk.VerifyMFARequest{TempToken: res.TempToken, OTP: code})
//		...
//	}
//
// A Session wraps a token pair and refreshes the access token when it is
// about to expire:
//
//	s := c.NewSession(tokens)
//	me, err := s.Me(ctx)
//
// Every non-2xx response is returned as an *APIError.
package authsdk
