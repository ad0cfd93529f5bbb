package middleware

import (
	"net/http"
)

// BearerTransport sets "Authorization: Bearer <token>" on outgoing requests.
// Requests that already carry an Authorization header are left alone.
type BearerTransport struct {
	// Base performs the request. nil means http.DefaultTransport.
	Base http.RoundTripper
	// Token returns the current session token, or "" to send the request
	// unauthenticated.
	Token func(*http.Request) string
	// OnUnauthorized runs after a 401 response to a request that carried
	// token.
	OnUnauthorized func(req *http.Request, token string)
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	var token string
	if t.Token != nil && req.Header.Get("Authorization") == "" {
		token = t.Token(req)
	}
	if token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if token != "" && resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized(req, token)
	}
	return resp, nil
}
