// Package middleware adapts the client session to net/http.
//
// # Adapters
//
//   - [BearerTransport]: outbound http.RoundTripper that attaches the session
//     token and reports 401 responses.
//   - [Guard]: serves one of three handlers based on the route guard view.
//   - [RequireAuthenticated]: wraps a protected handler, redirecting public
//     visitors to the login route.
//   - [RequirePermission]: rejects requests whose session lacks a permission.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into guard and client calls. Every
// decision is delegated to the guard or the permission checker it is given.
//
// # What this package must NOT do
//
//   - Read or write the token store directly.
//   - Parse or inspect tokens.
//   - Dispatch session transitions (callbacks do that).
package middleware
