// Package transport talks to the authentication endpoints of the portal API.
//
// It is the only code that issues login, logout and profile requests. Results
// are classified into [ErrRejected], [ErrThrottled], [ErrUnavailable] and
// [ErrMalformed]; HTTP failures carry an [*APIError] with the status and
// server detail.
//
// # What this package must NOT do
//
//   - Touch the token store or session state.
//   - Derive permissions.
package transport
