// Package jwt inspects bearer tokens returned by the auth API.
//
// The client treats tokens as opaque credentials. When a token happens to be
// a JWT, its registered claims are read so an already expired credential can
// be discarded at startup instead of being replayed against the server.
// Signature verification is optional and only performed when a verify key is
// configured.
//
// # What this package must NOT do
//
//   - Issue tokens.
//   - Treat an opaque (non-JWT) token as invalid.
package jwt
