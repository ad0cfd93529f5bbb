// Package session provides the persisted credential mirror (token + serialized
// user record) that lets a session survive a process restart or page reload.
//
// # Key pair
//
// A credential is exactly two string keys: the raw access token and a JSON
// encoded [UserRecord]. The keys are written and cleared as a pair. A state in
// which only one of them is present is treated as corrupt: [Store.Load] clears
// both and reports no credential.
//
// # Backends
//
// [MemoryStorage], [FileStorage] and [RedisStorage] implement [Storage].
// Backends that also implement [PairWriter] get a truly atomic pair write;
// for the others [Store.Save] rolls the token key back when the user write fails.
//
// # Architecture boundaries
//
// This package owns persistence and the [UserRecord] wire shape. It does NOT
// talk to the authentication endpoints, derive permissions, or decide what a
// host should render.
//
// # What this package must NOT do
//
//   - Import goAuthClient, state, or guard (no upward imports).
//   - Leave a partially written credential behind on error.
//   - Persist passwords.
package session
