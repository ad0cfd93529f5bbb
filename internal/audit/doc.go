// Package audit dispatches auth lifecycle events (login, logout, storage
// self-heal, session invalidation) to a sink without blocking the caller.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: one record with timestamp, type, client, user and metadata.
//
// # What this package must NOT do
//
//   - Decide which events to emit. That belongs to the client and its flows.
//   - Import goAuthClient or any sibling internal package.
package audit
