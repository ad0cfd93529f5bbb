// Package flows contains the orchestrators behind every Client operation.
//
// Each flow function (RunLogin, RunLogout, RunBootstrap, RunRefresh) accepts a
// typed dependency struct and returns a result. Flows perform the network and
// storage reads of an operation; committing the outcome to the token store and
// the state machine stays with the Client so it can happen under one lock with
// a generation check.
//
// # Architecture boundaries
//
// Flows call the transport, the token store reads, audit and metrics hooks
// handed to them. They do NOT own any of these resources.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthClient (to avoid import cycles).
//   - Dispatch state machine events.
package flows
