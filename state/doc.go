// Package state implements the session state machine that every reader of
// "who is logged in" consults.
//
// Transitions are driven by discrete [Event] values. Each event is applied as
// one atomic update under the machine mutex, so a reader can never observe a
// snapshot where the user is set but the session is not yet authenticated.
//
// # Generations
//
// The machine keeps a generation counter that advances on LOGIN_START, LOGOUT
// and SESSION_INVALIDATED. Asynchronous work captures the generation before it
// starts and commits with [Machine.DispatchIf]; a result whose generation has
// moved on is rejected with [ErrStale].
//
// # Architecture boundaries
//
// The machine does no I/O. Persistence and network calls belong to the
// caller, which commits their outcome here.
//
// # What this package must NOT do
//
//   - Read or write the token store.
//   - Decide which view to render.
package state
