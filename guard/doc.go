// Package guard chooses which view tree a host renders for the current
// session.
//
// Decisions are evaluated in order:
//
//  1. session loading (or not yet initialized): [ViewLoading]
//  2. unauthenticated and the token store is empty: [ViewPublic]
//  3. unauthenticated but the token store still holds a credential: [ViewLoading],
//     reported as [ErrTransientInconsistency] and bounded by
//     Config.InconsistencyTimeout, after which the guard returns [ViewPublic]
//     and fires Config.OnStale once for that episode
//  4. authenticated: [ViewProtected]
//
// The guard performs no navigation. All navigation comes from explicit
// session transitions.
package guard
