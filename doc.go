// Package goAuthClient owns the client side of a portal login session: the
// persisted token store, the calls to the auth endpoints, the session state
// machine, and the route guard that picks which view tree a host renders.
//
// A host builds one [Client] through [Builder.Build], calls [Client.Init] once
// at startup, and then drives it with [Client.Login] and [Client.Logout].
// Every reader of "who is logged in" consults [Client.State] or subscribes
// with [Client.Subscribe]; the token store is only read at startup, by
// [Client.Reconcile], and by the guard's bounded consistency probe.
//
// # Architecture boundaries
//
// goAuthClient is the public surface. It exposes [Client], [Builder], [Config]
// and aliases of the value types it hands out. Flow orchestration, HTTP
// transport and audit dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Hold package-level session state. Each Client is an owned container.
//   - Surface logout failures or storage self-heal to callers.
//   - Import any sub-package that re-imports goAuthClient.
package goAuthClient
