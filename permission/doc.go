// Package permission holds the hardcoded role-to-permission policy table and
// the bitmask set used for cached permission checks.
//
// # Policy
//
// The admin portal maps a single "is super admin" flag to one of two fixed
// permission lists ([FullAdminPermissions], [ReducedAdminPermissions]). The
// customer product maps a membership tier to a list ([MemberTierPermissions]).
// The tables are client policy, not server driven, and are built into a
// frozen [Registry] and [RoleManager] once per process.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import goAuthClient, session, or state.
//   - Change the tables at runtime.
package permission
