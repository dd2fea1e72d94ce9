// Package identity persists a generic account abstraction (credentials,
// roles, claims, external logins, lockout and two-factor state) onto
// relational tables through the Bun ORM, and exposes that mapping through a
// set of narrow capability interfaces.
//
// Store:
//   - Store is generic over the key scheme (string or integer keys) and the
//     account type. Custom account types embed Account[K] with the bun
//     `extend` tag to add columns, and the same store manages them.
//   - One store binds to one connection and owns it; dispose with Close or
//     use WithStore for scoped acquisition with guaranteed release.
//   - Field setters (password hash, email, lockout, phone, two-factor,
//     security stamp) mutate the in-memory entity only; the caller persists
//     the batch with a single Update. Login, claim, and role-membership
//     mutations persist immediately.
//
// Capability interfaces:
//   - AccountStorer, PasswordStorer, EmailStorer, LockoutStorer,
//     TwoFactorStorer, PhoneStorer, LoginStorer, SecurityStampStorer,
//     ClaimStorer, and RoleStorer are satisfied simultaneously by one Store,
//     so callers and tests depend only on the capability they need.
//
// Schema:
//   - CreateAccountSchema and CreateAccountSchemaFor reconcile entity
//     descriptions against the live database at startup: missing tables are
//     created, missing columns added, nothing dropped or narrowed. The
//     reconciliation is idempotent.
package identity
