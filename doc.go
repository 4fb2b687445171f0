// Package authcore provides the credential and session core for an
// expense-tracking deployment: signed session tokens, password policy and
// hashing, single-use setup tokens for first-time logins, and the transaction
// discipline required to run all of it against an embedded single-writer
// SQLite database.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus persisted via Bun. A freshly provisioned
//     account is pending (no password, cannot log in); redeeming a setup token
//     sets the password hash, flips password_set, and activates the account in
//     a single transaction. Admins may suspend and reinstate active accounts.
//   - AccountStateMachine centralizes the transition graph, timestamps, hooks,
//     and the root-account guard: the bootstrap administrator can never be
//     suspended, demoted, or deleted by another admin.
//
// Session tokens:
//   - TokenService issues self-contained HS256 JWTs (account id, username,
//     role, iat, exp). Validation requires only the signing key and the clock;
//     there is no server-side session store and no pre-expiry revocation.
//   - Every validation failure, whether structural, signature, or expiry,
//     collapses to ErrSessionInvalid so callers get no oracle about why a
//     presented token failed.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the state
//     machine, and the provisioning handlers. Sinks run best-effort (errors
//     are logged) so you can forward to a database or queue without blocking
//     authentication.
package authcore
