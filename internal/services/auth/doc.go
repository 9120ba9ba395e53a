// Package auth owns Daybook identity: users, their passkeys, and the session
// tokens minted after a successful ceremony.
//
// Subpackages:
//   - ceremony: passkey registration and authentication flows
//   - passkey: relying party configuration
//   - session: token issuance and the two verifiers
//   - storage: persistence contracts with SQLite and Postgres implementations
//   - user: user model and email normalization
package auth
