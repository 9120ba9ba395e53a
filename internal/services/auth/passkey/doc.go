// Package passkey configures the WebAuthn relying party.
//
// It owns the relying-party identity, the allowed origins and the timing of
// pending challenges.
package passkey
