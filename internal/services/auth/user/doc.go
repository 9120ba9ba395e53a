// Package user defines the auth user model keyed by a normalized email.
//
// Email and ID never change after creation; the display name is only
// captured on first registration.
package user
