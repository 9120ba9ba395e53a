// Package sqlite provides SQLite-backed auth persistence.
//
// It is the default on-disk store for users, credentials and pending
// challenges.
package sqlite
