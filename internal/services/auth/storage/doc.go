// Package storage defines persistence contracts for users, credentials and
// pending ceremony challenges.
//
// The ceremony engine depends only on these interfaces; SQLite and PostgreSQL
// implementations live in subpackages.
package storage
