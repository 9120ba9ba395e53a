// Package postgres provides PostgreSQL-backed auth persistence through the
// pgx database/sql driver.
package postgres
