// Package postgres provides the Postgres-backed article store and the schema
// migrations it depends on. Each store call borrows one pooled connection for
// a single statement and returns it before the call ends.
package postgres
