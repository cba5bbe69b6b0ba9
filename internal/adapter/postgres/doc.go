// Package postgres stores the broadcaster directory in PostgreSQL.
//
// Schema changes live in migrations/ and are applied with tern at startup.
package postgres
