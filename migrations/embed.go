// Package migrations holds the versioned PostgreSQL schema of the marketplace.
package migrations

import "embed"

// FS contains every up and down migration file
//
//go:embed *.sql
var FS embed.FS
