// Package migrations embeds the PostgreSQL schema of the checkout store.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files
//
//go:embed *.sql
var FS embed.FS
