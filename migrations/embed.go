// Package migrations holds the SQL schema for the Postgres row sink.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
