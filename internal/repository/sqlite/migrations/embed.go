package migrations

import "embed"

// FS holds the numbered migration files applied by Run.
//
//go:embed *.sql
var FS embed.FS
