// Package migrations contains embedded SQL migrations for the PostgreSQL login limiter.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
