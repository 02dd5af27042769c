// Package migrations embeds the SQL schema applied by `cesizen migrate`.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate naming.
//
//go:embed *.sql
var FS embed.FS
