// Package migrations embeds the SQL schema migrations so goose can
// apply them regardless of the working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
