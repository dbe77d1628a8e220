// Package migrations embeds the schema store's SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
