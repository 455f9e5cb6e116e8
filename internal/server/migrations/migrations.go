// Package migrations embeds the goose SQL migrations of the session store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
