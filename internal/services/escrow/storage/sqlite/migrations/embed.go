// Package migrations embeds the SQL schema history of the event log.
package migrations

import "embed"

//go:embed events/*.sql
var EventsFS embed.FS
