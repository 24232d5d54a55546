// Package sql embeds the sqlite schema.
package sql

import _ "embed"

//go:embed schema.sql
var Schema string
