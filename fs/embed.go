// Package appfs embeds the files shipped with the binaries: the default activity catalog,
// the SQL migrations, the email templates and the static web client.
package appfs

import "embed"

//go:embed catalog.yaml migrations templates static
var FS embed.FS

const (
	CatalogPath       = "catalog.yaml"
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
	StaticDir         = "static"
)
