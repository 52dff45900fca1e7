// Package appfs exposes this module's embedded assets.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
