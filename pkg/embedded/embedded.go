// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains the dashboard served at "/" (ui/index.html). It reads the
// JSON API and needs no build step.
//
//go:embed ui
var Files embed.FS
