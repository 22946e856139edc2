// Package ui bundles the templates and static assets into the binary so the
// server can run from any working directory.
package ui

import "embed"

// Templates holds the base layout and the per-page template directories.
//
//go:embed templates
var Templates embed.FS

// Static holds the stylesheets and scripts served under /static/.
//
//go:embed static
var Static embed.FS
