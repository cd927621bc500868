// Package web embeds the HTML templates rendered into PDFs.
package web

import "embed"

// Documents holds the quote, order, production, label and revenue templates
// together with their shared partials.
//
//go:embed templates/documents/*.html
var Documents embed.FS
