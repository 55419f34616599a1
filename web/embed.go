package web

import "embed"

// Templates embeds HTML templates used for printable documents.
//
//go:embed templates/*.html
var Templates embed.FS
