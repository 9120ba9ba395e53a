// Package static embeds the browser assets served by the web service.
package static

import "embed"

// FS exposes web static assets for HTTP serving.
//
//go:embed *.css *.js *.html
var FS embed.FS

// Page file names.
const (
	LoginPage = "login.html"
	HomePage  = "home.html"
)
