// Package web embeds the landing page template and its static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// IndexData is rendered by the landing page template.
type IndexData struct {
	Count      int
	Categories []string
	Fallback   bool
}

// Index is the landing page template.
var Index = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Static serves the embedded assets rooted at static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
