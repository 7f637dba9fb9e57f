package server

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"initials": func(name string) string {
		var out []rune
		for _, part := range strings.Fields(name) {
			for _, r := range part {
				out = append(out, r)
				break
			}
			if len(out) == 2 {
				break
			}
		}
		return strings.ToUpper(string(out))
	},
	"join": strings.Join,
}

// ParseTemplates parses every page from the embedded filesystem. Pages share
// the "layout" definitions in base.html.
func ParseTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(templateFuncs).ParseFS(TemplateFilesFS(), "*.html")
}
