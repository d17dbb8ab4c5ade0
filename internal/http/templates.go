package http

import (
	"embed"
	"html/template"

	"github.com/nurpe/bonus-agreements/internal/format"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates parses the embedded page templates.
func LoadTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"date":        format.Date,
		"datetime":    format.DateTime,
		"condition":   format.Condition,
		"gridLabel":   format.GridLabel,
		"statusLabel": format.StatusLabel,
		"statusClass": format.StatusClass,
	}
	return template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}
