package caddy

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// GateData holds data for rendering the gate page template.
type GateData struct {
	ReturnURL string
	UnlockURL string
	Error     string
}

// ErrorData holds data for rendering error page templates.
type ErrorData struct {
	Title   string
	Message string
}

// TemplateRenderer renders the HTML pages served by the handler.
type TemplateRenderer struct {
	gate *template.Template
	err  *template.Template
}

// NewTemplateRenderer creates a renderer using embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	gate, err := template.ParseFS(embeddedTemplates, "templates/gate.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded gate.html: %w", err)
	}

	errTmpl, err := template.ParseFS(embeddedTemplates, "templates/error.html")
	if err != nil {
		return nil, fmt.Errorf("parse embedded error.html: %w", err)
	}

	return &TemplateRenderer{
		gate: gate,
		err:  errTmpl,
	}, nil
}

// NewTemplateRendererWithDir creates a renderer that loads custom templates
// from the given directory, falling back to embedded for missing files.
func NewTemplateRendererWithDir(dir string) (*TemplateRenderer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates path is not a directory: %s", dir)
	}

	gate, err := loadTemplate(dir, "gate.html")
	if err != nil {
		return nil, fmt.Errorf("load gate template: %w", err)
	}

	errTmpl, err := loadTemplate(dir, "error.html")
	if err != nil {
		return nil, fmt.Errorf("load error template: %w", err)
	}

	return &TemplateRenderer{
		gate: gate,
		err:  errTmpl,
	}, nil
}

// loadTemplate tries to load a template from the custom directory,
// falling back to the embedded version if the file doesn't exist.
func loadTemplate(dir, name string) (*template.Template, error) {
	customPath := filepath.Join(dir, name)

	if _, err := os.Stat(customPath); err == nil {
		tmpl, err := template.ParseFiles(customPath)
		if err != nil {
			return nil, fmt.Errorf("parse custom %s: %w", name, err)
		}
		return tmpl, nil
	}

	tmpl, err := template.ParseFS(embeddedTemplates, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("parse embedded %s: %w", name, err)
	}
	return tmpl, nil
}

// RenderGate renders the gate page.
func (r *TemplateRenderer) RenderGate(w io.Writer, data GateData) error {
	return r.gate.Execute(w, data)
}

// RenderError renders an error page.
func (r *TemplateRenderer) RenderError(w io.Writer, data ErrorData) error {
	return r.err.Execute(w, data)
}
