// Package latex renders resume content into standalone LaTeX sources.
package latex

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/garnizeh/careerprep/pkg/models"
)

const (
	TemplateModern  = "modern"
	TemplateClassic = "classic"
)

//go:embed templates/*.tex.tmpl
var templateFS embed.FS

var templates = map[string]*template.Template{
	TemplateModern:  mustParse(TemplateModern),
	TemplateClassic: mustParse(TemplateClassic),
}

func mustParse(name string) *template.Template {
	return template.Must(template.New(name+".tex.tmpl").
		Delims("<<", ">>").
		Funcs(template.FuncMap{"escape": Escape, "bullets": Bullets}).
		ParseFS(templateFS, "templates/"+name+".tex.tmpl"))
}

// TemplateError indicates the template failed to execute.
type TemplateError struct {
	Template string
	Cause    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("render %s template: %v", e.Template, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

// Resolve maps a template identifier onto a known template, defaulting to
// modern.
func Resolve(name string) string {
	if _, ok := templates[name]; ok {
		return name
	}
	return TemplateModern
}

// Render produces the LaTeX source for content using the named template.
// Output depends only on its inputs.
func Render(content models.ResumeContent, name string) (string, error) {
	name = Resolve(name)
	content.Normalize()

	var out strings.Builder
	if err := templates[name].Execute(&out, content); err != nil {
		return "", &TemplateError{Template: name, Cause: err}
	}
	return out.String(), nil
}

// Filename returns the attachment name for a resume title.
func Filename(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', '\r', '\n':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if title == "" {
		title = "resume"
	}
	return title + ".tex"
}
