package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"archie-shopify-login/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title    string
	Flash    *domain.Flash
	Action   string
	Shop     string
	ReturnTo string
	URL      string
}

// views holds one template set per page so the shared layout blocks do not collide
type views struct {
	pages map[string]*template.Template
}

func newViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template)}
	for _, page := range []string{"new", "redirect", "interaction"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		v.pages[page] = t
	}
	return v, nil
}

// render buffers the page so a template error never leaves a half-written response
func (v *views) render(w http.ResponseWriter, page string, data pageData) error {
	t, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, page+".html", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
