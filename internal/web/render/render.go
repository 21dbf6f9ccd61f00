// Package render turns the embedded page templates into templ components.
package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/language"

	"github.com/ayush/text-analysis/web/internal/i18n"
	"github.com/ayush/text-analysis/web/internal/web/flash"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// NavItem is one workflow step in the sidebar.
type NavItem struct {
	Key    string
	Path   string
	Active bool
	Locked bool
	Done   bool
}

// Page is everything the layout needs around a page body.
type Page struct {
	TitleKey  string
	Path      string
	Nav       []NavItem
	Languages []i18n.LanguageOption
	Flash     *flash.Notice
	Data      any
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	bundle *i18n.Bundle
	pages  map[string]*template.Template
}

// New parses the embedded templates.
func New(bundle *i18n.Bundle) (*Renderer, error) {
	return NewFromFS(bundle, templateFS)
}

// NewFromFS parses templates/layout.html plus every other templates/*.html
// file in fsys. Each page file defines a "content" block.
func NewFromFS(bundle *i18n.Bundle, fsys fs.FS) (*Renderer, error) {
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}
	layout, err := template.New("layout").Funcs(funcs(nil)).ParseFS(fsys, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{bundle: bundle, pages: map[string]*template.Template{}}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		r.pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}
	return r, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Component renders a page in the given language.
func (r *Renderer) Component(name string, tag language.Tag, page Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		base, ok := r.pages[name]
		if !ok {
			return fmt.Errorf("unknown page %q", name)
		}
		t, err := base.Clone()
		if err != nil {
			return err
		}
		p := r.bundle.Printer(tag)
		t.Funcs(funcs(func(key string, args ...any) string {
			return p.Sprintf(key, args...)
		}))
		return t.ExecuteTemplate(w, "layout", view{Page: page, Lang: tag.String()})
	})
}

// Render writes a page with the request's language and the given status.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, page Page) {
	page.Path = req.URL.Path
	if page.Languages == nil {
		page.Languages = r.bundle.Options(i18n.TagFrom(req.Context()))
	}
	c := r.Component(name, i18n.TagFrom(req.Context()), page)
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, req)
}

type view struct {
	Page
	Lang string
}

func funcs(tr func(key string, args ...any) string) template.FuncMap {
	t := func(key string, args ...any) string {
		if tr == nil {
			return key
		}
		return tr(key, args...)
	}
	return template.FuncMap{
		"t": t,
		"notice": func(n flash.Notice) string {
			return t(n.Key, n.AnyArgs()...)
		},
		"imgsrc": ImageSource,
		"styleForm": func(field, tab string, options any, current string) map[string]any {
			return map[string]any{"Field": field, "Tab": tab, "Options": options, "Current": current}
		},
	}
}

// ImageSource turns a base64 PNG or a data URI into an <img> source. Any
// other value becomes an empty source.
func ImageSource(s string) template.URL {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	if s == "" || strings.ContainsFunc(s, notBase64) {
		return ""
	}
	return template.URL("data:image/png;base64," + s)
}

func notBase64(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r == '+' || r == '/' || r == '=' || r == '\n' || r == '\r':
		return false
	}
	return true
}
