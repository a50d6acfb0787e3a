// Package view renders page objects (a component name plus its props),
// either as JSON for the client bridge or as an HTML document that embeds
// the same object and a server-rendered fallback of the page.
package view

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/aanand-mishra/employees-app/internal/form"
	"github.com/aanand-mishra/employees-app/internal/types"
	"github.com/aanand-mishra/employees-app/internal/utils/response"
)

// BridgeHeader marks requests (and responses) that speak the page-object
// protocol instead of HTML.
const BridgeHeader = "X-Inertia"

const (
	ComponentIndex  = "Employees/Index"
	ComponentCreate = "Employees/Create"
	ComponentEdit   = "Employees/Edit"
	ComponentError  = "Error"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the object handed to the client.
type Page struct {
	Component string `json:"component"`
	Props     any    `json:"props"`
	URL       string `json:"url"`
}

// Flash holds one-shot messages.
type Flash struct {
	Success string `json:"success,omitempty"`
}

// IndexProps is what the list page needs.
type IndexProps struct {
	Employees     types.Page `json:"employees"`
	Search        string     `json:"search"`
	SortBy        string     `json:"sort_by"`
	SortDirection string     `json:"sort_direction"`
	Flash         Flash      `json:"flash"`
}

// FormProps backs the standalone create and edit pages.
type FormProps struct {
	Form     *form.Model     `json:"form"`
	Employee *types.Employee `json:"employee,omitempty"`
}

type ErrorProps struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("views").Funcs(template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		// Pagination labels are produced by the pagination package
		// (numbers, "...", and two fixed entity strings), never by users.
		"label":      func(s string) template.HTML { return template.HTML(s) },
		"formPath":   func(m *form.Model) string { _, p := m.Action(); return p },
		"formMethod": func(m *form.Model) string { meth, _ := m.Action(); return meth },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view.New: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// IsBridge reports whether r expects a page object rather than HTML.
func IsBridge(r *http.Request) bool {
	return r.Header.Get(BridgeHeader) == "true"
}

// Render writes page with status, as JSON for bridge requests and as
// HTML otherwise.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page Page) error {
	if page.URL == "" {
		page.URL = r.URL.RequestURI()
	}
	w.Header().Add("Vary", BridgeHeader)

	if IsBridge(r) {
		w.Header().Set(BridgeHeader, "true")
		return response.WriteJSON(w, status, page)
	}

	encoded, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("view.Render: encode page: %w", err)
	}

	// Render into a buffer so a template error can still become a 500.
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, "layout", layoutData{
		Page:     page,
		PageJSON: string(encoded),
	}); err != nil {
		return fmt.Errorf("view.Render: execute template: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// Static serves the embedded client assets under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type layoutData struct {
	Page     Page
	PageJSON string
}
