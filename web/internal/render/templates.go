package render

import (
	"fmt"
	"hash/fnv"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/timeutil"
)

// TemplateSet holds one parsed template per page. Every page defines blocks
// named "content" and "title", so pages cannot share a template.Template;
// each one is parsed together with the base layout and components into its
// own isolated set.
type TemplateSet struct {
	mu    sync.RWMutex
	pages map[string]*template.Template
}

// Execute renders pageName (a filename like "patients.html") inside the
// base layout, using the block definitions that page was parsed with.
func (ts *TemplateSet) Execute(w io.Writer, pageName string, data interface{}) error {
	ts.mu.RLock()
	tmpl, ok := ts.pages[pageName]
	ts.mu.RUnlock()

	if !ok {
		return fmt.Errorf("template %q not found", pageName)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Has reports whether a page template was loaded.
func (ts *TemplateSet) Has(pageName string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	_, ok := ts.pages[pageName]
	return ok
}

// Names returns the loaded page names, sorted.
func (ts *TemplateSet) Names() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	names := make([]string, 0, len(ts.pages))
	for name := range ts.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadTemplates parses every page under path (default "web/templates") into
// its own isolated template set.
func LoadTemplates(path string) (*TemplateSet, error) {
	if path == "" {
		path = "web/templates"
	}

	base := filepath.Join(path, "layouts", "base.html")
	components, err := filepath.Glob(filepath.Join(path, "components", "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to list component templates: %w", err)
	}
	pages, err := filepath.Glob(filepath.Join(path, "pages", "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to list page templates: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found in %s/pages", path)
	}

	funcs := templateFuncs()
	ts := &TemplateSet{pages: make(map[string]*template.Template, len(pages))}

	for _, page := range pages {
		// base + components + exactly one page, so this page's "content"
		// and "title" blocks never collide with another page's
		files := append([]string{base}, components...)
		files = append(files, page)

		tmpl, err := template.New("base").Funcs(funcs).ParseFiles(files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", filepath.Base(page), err)
		}
		ts.pages[filepath.Base(page)] = tmpl
	}

	return ts, nil
}

// LogTemplateNames records the loaded pages at startup
func LogTemplateNames(ts *TemplateSet) {
	names := ts.Names()
	slog.Info("templates loaded",
		slog.Int("count", len(names)),
		slog.String("pages", strings.Join(names, ", ")))
}

// templateFuncs builds the helper set the pages use.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"renderMarkdown": Markdown,
		// Versioned asset path so cache-busting tracks releases. The static
		// handler strips the version segment before hitting the filesystem.
		"assetURL": func(filename string) string {
			return "/static/" + Version + "/" + filename
		},
		"age": func(dob string) string {
			years := timeutil.AgeFromString(dob)
			if years < 0 {
				return "?"
			}
			return fmt.Sprintf("%d", years)
		},
		"initials":     initials,
		"avatarColors": avatarColor,
		"title": func(s string) string {
			if s == "" {
				return ""
			}
			r := []rune(s)
			return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
		},
	}
}

// initials reduces a patient name to at most two uppercase letters for the
// roster avatars. Works per rune so non-ASCII names keep their letters.
func initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) > 2 {
		fields = fields[:2]
	}

	var b strings.Builder
	for _, f := range fields {
		r := []rune(f)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

// avatarPalette holds Tailwind gradient pairs; a name always hashes to the
// same entry so a patient's avatar color is stable across page loads.
var avatarPalette = []string{
	"from-blue-400 to-blue-600",
	"from-green-400 to-green-600",
	"from-purple-400 to-purple-600",
	"from-pink-400 to-pink-600",
	"from-indigo-400 to-indigo-600",
	"from-red-400 to-red-600",
	"from-teal-400 to-teal-600",
	"from-orange-400 to-orange-600",
	"from-cyan-400 to-cyan-600",
	"from-emerald-400 to-emerald-600",
	"from-violet-400 to-violet-600",
	"from-rose-400 to-rose-600",
}

func avatarColor(name string) string {
	if strings.TrimSpace(name) == "" {
		return "from-gray-400 to-gray-600"
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(name)))
	return avatarPalette[h.Sum32()%uint32(len(avatarPalette))]
}
