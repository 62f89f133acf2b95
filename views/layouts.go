// Package views resolves named layouts and renders pages with them.
//
// Built-in layouts are embedded in the binary. A site may add or override
// layouts by dropping NAME.html files into its layout directory; files whose
// name starts with "_" are partials shared by every layout (the built-in
// "_base.html" defines the page chrome, with a "main" block for layouts to
// fill).
package views

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// FallbackLayout is used when a post names a layout that does not exist.
const FallbackLayout = "default"

//go:embed layouts/*.html
var builtin embed.FS

// Layouts is a set of parsed layout templates, one per layout name.
type Layouts struct {
	sets map[string]*template.Template
}

type source struct {
	name string
	data []byte
}

// Load parses the built-in layouts and then the user layouts in dir, which
// override built-ins of the same name. A missing dir is not an error.
func Load(dir string) (*Layouts, error) {
	partials, layouts, err := readFS(builtin, "layouts")
	if err != nil {
		return nil, err
	}
	if dir != "" {
		userPartials, userLayouts, err := readFS(os.DirFS(dir), ".")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read layouts from %s: %w", dir, err)
		}
		partials = merge(partials, userPartials)
		layouts = merge(layouts, userLayouts)
	}

	common := template.New("").Funcs(Funcs())
	for _, p := range partials {
		if _, err := common.New(p.name).Parse(string(p.data)); err != nil {
			return nil, fmt.Errorf("parse partial %s: %w", p.name, err)
		}
	}

	l := &Layouts{sets: make(map[string]*template.Template, len(layouts))}
	for _, src := range layouts {
		set, err := common.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := set.New(src.name).Parse(string(src.data)); err != nil {
			return nil, fmt.Errorf("parse layout %s: %w", src.name, err)
		}
		l.sets[src.name] = set
	}
	if _, ok := l.sets[FallbackLayout]; !ok {
		return nil, fmt.Errorf("layout %q is required", FallbackLayout)
	}
	return l, nil
}

func readFS(fsys fs.FS, dir string) (partials, layouts []source, err error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, err
		}
		name := strings.TrimSuffix(e.Name(), ".html")
		if strings.HasPrefix(name, "_") {
			partials = append(partials, source{name: name, data: data})
		} else {
			layouts = append(layouts, source{name: name, data: data})
		}
	}
	return partials, layouts, nil
}

// merge returns base with every entry of override replacing or joining it.
func merge(base, override []source) []source {
	idx := make(map[string]int, len(base))
	for i, s := range base {
		idx[s.name] = i
	}
	for _, s := range override {
		if i, ok := idx[s.name]; ok {
			base[i] = s
			continue
		}
		idx[s.name] = len(base)
		base = append(base, s)
	}
	return base
}

// Has reports whether a layout called name exists.
func (l *Layouts) Has(name string) bool {
	_, ok := l.sets[name]
	return ok
}

// Names lists the layout names in sorted order.
func (l *Layouts) Names() []string {
	names := make([]string, 0, len(l.sets))
	for n := range l.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns name if it exists, or the fallback layout and false.
func (l *Layouts) Resolve(name string) (string, bool) {
	if l.Has(name) {
		return name, true
	}
	return FallbackLayout, false
}

// Render executes the named layout (or the fallback) against page into w.
// Output is buffered so a failing template never writes a partial page.
func (l *Layouts) Render(w io.Writer, name string, page Page) error {
	resolved, _ := l.Resolve(name)
	var buf bytes.Buffer
	if err := l.sets[resolved].ExecuteTemplate(&buf, resolved, page); err != nil {
		return fmt.Errorf("render layout %s: %w", resolved, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Component wraps Render as a templ.Component.
func (l *Layouts) Component(name string, page Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return l.Render(w, name, page)
	})
}
