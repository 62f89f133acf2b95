// Package scaffold writes new pubstatic sites and posts from embedded
// templates.
package scaffold

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Templates contains all scaffold template files.
// Files use Go text/template syntax and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

const (
	siteRoot        = "templates/site"
	postTemplate    = "templates/post.md.tmpl"
	datePlaceholder = "_date_"
)

// SiteData holds the template variables passed to every site template.
type SiteData struct {
	Name   string
	URL    string
	Author string
	Date   time.Time
}

// PostData holds the variables of a new post.
type PostData struct {
	Title  string
	Layout string
	Tags   []string
	Date   time.Time
}

var funcs = template.FuncMap{
	"yaml": yamlScalar,
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
}

// yamlScalar renders v as a single-line YAML value, quoting it when needed.
func yamlScalar(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// Site writes a new site skeleton into dir and returns the files it created.
// It refuses to write into an existing directory.
func Site(dir string, data SiteData) ([]string, error) {
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("directory %q already exists", dir)
	}
	if data.Name == "" {
		data.Name = ToTitle(filepath.Base(dir))
	}
	if data.Date.IsZero() {
		data.Date = time.Now()
	}

	var created []string
	err := fs.WalkDir(Templates, siteRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, siteRoot), "/")
		outPath := filepath.Join(dir, filepath.FromSlash(outputName(rel, data.Date)))
		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}

		content, err := Templates.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if !strings.HasSuffix(p, ".tmpl") {
			if err := os.WriteFile(outPath, content, 0o644); err != nil {
				return err
			}
			created = append(created, outPath)
			return nil
		}

		tmpl, err := template.New(path.Base(p)).Funcs(funcs).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", p, err)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		if err := tmpl.Execute(f, data); err != nil {
			return fmt.Errorf("execute template %s: %w", p, err)
		}
		created = append(created, outPath)
		return nil
	})
	return created, err
}

// outputName maps a template path to the file it produces: the .tmpl suffix
// is stripped, dotfiles are stored without their dot, and the date
// placeholder becomes the scaffold date.
func outputName(rel string, date time.Time) string {
	rel = strings.TrimSuffix(rel, ".tmpl")
	dir, base := path.Split(rel)
	switch base {
	case "dotenv":
		base = ".env.example"
	case "gitignore":
		base = ".gitignore"
	}
	base = strings.ReplaceAll(base, datePlaceholder, date.Format("2006-01-02"))
	return dir + base
}

// Post renders the source of a new post.
func Post(w io.Writer, data PostData) error {
	if data.Layout == "" {
		data.Layout = "post"
	}
	tmpl, err := template.New(path.Base(postTemplate)).Funcs(funcs).ParseFS(Templates, postTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

// ToTitle converts a hyphenated or lowercase name to a title-case string.
// e.g. "my-blog" -> "My Blog", "myblog" -> "Myblog"
func ToTitle(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.Und).String(strings.Join(parts, " "))
}
