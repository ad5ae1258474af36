// Package templates serves the localized prompt templates used to build RAG
// prompts. Templates are YAML files embedded at build time, one per language,
// organised as group -> key -> template text with {{variable}} placeholders.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Registry holds every loaded locale. It is immutable after construction and
// safe for concurrent use.
type Registry struct {
	locales map[string]map[string]map[string]string
}

// NewRegistry loads the locales embedded in the binary.
func NewRegistry() (*Registry, error) {
	return LoadRegistry(localeFS, "locales")
}

// LoadRegistry loads every <lang>.yaml file found in dir of fsys.
func LoadRegistry(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	r := &Registry{locales: make(map[string]map[string]map[string]string)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		var groups map[string]map[string]string
		if err := yaml.Unmarshal(data, &groups); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", e.Name(), err)
		}
		r.locales[strings.TrimSuffix(e.Name(), ".yaml")] = groups
	}
	return r, nil
}

// Languages lists the loaded language codes in sorted order.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.locales))
	for l := range r.locales {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

func (r *Registry) lookup(lang, group, key string) (string, bool) {
	t, ok := r.locales[lang][group][key]
	return t, ok
}

// Parser resolves templates for one language, falling back to the default
// language for any group or key the primary language lacks.
type Parser struct {
	registry        *Registry
	language        string
	defaultLanguage string
}

// NewParser selects language when the registry has it and defaultLanguage
// otherwise.
func NewParser(r *Registry, language, defaultLanguage string) *Parser {
	p := &Parser{registry: r, defaultLanguage: defaultLanguage}
	p.SetLanguage(language)
	return p
}

func (p *Parser) SetLanguage(language string) {
	if _, ok := p.registry.locales[language]; ok {
		p.language = language
		return
	}
	p.language = p.defaultLanguage
}

func (p *Parser) Language() string { return p.language }

// Template renders group/key with vars. It reports false when the template
// does not exist in either language or a variable it needs is missing.
func (p *Parser) Template(group, key string, vars map[string]string) (string, bool) {
	if group == "" || key == "" {
		return "", false
	}

	t, ok := p.registry.lookup(p.language, group, key)
	if !ok {
		t, ok = p.registry.lookup(p.defaultLanguage, group, key)
	}
	if !ok {
		return "", false
	}

	out, err := Render(t, vars)
	if err != nil {
		slog.Warn("template render failed", "group", group, "key", key, "error", err)
		return "", false
	}
	return out, true
}
