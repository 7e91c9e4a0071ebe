package phasr

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SchemaVar is the template variable that always expands to PlanSchema().
const SchemaVar = "schema"

// Template is a prompt text with {{name}} placeholders. Placeholders whose
// name has no value at render time are left in the output unchanged.
type Template struct {
	raw   string
	parts []templatePart
}

type templatePart struct {
	text     string // literal text, or the variable name
	source   string // placeholder as written, including braces
	variable bool
}

var templateCache = mustTemplateCache(256)

func mustTemplateCache(size int) *lru.Cache[string, *Template] {
	cache, err := lru.New[string, *Template](size)
	if err != nil {
		panic(err)
	}
	return cache
}

// ParseTemplate splits raw into literal text and placeholders. Parsed
// templates are cached by their raw text.
func ParseTemplate(raw string) *Template {
	if t, ok := templateCache.Get(raw); ok {
		return t
	}

	t := &Template{raw: raw}
	rest := raw
	var literal strings.Builder
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			literal.WriteString(rest)
			break
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			literal.WriteString(rest)
			break
		}
		name := strings.TrimSpace(rest[open+2 : open+2+end])
		if !validVarName(name) {
			// not a placeholder; keep the opening braces and continue after them
			literal.WriteString(rest[:open+2])
			rest = rest[open+2:]
			continue
		}
		literal.WriteString(rest[:open])
		t.flush(&literal)
		t.parts = append(t.parts, templatePart{text: name, source: rest[open : open+2+end+2], variable: true})
		rest = rest[open+2+end+2:]
	}
	t.flush(&literal)

	templateCache.Add(raw, t)
	return t
}

func (t *Template) flush(b *strings.Builder) {
	if b.Len() > 0 {
		t.parts = append(t.parts, templatePart{text: b.String()})
		b.Reset()
	}
}

// Render substitutes vars into the template.
func (t *Template) Render(vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(t.raw))
	for _, p := range t.parts {
		if !p.variable {
			b.WriteString(p.text)
			continue
		}
		if v, ok := vars[p.text]; ok {
			b.WriteString(v)
			continue
		}
		b.WriteString(p.source)
	}
	return b.String()
}

// Variables returns the distinct placeholder names in sorted order.
func (t *Template) Variables() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, p := range t.parts {
		if !p.variable {
			continue
		}
		if _, ok := seen[p.text]; ok {
			continue
		}
		seen[p.text] = struct{}{}
		names = append(names, p.text)
	}
	sort.Strings(names)
	return names
}

// Raw returns the template source.
func (t *Template) Raw() string {
	return t.raw
}

// RenderTemplate parses (or reuses) raw and renders it with vars.
func RenderTemplate(raw string, vars map[string]string) string {
	return ParseTemplate(raw).Render(vars)
}

func validVarName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}
