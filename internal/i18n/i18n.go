// Package i18n looks up the fixed system-notice strings by locale.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	KeyRateLimit        = "rate_limit"
	KeyUnavailableModel = "unavailable_model"
	KeyActivatedChatGPT = "ai_activated_1"
	KeyActivatedGemini  = "ai_activated_2"
	KeyGreeting         = "ai_greeting"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog holds one flat key/value table per locale. Lookups for an
// unknown locale use the fallback locale; unknown keys return the key.
type Catalog struct {
	fallback string
	tables   map[string]map[string]string
}

// Load parses every embedded locale file.
func Load(fallback string) (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	c := &Catalog{fallback: normalize(fallback), tables: make(map[string]map[string]string)}
	for _, e := range entries {
		name := e.Name()
		b, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, err
		}
		table := map[string]string{}
		if err := yaml.Unmarshal(b, &table); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
		c.tables[normalize(strings.TrimSuffix(name, path.Ext(name)))] = table
	}
	if _, ok := c.tables[c.fallback]; !ok {
		return nil, fmt.Errorf("i18n: no catalog for fallback locale %q", fallback)
	}
	return c, nil
}

func (c *Catalog) T(locale, key string) string {
	if table, ok := c.tables[normalize(locale)]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	if s, ok := c.tables[c.fallback][key]; ok {
		return s
	}
	return key
}

// Locales lists the loaded locale tags.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.tables))
	for l := range c.tables {
		out = append(out, l)
	}
	return out
}

// normalize reduces "en-US" / "en_us" to "en".
func normalize(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	return l
}
