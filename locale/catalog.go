// Package locale provides translation lookup and localized date
// formatting for templates.
package locale

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Translator resolves a translation key for a locale. Unknown keys
// translate to themselves.
type Translator interface {
	Translate(key, locale string) string
}

// Catalog is a Translator backed by an x/text message catalog.
type Catalog struct {
	mu       sync.RWMutex
	builder  *catalog.Builder
	fallback language.Tag
	known    map[language.Tag]map[string]bool
}

// NewCatalog returns an empty catalog; lookups for locales without a
// translation fall back to the fallback locale.
func NewCatalog(fallback string) *Catalog {
	tag := ParseTag(fallback)
	return &Catalog{
		builder:  catalog.NewBuilder(catalog.Fallback(tag)),
		fallback: tag,
		known:    make(map[language.Tag]map[string]bool),
	}
}

// ParseTag parses locale names like "de_DE", "de-DE" or "de". Invalid or
// empty names yield language.Und.
func ParseTag(locale string) language.Tag {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und
	}
	return tag
}

// Add registers msg as the translation of key in locale.
func (c *Catalog) Add(locale, key, msg string) error {
	tag := ParseTag(locale)
	if tag == language.Und {
		return fmt.Errorf("locale: invalid locale %q", locale)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.builder.SetString(tag, key, msg); err != nil {
		return fmt.Errorf("locale: %s %q: %w", locale, key, err)
	}
	if c.known[tag] == nil {
		c.known[tag] = make(map[string]bool)
	}
	c.known[tag][key] = true
	return nil
}

// LoadYAML reads translations shaped as locale → key → message:
//
//	de_DE:
//	  welcome: Willkommen
func (c *Catalog) LoadYAML(r io.Reader) error {
	var doc map[string]map[string]string
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return fmt.Errorf("locale: decode translations: %w", err)
	}
	for loc, msgs := range doc {
		for key, msg := range msgs {
			if err := c.Add(loc, key, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFile reads a YAML translation file.
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	defer f.Close()
	return c.LoadYAML(f)
}

// Translate implements Translator. The lookup walks the locale's parent
// tags (de-AT → de) before trying the fallback locale.
func (c *Catalog) Translate(key, locale string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tag := ParseTag(locale)
	if tag == language.Und {
		tag = c.fallback
	}
	for t := tag; ; t = t.Parent() {
		if c.known[t][key] {
			return message.NewPrinter(t, message.Catalog(c.builder)).Sprintf(key)
		}
		if t == language.Und {
			break
		}
	}
	if c.known[c.fallback][key] {
		return message.NewPrinter(c.fallback, message.Catalog(c.builder)).Sprintf(key)
	}
	return key
}

// Locales returns the locales that have at least one translation.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, tag := range c.builder.Languages() {
		out = append(out, tag.String())
	}
	return out
}
