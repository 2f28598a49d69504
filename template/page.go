package template

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// DefaultGroup is the asset group used when css() or js() get none.
const DefaultGroup = "default"

// assetGroup keeps registered files in first-registration order,
// deduplicated by key.
type assetGroup struct {
	keys  []string
	files map[string]string
}

func (g *assetGroup) add(key, file string) {
	if g.files == nil {
		g.files = make(map[string]string)
	}
	if _, ok := g.files[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.files[key] = file
}

func (g *assetGroup) list() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.keys))
	for i, k := range g.keys {
		out[i] = g.files[k]
	}
	return out
}

type assets map[string]*assetGroup

func (a assets) add(file, group, key string) {
	if group == "" {
		group = DefaultGroup
	}
	if key == "" {
		sum := md5.Sum([]byte(file))
		key = hex.EncodeToString(sum[:])
	}
	g, ok := a[group]
	if !ok {
		g = &assetGroup{}
		a[group] = g
	}
	g.add(key, file)
}

// SetTitle sets the page title written into <title> by post-processing.
func (e *Engine) SetTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page.Title = title
}

// Title returns the page title.
func (e *Engine) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page.Title
}

// SetDescription sets the description meta content.
func (e *Engine) SetDescription(desc string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page.Description = desc
}

// Description returns the page description.
func (e *Engine) Description() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page.Description
}

// SetKeyword adds one lowercased keyword; truncate drops the existing set
// first.
func (e *Engine) SetKeyword(word string, truncate bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if truncate {
		e.page.Keywords = nil
	}
	e.page.Keywords = append(e.page.Keywords, strings.ToLower(word))
}

// SetKeywords merges words into the keyword set, dropping duplicates.
func (e *Engine) SetKeywords(words []string, truncate bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if truncate {
		e.page.Keywords = nil
	}
	seen := make(map[string]bool, len(e.page.Keywords)+len(words))
	merged := e.page.Keywords[:0:0]
	for _, w := range append(e.page.Keywords, words...) {
		if !seen[w] {
			seen[w] = true
			merged = append(merged, w)
		}
	}
	e.page.Keywords = merged
}

// Keywords returns the keyword set.
func (e *Engine) Keywords() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.page.Keywords...)
}

// AddHead queues markup for injection after the opening head tag.
func (e *Engine) AddHead(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page.AddHead(s)
}

// AddFoot queues markup for injection before the closing body tag.
func (e *Engine) AddFoot(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page.AddFoot(s)
}

// AddJSFile registers a script in group. Files are deduplicated by key,
// or by the md5 of file when key is empty.
func (e *Engine) AddJSFile(file, group, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.js.add(file, group, key)
}

// JSFiles returns the scripts registered in group.
func (e *Engine) JSFiles(group string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if group == "" {
		group = DefaultGroup
	}
	return e.js[group].list()
}

// AddCSSFile registers a stylesheet in group, deduplicated like AddJSFile.
func (e *Engine) AddCSSFile(file, group, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.css.add(file, group, key)
}

// CSSFiles returns the stylesheets registered in group.
func (e *Engine) CSSFiles(group string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if group == "" {
		group = DefaultGroup
	}
	return e.css[group].list()
}
