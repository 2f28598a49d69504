// Package postprocess rewrites a fully rendered document: block
// substitution, head and foot injection, title and meta replacement, and
// the caller's filter chain.
package postprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rubiojr/tplc/value"
)

// Block parse phases passed to BlockParser.Parse.
const (
	PhaseDefault      = ""
	PhaseOutputFilter = "outputFilter"
)

// BlockParser substitutes content blocks in a document. Its internals
// are opaque to the template engine.
type BlockParser interface {
	Parse(doc, phase string) (string, error)
}

// Filter transforms the full document.
type Filter interface {
	Filter(doc string) (string, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(doc string) (string, error)

func (f FilterFunc) Filter(doc string) (string, error) { return f(doc) }

// Page is the document state collected while rendering.
type Page struct {
	Title       string
	Description string
	Keywords    []string
	Head        []string
	Foot        []string
}

// AddHead queues s for injection after the opening head tag.
func (p *Page) AddHead(s string) { p.Head = append(p.Head, s) }

// AddFoot queues s for injection before the closing body tag.
func (p *Page) AddFoot(s string) { p.Foot = append(p.Foot, s) }

// FilterFailure records one failed filter.
type FilterFailure struct {
	Name string
	Err  error
}

// FilterFault reports the filters that failed during Process. The chain
// keeps running past a failure; the failing filter's output is ignored.
type FilterFault struct {
	Failures []FilterFailure
}

func (f *FilterFault) Error() string {
	msgs := make([]string, len(f.Failures))
	for i, failure := range f.Failures {
		msgs[i] = fmt.Sprintf("filter %s: %v", failure.Name, failure.Err)
	}
	return strings.Join(msgs, "; ")
}

func (f *FilterFault) Unwrap() []error {
	errs := make([]error, len(f.Failures))
	for i, failure := range f.Failures {
		errs[i] = failure.Err
	}
	return errs
}

type namedFilter struct {
	name string
	f    Filter
}

// Processor runs the post-render stages. The zero value processes
// documents without block parsing, generator info or filters.
type Processor struct {
	Blocks BlockParser
	// Generator, when set, adds a generator meta tag and a powered-by
	// comment to the head of every processed document.
	Generator    string
	GeneratorURL string

	filters []namedFilter
}

// AddFilter appends f to the filter chain.
func (p *Processor) AddFilter(name string, f Filter) {
	p.filters = append(p.filters, namedFilter{name: name, f: f})
}

// Filters returns the registered filter names in order.
func (p *Processor) Filters() []string {
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.name
	}
	return names
}

var (
	headRe        = regexp.MustCompile(`(?is)<head\b[^>]*>`)
	bodyCloseRe   = regexp.MustCompile(`(?is)</body>`)
	titleRe       = regexp.MustCompile(`(?i)<title>(.*?)</title>`)
	descriptionRe = regexp.MustCompile(`(?i)<meta\s*name="description"\s*content="([^"]*)"\s*/>`)
	keywordsRe    = regexp.MustCompile(`(?i)<meta\s*name="keywords"\s*content="([^"]*)"\s*/>`)
)

// Process runs every stage over doc. page buffers are consumed: Head and
// Foot are empty afterwards. A block parser error aborts; filter failures
// are returned as a *FilterFault together with the processed document.
func (p *Processor) Process(doc string, page *Page) (string, error) {
	if page == nil {
		page = &Page{}
	}
	if p.Blocks != nil {
		var err error
		if doc, err = p.Blocks.Parse(doc, PhaseOutputFilter); err != nil {
			return "", fmt.Errorf("postprocess: block parser: %w", err)
		}
	}

	if p.Generator != "" {
		page.AddHead(p.poweredBy())
		page.AddHead(p.generatorMeta())
	}
	doc = inject(doc, page.Head, headRe, true)
	doc = inject(doc, page.Foot, bodyCloseRe, false)
	page.Head, page.Foot = nil, nil

	title := value.EscapeHTML(strings.TrimSpace(page.Title))
	doc = titleRe.ReplaceAllLiteralString(doc, "<title>"+title+"</title>")

	desc := value.EscapeHTML(strings.TrimSpace(page.Description))
	descTag := ""
	if desc != "" {
		descTag = `<meta name="description" content="` + desc + `" />`
	}
	doc = descriptionRe.ReplaceAllLiteralString(doc, descTag)

	if len(page.Keywords) > 0 {
		kw := value.EscapeHTML(strings.TrimSpace(strings.Join(page.Keywords, ",")))
		kwTag := ""
		if kw != "" {
			kwTag = `<meta name="keywords" content="` + kw + `" />`
		}
		doc = keywordsRe.ReplaceAllLiteralString(doc, kwTag)
	}

	return p.runFilters(doc)
}

// inject strips every item from doc, then inserts the items in order
// after (head) or before (body close) each match of re.
func inject(doc string, items []string, re *regexp.Regexp, after bool) string {
	if len(items) == 0 {
		return doc
	}
	for _, it := range items {
		if it != "" {
			doc = strings.ReplaceAll(doc, it, "")
		}
	}
	block := strings.Join(items, "")
	return re.ReplaceAllStringFunc(doc, func(tag string) string {
		if after {
			return tag + block
		}
		return block + tag
	})
}

func (p *Processor) poweredBy() string {
	by := "\n\t<!-- This website is powered by " + p.Generator
	if p.GeneratorURL != "" {
		by += " - " + p.GeneratorURL
	}
	return by + " -->\n"
}

func (p *Processor) generatorMeta() string {
	content := p.Generator
	if p.GeneratorURL != "" {
		content += " (" + p.GeneratorURL + ")"
	}
	return `<meta name="generator" content="` + value.EscapeHTML(content) + `">`
}

func (p *Processor) runFilters(doc string) (string, error) {
	var fault FilterFault
	for _, nf := range p.filters {
		out, err := runFilter(nf.f, doc)
		if err != nil {
			fault.Failures = append(fault.Failures, FilterFailure{Name: nf.name, Err: err})
			continue
		}
		doc = out
	}
	if len(fault.Failures) > 0 {
		return doc, &fault
	}
	return doc, nil
}

func runFilter(f Filter, doc string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.Filter(doc)
}
