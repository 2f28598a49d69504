// Package template is the tplc engine: it resolves templates, binds
// variables, runs compiled programs and post-processes the document.
package template

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rubiojr/tplc/cache"
	"github.com/rubiojr/tplc/compiler"
	"github.com/rubiojr/tplc/locale"
	"github.com/rubiojr/tplc/modules"
	"github.com/rubiojr/tplc/postprocess"
	"github.com/rubiojr/tplc/records"
	"github.com/rubiojr/tplc/value"
)

// Fault is a compile or runtime diagnostic tied to a template line.
type Fault = compiler.Fault

// Services is the locator behind the i(name) pseudo-function.
type Services interface {
	Get(name string) (any, error)
}

// ServiceMap is a Services backed by a map.
type ServiceMap map[string]any

// Get implements Services.
func (m ServiceMap) Get(name string) (any, error) {
	s, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("service %q not registered", name)
	}
	return s, nil
}

// Options configure an Engine. Zero values are usable: no cache, no
// records, no translations and post-processing enabled.
type Options struct {
	Logger *slog.Logger

	TemplateDir string
	DefaultDir  string
	SiteDir     string
	Module      string
	Locale      string

	Cache      cache.Store
	Records    records.Finder
	Translator locale.Translator
	Services   Services
	Processor  *postprocess.Processor

	DisablePostProcess bool
	// Now is the clock used by age(); nil means time.Now.
	Now func() time.Time
}

// Engine renders templates. Assigned variables and page state live on
// the engine; each render gets its own RenderContext.
type Engine struct {
	opts      Options
	log       *slog.Logger
	resolver  *Resolver
	compiler  *compiler.Compiler
	compile   func(name, src string, pseudo []string) (*compiler.Program, error)
	bindings  *modules.Table
	processor *postprocess.Processor

	mu          sync.Mutex
	vars        map[string]any
	last        map[string]any
	globals     map[string]any
	page        postprocess.Page
	js          assets
	css         assets
	postProcess bool
}

// New returns an engine with the default pseudo-functions registered.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Locale == "" {
		opts.Locale = "en_US"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	proc := opts.Processor
	if proc == nil {
		proc = &postprocess.Processor{}
	}
	e := &Engine{
		opts: opts,
		log:  opts.Logger,
		resolver: &Resolver{
			TemplateDir: opts.TemplateDir,
			DefaultDir:  opts.DefaultDir,
			SiteDir:     opts.SiteDir,
			Module:      opts.Module,
		},
		compiler:    &compiler.Compiler{},
		bindings:    modules.NewTable(),
		processor:   proc,
		vars:        make(map[string]any),
		last:        make(map[string]any),
		globals:     make(map[string]any),
		js:          assets{},
		css:         assets{},
		postProcess: !opts.DisablePostProcess,
	}
	e.compile = e.compiler.Compile
	e.registerDefaults()
	return e
}

// Resolver returns the engine's template resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Bindings returns the pseudo-function table.
func (e *Engine) Bindings() *modules.Table { return e.bindings }

// ParserLog returns the intermediate results of every compilation.
func (e *Engine) ParserLog() []compiler.LogEntry { return e.compiler.Log().Entries() }

// AddPseudoFunction registers b, replacing any binding of the same name.
func (e *Engine) AddPseudoFunction(b modules.Binding) error {
	if err := e.bindings.Register(b); err != nil {
		return err
	}
	e.log.Debug("pseudo-function registered", "name", b.Name, "kind", b.Kind, "arity", b.Arity())
	return nil
}

// AddOutputFilter appends f to the post-processing filter chain.
func (e *Engine) AddOutputFilter(name string, f postprocess.Filter) {
	e.processor.AddFilter(name, f)
}

// SetPostProcess enables or disables OutputFilter.
func (e *Engine) SetPostProcess(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.postProcess = enabled
}

// Assign makes v visible as $name in the next render.
func (e *Engine) Assign(name string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = value.Normalize(v)
}

// AssignGlobal makes v visible as $name in every render. Assigned
// variables of the same name take precedence.
func (e *Engine) AssignGlobal(name string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals[name] = value.Normalize(v)
}

// Var returns the variable assigned for the next render.
func (e *Engine) Var(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[name]
	return v, ok
}

// Global returns a global variable.
func (e *Engine) Global(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.globals[name]
	return v, ok
}

// Fetch renders the named template and runs the default block parse. An
// empty name renders the module template. On a fatal fault the returned
// document is the fault's diagnostic and err is the *Fault.
func (e *Engine) Fetch(name string) (string, error) {
	if name == "" {
		name = e.opts.Module
	}
	src, err := e.resolver.Load(name)
	if err != nil {
		e.log.Error("template load failed", "template", name, "error", err)
		return "", err
	}
	out, err := e.execute(src)
	if err != nil {
		return out, err
	}
	if e.processor.Blocks != nil {
		if out, err = e.processor.Blocks.Parse(out, postprocess.PhaseDefault); err != nil {
			return "", fmt.Errorf("template: block parser: %w", err)
		}
	}
	return out, nil
}

// FetchString renders src as an inline template.
func (e *Engine) FetchString(src string) (string, error) {
	return e.Fetch(InlinePrefix + src)
}

// Render fetches the named template, post-processes it and writes the
// document to w. A fatal fault writes its diagnostic instead.
func (e *Engine) Render(w io.Writer, name string) error {
	doc, err := e.Fetch(name)
	var fault *Fault
	if errors.As(err, &fault) {
		_, _ = io.WriteString(w, doc)
		return err
	}
	if err != nil {
		return err
	}
	doc, ferr := e.OutputFilter(doc)
	if _, err := io.WriteString(w, doc); err != nil {
		return err
	}
	return ferr
}

// RenderString is Render for an inline template.
func (e *Engine) RenderString(w io.Writer, src string) error {
	return e.Render(w, InlinePrefix+src)
}

// OutputFilter post-processes a rendered document with the current page
// state. It returns doc unchanged when post-processing is disabled.
// Filter failures come back as a *postprocess.FilterFault alongside the
// processed document.
func (e *Engine) OutputFilter(doc string) (string, error) {
	e.mu.Lock()
	if !e.postProcess {
		e.mu.Unlock()
		return doc, nil
	}
	page := e.page
	page.Keywords = append([]string(nil), e.page.Keywords...)
	e.page.Head, e.page.Foot = nil, nil
	e.mu.Unlock()

	out, err := e.processor.Process(doc, &page)
	if err != nil {
		e.log.Warn("post-processing failed", "error", err)
	}
	return out, err
}
