package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/rubiojr/tplc/cache"
	"github.com/rubiojr/tplc/config"
	"github.com/rubiojr/tplc/locale"
	"github.com/rubiojr/tplc/modules"
	"github.com/rubiojr/tplc/postprocess"
	"github.com/rubiojr/tplc/records"
	"github.com/rubiojr/tplc/template"
	"github.com/rubiojr/tplc/value"
)

// generatorURL is written into the generator meta tag.
const generatorURL = "https://github.com/rubiojr/tplc"

// buildEngine wires the stores named by cfg into a template engine. The
// returned func closes whatever was opened.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*template.Engine, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	store, err := cache.Open(cfg.Cache.Driver, cfg.Cache.Path)
	if err != nil {
		return nil, nil, err
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	opts := template.Options{
		Logger:      logger,
		TemplateDir: cfg.TemplateDir,
		DefaultDir:  cfg.DefaultDir,
		SiteDir:     cfg.SiteDir,
		Module:      cfg.Module,
		Locale:      cfg.Locale,
		Cache:       store,
		Processor:   &postprocess.Processor{},
	}
	if !cfg.PostProcess {
		opts.DisablePostProcess = true
	}
	if cfg.Generator != "" {
		opts.Processor.Generator = cfg.Generator
		opts.Processor.GeneratorURL = generatorURL
	}

	if cfg.Records != "" {
		finder, err := records.Open(cfg.Records)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, finder)
		opts.Records = finder
	}

	if cfg.Translations != "" {
		cat := locale.NewCatalog(cfg.Locale)
		if err := cat.LoadFile(cfg.Translations); err != nil {
			closeAll()
			return nil, nil, err
		}
		opts.Translator = cat
		logger.Debug("translations loaded", "file", cfg.Translations, "locales", cat.Locales())
	}

	eng := template.New(opts)
	if err := eng.AddPseudoFunction(markdownBinding()); err != nil {
		closeAll()
		return nil, nil, err
	}
	return eng, closeAll, nil
}

// markdownBinding converts Markdown text to HTML.
func markdownBinding() modules.Binding {
	md := goldmark.New()
	return modules.Binding{
		Name:    "markdown",
		MinArgs: 1,
		MaxArgs: 1,
		Doc:     "markdown(text) converts Markdown to HTML",
		Fn: func(args []any) (any, error) {
			src, err := value.ToString(args[0])
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := md.Convert([]byte(src), &buf); err != nil {
				return nil, fmt.Errorf("markdown: %w", err)
			}
			return buf.String(), nil
		},
	}
}
