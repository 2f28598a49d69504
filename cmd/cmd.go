package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/tplc/compiler"
	"github.com/rubiojr/tplc/config"
	"github.com/rubiojr/tplc/doc"
	"github.com/rubiojr/tplc/template"
)

// Execute runs the tplc CLI with the given version string.
func Execute(version string) {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.command(version).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (a *app) command(version string) *cli.Command {
	return &cli.Command{
		Name:                      "tplc",
		Usage:                     "Compile and render brace-tag templates",
		Version:                   version,
		UseShortOptionHandling:    true,
		DisableSliceFlagSeparator: true,
		Writer:                    a.stdout,
		ErrWriter:                 a.stderr,
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "Render a template to stdout",
				ArgsUsage: "<template | ->",
				Flags: append(engineFlags(),
					&cli.StringSliceFlag{
						Name:  "var",
						Usage: "Assign a string variable (name=value), repeatable",
					},
					&cli.StringFlag{
						Name:  "vars",
						Usage: "HCL file of variables to assign",
					},
					&cli.BoolFlag{
						Name:  "no-post",
						Usage: "Skip output post-processing",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Page title written into <title>",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Page description meta content",
					},
				),
				Action: a.renderAction,
			},
			{
				Name:      "compile",
				Usage:     "Print the intermediate stages of a template compilation",
				ArgsUsage: "<template | ->",
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "stage",
						Usage: "Print only this stage (source, normalize, pseudo, tokens, code)",
					},
				),
				Action: a.compileAction,
			},
			{
				Name:  "funcs",
				Usage: "List pseudo-functions and builtins",
				Flags: append(engineFlags(),
					&cli.IntFlag{
						Name:  "width",
						Usage: "Wrap docs at this column",
						Value: 72,
					},
				),
				Action: a.funcsAction,
			},
			{
				Name:      "doc",
				Usage:     "Show documentation of template functions",
				ArgsUsage: "<file.tpl | directory> [function]",
				Action:    a.docAction,
			},
		},
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "HCL configuration file",
			Value:   "tplc.hcl",
		},
		&cli.StringFlag{
			Name:  "template-dir",
			Usage: "Template base directory",
		},
		&cli.StringFlag{
			Name:  "locale",
			Usage: "Locale for dates and translations",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format (text, json)",
		},
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if v := cmd.String("template-dir"); v != "" {
		cfg.TemplateDir = v
	}
	if v := cmd.String("locale"); v != "" {
		cfg.Locale = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := cmd.String("log-format"); v != "" {
		cfg.LogFormat = v
	}
	return cfg, nil
}

func (a *app) setup(cmd *cli.Command) (*template.Engine, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, a.stderr)
	return buildEngine(cfg, logger)
}

// templateName maps "-" to an inline template read from stdin.
func (a *app) templateName(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return template.InlinePrefix + string(data), nil
}

func (a *app) renderAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: tplc render <template> [--var name=value]...")
	}
	name, err := a.templateName(cmd.Args().First())
	if err != nil {
		return err
	}
	eng, closeFn, err := a.setup(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if path := cmd.String("vars"); path != "" {
		vars, err := config.LoadVars(path)
		if err != nil {
			return err
		}
		for k, v := range vars {
			eng.Assign(k, v)
		}
	}
	for _, kv := range cmd.StringSlice("var") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid --var %q, expected name=value", kv)
		}
		eng.Assign(k, v)
	}
	if cmd.IsSet("title") {
		eng.SetTitle(cmd.String("title"))
	}
	if cmd.IsSet("description") {
		eng.SetDescription(cmd.String("description"))
	}
	if cmd.Bool("no-post") {
		eng.SetPostProcess(false)
	}

	var buf bytes.Buffer
	err = eng.Render(&buf, name)
	var fault *template.Fault
	if errors.As(err, &fault) {
		a.reportFault(fault, candidates(eng))
		return err
	}
	if _, werr := a.stdout.Write(buf.Bytes()); werr != nil {
		return werr
	}
	return err
}

func (a *app) compileAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: tplc compile <template> [--stage name]")
	}
	name, err := a.templateName(cmd.Args().First())
	if err != nil {
		return err
	}
	eng, closeFn, err := a.setup(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	src, err := eng.Resolver().Load(name)
	if err != nil {
		return err
	}
	tplName := src.Name
	if src.Inline {
		tplName = "string"
	}
	c := &compiler.Compiler{}
	_, cerr := c.Compile(tplName, src.Text, eng.Bindings().Names())

	stage := cmd.String("stage")
	for _, entry := range c.Log().Entries() {
		if stage != "" && entry.Stage != stage {
			continue
		}
		fmt.Fprintf(a.stdout, "== %s ==\n%s", entry.Stage, entry.Content)
		if !strings.HasSuffix(entry.Content, "\n") {
			fmt.Fprintln(a.stdout)
		}
	}
	var fault *template.Fault
	if errors.As(cerr, &fault) {
		a.reportFault(fault, candidates(eng))
	}
	return cerr
}

func (a *app) funcsAction(ctx context.Context, cmd *cli.Command) error {
	eng, closeFn, err := a.setup(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	width := cmd.Int("width")
	if width < 20 {
		width = 20
	}
	fmt.Fprint(a.stdout, doc.FormatBindings(eng.Bindings(), uint(width)))
	fmt.Fprintf(a.stdout, "\nBuiltins:\n  %s\n", strings.Join(compiler.Builtins(), ", "))
	return nil
}

func (a *app) docAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: tplc doc <file.tpl | directory> [function]")
	}
	target := cmd.Args().First()
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}
	var fd *doc.FileDoc
	if info.IsDir() {
		fd, err = doc.ExtractDir(target)
	} else {
		fd, err = doc.ExtractFile(target)
	}
	if err != nil {
		return err
	}

	if cmd.NArg() < 2 {
		fmt.Fprint(a.stdout, doc.FormatFile(fd))
		return nil
	}
	symbol := cmd.Args().Get(1)
	docStr, sig, ok := doc.LookupSymbol(fd, symbol)
	if !ok {
		names := make([]string, len(fd.Funcs))
		for i, f := range fd.Funcs {
			names[i] = f.Name
		}
		if s := suggest(symbol, names); s != "" {
			return fmt.Errorf("function %q not found in %s, did you mean %q?", symbol, target, s)
		}
		return fmt.Errorf("function %q not found in %s", symbol, target)
	}
	fmt.Fprint(a.stdout, doc.FormatSymbol(docStr, sig))
	return nil
}
