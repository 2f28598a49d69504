package template

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/tplc/cache"
	"github.com/rubiojr/tplc/compiler"
	"github.com/rubiojr/tplc/locale"
	"github.com/rubiojr/tplc/modules"
	"github.com/rubiojr/tplc/postprocess"
	"github.com/rubiojr/tplc/records"
)

// writeTemplates creates files under a temporary root and returns it.
func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func fetch(t *testing.T, e *Engine, src string) string {
	t.Helper()
	out, err := e.FetchString(src)
	require.NoError(t, err)
	return out
}

func TestFetchString(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]any
		want string
	}{
		{"literal", "<html><body>plain</body></html>", nil, "<html><body>plain</body></html>"},
		{"escaped", "{$name}", map[string]any{"name": "<b>"}, "&lt;b&gt;"},
		{"raw", "{{$name}}", map[string]any{"name": "<b>"}, "<b>"},
		{"foreach", "{foreach $items as $item}{$item}{/foreach}", map[string]any{"items": []string{"a", "b", "c"}}, "abc"},
		{
			"isLast in control header",
			"{foreach $items as $key => $item}{$item}{if isLast($items, $key)}!{else},{/if}{/foreach}",
			map[string]any{"items": []string{"a", "b", "c"}},
			"a,b,c!",
		},
		{
			"isLast keyed",
			"{foreach $m as $k => $v}{if isLast($m, $k)}{$k}{/if}{/foreach}",
			map[string]any{"m": map[string]int{"x": 1, "z": 2, "y": 3}},
			"z",
		},
		{"dotted path", "{$user.name}", map[string]any{"user": map[string]any{"name": "Bob"}}, "Bob"},
		{"quoted dot untouched", "{$user.name . ' v1.2'}", map[string]any{"user": map[string]any{"name": "Bob"}}, "Bob v1.2"},
		{"comment", "a{* hidden *}b", nil, "ab"},
		{"shorten", "{shorten($text, 7)}", map[string]any{"text": "<p>Hello   <b>big</b> world</p>"}, "Hello big..."},
		{"undefined is empty", "[{$nope}]", nil, "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Options{})
			for k, v := range tt.vars {
				e.Assign(k, v)
			}
			assert.Equal(t, tt.want, fetch(t, e, tt.src))
		})
	}
}

func TestVariablesAreConsumed(t *testing.T) {
	e := New(Options{})
	e.AssignGlobal("site", "global")
	e.Assign("site", "local")
	assert.Equal(t, "local", fetch(t, e, "{$site}"))
	assert.Equal(t, "global", fetch(t, e, "{$site}"))

	v, ok := e.Global("site")
	assert.True(t, ok)
	assert.Equal(t, "global", v)
	_, ok = e.Var("site")
	assert.False(t, ok)
}

func TestUnclosedBlockIsFatal(t *testing.T) {
	e := New(Options{})
	out, err := e.FetchString("a\n{if $x}\nb")
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 2, fault.Line)
	assert.Contains(t, out, "unclosed {if}")
	assert.Contains(t, out, "string:2: {if $x}")

	var buf bytes.Buffer
	err = e.RenderString(&buf, "<p>partial</p>{nope()}")
	require.ErrorAs(t, err, &fault)
	assert.NotContains(t, buf.String(), "partial")
	assert.Contains(t, buf.String(), "Call to undefined function nope()")
}

func TestFetchNotFound(t *testing.T) {
	e := New(Options{TemplateDir: t.TempDir()})
	_, err := e.Fetch("missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestIncludeCache(t *testing.T) {
	root := writeTemplates(t, map[string]string{
		"Template/Default/page.tpl": "{include('part', null, 'k')}|{include('part', null, 'k')}",
		"Template/Default/part.tpl": "[{$n}]",
	})
	store := cache.NewMemory()
	e := New(Options{TemplateDir: filepath.Join(root, "Template"), DefaultDir: "Default", Cache: store})
	compiles := map[string]int{}
	compile := e.compile
	e.compile = func(name, src string, pseudo []string) (*compiler.Program, error) {
		compiles[name]++
		return compile(name, src, pseudo)
	}

	e.Assign("n", 1)
	first, err := e.Fetch("page")
	require.NoError(t, err)
	assert.Equal(t, "[1]|[1]", first)
	assert.Equal(t, map[string]int{"page": 1, "part": 1}, compiles)

	e.Assign("n", 2)
	second, err := e.Fetch("page")
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached include ignores new variables")
	assert.Equal(t, map[string]int{"page": 2, "part": 1}, compiles)

	cached, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1]", cached)
}

func TestIncludeVariables(t *testing.T) {
	root := writeTemplates(t, map[string]string{
		"Template/part.tpl":   "[{$n}]",
		"Template/broken.tpl": "ok\n{nope()}",
	})
	e := New(Options{TemplateDir: filepath.Join(root, "Template")})

	e.Assign("n", 1)
	assert.Equal(t, "[1][1]", fetch(t, e, "{include('part')}{include('part')}"), "carryover from the enclosing render")

	e.Assign("n", 1)
	assert.Equal(t, "[5]", fetch(t, e, "{include('part', ['n' => 5])}"))

	assert.Equal(t, "Template: nope not found.", fetch(t, e, "{include('nope')}"))

	out, err := e.FetchString("{include('broken')}")
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "broken", fault.Template)
	assert.Equal(t, 2, fault.Line)
	assert.Contains(t, out, "broken:2: {nope()}")
}

func TestResolver(t *testing.T) {
	root := writeTemplates(t, map[string]string{
		"site/home.tpl":                  "site",
		"Template/Default/home.tpl":      "default",
		"Template/Default/about.tpl":     "about",
		"Template/base.tpl":              "base",
		"Template/Default/Blog/post.tpl": "post",
		"raw/loose.tpl":                  "loose",
	})
	r := &Resolver{
		TemplateDir: filepath.Join(root, "Template"),
		DefaultDir:  "Default",
		SiteDir:     filepath.Join(root, "site"),
		Module:      "Blog",
	}
	tests := []struct {
		name string
		want string
	}{
		{"home", "site"},
		{"about.tpl", "about"},
		{"base", "base"},
		{"views/post", "post"},
		{filepath.Join(root, "raw", "loose"), "loose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := r.Load(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Text)
			assert.False(t, src.Inline)
		})
	}

	_, err := r.Load("nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	src, err := r.Load("string:{$x}")
	require.NoError(t, err)
	assert.True(t, src.Inline)
	assert.Equal(t, "{$x}", src.Text)

	assert.Len(t, (&Resolver{TemplateDir: filepath.Join(root, "none")}).Folders(), 0)
}

func TestRenderPostProcess(t *testing.T) {
	var phases []string
	proc := &postprocess.Processor{
		Generator: "tplc",
		Blocks: blockFunc(func(doc, phase string) (string, error) {
			phases = append(phases, phase)
			return doc, nil
		}),
	}
	e := New(Options{Processor: proc})
	e.SetTitle("Home")
	e.SetDescription("desc")
	e.SetKeywords([]string{"go", "tpl"}, false)
	e.AddHead(`<link rel="stylesheet" href="a.css">`)
	e.AddFoot("<script></script>")

	var buf bytes.Buffer
	require.NoError(t, e.RenderString(&buf, `<html><head><title>x</title><meta name="description" content="" /></head><body>{$n}</body></html>`))
	out := buf.String()
	assert.Contains(t, out, "<title>Home</title>")
	assert.Contains(t, out, `<head><link rel="stylesheet" href="a.css">`)
	assert.Contains(t, out, `<meta name="description" content="desc" />`)
	assert.Contains(t, out, "<script></script></body>")
	assert.Contains(t, out, `<meta name="generator" content="tplc">`)
	assert.Equal(t, []string{postprocess.PhaseDefault, postprocess.PhaseOutputFilter}, phases)

	again, err := e.OutputFilter(out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(again, `href="a.css"`))
}

func TestRenderWithoutPostProcess(t *testing.T) {
	e := New(Options{DisablePostProcess: true})
	e.SetTitle("ignored")
	var buf bytes.Buffer
	require.NoError(t, e.RenderString(&buf, "<title>x</title>"))
	assert.Equal(t, "<title>x</title>", buf.String())

	e.SetPostProcess(true)
	buf.Reset()
	require.NoError(t, e.RenderString(&buf, "<title>x</title>"))
	assert.Equal(t, "<title>ignored</title>", buf.String())
}

func TestRenderFilterFault(t *testing.T) {
	e := New(Options{})
	e.AddOutputFilter("boom", postprocess.FilterFunc(func(string) (string, error) {
		return "", errors.New("boom")
	}))
	var buf bytes.Buffer
	err := e.RenderString(&buf, "doc")
	var fault *postprocess.FilterFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "doc", buf.String())
}

type blockFunc func(doc, phase string) (string, error)

func (f blockFunc) Parse(doc, phase string) (string, error) { return f(doc, phase) }

func TestPageState(t *testing.T) {
	e := New(Options{})
	fetch(t, e, "{css('a.css')}{css('a.css')}{css('print.css', 'print')}{js('x.js', 'default', 'k')}{js('y.js', 'default', 'k')}{js('z.js')}")
	assert.Equal(t, []string{"a.css"}, e.CSSFiles(""))
	assert.Equal(t, []string{"print.css"}, e.CSSFiles("print"))
	assert.Equal(t, []string{"y.js", "z.js"}, e.JSFiles(DefaultGroup))
	assert.Nil(t, e.JSFiles("none"))

	e.SetKeyword("Go", false)
	e.SetKeywords([]string{"go", "tpl"}, false)
	assert.Equal(t, []string{"go", "tpl"}, e.Keywords())
	e.SetKeyword("X", true)
	assert.Equal(t, []string{"x"}, e.Keywords())

	e.SetTitle("t")
	e.SetDescription("d")
	assert.Equal(t, "t", e.Title())
	assert.Equal(t, "d", e.Description())
}

type shouter struct{ suffix string }

func (s shouter) Shout(text string) string { return strings.ToUpper(text) + s.suffix }

func TestAddPseudoFunction(t *testing.T) {
	e := New(Options{})
	err := e.AddPseudoFunction(modules.Binding{Name: "foreach", Fn: func([]any) (any, error) { return nil, nil }})
	assert.ErrorIs(t, err, modules.ErrInvalidBinding)

	require.NoError(t, e.AddPseudoFunction(modules.Binding{
		Name: "shout", Kind: modules.KindMethod, MinArgs: 1, MaxArgs: 1,
		Receiver: shouter{suffix: "!"}, Method: "shout",
	}))
	assert.True(t, e.Bindings().Has("shout"))
	assert.Equal(t, "HI!", fetch(t, e, "{shout('hi')}"))

	_, err = e.FetchString("{shorten()}")
	assert.ErrorContains(t, err, "shorten() expects 1..3 argument(s), 0 given")
}

func TestDefaultBindings(t *testing.T) {
	assert.Equal(t, []string{
		"_", "age", "css", "et", "formatDate", "formatDateTime",
		"i", "include", "isLast", "js", "menuItem", "shorten",
	}, New(Options{}).Bindings().Names())
}

func TestDateAndTranslationBindings(t *testing.T) {
	cat := locale.NewCatalog("en_US")
	require.NoError(t, cat.Add("de_DE", "hello", "Hallo"))
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	e := New(Options{Locale: "de_DE", Translator: cat, Now: func() time.Time { return now }})

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"translate", "{_('hello')}", "Hallo"},
		{"translate explicit locale", "{_('hello', 'en_US')}", "hello"},
		{"format date", "{formatDate('2024-03-05')}", "5. März 2024"},
		{"format date locale", "{formatDate('2024-03-05', 'en_US')}", "Mar 5, 2024"},
		{"format date time", "{formatDateTime('2024-03-05 14:30:00')}", "5. März 2024 14:30"},
		{"age", "{age('1990-10-15')}", "35"},
		{"age of nothing", "[{age(null)}]", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fetch(t, e, tt.src))
		})
	}
}

func TestEntityTranslation(t *testing.T) {
	e := New(Options{Locale: "en_US"})
	page := map[string]any{
		"title":        "Hello",
		"translations": map[string]any{"de_DE": map[string]any{"title": "Hallo"}},
	}
	e.Assign("page", page)
	assert.Equal(t, "Hallo|Hello", fetch(t, e, "{et($page, 'title', 'de_DE')}|{et($page, 'title', 'fr_FR')}"))
}

func TestMenuItemAndServices(t *testing.T) {
	finder, err := records.Open(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { finder.Close() })
	_, err = finder.DB().Exec(`CREATE TABLE menu_item (id INTEGER PRIMARY KEY, title TEXT)`)
	require.NoError(t, err)
	_, err = finder.DB().Exec(`INSERT INTO menu_item (id, title) VALUES (2, 'About')`)
	require.NoError(t, err)

	e := New(Options{
		Records:  finder,
		Services: ServiceMap{"cfg": map[string]any{"name": "acme"}},
	})
	assert.Equal(t, "About", fetch(t, e, "{menuItem(2).title}"))
	assert.Equal(t, "[]", fetch(t, e, "[{menuItem(9).title}]"))
	assert.Equal(t, "acme", fetch(t, e, "{i('cfg').name}"))

	_, err = e.FetchString("{i('nope')}")
	assert.ErrorContains(t, err, `service "nope" not registered`)

	_, err = New(Options{}).FetchString("{menuItem(1)}")
	assert.ErrorContains(t, err, "no record finder configured")
}

func TestNoticesAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := New(Options{Logger: logger})
	assert.Equal(t, "ok", fetch(t, e, "{foreach $nothing as $v}{$v}{/foreach}ok"))
	assert.Contains(t, buf.String(), "template notice")
}

func TestShorten(t *testing.T) {
	tests := []struct {
		text   string
		length int
		suffix string
		want   string
	}{
		{"Hello big world", 7, "...", "Hello big..."},
		{"Hello big world", 200, "...", "Hello big world"},
		{"Hello big world", 0, "...", "Hello..."},
		{"Hello big world", 5, "", "Hello"},
		{"<p>a &amp; b</p>\n\n<p>c d</p>", 3, "…", "a &amp;…"},
		{"", 10, "...", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Shorten(tt.text, tt.length, tt.suffix), tt.text)
	}
}

func TestRenderContext(t *testing.T) {
	a, b := newRenderContext("x"), newRenderContext("x")
	assert.NotEqual(t, a.ID, b.ID)

	k1 := a.Bind("n", 1)
	k2 := a.Bind("n", 2)
	assert.NotEqual(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, a.ID+":"))
	assert.Equal(t, []compiler.Bind{{Name: "n", Slot: k1}, {Name: "n", Slot: k2}}, a.Prelude())

	v, ok := a.Slots().Slot(k2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = b.Slots().Slot(k1)
	assert.False(t, ok)
}
