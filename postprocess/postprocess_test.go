package postprocess

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<html><head lang="en"><title>Old</title><meta name="description" content="old desc" /><meta name="keywords" content="old" /></head><body><p>x</p></body></html>`

type blockFunc func(doc, phase string) (string, error)

func (f blockFunc) Parse(doc, phase string) (string, error) { return f(doc, phase) }

func TestProcessHeadFoot(t *testing.T) {
	p := &Processor{}
	page := &Page{Title: "New", Head: []string{"<link a>", "<link b>"}, Foot: []string{"<script 1>", "<script 2>"}}
	out, err := p.Process(doc, page)
	require.NoError(t, err)
	assert.Contains(t, out, `<head lang="en"><link a><link b><title>New</title>`)
	assert.Contains(t, out, `<p>x</p><script 1><script 2></body>`)
	assert.Nil(t, page.Head)
	assert.Nil(t, page.Foot)
}

func TestProcessIdempotent(t *testing.T) {
	p := &Processor{Generator: "tplc", GeneratorURL: "https://example.com"}
	page := func() *Page {
		return &Page{Title: "T", Head: []string{"<link a>"}, Foot: []string{"<script>"}}
	}
	once, err := p.Process(doc, page())
	require.NoError(t, err)
	twice, err := p.Process(once, page())
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "<link a>"))
	assert.Equal(t, 1, strings.Count(twice, `<meta name="generator" content="tplc (https://example.com)">`))
	assert.Equal(t, 1, strings.Count(twice, "powered by tplc"))
}

func TestProcessMetaTagsShareLine(t *testing.T) {
	p := &Processor{}
	out, err := p.Process(doc, &Page{Description: "new"})
	require.NoError(t, err)
	assert.Contains(t, out, `<meta name="description" content="new" /><meta name="keywords" content="old" /></head>`)

	out, err = p.Process(doc, &Page{Description: "d", Keywords: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Contains(t, out, `<meta name="description" content="d" /><meta name="keywords" content="a,b" /></head>`)
}

func TestProcessMeta(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want []string
		not  []string
	}{
		{
			name: "title escaped",
			page: Page{Title: ` Tom & "Jerry" `},
			want: []string{"<title>Tom &amp; &quot;Jerry&quot;</title>"},
		},
		{
			name: "empty title empties the tag",
			page: Page{},
			want: []string{"<title></title>"},
		},
		{
			name: "description replaced",
			page: Page{Description: "new <desc>"},
			want: []string{`<meta name="description" content="new &lt;desc&gt;" />`},
		},
		{
			name: "empty description removes the tag",
			page: Page{},
			not:  []string{`name="description"`},
		},
		{
			name: "keywords replaced",
			page: Page{Keywords: []string{"go", "templates"}},
			want: []string{`<meta name="keywords" content="go,templates" />`},
		},
		{
			name: "no keywords leaves tag",
			page: Page{},
			want: []string{`<meta name="keywords" content="old" />`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&Processor{}).Process(doc, &tt.page)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, n := range tt.not {
				assert.NotContains(t, out, n)
			}
		})
	}
}

func TestProcessBlocks(t *testing.T) {
	var phase string
	p := &Processor{Blocks: blockFunc(func(doc, ph string) (string, error) {
		phase = ph
		return strings.ReplaceAll(doc, "<p>x</p>", "<p>block</p>"), nil
	})}
	out, err := p.Process(doc, &Page{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, PhaseOutputFilter, phase)
	assert.Contains(t, out, "<p>block</p>")

	p.Blocks = blockFunc(func(string, string) (string, error) { return "", errors.New("bad block") })
	_, err = p.Process(doc, nil)
	assert.ErrorContains(t, err, "bad block")
}

func TestFilterChain(t *testing.T) {
	p := &Processor{}
	var seen []string
	p.AddFilter("upper", FilterFunc(func(d string) (string, error) {
		seen = append(seen, "upper")
		return strings.ToUpper(d), nil
	}))
	boom := errors.New("boom")
	p.AddFilter("failing", FilterFunc(func(d string) (string, error) {
		seen = append(seen, "failing")
		return "garbage", boom
	}))
	p.AddFilter("panicking", FilterFunc(func(d string) (string, error) {
		seen = append(seen, "panicking")
		panic("oops")
	}))
	p.AddFilter("suffix", FilterFunc(func(d string) (string, error) {
		seen = append(seen, "suffix")
		return d + "!", nil
	}))

	out, err := p.Process("<html><title>a</title></html>", &Page{Title: "a"})
	assert.Equal(t, "<HTML><TITLE>A</TITLE></HTML>!", out)
	assert.Equal(t, []string{"upper", "failing", "panicking", "suffix"}, seen)
	assert.Equal(t, []string{"upper", "failing", "panicking", "suffix"}, p.Filters())

	var fault *FilterFault
	require.ErrorAs(t, err, &fault)
	require.Len(t, fault.Failures, 2)
	assert.Equal(t, "failing", fault.Failures[0].Name)
	assert.Equal(t, "panicking", fault.Failures[1].Name)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "filter panicking: panic: oops")
}

func TestNoHeadOrBody(t *testing.T) {
	out, err := (&Processor{}).Process("plain", &Page{Head: []string{"<x>"}, Foot: []string{"<y>"}})
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}
