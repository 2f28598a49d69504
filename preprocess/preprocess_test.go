package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"literal", "<p>hello</p>", "<p>hello</p>"},
		{"comment", "a{* note *}b", "ab"},
		{"multiline comment", "a{* one\ntwo *}b", "ab"},
		{"two comments non greedy", "{* x *}keep{* y *}", "keep"},
		{"foreign code", `<?php echo "x"; ?>`, "&lt;?php echo &quot;x&quot;; ?&gt;"},
		{"closers", "{/if}{/FOREACH}{/while}{/for}{/Switch}{/function}", "{endif}{endforeach}{endwhile}{endfor}{endswitch}{endfunction}"},
		{"function opener untouched", "{function f($a)}x{/function}", "{function f($a)}x{endfunction}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLineMap(t *testing.T) {
	src := "one\n{* a\nb\nc *}two\nthree"
	out, lines := Normalize(src)
	require.Equal(t, "one\ntwo\nthree", out)
	assert.Equal(t, []int{1, 4, 5}, lines)
	assert.Equal(t, 4, OrigLine(lines, 2))
	assert.Equal(t, 5, OrigLine(lines, 3))
	assert.Equal(t, 7, OrigLine(lines, 5))
}

func TestRewritePseudoFunctions(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		names []string
		want  string
		used  []string
	}{
		{
			name:  "standalone call",
			in:    "<b>{shorten($text, 10)}</b>",
			names: []string{"shorten"},
			want:  "<b>{{$__pf_shorten($text, 10)}}</b>",
			used:  []string{"shorten"},
		},
		{
			name:  "trailing modifiers",
			in:    "{i('menu').items}",
			names: []string{"i"},
			want:  "{{$__pf_i('menu').items}}",
			used:  []string{"i"},
		},
		{
			name:  "control header",
			in:    "{if isLast($items, $key)}LAST{endif}",
			names: []string{"isLast"},
			want:  "{if $__pf_isLast($items, $key)}LAST{endif}",
			used:  []string{"isLast"},
		},
		{
			name:  "nested in header after operator",
			in:    "{if !isLast($items, $key)}x{endif}",
			names: []string{"isLast"},
			want:  "{if !$__pf_isLast($items, $key)}x{endif}",
			used:  []string{"isLast"},
		},
		{
			name:  "first occurrence only",
			in:    "{if _('a') == _('b')}x{endif}",
			names: []string{"_"},
			want:  "{if $__pf__('a') == _('b')}x{endif}",
			used:  []string{"_"},
		},
		{
			name:  "statement form",
			in:    "{@js('app.js')}",
			names: []string{"js"},
			want:  "{@$__pf_js('app.js')}",
			used:  []string{"js"},
		},
		{
			name:  "already raw",
			in:    "{{include('head')}}",
			names: []string{"include"},
			want:  "{{$__pf_include('head')}}",
			used:  []string{"include"},
		},
		{
			name:  "quoted brace in argument",
			in:    "{_('a}b')} tail",
			names: []string{"_"},
			want:  "{{$__pf__('a}b')}} tail",
			used:  []string{"_"},
		},
		{
			name:  "method with the same name untouched",
			in:    "{if $obj.age(1)}x{endif}",
			names: []string{"age"},
			want:  "{if $obj.age(1)}x{endif}",
		},
		{
			name:  "longer identifier untouched",
			in:    "{js_extra(1)}{if myjs(2)}{endif}",
			names: []string{"js"},
			want:  "{js_extra(1)}{if myjs(2)}{endif}",
		},
		{
			name:  "literal braces untouched",
			in:    "body { color: red } {css ('x')}",
			names: []string{"css"},
			want:  "body { color: red } {css ('x')}",
		},
		{
			name:  "two bindings",
			in:    "{css('a.css')}{foreach i('repo').all() as $x}{endforeach}",
			names: []string{"css", "i"},
			want:  "{{$__pf_css('a.css')}}{foreach $__pf_i('repo').all() as $x}{endforeach}",
			used:  []string{"css", "i"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, used := RewritePseudoFunctions(tt.in, tt.names)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.used, used)
		})
	}
}

func TestTempName(t *testing.T) {
	assert.Equal(t, "__pf_menuItem", TempName("menuItem"))
}
