package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modernc.org/scanner"

	"github.com/rubiojr/tplc/value"
)

type renderOpts struct {
	pseudo  []string
	notices *[]*Fault
}

func render(t *testing.T, src string, vars map[string]any, opts ...renderOpts) (string, error) {
	t.Helper()
	var o renderOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	c := &Compiler{}
	prog, err := c.Compile("test.tpl", src, o.pseudo)
	if err != nil {
		return "", err
	}
	slots := MapSlots{}
	var prelude []Bind
	for _, k := range value.SortedKeys(vars) {
		key := "r1:" + k
		slots[key] = value.Normalize(vars[k])
		prelude = append(prelude, Bind{Name: k, Slot: key})
	}
	var sb strings.Builder
	run := &Run{Out: &sb, Slots: slots, Prelude: prelude}
	if o.notices != nil {
		run.Notice = func(f *Fault) { *o.notices = append(*o.notices, f) }
	}
	err = prog.Execute(run)
	return sb.String(), err
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]any
		want string
	}{
		{"literal", "<html><body>plain { text }</body></html>", nil, "<html><body>plain { text }</body></html>"},
		{"escape", "{$name}", map[string]any{"name": "<b>"}, "&lt;b&gt;"},
		{"escape quotes", `{$q}`, map[string]any{"q": `"it's"`}, "&quot;it&#039;s&quot;"},
		{"raw", "{{$name}}", map[string]any{"name": "<b>"}, "<b>"},
		{"foreach", "{foreach $items as $item}{$item}{endforeach}", map[string]any{"items": []string{"a", "b", "c"}}, "abc"},
		{"foreach key value", "{foreach $m as $k => $v}{$k}={$v};{endforeach}", map[string]any{"m": map[string]int{"b": 2, "a": 1}}, "a=1;b=2;"},
		{"dotted path", "{$user.name}", map[string]any{"user": map[string]any{"name": "Bob"}}, "Bob"},
		{"dot in quotes untouched", "{$user.name . '.name'}", map[string]any{"user": map[string]any{"name": "Bob"}}, "Bob.name"},
		{"nested path", "{$a.b.c}", map[string]any{"a": map[string]any{"b": map[string]any{"c": "deep"}}}, "deep"},
		{"index", "{$items[1]}{$m['k']}", map[string]any{"items": []int{10, 20}, "m": map[string]string{"k": "v"}}, "20v"},
		{"guard scalar", "{'x' . 1}", nil, "x1"},
		{"guard bool", "{true}", nil, ""},
		{"guard record", "{[1, 2]}", nil, ""},
		{"plain", "{count($items)}", map[string]any{"items": []int{1, 2, 3}}, "3"},
		{"if else", "{if $n > 1}big{elseif $n == 1}one{else}small{endif}", map[string]any{"n": 1}, "one"},
		{"nested if", "{if $a}{if $b}ab{endif}{endif}", map[string]any{"a": true, "b": 1}, "ab"},
		{"for", "{for $i = 0; $i < 3; $i++}{$i}{endfor}", nil, "012"},
		{"while break", "{@$i = 0}{while true}{@$i++}{if $i > 2}{@break}{endif}{$i}{endwhile}", nil, "12"},
		{"continue", "{foreach $items as $v}{if $v == 2}{@continue}{endif}{$v}{endforeach}", map[string]any{"items": []int{1, 2, 3}}, "13"},
		{"switch", "{switch $x}{case 1}one{case 2}two{default}other{endswitch}", map[string]any{"x": 2}, "two"},
		{"switch default", "{switch $x}{case 1}one{default}other{endswitch}", map[string]any{"x": 9}, "other"},
		{"switch break", "{switch $x}{case 1}a{@break}b{endswitch}", map[string]any{"x": 1}, "a"},
		{"assign and concat", "{@$s = 'a'; $s .= 'b'}{$s}", nil, "ab"},
		{"arithmetic", "{@$x = 7 % 3 + 10 / 4}{$x}", nil, "3.5"},
		{"ternary", "{$n > 0 ? 'pos' : 'neg'}", map[string]any{"n": -1}, "neg"},
		{"coalesce", "{$missing ?? 'default'}", nil, "default"},
		{"interpolation", `{"Hi $name"}`, map[string]any{"name": "Ann"}, "Hi Ann"},
		{"array literal", "{foreach ['x' => 1, 'y' => 2] as $k => $v}{$k}{$v}{endforeach}", nil, "x1y2"},
		{"element assignment", "{@$a['k'] = 'v'}{$a.k}", nil, "v"},
		{"function", "{function greet($n, $g = 'Hi')}{$g} {$n}{endfunction}{greet('Bob')}|{greet('Ann', 'Yo')}", nil, "Hi Bob|Yo Ann"},
		{"function return", "{function twice($n)}{@return $n * 2}{endfunction}{twice(21)}", nil, "42"},
		{"recursion", "{function fact($n)}{@return $n <= 1 ? 1 : $n * fact($n - 1)}{endfunction}{fact(5)}", nil, "120"},
		{"function declared later", "{later()}{function later()}L{endfunction}", nil, "L"},
		{"function scope isolated", "{function f()}{$x}{endfunction}{@$x = 'outer'}[{f()}]", nil, "[]"},
		{"method call", "{$obj.greet('Bob')}", map[string]any{"obj": greeter{prefix: "Hello "}}, "Hello Bob"},
		{"struct field", "{$obj.Prefix}", map[string]any{"obj": exported{Prefix: "P"}}, "P"},
		{"callable variable", "{$fn(2, 3)}", map[string]any{"fn": func(a, b int) int { return a + b }}, "5"},
		{"top level return stops", "a{@return}b", nil, "a"},
		{"comment", "a{* hidden {$x} *}b", nil, "ab"},
		{"closer spelling", "{if true}y{/if}", nil, "y"},
		{"neutralized code", "<?php echo 1; ?>", nil, "&lt;?php echo 1; ?&gt;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.src, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type greeter struct{ prefix string }

func (g greeter) Greet(name string) string { return g.prefix + name }

type exported struct{ Prefix string }

func TestBuiltins(t *testing.T) {
	vars := map[string]any{
		"items": []string{"a", "b"},
		"s":     "  Mixed Case \n",
		"text":  "a\nb",
		"html":  "<i>",
		"empty": "",
	}
	tests := []struct {
		src  string
		want string
	}{
		{"{count($items)}", "2"},
		{"{if isset($items)}y{endif}{if isset($nope)}n{endif}", "y"},
		{"{if empty($empty)}e{endif}{if empty($nope)}n{endif}{if !empty($items)}i{endif}", "eni"},
		{"{trim($s)}", "Mixed Case"},
		{"{strtolower(trim($s))}", "mixed case"},
		{"{strtoupper('x')}", "X"},
		{"{implode(', ', $items)}", "a, b"},
		{"{implode($items, '-')}", "a-b"},
		{"{if in_array('b', $items)}found{endif}", "found"},
		{"{nl2br($text)}", "a<br />\nb"},
		{"{htmlspecialchars($html)}", "&lt;i&gt;"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := render(t, tt.src, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotices(t *testing.T) {
	var notices []*Fault
	got, err := render(t, "a{$missing}b\n{$user.nope}{{$other}}", map[string]any{"user": map[string]any{}}, renderOpts{notices: &notices})
	require.NoError(t, err)
	assert.Equal(t, "ab\n", got)
	require.Len(t, notices, 1)
	assert.Equal(t, Notice, notices[0].Level)
	assert.Equal(t, 2, notices[0].Line)
	assert.Contains(t, notices[0].Msg, "Undefined variable $other")
}

func TestForeachNullIsNotice(t *testing.T) {
	var notices []*Fault
	got, err := render(t, "x{foreach $none as $v}{$v}{endforeach}y", nil, renderOpts{notices: &notices})
	require.NoError(t, err)
	assert.Equal(t, "xy", got)
	assert.Len(t, notices, 2)
}

func TestFatalFaults(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]any
		line int
		msg  string
	}{
		{"undefined function", "ok\n{nope()}", nil, 2, "Call to undefined function nope()"},
		{"division by zero", "{@$x = 1 / 0}", nil, 1, "division by zero"},
		{"foreach scalar", "\n\n{foreach $n as $v}{endforeach}", map[string]any{"n": 3}, 3, "foreach() argument must be of type array|object, int given"},
		{"missing argument", "{function f($a)}{endfunction}{f()}", nil, 1, "Too few arguments to function f()"},
		{"host panic", "{$cb()}", map[string]any{"cb": value.Func(func([]any) (any, error) { panic("boom") })}, 1, "boom"},
		{"host error", "{$cb()}", map[string]any{"cb": value.Func(func([]any) (any, error) { return nil, errors.New("failed") })}, 1, "failed"},
		{"not callable", "{$s()}", map[string]any{"s": "str"}, 1, "is not callable"},
		{"unclosed if", "a\n{if $x}\nb", nil, 2, "unclosed {if}"},
		{"empty if", "{if}", nil, 1, "missing expression"},
		{"break outside loop", "x\n{@break}", nil, 2, "'break' not in the 'loop' or 'switch' context"},
		{"record echoed", "x\n{{$items}}", map[string]any{"items": []int{1}}, 2, "record could not be converted to string"},
		{"record concatenated", "{$user . '!'}", map[string]any{"user": map[string]any{"n": 1}}, 1, "record could not be converted to string"},
		{"record in implode", "{implode(',', [[1]])}", nil, 1, "record could not be converted to string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := render(t, tt.src, tt.vars)
			require.Error(t, err)
			var f *Fault
			require.ErrorAs(t, err, &f)
			assert.Equal(t, Fatal, f.Level)
			assert.Equal(t, tt.line, f.Line)
			assert.Contains(t, f.Msg, tt.msg)
			assert.Equal(t, "test.tpl", f.Template)
		})
	}
}

func TestFaultDiagnostic(t *testing.T) {
	_, err := render(t, "<p>\n  {missing($a.b)}\n</p>", nil)
	var f *Fault
	require.ErrorAs(t, err, &f)
	diag := f.Diagnostic()
	assert.True(t, strings.HasPrefix(diag, "Call to undefined function missing()\n\n"))
	assert.Contains(t, diag, "test.tpl:2:   {missing($a.b)}")
	assert.Contains(t, diag, "Compiled:\n\necho (string)missing($a->{'b'});")
	assert.Equal(t, "test.tpl:2: Call to undefined function missing()", f.Error())
}

func TestSyntaxFaultKeepsErrorList(t *testing.T) {
	c := &Compiler{}
	_, err := c.Compile("page.tpl", "{* note\n*}{$a +}\n<p>\n{$b.}", nil)
	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 2, f.Line)
	assert.Equal(t, "*}{$a +}", f.Source)
	assert.Equal(t, "{$a +}", f.Code)

	var el scanner.ErrList
	require.ErrorAs(t, f.Err, &el)
	require.Len(t, el, 2)
	assert.Equal(t, 4, el[1].Pos.Line)
	assert.Equal(t, "page.tpl", el[1].Pos.Filename)
}

func TestPseudoFunctionBinding(t *testing.T) {
	c := &Compiler{}
	prog, err := c.Compile("p.tpl", "{up('abc')}{if isLast($items, 1)}L{endif}", []string{"up", "isLast", "unused"})
	require.NoError(t, err)
	assert.Equal(t, []string{"up", "isLast"}, prog.Pseudo)

	slots := MapSlots{
		"k:up": value.Func(func(args []any) (any, error) {
			s, _ := value.ToString(args[0])
			return strings.ToUpper(s), nil
		}),
		"k:isLast": value.Func(func(args []any) (any, error) {
			last, _ := value.LastKey(args[0])
			return value.Identical(last, args[1]), nil
		}),
		"k:items": value.Normalize([]string{"a", "b"}),
	}
	var sb strings.Builder
	err = prog.Execute(&Run{Out: &sb, Slots: slots, Prelude: []Bind{
		{Name: "__pf_up", Slot: "k:up"},
		{Name: "__pf_isLast", Slot: "k:isLast"},
		{Name: "items", Slot: "k:items"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "ABCL", sb.String())
}

func TestPseudoFunctionInsideTemplateFunction(t *testing.T) {
	c := &Compiler{}
	prog, err := c.Compile("p.tpl", "{function f()}{up('x')}{endfunction}{f()}", []string{"up"})
	require.NoError(t, err)
	slots := MapSlots{"s": value.Func(func([]any) (any, error) { return "X", nil })}
	var sb strings.Builder
	require.NoError(t, prog.Execute(&Run{Out: &sb, Slots: slots, Prelude: []Bind{{Name: "__pf_up", Slot: "s"}}}))
	assert.Equal(t, "X", sb.String())
}

func TestUnboundSlot(t *testing.T) {
	c := &Compiler{}
	prog, err := c.Compile("p.tpl", "x", nil)
	require.NoError(t, err)
	err = prog.Execute(&Run{Out: &strings.Builder{}, Slots: MapSlots{}, Prelude: []Bind{{Name: "a", Slot: "gone"}}})
	assert.ErrorContains(t, err, "unbound variable slot gone")
}

func TestParserLog(t *testing.T) {
	c := &Compiler{}
	_, err := c.Compile("log.tpl", "{* c *}{$user.name}{/if}", nil)
	require.Error(t, err)
	_, err = c.Compile("ok.tpl", "{$user.name}", nil)
	require.NoError(t, err)

	var stages []string
	for _, e := range c.Log().Entries() {
		if e.Template == "ok.tpl" {
			stages = append(stages, e.Stage)
		}
	}
	assert.Equal(t, []string{StageSource, StageNormalize, StagePseudo, StageTokens, StageCode}, stages)

	entries := c.Log().Entries()
	last := entries[len(entries)-1]
	assert.Contains(t, last.Content, "$user->{'name'}")
}

func TestProgramReuse(t *testing.T) {
	c := &Compiler{}
	prog, err := c.Compile("r.tpl", "{$n}", nil)
	require.NoError(t, err)
	for _, n := range []string{"a", "b"} {
		var sb strings.Builder
		require.NoError(t, prog.Execute(&Run{Out: &sb, Slots: MapSlots{"s": n}, Prelude: []Bind{{Name: "n", Slot: "s"}}}))
		assert.Equal(t, n, sb.String())
	}
}

func TestBuiltinNames(t *testing.T) {
	names := Builtins()
	assert.Contains(t, names, "count")
	assert.Contains(t, names, "isset")
	assert.True(t, IsBuiltin("COUNT"))
	assert.False(t, IsBuiltin("shorten"))
}
