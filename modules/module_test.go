package modules

import (
	"errors"
	"strings"
	"testing"
)

func echoFn(args []any) (any, error) { return args, nil }

func TestRegisterAndGet(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Register(Binding{Name: "foo", MinArgs: 1, MaxArgs: 1, Fn: echoFn}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok := tbl.Get("foo")
	if !ok {
		t.Fatal("expected binding to be found")
	}
	if got.Name != "foo" {
		t.Errorf("name = %q, want %q", got.Name, "foo")
	}
	if _, ok := tbl.Get("nonexistent"); ok {
		t.Error("expected false for unknown binding")
	}
	if !tbl.Has("foo") || tbl.Has("bar") {
		t.Error("Has mismatch")
	}
}

func TestNames(t *testing.T) {
	tbl := NewTable()
	for _, name := range []string{"beta", "alpha"} {
		if err := tbl.Register(Binding{Name: name, Fn: echoFn}); err != nil {
			t.Fatal(err)
		}
	}
	names := tbl.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Names() = %v, want [alpha beta]", names)
	}
}

func TestRegisterReplaces(t *testing.T) {
	tbl := NewTable()
	_ = tbl.Register(Binding{Name: "f", Fn: func([]any) (any, error) { return 1, nil }})
	_ = tbl.Register(Binding{Name: "f", Fn: func([]any) (any, error) { return 2, nil }})
	b, _ := tbl.Get("f")
	v, err := b.Call(nil)
	if err != nil || v != 2 {
		t.Errorf("Call() = (%v, %v), want (2, nil)", v, err)
	}
}

func TestRegisterRejects(t *testing.T) {
	tests := []struct {
		name string
		b    Binding
		want string
	}{
		{"empty name", Binding{Fn: echoFn}, "not an identifier"},
		{"leading digit", Binding{Name: "1f", Fn: echoFn}, "not an identifier"},
		{"dash", Binding{Name: "my-func", Fn: echoFn}, "not an identifier"},
		{"keyword", Binding{Name: "foreach", Fn: echoFn}, "reserved word"},
		{"keyword any case", Binding{Name: "If", Fn: echoFn}, "reserved word"},
		{"max below min", Binding{Name: "f", MinArgs: 2, MaxArgs: 1, Fn: echoFn}, "arity"},
		{"negative min", Binding{Name: "f", MinArgs: -1, MaxArgs: Variadic, Fn: echoFn}, "arity"},
		{"missing func", Binding{Name: "f"}, "missing func"},
		{"missing receiver", Binding{Name: "f", Kind: KindMethod, Method: "Do"}, "missing receiver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTable().Register(tt.b)
			if !errors.Is(err, ErrInvalidBinding) {
				t.Fatalf("err = %v, want ErrInvalidBinding", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestCallArity(t *testing.T) {
	b := &Binding{Name: "shorten", MinArgs: 1, MaxArgs: 3, Fn: echoFn}
	if _, err := b.Call(nil); err == nil || !strings.Contains(err.Error(), "shorten() expects 1..3 argument(s), 0 given") {
		t.Errorf("unexpected error %v", err)
	}
	if _, err := b.Call([]any{1, 2, 3, 4}); err == nil {
		t.Error("expected error for too many arguments")
	}
	if _, err := b.Call([]any{"x"}); err != nil {
		t.Errorf("unexpected error %v", err)
	}

	v := &Binding{Name: "v", MinArgs: 1, MaxArgs: Variadic, Fn: echoFn}
	if _, err := v.Call([]any{1, 2, 3, 4, 5}); err != nil {
		t.Errorf("variadic: %v", err)
	}
}

type formatter struct{ prefix string }

func (f formatter) Format(s string) string { return f.prefix + s }

func TestCallMethod(t *testing.T) {
	b := &Binding{Name: "fmt", Kind: KindMethod, MinArgs: 1, MaxArgs: 1, Receiver: formatter{prefix: "> "}, Method: "format"}
	got, err := b.Call([]any{"hi"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "> hi" {
		t.Errorf("Call() = %v, want %q", got, "> hi")
	}
}

func TestArity(t *testing.T) {
	tests := []struct {
		min, max int
		want     string
	}{
		{1, 1, "1"},
		{1, 3, "1..3"},
		{2, Variadic, "2+"},
		{0, 0, "0"},
	}
	for _, tt := range tests {
		b := &Binding{MinArgs: tt.min, MaxArgs: tt.max}
		if got := b.Arity(); got != tt.want {
			t.Errorf("Arity(%d, %d) = %q, want %q", tt.min, tt.max, got, tt.want)
		}
	}
	if KindMethod.String() != "method" || KindFunc.String() != "func" {
		t.Error("Kind.String mismatch")
	}
}
