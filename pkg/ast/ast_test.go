package ast

import (
	"math/big"
	"testing"
)

func TestConversionFlagOrdinals(t *testing.T) {
	cases := []struct {
		in   byte
		want ConversionFlag
		ok   bool
	}{
		{in: 'a', want: ConversionAscii, ok: true},
		{in: 'r', want: ConversionRepr, ok: true},
		{in: 's', want: ConversionStr, ok: true},
		{in: 't', ok: false},
		{in: 'b', ok: false},
		{in: 0, ok: false},
	}
	for _, tc := range cases {
		got, ok := ConversionFlagFromByte(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ConversionFlagFromByte(%d) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
	if got := ConversionRepr.String(); got != "!r" {
		t.Fatalf("ConversionRepr.String() = %q, want !r", got)
	}
}

func TestConstantStrings(t *testing.T) {
	cases := []struct {
		value ConstantValue
		want  string
	}{
		{ConstNone{}, "None"},
		{ConstBool(true), "True"},
		{ConstStr("it's"), `"it's"`},
		{ConstBytes("ab\n"), `b'ab\n'`},
		{ConstInt{Value: new(big.Int).Lsh(big.NewInt(1), 70)}, "1180591620717411303424"},
		{ConstTuple{Int(1)}, "(1,)"},
		{ConstTuple{Int(1), ConstStr("a")}, "(1, 'a')"},
		{ConstFloat(2), "2.0"},
		{ConstFloat(0.5), "0.5"},
		{ConstComplex{Imag: 3}, "3j"},
		{ConstComplex{Imag: 0.5}, "0.5j"},
		{ConstComplex{Real: 1, Imag: -2}, "(1-2j)"},
		{ConstEllipsis{}, "Ellipsis"},
	}
	for _, tc := range cases {
		if got := tc.value.String(); got != tc.want {
			t.Fatalf("%T.String() = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestOperatorSymbols(t *testing.T) {
	for _, op := range Operators() {
		back, ok := OperatorFromSymbol(op.Symbol())
		if !ok || back != op {
			t.Fatalf("OperatorFromSymbol(%q) = %v, %v", op.Symbol(), back, ok)
		}
	}
	if op, ok := OperatorFromSymbol("//="); !ok || op != FloorDiv {
		t.Fatalf("augmented floor division not recognised: %v %v", op, ok)
	}
	if op, ok := OperatorFromSymbol("%"); !ok || op != Modulo || op.String() != "Mod" {
		t.Fatalf("OperatorFromSymbol(%%) = %v, %v; want Mod", op, ok)
	}
	if op, ok := CmpOperatorFromSymbol("not in"); !ok || op != NotIn {
		t.Fatalf("not in not recognised: %v %v", op, ok)
	}
	if _, ok := OperatorFromSymbol("=="); ok {
		t.Fatalf("expected == to be rejected as a binary operator")
	}
}

func TestRegistryCoversEveryKind(t *testing.T) {
	kinds := Registry()
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if seen[k.Name] {
			t.Fatalf("duplicate registry entry %s", k.Name)
		}
		seen[k.Name] = true
	}
	want := 3 + 19 + 19 + 3 + 2 + 13 + 4 + 10 + 4
	if len(kinds) != want {
		t.Fatalf("registry has %d kinds, want %d", len(kinds), want)
	}
	fn, ok := Lookup("FunctionDef")
	if !ok || !fn.Located || fn.Category != CategoryStmt {
		t.Fatalf("FunctionDef entry unexpected: %#v", fn)
	}
	if fn.Fields[0] != "name" || fn.Fields[len(fn.Fields)-1] != "type_comment" {
		t.Fatalf("FunctionDef fields out of order: %v", fn.Fields)
	}
	load, ok := Lookup("Load")
	if !ok || load.Located || len(load.Fields) != 0 || load.Category != CategoryExprContext {
		t.Fatalf("Load entry unexpected: %#v", load)
	}
	alias, _ := Lookup("alias")
	if alias.Category != CategoryNone || alias.Located {
		t.Fatalf("alias entry unexpected: %#v", alias)
	}
}

func TestSetContextDescendsIntoTargets(t *testing.T) {
	target := &Tuple{Elts: []Expr{
		&Name{ID: "a"},
		&Starred{Value: &Name{ID: "b"}},
	}}
	if !SetContext(target, Store) {
		t.Fatalf("tuple target rejected")
	}
	if target.Ctx != Store || target.Elts[0].(*Name).Ctx != Store {
		t.Fatalf("context not propagated: %#v", target)
	}
	if inner := target.Elts[1].(*Starred).Value.(*Name); inner.Ctx != Store {
		t.Fatalf("starred target not updated")
	}
	if SetContext(&Constant{Value: Int(1)}, Store) {
		t.Fatalf("constant accepted as assignment target")
	}
}

func TestArgumentNamesOrder(t *testing.T) {
	args := &Arguments{
		PosOnlyArgs: []*Arg{{Arg: "a"}},
		Args:        []*Arg{{Arg: "b"}},
		Vararg:      &Arg{Arg: "rest"},
		KwOnlyArgs:  []*Arg{{Arg: "c"}},
		Kwarg:       &Arg{Arg: "kw"},
	}
	got := args.Names()
	want := []string{"a", "b", "rest", "c", "kw"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeExec, ModeEval, ModeSingle} {
		back, err := ParseMode(m.String())
		if err != nil || back != m {
			t.Fatalf("ParseMode(%q) = %v, %v", m.String(), back, err)
		}
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if ModeEval.RootType() != NodeExpression {
		t.Fatalf("eval root = %s", ModeEval.RootType())
	}
}
