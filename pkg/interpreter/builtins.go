package interpreter

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/pyast"
	"serpent/interpreter-go/pkg/runtime"
)

// hiddenClasses exist at runtime but have no builtin name.
var hiddenClasses = map[string]bool{
	"NoneType":                   true,
	"ellipsis":                   true,
	"module":                     true,
	"function":                   true,
	"builtin_function_or_method": true,
	"code":                       true,
}

func (i *Interpreter) newBuiltins() *runtime.Dict {
	d := runtime.NewDict()
	set := func(name string, v runtime.Value) {
		// a fresh dict has no outstanding borrows
		_ = d.SetStr(name, v)
	}
	for _, cls := range runtime.BuiltinClasses() {
		if !hiddenClasses[cls.Name] {
			set(cls.Name, cls)
		}
	}
	for _, cls := range []*runtime.Class{RangeClass, SliceClass, UnboundLocalErrorClass, StopIterationClass} {
		set(cls.Name, cls)
	}
	set("None", runtime.None)
	set("Ellipsis", runtime.Ellipsis)
	set("True", runtime.True)
	set("False", runtime.False)

	fns := map[string]runtime.NativeFunc{
		"print":      i.builtinPrint,
		"len":        builtinLen,
		"repr":       unary("repr", func(v runtime.Value) (runtime.Value, error) { return runtime.Str(runtime.Repr(v)), nil }),
		"ascii":      unary("ascii", func(v runtime.Value) (runtime.Value, error) { return runtime.Str(asciiRepr(v)), nil }),
		"abs":        unary("abs", builtinAbs),
		"hash":       unary("hash", builtinHash),
		"callable":   unary("callable", builtinCallable),
		"chr":        unary("chr", builtinChr),
		"ord":        unary("ord", builtinOrd),
		"type":       unary("type", func(v runtime.Value) (runtime.Value, error) { return v.Class(), nil }),
		"iter":       unary("iter", func(v runtime.Value) (runtime.Value, error) { return iterate(v) }),
		"reversed":   unary("reversed", builtinReversed),
		"enumerate":  builtinEnumerate,
		"zip":        builtinZip,
		"next":       builtinNext,
		"isinstance": builtinIsInstance,
		"issubclass": builtinIsSubclass,
		"getattr":    i.builtinGetAttr,
		"setattr":    builtinSetAttr,
		"hasattr":    i.builtinHasAttr,
		"delattr":    builtinDelAttr,
		"min":        builtinMinMax("min", ast.Lt),
		"max":        builtinMinMax("max", ast.Gt),
		"sum":        builtinSum,
		"sorted":     builtinSorted,
		"all":        builtinAllAny("all", false),
		"any":        builtinAllAny("any", true),
		"divmod":     builtinDivmod,
		"pow":        builtinPow,
		"round":      builtinRound,
		"format":     builtinFormat,
		"compile":    i.builtinCompile,
		"exec":       i.builtinExec,
		"eval":       i.builtinEval,
		"globals":    i.builtinGlobals,
	}
	for name, fn := range fns {
		set(name, runtime.NewNativeFunction(name, fn))
	}
	return d
}

func unary(name string, fn func(runtime.Value) (runtime.Value, error)) runtime.NativeFunc {
	return func(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		if err := arity(name, args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		return fn(args[0])
	}
}

func (i *Interpreter) builtinPrint(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	opts, err := keywords("print", kwargs, "sep", "end")
	if err != nil {
		return nil, err
	}
	sep, end := " ", "\n"
	for name, dst := range map[string]*string{"sep": &sep, "end": &end} {
		v, ok := opts[name]
		if !ok || v == runtime.None {
			continue
		}
		s, ok := v.(runtime.Str)
		if !ok {
			return nil, typeError("%s must be None or a string, not %s", name, runtime.TypeName(v))
		}
		*dst = string(s)
	}
	parts := make([]string, len(args))
	for n, a := range args {
		parts[n] = runtime.ToStr(a)
	}
	if _, err := fmt.Fprint(i.stdout, strings.Join(parts, sep)+end); err != nil {
		return nil, err
	}
	return runtime.None, nil
}

func builtinLen(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("len", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	n, err := length(args[0])
	if err != nil {
		return nil, err
	}
	return runtime.NewInt(int64(n)), nil
}

func builtinAbs(v runtime.Value) (runtime.Value, error) {
	if n, ok := runtime.IntValue(v); ok {
		return runtime.Int{V: new(big.Int).Abs(n)}, nil
	}
	switch x := v.(type) {
	case runtime.Float:
		return runtime.Float(math.Abs(float64(x))), nil
	case runtime.Complex:
		return runtime.Float(math.Hypot(x.Real, x.Imag)), nil
	}
	return nil, typeError("bad operand type for abs(): '%s'", runtime.TypeName(v))
}

func builtinHash(v runtime.Value) (runtime.Value, error) {
	h, err := runtime.Hash(v)
	if err != nil {
		return nil, err
	}
	return runtime.NewInt(int64(h >> 1)), nil
}

func builtinCallable(v runtime.Value) (runtime.Value, error) {
	switch v.(type) {
	case *runtime.NativeFunction, runtime.Callable, *runtime.Class:
		return runtime.True, nil
	}
	return runtime.False, nil
}

func builtinChr(v runtime.Value) (runtime.Value, error) {
	n, ok := runtime.IntValue(v)
	if !ok {
		return nil, typeError("'%s' object cannot be interpreted as an integer", runtime.TypeName(v))
	}
	if !n.IsInt64() || n.Int64() < 0 || n.Int64() > 0x10FFFF {
		return nil, valueError("chr() arg not in range(0x110000)")
	}
	return runtime.Str(string(rune(n.Int64()))), nil
}

func builtinOrd(v runtime.Value) (runtime.Value, error) {
	switch x := v.(type) {
	case runtime.Str:
		runes := []rune(string(x))
		if len(runes) == 1 {
			return runtime.NewInt(int64(runes[0])), nil
		}
		return nil, typeError("ord() expected a character, but string of length %d found", len(runes))
	case runtime.Bytes:
		if len(x) == 1 {
			return runtime.NewInt(int64(x[0])), nil
		}
		return nil, typeError("ord() expected a character, but string of length %d found", len(x))
	}
	return nil, typeError("ord() expected string of length 1, but %s found", runtime.TypeName(v))
}

func builtinReversed(v runtime.Value) (runtime.Value, error) {
	if _, ok := v.(*runtime.Dict); ok {
		return nil, typeError("'dict' object is not reversible")
	}
	items, err := sequence(v)
	if err != nil {
		return nil, err
	}
	out := make([]runtime.Value, len(items))
	for n, item := range items {
		out[len(items)-1-n] = item
	}
	return &iterator{items: out}, nil
}

func builtinEnumerate(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	opts, err := keywords("enumerate", kwargs, "start")
	if err != nil {
		return nil, err
	}
	if err := arity("enumerate", args, nil, 1, 2); err != nil {
		return nil, err
	}
	start := big.NewInt(0)
	startVal := opts["start"]
	if len(args) == 2 {
		startVal = args[1]
	}
	if startVal != nil {
		n, ok := runtime.IntValue(startVal)
		if !ok {
			return nil, typeError("'%s' object cannot be interpreted as an integer", runtime.TypeName(startVal))
		}
		start = n
	}
	items, err := sequence(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]runtime.Value, len(items))
	for n, item := range items {
		idx := new(big.Int).Add(start, big.NewInt(int64(n)))
		out[n] = runtime.Tuple{runtime.Int{V: idx}, item}
	}
	return &iterator{items: out}, nil
}

func builtinZip(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("zip", args, kwargs, 0, math.MaxInt); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return &iterator{}, nil
	}
	columns := make([][]runtime.Value, len(args))
	shortest := math.MaxInt
	for n, a := range args {
		items, err := sequence(a)
		if err != nil {
			return nil, err
		}
		columns[n] = items
		shortest = min(shortest, len(items))
	}
	out := make([]runtime.Value, shortest)
	for row := range out {
		t := make(runtime.Tuple, len(columns))
		for n, col := range columns {
			t[n] = col[row]
		}
		out[row] = t
	}
	return &iterator{items: out}, nil
}

func builtinNext(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("next", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	it, ok := args[0].(*iterator)
	if !ok {
		return nil, typeError("'%s' object is not an iterator", runtime.TypeName(args[0]))
	}
	if v, ok := it.next(); ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return nil, runtime.NewException(StopIterationClass, "")
}

// classes accepts a class or a tuple of classes.
func classes(fn string, v runtime.Value) ([]*runtime.Class, error) {
	if cls, ok := v.(*runtime.Class); ok {
		return []*runtime.Class{cls}, nil
	}
	t, ok := v.(runtime.Tuple)
	if !ok {
		return nil, typeError("%s() arg 2 must be a type or tuple of types", fn)
	}
	var out []*runtime.Class
	for _, item := range t {
		more, err := classes(fn, item)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

func builtinIsInstance(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("isinstance", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	candidates, err := classes("isinstance", args[1])
	if err != nil {
		return nil, err
	}
	for _, cls := range candidates {
		if runtime.IsInstance(args[0], cls) {
			return runtime.True, nil
		}
	}
	return runtime.False, nil
}

func builtinIsSubclass(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("issubclass", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	sub, ok := args[0].(*runtime.Class)
	if !ok {
		return nil, typeError("issubclass() arg 1 must be a class")
	}
	candidates, err := classes("issubclass", args[1])
	if err != nil {
		return nil, err
	}
	for _, cls := range candidates {
		if sub.IsSubclass(cls) {
			return runtime.True, nil
		}
	}
	return runtime.False, nil
}

func attrName(fn string, v runtime.Value) (string, error) {
	s, ok := v.(runtime.Str)
	if !ok {
		return "", typeError("%s(): attribute name must be string, not '%s'", fn, runtime.TypeName(v))
	}
	return string(s), nil
}

func (i *Interpreter) builtinGetAttr(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("getattr", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	name, err := attrName("getattr", args[1])
	if err != nil {
		return nil, err
	}
	v, err := i.getAttr(args[0], name)
	if err != nil && len(args) == 3 && isException(err, runtime.AttributeErrorClass) {
		return args[2], nil
	}
	return v, err
}

func builtinSetAttr(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("setattr", args, kwargs, 3, 3); err != nil {
		return nil, err
	}
	name, err := attrName("setattr", args[1])
	if err != nil {
		return nil, err
	}
	return runtime.None, runtime.SetAttr(args[0], name, args[2])
}

func (i *Interpreter) builtinHasAttr(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("hasattr", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("hasattr", args[1])
	if err != nil {
		return nil, err
	}
	if _, err := i.getAttr(args[0], name); err != nil {
		if isException(err, runtime.AttributeErrorClass) {
			return runtime.False, nil
		}
		return nil, err
	}
	return runtime.True, nil
}

func builtinDelAttr(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("delattr", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("delattr", args[1])
	if err != nil {
		return nil, err
	}
	return runtime.None, runtime.DelAttr(args[0], name)
}

// builtinMinMax keeps the first item that no later item beats under op.
func builtinMinMax(name string, op ast.CmpOperator) runtime.NativeFunc {
	return func(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		opts, err := keywords(name, kwargs, "key", "default")
		if err != nil {
			return nil, err
		}
		items := args
		if len(args) == 1 {
			if items, err = sequence(args[0]); err != nil {
				return nil, err
			}
		} else if len(args) == 0 {
			return nil, typeError("%s expected at least 1 argument, got 0", name)
		}
		if len(items) == 0 {
			if dflt, ok := opts["default"]; ok {
				return dflt, nil
			}
			return nil, valueError("%s() iterable argument is empty", name)
		}
		key := opts["key"]
		keyOf := func(v runtime.Value) (runtime.Value, error) {
			if key == nil || key == runtime.None {
				return v, nil
			}
			return runtime.Call(ctx, key, []runtime.Value{v}, nil)
		}
		best := items[0]
		bestKey, err := keyOf(best)
		if err != nil {
			return nil, err
		}
		for _, item := range items[1:] {
			k, err := keyOf(item)
			if err != nil {
				return nil, err
			}
			better, err := order(op, k, bestKey)
			if err != nil {
				return nil, err
			}
			if better {
				best, bestKey = item, k
			}
		}
		return best, nil
	}
}

func builtinSum(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	opts, err := keywords("sum", kwargs, "start")
	if err != nil {
		return nil, err
	}
	if err := arity("sum", args, nil, 1, 2); err != nil {
		return nil, err
	}
	var total runtime.Value = runtime.NewInt(0)
	if v, ok := opts["start"]; ok {
		total = v
	}
	if len(args) == 2 {
		total = args[1]
	}
	if _, ok := total.(runtime.Str); ok {
		return nil, typeError("sum() can't sum strings [use ''.join(seq) instead]")
	}
	items, err := sequence(args[0])
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if total, err = binaryOp(ast.Add, total, item); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func builtinSorted(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	opts, err := keywords("sorted", kwargs, "key", "reverse")
	if err != nil {
		return nil, err
	}
	if err := arity("sorted", args, nil, 1, 1); err != nil {
		return nil, err
	}
	items, err := sequence(args[0])
	if err != nil {
		return nil, err
	}
	out, err := sortValues(ctx, items, opts["key"], opts["reverse"] != nil && truthy(opts["reverse"]))
	if err != nil {
		return nil, err
	}
	return runtime.NewList(out...), nil
}

// builtinAllAny returns stop as soon as an item's truth equals stop.
func builtinAllAny(name string, stop bool) runtime.NativeFunc {
	return func(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		if err := arity(name, args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		items, err := sequence(args[0])
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if truthy(item) == stop {
				return runtime.Bool(stop), nil
			}
		}
		return runtime.Bool(!stop), nil
	}
}

func builtinDivmod(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("divmod", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	q, err := binaryOp(ast.FloorDiv, args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := binaryOp(ast.Modulo, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return runtime.Tuple{q, r}, nil
}

func builtinPow(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("pow", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	if len(args) == 2 || args[2] == runtime.None {
		return binaryOp(ast.Pow, args[0], args[1])
	}
	base, okB := runtime.IntValue(args[0])
	exp, okE := runtime.IntValue(args[1])
	mod, okM := runtime.IntValue(args[2])
	if !okB || !okE || !okM {
		return nil, typeError("pow() 3rd argument not allowed unless all arguments are integers")
	}
	if mod.Sign() == 0 {
		return nil, valueError("pow() 3rd argument cannot be 0")
	}
	if exp.Sign() < 0 {
		return nil, valueError("pow() negative exponent with modulus is not supported")
	}
	z := new(big.Int).Exp(base, exp, new(big.Int).Abs(mod))
	if mod.Sign() < 0 && z.Sign() != 0 {
		z.Add(z, mod)
	}
	return runtime.Int{V: z}, nil
}

func builtinRound(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("round", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	if n, ok := runtime.IntValue(args[0]); ok {
		return runtime.Int{V: n}, nil
	}
	f, ok := args[0].(runtime.Float)
	if !ok {
		return nil, typeError("type %s doesn't define __round__ method", runtime.TypeName(args[0]))
	}
	if len(args) == 1 || args[1] == runtime.None {
		if math.IsInf(float64(f), 0) {
			return nil, overflow("cannot convert float infinity to integer")
		}
		if math.IsNaN(float64(f)) {
			return nil, valueError("cannot convert float NaN to integer")
		}
		n, _ := big.NewFloat(math.RoundToEven(float64(f))).Int(nil)
		return runtime.Int{V: n}, nil
	}
	digits, err := intArg("round", args[1])
	if err != nil {
		return nil, err
	}
	scale := math.Pow(10, float64(digits))
	return runtime.Float(math.RoundToEven(float64(f)*scale) / scale), nil
}

func builtinFormat(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("format", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	spec := ""
	if len(args) == 2 {
		s, ok := args[1].(runtime.Str)
		if !ok {
			return nil, typeError("format() argument 2 must be str, not %s", runtime.TypeName(args[1]))
		}
		spec = string(s)
	}
	out, err := formatWith(args[0], spec)
	if err != nil {
		return nil, err
	}
	return runtime.Str(out), nil
}

func (i *Interpreter) builtinGlobals(_ context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("globals", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	if fr := i.current(); fr != nil {
		return fr.globals, nil
	}
	return i.NewGlobals("__main__"), nil
}

//-----------------------------------------------------------------------------
// compile, exec and eval
//-----------------------------------------------------------------------------

// bridgeError turns a pipeline failure into the exception it stands for.
func bridgeError(err error) error {
	if pe, ok := pyast.AsError(err); ok {
		return pe.Exception()
	}
	return err
}

func sourceText(v runtime.Value) string {
	if b, ok := v.(runtime.Bytes); ok {
		return string(b)
	}
	return string(v.(runtime.Str))
}

// bindArgs matches positional and keyword arguments against names, in
// order, for builtins with keyword-capable signatures.
func bindArgs(fn string, args []runtime.Value, kwargs []runtime.KeywordArg, required int, names ...string) ([]runtime.Value, error) {
	if len(args) > len(names) {
		return nil, typeError("%s() takes at most %d arguments (%d given)", fn, len(names), len(args))
	}
	out := make([]runtime.Value, len(names))
	copy(out, args)
	for _, kw := range kwargs {
		at := indexOf(names, kw.Name)
		if at < 0 {
			return nil, typeError("%s() got an unexpected keyword argument '%s'", fn, kw.Name)
		}
		if out[at] != nil {
			return nil, typeError("argument for %s() given by name ('%s') and position (%d)", fn, kw.Name, at+1)
		}
		out[at] = kw.Value
	}
	for n := 0; n < required; n++ {
		if out[n] == nil {
			return nil, typeError("%s() missing required argument '%s' (pos %d)", fn, names[n], n+1)
		}
	}
	return out, nil
}

// builtinCompile accepts source text or a tree. PyCF_ONLY_AST returns the
// tree; otherwise the result is a code object.
func (i *Interpreter) builtinCompile(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	bound, err := bindArgs("compile", args, kwargs, 3, "source", "filename", "mode", "flags", "dont_inherit", "optimize")
	if err != nil {
		return nil, err
	}
	filename, err := strArg("compile", bound[1])
	if err != nil {
		return nil, err
	}
	modeName, err := strArg("compile", bound[2])
	if err != nil {
		return nil, err
	}
	mode, err := ast.ParseMode(modeName)
	if err != nil {
		return nil, valueError("compile() mode must be 'exec', 'eval' or 'single'")
	}
	flags := 0
	if bound[3] != nil {
		if flags, err = intArg("compile", bound[3]); err != nil {
			return nil, err
		}
	}

	var source string
	switch src := bound[0].(type) {
	case runtime.Str, runtime.Bytes:
		source = sourceText(src)
	default:
		if !i.bridge.Namespace().IsNode(src) {
			return nil, typeError("compile() arg 1 must be a string, bytes or AST object")
		}
		if flags&pyast.PyCFOnlyAST != 0 {
			return src, nil
		}
		code, err := i.bridge.Compile(ctx, src, filename, mode)
		if err != nil {
			return nil, bridgeError(err)
		}
		return &Code{Object: code}, nil
	}
	res, err := i.bridge.CompileSource(ctx, source, filename, mode, flags)
	if err != nil {
		return nil, bridgeError(err)
	}
	if res.Tree != nil {
		return res.Tree, nil
	}
	return &Code{Object: res.Code}, nil
}

func (i *Interpreter) builtinExec(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if _, err := i.execOrEval(ctx, "exec", ast.ModeExec, args, kwargs); err != nil {
		return nil, err
	}
	return runtime.None, nil
}

func (i *Interpreter) builtinEval(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	return i.execOrEval(ctx, "eval", ast.ModeEval, args, kwargs)
}

// execOrEval runs source text or a code object. Without explicit
// namespaces it uses the caller's.
func (i *Interpreter) execOrEval(ctx context.Context, fn string, mode ast.Mode, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	bound, err := bindArgs(fn, args, kwargs, 1, "source", "globals", "locals")
	if err != nil {
		return nil, err
	}
	globals, locals, err := i.namespaces(fn, bound[1], bound[2])
	if err != nil {
		return nil, err
	}
	var code *compiler.CodeObject
	switch src := bound[0].(type) {
	case *Code:
		code = src.Object
	case runtime.Str, runtime.Bytes:
		source := sourceText(src)
		if mode == ast.ModeEval {
			source = strings.TrimLeft(source, " \t")
		}
		res, err := i.bridge.CompileSource(ctx, source, "<string>", mode, 0)
		if err != nil {
			return nil, bridgeError(err)
		}
		code = res.Code
	default:
		return nil, typeError("%s() arg 1 must be a string, bytes or code object", fn)
	}
	if code.Flags&compiler.FlagFunction != 0 {
		return nil, typeError("code object passed to %s() may not contain free variables", fn)
	}
	return i.Run(ctx, code, globals, locals)
}

func (i *Interpreter) namespaces(fn string, g, l runtime.Value) (*runtime.Dict, *runtime.Dict, error) {
	var globals, locals *runtime.Dict
	if g != nil && g != runtime.None {
		d, ok := g.(*runtime.Dict)
		if !ok {
			return nil, nil, typeError("%s() globals must be a dict, not %s", fn, runtime.TypeName(g))
		}
		globals = d
	}
	if l != nil && l != runtime.None {
		d, ok := l.(*runtime.Dict)
		if !ok {
			return nil, nil, typeError("locals must be a mapping")
		}
		locals = d
	}
	if globals == nil {
		if fr := i.current(); fr != nil {
			globals = fr.globals
			if locals == nil {
				locals = fr.locals
			}
		} else {
			globals = i.NewGlobals("__main__")
		}
	}
	if locals == nil {
		locals = globals
	}
	return globals, locals, nil
}
