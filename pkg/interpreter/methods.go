package interpreter

import (
	"context"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/runtime"
)

type methodFunc func(ctx context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error)

// methods holds the builtin methods of the value types, keyed by class.
var methods = map[*runtime.Class]map[string]methodFunc{}

func init() {
	methods[runtime.StrClass] = map[string]methodFunc{
		"join":       strJoin,
		"upper":      strMap(strings.ToUpper),
		"lower":      strMap(strings.ToLower),
		"strip":      strTrim(strings.Trim, strings.TrimSpace),
		"lstrip":     strTrim(strings.TrimLeft, func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }),
		"rstrip":     strTrim(strings.TrimRight, func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }),
		"split":      strSplit,
		"startswith": strAffix(strings.HasPrefix),
		"endswith":   strAffix(strings.HasSuffix),
		"replace":    strReplace,
		"find":       strFind,
		"count":      strCount,
		"isdigit":    strIs(unicode.IsDigit),
		"isalpha":    strIs(unicode.IsLetter),
		"isspace":    strIs(unicode.IsSpace),
		"format":     strFormat,
	}
	methods[runtime.ListClass] = map[string]methodFunc{
		"append":  listAppend,
		"extend":  listExtend,
		"pop":     listPop,
		"insert":  listInsert,
		"remove":  listRemove,
		"index":   seqIndexOf,
		"count":   seqCount,
		"clear":   listClear,
		"copy":    listCopy,
		"reverse": listReverse,
		"sort":    listSort,
	}
	methods[runtime.TupleClass] = map[string]methodFunc{
		"index": seqIndexOf,
		"count": seqCount,
	}
	methods[runtime.DictClass] = map[string]methodFunc{
		"get":        dictGet,
		"keys":       dictView(func(it runtime.Item) runtime.Value { return it.Key }),
		"values":     dictView(func(it runtime.Item) runtime.Value { return it.Value }),
		"items":      dictView(func(it runtime.Item) runtime.Value { return runtime.Tuple{it.Key, it.Value} }),
		"pop":        dictPop,
		"setdefault": dictSetDefault,
		"update":     dictUpdate,
		"clear":      dictClear,
		"copy":       dictCopy,
	}
}

// getAttr extends runtime.GetAttr with builtin methods and the read-only
// attributes of interpreter values.
func (i *Interpreter) getAttr(obj runtime.Value, name string) (runtime.Value, error) {
	v, err := runtime.GetAttr(obj, name)
	if err == nil || !isException(err, runtime.AttributeErrorClass) {
		return v, err
	}
	switch x := obj.(type) {
	case Range:
		switch name {
		case "start":
			return runtime.Int{V: x.Start}, nil
		case "stop":
			return runtime.Int{V: x.Stop}, nil
		case "step":
			return runtime.Int{V: x.Step}, nil
		}
	case *Slice:
		switch name {
		case "start":
			return x.Start, nil
		case "stop":
			return x.Stop, nil
		case "step":
			return x.Step, nil
		}
	case *Function:
		switch name {
		case "__name__":
			return runtime.Str(x.Name), nil
		case "__code__":
			return &Code{Object: x.Code}, nil
		case "__defaults__":
			if x.Defaults == nil {
				return runtime.None, nil
			}
			return x.Defaults, nil
		}
	case *Code:
		switch name {
		case "co_name":
			return runtime.Str(x.Object.Name), nil
		case "co_filename":
			return runtime.Str(x.Object.Filename), nil
		case "co_argcount":
			return runtime.NewInt(int64(x.Object.ArgCount)), nil
		case "co_varnames":
			return strTuple(x.Object.VarNames), nil
		case "co_names":
			return strTuple(x.Object.Names), nil
		}
	}
	for cls := obj.Class(); cls != nil; cls = cls.Base {
		if impl, ok := methods[cls][name]; ok {
			return &nativeMethod{name: name, receiver: obj, impl: impl}, nil
		}
	}
	return nil, err
}

func strTuple(names []string) runtime.Tuple {
	out := make(runtime.Tuple, len(names))
	for n, s := range names {
		out[n] = runtime.Str(s)
	}
	return out
}

// arity rejects keywords and argument counts outside [min, max].
func arity(name string, args []runtime.Value, kwargs []runtime.KeywordArg, min, max int) error {
	if len(kwargs) > 0 {
		return typeError("%s() takes no keyword arguments", name)
	}
	switch {
	case len(args) < min && min == max:
		return typeError("%s() takes exactly %d argument%s (%d given)", name, min, plural(min), len(args))
	case len(args) < min:
		return typeError("%s() takes at least %d argument%s (%d given)", name, min, plural(min), len(args))
	case len(args) > max:
		return typeError("%s() takes at most %d argument%s (%d given)", name, max, plural(max), len(args))
	}
	return nil
}

// keywords splits kwargs into the named options, rejecting others.
func keywords(name string, kwargs []runtime.KeywordArg, allowed ...string) (map[string]runtime.Value, error) {
	out := make(map[string]runtime.Value, len(kwargs))
	for _, kw := range kwargs {
		if !slices.Contains(allowed, kw.Name) {
			return nil, typeError("%s() got an unexpected keyword argument '%s'", name, kw.Name)
		}
		out[kw.Name] = kw.Value
	}
	return out, nil
}

func strArg(fn string, v runtime.Value) (string, error) {
	s, ok := v.(runtime.Str)
	if !ok {
		return "", typeError("%s() argument must be str, not %s", fn, runtime.TypeName(v))
	}
	return string(s), nil
}

func intArg(fn string, v runtime.Value) (int, error) {
	n, ok := runtime.IntValue(v)
	if !ok {
		return 0, typeError("'%s' object cannot be interpreted as an integer", runtime.TypeName(v))
	}
	if !n.IsInt64() || n.Int64() > maxSliceBound || n.Int64() < -maxSliceBound {
		return 0, overflow("Python int too large to convert to C ssize_t")
	}
	return int(n.Int64()), nil
}

//-----------------------------------------------------------------------------
// str
//-----------------------------------------------------------------------------

func strJoin(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("join", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	items, err := sequence(args[0])
	if err != nil {
		return nil, typeError("can only join an iterable")
	}
	parts := make([]string, len(items))
	for n, item := range items {
		s, ok := item.(runtime.Str)
		if !ok {
			return nil, typeError("sequence item %d: expected str instance, %s found", n, runtime.TypeName(item))
		}
		parts[n] = string(s)
	}
	return runtime.Str(strings.Join(parts, string(self.(runtime.Str)))), nil
}

func strMap(fn func(string) string) methodFunc {
	return func(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		if err := arity("str method", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		return runtime.Str(fn(string(self.(runtime.Str)))), nil
	}
}

func strTrim(withChars func(string, string) string, spaces func(string) string) methodFunc {
	return func(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		if err := arity("strip", args, kwargs, 0, 1); err != nil {
			return nil, err
		}
		s := string(self.(runtime.Str))
		if len(args) == 0 || args[0] == runtime.None {
			return runtime.Str(spaces(s)), nil
		}
		chars, err := strArg("strip", args[0])
		if err != nil {
			return nil, err
		}
		return runtime.Str(withChars(s, chars)), nil
	}
}

func strSplit(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	opts, err := keywords("split", kwargs, "sep", "maxsplit")
	if err != nil {
		return nil, err
	}
	if err := arity("split", args, nil, 0, 2); err != nil {
		return nil, err
	}
	sepVal, maxVal := opts["sep"], opts["maxsplit"]
	if len(args) > 0 {
		sepVal = args[0]
	}
	if len(args) > 1 {
		maxVal = args[1]
	}
	maxsplit := -1
	if maxVal != nil {
		if maxsplit, err = intArg("split", maxVal); err != nil {
			return nil, err
		}
	}
	s := string(self.(runtime.Str))
	var parts []string
	if sepVal == nil || sepVal == runtime.None {
		parts = splitSpace(s, maxsplit)
	} else {
		sep, err := strArg("split", sepVal)
		if err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, valueError("empty separator")
		}
		n := -1
		if maxsplit >= 0 {
			n = maxsplit + 1
		}
		parts = strings.SplitN(s, sep, n)
	}
	out := make([]runtime.Value, len(parts))
	for n, p := range parts {
		out[n] = runtime.Str(p)
	}
	return runtime.NewList(out...), nil
}

// splitSpace splits on runs of whitespace; the remainder after maxsplit
// splits keeps its inner whitespace.
func splitSpace(s string, maxsplit int) []string {
	var parts []string
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return parts
		}
		if maxsplit >= 0 && len(parts) == maxsplit {
			return append(parts, strings.TrimRightFunc(s, unicode.IsSpace))
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:end])
		s = s[end:]
	}
}

func strAffix(test func(string, string) bool) methodFunc {
	return func(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		if err := arity("startswith", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		s := string(self.(runtime.Str))
		candidates := []runtime.Value{args[0]}
		if t, ok := args[0].(runtime.Tuple); ok {
			candidates = t
		}
		for _, c := range candidates {
			affix, ok := c.(runtime.Str)
			if !ok {
				return nil, typeError("startswith first arg must be str or a tuple of str, not %s", runtime.TypeName(c))
			}
			if test(s, string(affix)) {
				return runtime.True, nil
			}
		}
		return runtime.False, nil
	}
}

func strReplace(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("replace", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	old, err := strArg("replace", args[0])
	if err != nil {
		return nil, err
	}
	repl, err := strArg("replace", args[1])
	if err != nil {
		return nil, err
	}
	count := -1
	if len(args) == 3 {
		if count, err = intArg("replace", args[2]); err != nil {
			return nil, err
		}
	}
	return runtime.Str(strings.Replace(string(self.(runtime.Str)), old, repl, count)), nil
}

func strFind(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("find", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	sub, err := strArg("find", args[0])
	if err != nil {
		return nil, err
	}
	s := string(self.(runtime.Str))
	at := strings.Index(s, sub)
	if at < 0 {
		return runtime.NewInt(-1), nil
	}
	return runtime.NewInt(int64(utf8.RuneCountInString(s[:at]))), nil
}

func strCount(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("count", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	sub, err := strArg("count", args[0])
	if err != nil {
		return nil, err
	}
	s := string(self.(runtime.Str))
	if sub == "" {
		return runtime.NewInt(int64(utf8.RuneCountInString(s) + 1)), nil
	}
	return runtime.NewInt(int64(strings.Count(s, sub))), nil
}

func strIs(class func(rune) bool) methodFunc {
	return func(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		if err := arity("str method", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		s := string(self.(runtime.Str))
		if s == "" {
			return runtime.False, nil
		}
		for _, r := range s {
			if !class(r) {
				return runtime.False, nil
			}
		}
		return runtime.True, nil
	}
}

//-----------------------------------------------------------------------------
// list and tuple
//-----------------------------------------------------------------------------

func listAppend(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("append", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	self.(*runtime.List).Append(args[0])
	return runtime.None, nil
}

func listExtend(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("extend", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	items, err := sequence(args[0])
	if err != nil {
		return nil, err
	}
	return runtime.None, self.(*runtime.List).Update(func(elems []runtime.Value) ([]runtime.Value, error) {
		return append(elems, items...), nil
	})
}

func listPop(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("pop", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	var popped runtime.Value
	err := self.(*runtime.List).Update(func(elems []runtime.Value) ([]runtime.Value, error) {
		if len(elems) == 0 {
			return nil, indexError("pop from empty list")
		}
		at := len(elems) - 1
		if len(args) == 1 {
			var err error
			if at, err = seqIndex(args[0], len(elems), "list", "pop index out of range"); err != nil {
				return nil, err
			}
		}
		popped = elems[at]
		return append(elems[:at:at], elems[at+1:]...), nil
	})
	return popped, err
}

func listInsert(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("insert", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	at, err := intArg("insert", args[0])
	if err != nil {
		return nil, err
	}
	return runtime.None, self.(*runtime.List).Update(func(elems []runtime.Value) ([]runtime.Value, error) {
		if at < 0 {
			at = max(at+len(elems), 0)
		}
		at = min(at, len(elems))
		return slices.Insert(elems, at, args[1]), nil
	})
}

func listRemove(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("remove", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	return runtime.None, self.(*runtime.List).Update(func(elems []runtime.Value) ([]runtime.Value, error) {
		for n, v := range elems {
			if identical(v, args[0]) || equal(v, args[0]) {
				return append(elems[:n:n], elems[n+1:]...), nil
			}
		}
		return nil, valueError("list.remove(x): x not in list")
	})
}

func seqIndexOf(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("index", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	items, err := sequence(self)
	if err != nil {
		return nil, err
	}
	for n, v := range items {
		if identical(v, args[0]) || equal(v, args[0]) {
			return runtime.NewInt(int64(n)), nil
		}
	}
	if _, ok := self.(runtime.Tuple); ok {
		return nil, valueError("tuple.index(x): x not in tuple")
	}
	return nil, valueError("%s is not in list", runtime.Repr(args[0]))
}

func seqCount(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("count", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	items, err := sequence(self)
	if err != nil {
		return nil, err
	}
	count := 0
	for _, v := range items {
		if identical(v, args[0]) || equal(v, args[0]) {
			count++
		}
	}
	return runtime.NewInt(int64(count)), nil
}

func listClear(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("clear", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	return runtime.None, self.(*runtime.List).Update(func([]runtime.Value) ([]runtime.Value, error) {
		return nil, nil
	})
}

func listCopy(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("copy", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	return runtime.NewList(self.(*runtime.List).Snapshot()...), nil
}

func listReverse(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("reverse", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	return runtime.None, self.(*runtime.List).Update(func(elems []runtime.Value) ([]runtime.Value, error) {
		slices.Reverse(elems)
		return elems, nil
	})
}

func listSort(ctx context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	opts, err := keywords("sort", kwargs, "key", "reverse")
	if err != nil {
		return nil, err
	}
	if err := arity("sort", args, nil, 0, 0); err != nil {
		return nil, err
	}
	list := self.(*runtime.List)
	sorted, err := sortValues(ctx, list.Snapshot(), opts["key"], opts["reverse"] != nil && truthy(opts["reverse"]))
	if err != nil {
		return nil, err
	}
	return runtime.None, list.Update(func([]runtime.Value) ([]runtime.Value, error) {
		return sorted, nil
	})
}

// sortValues is a stable sort by key, or by the values themselves when key
// is nil or None.
func sortValues(ctx context.Context, items []runtime.Value, key runtime.Value, reverse bool) ([]runtime.Value, error) {
	keys := items
	if key != nil && key != runtime.None {
		keys = make([]runtime.Value, len(items))
		for n, item := range items {
			k, err := runtime.Call(ctx, key, []runtime.Value{item}, nil)
			if err != nil {
				return nil, err
			}
			keys[n] = k
		}
	}
	perm := make([]int, len(items))
	for n := range perm {
		perm[n] = n
	}
	var failed error
	less := func(a, b runtime.Value) bool {
		if failed != nil {
			return false
		}
		lt, err := order(ast.Lt, a, b)
		if err != nil {
			failed = err
		}
		return lt
	}
	slices.SortStableFunc(perm, func(x, y int) int {
		a, b := keys[x], keys[y]
		if reverse {
			a, b = b, a
		}
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
	if failed != nil {
		return nil, failed
	}
	out := make([]runtime.Value, len(items))
	for n, p := range perm {
		out[n] = items[p]
	}
	return out, nil
}

//-----------------------------------------------------------------------------
// dict
//-----------------------------------------------------------------------------

func dictGet(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("get", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	v, ok, err := self.(*runtime.Dict).Get(args[0])
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return runtime.None, nil
}

// dictView snapshots keys, values or items into a list.
func dictView(pick func(runtime.Item) runtime.Value) methodFunc {
	return func(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
		if err := arity("view", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		items, err := self.(*runtime.Dict).Items()
		if err != nil {
			return nil, err
		}
		out := make([]runtime.Value, len(items))
		for n, it := range items {
			out[n] = pick(it)
		}
		return runtime.NewList(out...), nil
	}
}

func dictPop(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("pop", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	d := self.(*runtime.Dict)
	v, ok, err := d.Get(args[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, keyError(args[0])
	}
	if _, err := d.Delete(args[0]); err != nil {
		return nil, err
	}
	return v, nil
}

func dictSetDefault(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("setdefault", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	d := self.(*runtime.Dict)
	v, ok, err := d.Get(args[0])
	if err != nil || ok {
		return v, err
	}
	dflt := runtime.None
	if len(args) == 2 {
		dflt = args[1]
	}
	return dflt, d.Set(args[0], dflt)
}

func dictUpdate(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("update", args, nil, 0, 1); err != nil {
		return nil, err
	}
	var src runtime.Value = runtime.NewDict()
	if len(args) == 1 {
		src = args[0]
	}
	other, err := runtime.DictFrom(src, kwargs)
	if err != nil {
		return nil, err
	}
	items, err := other.Items()
	if err != nil {
		return nil, err
	}
	d := self.(*runtime.Dict)
	for _, it := range items {
		if err := d.Set(it.Key, it.Value); err != nil {
			return nil, err
		}
	}
	return runtime.None, nil
}

func dictClear(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("clear", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	return runtime.None, self.(*runtime.Dict).Clear()
}

func dictCopy(_ context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if err := arity("copy", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	return mergeDicts(self.(*runtime.Dict), runtime.NewDict())
}
