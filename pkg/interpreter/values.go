package interpreter

import (
	"context"
	"fmt"
	"math/big"

	"serpent/interpreter-go/pkg/compiler"
	"serpent/interpreter-go/pkg/runtime"
)

var (
	RangeClass             = runtime.NewClass("range", "builtins", runtime.ObjectClass)
	SliceClass             = runtime.NewClass("slice", "builtins", runtime.ObjectClass)
	IteratorClass          = runtime.NewClass("iterator", "builtins", runtime.ObjectClass)
	MethodClass            = runtime.NewClass("builtin_method", "builtins", runtime.ObjectClass)
	UnboundLocalErrorClass = runtime.NewClass("UnboundLocalError", "builtins", runtime.NameErrorClass)
	StopIterationClass     = runtime.NewClass("StopIteration", "builtins", runtime.ExceptionClass)
)

func init() {
	RangeClass.New = newRange
}

//-----------------------------------------------------------------------------
// Functions and code
//-----------------------------------------------------------------------------

// Function is a user function: a code object closed over the globals it
// was defined in.
type Function struct {
	Name       string
	Code       *compiler.CodeObject
	Globals    *runtime.Dict
	Defaults   runtime.Tuple
	KwDefaults *runtime.Dict

	interp *Interpreter
}

func (*Function) Class() *runtime.Class { return runtime.FunctionClass }

func (f *Function) Repr() string {
	return fmt.Sprintf("<function %s>", f.Name)
}

func (f *Function) Call(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	fast, err := f.bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	return f.interp.runFrame(ctx, &frame{
		code:    f.Code,
		globals: f.Globals,
		fast:    fast,
	})
}

// Code wraps a compiled code object as a runtime value.
type Code struct {
	Object *compiler.CodeObject
}

func (*Code) Class() *runtime.Class { return runtime.CodeClass }

func (c *Code) Repr() string {
	return fmt.Sprintf("<code object %s, file %q>", c.Object.Name, c.Object.Filename)
}

// nativeMethod is a builtin method bound to its receiver.
type nativeMethod struct {
	name     string
	receiver runtime.Value
	impl     func(ctx context.Context, self runtime.Value, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error)
}

func (*nativeMethod) Class() *runtime.Class { return MethodClass }

func (m *nativeMethod) Repr() string {
	return fmt.Sprintf("<built-in method %s of %s object>", m.name, runtime.TypeName(m.receiver))
}

func (m *nativeMethod) Call(ctx context.Context, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	return m.impl(ctx, m.receiver, args, kwargs)
}

//-----------------------------------------------------------------------------
// Ranges and slices
//-----------------------------------------------------------------------------

type Range struct {
	Start, Stop, Step *big.Int
}

func (Range) Class() *runtime.Class { return RangeClass }

func (r Range) Repr() string {
	if r.Step.Cmp(big.NewInt(1)) == 0 {
		return fmt.Sprintf("range(%s, %s)", r.Start, r.Stop)
	}
	return fmt.Sprintf("range(%s, %s, %s)", r.Start, r.Stop, r.Step)
}

// Len is the number of values the range produces.
func (r Range) Len() *big.Int {
	span := new(big.Int).Sub(r.Stop, r.Start)
	if r.Step.Sign() < 0 {
		span.Neg(span)
	}
	if span.Sign() <= 0 {
		return new(big.Int)
	}
	step := new(big.Int).Abs(r.Step)
	span.Add(span, step).Sub(span, big.NewInt(1))
	return span.Quo(span, step)
}

func (r Range) At(i *big.Int) runtime.Value {
	v := new(big.Int).Mul(i, r.Step)
	return runtime.Int{V: v.Add(v, r.Start)}
}

func newRange(_ context.Context, cls *runtime.Class, args []runtime.Value, kwargs []runtime.KeywordArg) (runtime.Value, error) {
	if len(kwargs) > 0 {
		return nil, runtime.NewException(runtime.TypeErrorClass, "range() takes no keyword arguments")
	}
	bounds := make([]*big.Int, len(args))
	for i, a := range args {
		v, ok := runtime.IntValue(a)
		if !ok {
			return nil, runtime.NewException(runtime.TypeErrorClass,
				"'%s' object cannot be interpreted as an integer", runtime.TypeName(a))
		}
		bounds[i] = v
	}
	r := Range{Start: new(big.Int), Step: big.NewInt(1)}
	switch len(bounds) {
	case 1:
		r.Stop = bounds[0]
	case 2:
		r.Start, r.Stop = bounds[0], bounds[1]
	case 3:
		r.Start, r.Stop, r.Step = bounds[0], bounds[1], bounds[2]
		if r.Step.Sign() == 0 {
			return nil, runtime.NewException(runtime.ValueErrorClass, "range() arg 3 must not be zero")
		}
	default:
		return nil, runtime.NewException(runtime.TypeErrorClass,
			"range expected at least 1 argument, got %d", len(args))
	}
	return r, nil
}

// Slice is the value of a start:stop:step subscript. Absent bounds are
// None.
type Slice struct {
	Start, Stop, Step runtime.Value
}

func (*Slice) Class() *runtime.Class { return SliceClass }

func (s *Slice) Repr() string {
	return fmt.Sprintf("slice(%s, %s, %s)", runtime.Repr(s.Start), runtime.Repr(s.Stop), runtime.Repr(s.Step))
}

//-----------------------------------------------------------------------------
// Iteration
//-----------------------------------------------------------------------------

// iterator walks a snapshot of a sequence, or a range lazily.
type iterator struct {
	items []runtime.Value
	rng   *Range
	pos   *big.Int
	n     *big.Int
	index int
}

func (*iterator) Class() *runtime.Class { return IteratorClass }

func (it *iterator) next() (runtime.Value, bool) {
	if it.rng != nil {
		if it.pos.Cmp(it.n) >= 0 {
			return nil, false
		}
		v := it.rng.At(it.pos)
		it.pos = new(big.Int).Add(it.pos, big.NewInt(1))
		return v, true
	}
	if it.index >= len(it.items) {
		return nil, false
	}
	v := it.items[it.index]
	it.index++
	return v, true
}

func iterate(v runtime.Value) (*iterator, error) {
	switch x := v.(type) {
	case *iterator:
		return x, nil
	case Range:
		return &iterator{rng: &x, pos: new(big.Int), n: x.Len()}, nil
	}
	items, err := runtime.Iterate(v)
	if err != nil {
		return nil, err
	}
	return &iterator{items: items}, nil
}

// sequence materializes every value v produces.
func sequence(v runtime.Value) ([]runtime.Value, error) {
	return runtime.Iterate(v)
}

// Elements materializes the range.
func (r Range) Elements() ([]runtime.Value, error) {
	n := r.Len()
	if !n.IsInt64() || n.Int64() > maxMaterialize {
		return nil, runtime.NewException(runtime.OverflowErrorClass, "range too large to materialize")
	}
	out := make([]runtime.Value, 0, n.Int64())
	for i := int64(0); i < n.Int64(); i++ {
		out = append(out, r.At(big.NewInt(i)))
	}
	return out, nil
}

// Elements drains the iterator.
func (it *iterator) Elements() ([]runtime.Value, error) {
	var out []runtime.Value
	for {
		item, ok := it.next()
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

const maxMaterialize = 1 << 24
