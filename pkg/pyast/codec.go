package pyast

import (
	"math"
	"math/big"

	"serpent/interpreter-go/pkg/runtime"
)

// DefaultMaxDepth bounds from-object recursion. It is
// DepthForParser(parser.DefaultMaxDepth), so any tree the default parser
// accepts converts back.
const DefaultMaxDepth = 3*1000 + 1

// DepthForParser returns the from-object limit that admits every tree a
// parser bounded at parserDepth produces. Every typed node is counted here,
// while the parser skips helper nodes; a counted level carries at most two
// of those (a FunctionDef's arguments and arg), and the module root adds one.
func DepthForParser(parserDepth int) int { return 3*parserDepth + 1 }

// converter carries the namespace and the depth counter through one
// conversion.
type converter struct {
	ns       *Namespace
	depth    int
	maxDepth int
}

func newConverter(ns *Namespace, maxDepth int) *converter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &converter{ns: ns, maxDepth: maxDepth}
}

func (c *converter) enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		c.depth--
		return ErrTreeTooDeep
	}
	return nil
}

func (c *converter) leave() { c.depth-- }

// codec converts one field shape in both directions. toObject never fails;
// fromObject validates.
type codec[T any] interface {
	toObject(c *converter, v T) runtime.Value
	fromObject(c *converter, obj runtime.Value) (T, error)
}

//-----------------------------------------------------------------------------
// Combinators
//-----------------------------------------------------------------------------

type seqCodec[T any] struct {
	elem codec[T]
}

func seqOf[T any](elem codec[T]) codec[[]T] { return seqCodec[T]{elem: elem} }

func (s seqCodec[T]) toObject(c *converter, vs []T) runtime.Value {
	out := make([]runtime.Value, len(vs))
	for i, v := range vs {
		out[i] = s.elem.toObject(c, v)
	}
	return runtime.NewList(out...)
}

func (s seqCodec[T]) fromObject(c *converter, obj runtime.Value) ([]T, error) {
	elems, err := runtime.Iterate(obj)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(elems))
	for _, elem := range elems {
		v, err := s.elem.fromObject(c, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// optionalCodec maps the zero value of T (a nil pointer or interface) to
// None.
type optionalCodec[T comparable] struct {
	inner codec[T]
}

func optional[T comparable](inner codec[T]) codec[T] { return optionalCodec[T]{inner: inner} }

func (o optionalCodec[T]) toObject(c *converter, v T) runtime.Value {
	var zero T
	if v == zero {
		return runtime.None
	}
	return o.inner.toObject(c, v)
}

func (o optionalCodec[T]) fromObject(c *converter, obj runtime.Value) (T, error) {
	if isNone(obj) {
		var zero T
		return zero, nil
	}
	return o.inner.fromObject(c, obj)
}

type boxedCodec[T any] struct {
	inner codec[T]
}

func boxed[T any](inner codec[T]) codec[*T] { return boxedCodec[T]{inner: inner} }

func (b boxedCodec[T]) toObject(c *converter, v *T) runtime.Value {
	if v == nil {
		var zero T
		return b.inner.toObject(c, zero)
	}
	return b.inner.toObject(c, *v)
}

func (b boxedCodec[T]) fromObject(c *converter, obj runtime.Value) (*T, error) {
	v, err := b.inner.fromObject(c, obj)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func isNone(v runtime.Value) bool {
	switch v.(type) {
	case nil, runtime.NoneType:
		return true
	}
	return false
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type strCodec struct{}

func (strCodec) toObject(_ *converter, v string) runtime.Value { return runtime.Str(v) }

func (strCodec) fromObject(_ *converter, obj runtime.Value) (string, error) {
	s, ok := obj.(runtime.Str)
	if !ok {
		return "", mismatch("str", obj)
	}
	return string(s), nil
}

type uintCodec struct{}

func (uintCodec) toObject(_ *converter, v uint) runtime.Value {
	return runtime.Int{V: new(big.Int).SetUint64(uint64(v))}
}

func (uintCodec) fromObject(_ *converter, obj runtime.Value) (uint, error) {
	i, ok := runtime.IntValue(obj)
	if !ok {
		return 0, mismatch("int", obj)
	}
	if i.Sign() < 0 || !i.IsUint64() || i.Uint64() > uint64(^uint(0)) {
		return 0, &OutOfRangeError{Value: i.String(), Target: "uint"}
	}
	return uint(i.Uint64()), nil
}

// boolCodec writes 0 or 1 and reads any nonzero int32 as true, whatever
// the object's declared boolean-ness.
type boolCodec struct{}

func (boolCodec) toObject(_ *converter, v bool) runtime.Value {
	if v {
		return runtime.NewInt(1)
	}
	return runtime.NewInt(0)
}

func (boolCodec) fromObject(_ *converter, obj runtime.Value) (bool, error) {
	i, ok := runtime.IntValue(obj)
	if !ok {
		return false, mismatch("int", obj)
	}
	if !i.IsInt64() || i.Int64() < math.MinInt32 || i.Int64() > math.MaxInt32 {
		return false, &OutOfRangeError{Value: i.String(), Target: "int32"}
	}
	return i.Sign() != 0, nil
}
