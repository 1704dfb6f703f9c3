package runtime

import (
	"context"
	"math/big"
	"sync"
)

// Value is the shared behaviour for all runtime values: every value knows
// its class.
type Value interface {
	Class() *Class
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type Int struct {
	V *big.Int
}

func NewInt(v int64) Int { return Int{V: big.NewInt(v)} }

func (Int) Class() *Class { return IntClass }

// Int64 reports the value when it fits a machine int.
func (i Int) Int64() (int64, bool) {
	if i.V == nil {
		return 0, true
	}
	if !i.V.IsInt64() {
		return 0, false
	}
	return i.V.Int64(), true
}

// Big returns the value as a big.Int, treating a nil payload as zero.
func (i Int) Big() *big.Int {
	if i.V == nil {
		return new(big.Int)
	}
	return i.V
}

// Bool is a subclass of int at the class level.
type Bool bool

func (Bool) Class() *Class { return BoolClass }

// Big returns 0 or 1.
func (b Bool) Big() *big.Int {
	if b {
		return big.NewInt(1)
	}
	return new(big.Int)
}

var (
	True  Value = Bool(true)
	False Value = Bool(false)
)

type Float float64

func (Float) Class() *Class { return FloatClass }

type Complex struct {
	Real float64
	Imag float64
}

func (Complex) Class() *Class { return ComplexClass }

type Str string

func (Str) Class() *Class { return StrClass }

type Bytes []byte

func (Bytes) Class() *Class { return BytesClass }

type NoneType struct{}

func (NoneType) Class() *Class { return NoneClass }

// None is the null sentinel.
var None Value = NoneType{}

type EllipsisType struct{}

func (EllipsisType) Class() *Class { return EllipsisClass }

var Ellipsis Value = EllipsisType{}

//-----------------------------------------------------------------------------
// Sequences
//-----------------------------------------------------------------------------

// Tuple is an immutable ordered sequence.
type Tuple []Value

func (Tuple) Class() *Class { return TupleClass }

// List is a mutable ordered sequence shared by reference.
type List struct {
	mu    sync.RWMutex
	Elems []Value
}

func NewList(elems ...Value) *List {
	return &List{Elems: elems}
}

func (*List) Class() *Class { return ListClass }

// Snapshot copies the current elements.
func (l *List) Snapshot() []Value {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Value, len(l.Elems))
	copy(out, l.Elems)
	return out
}

func (l *List) Append(v Value) {
	l.mu.Lock()
	l.Elems = append(l.Elems, v)
	l.mu.Unlock()
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.Elems)
}

// Update replaces the elements with what fn returns, under the list lock.
// fn must not touch the list itself.
func (l *List) Update(fn func(elems []Value) ([]Value, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	elems, err := fn(l.Elems)
	if err != nil {
		return err
	}
	l.Elems = elems
	return nil
}

//-----------------------------------------------------------------------------
// Objects, modules, functions
//-----------------------------------------------------------------------------

// Object is an instance of a user or node class. Its attributes live in an
// exclusively owned Dict; attribute values are shared.
type Object struct {
	class *Class
	Dict  *Dict
}

func NewObject(cls *Class) *Object {
	return &Object{class: cls, Dict: NewDict()}
}

func (o *Object) Class() *Class { return o.class }

type Module struct {
	Name string
	Dict *Dict
}

func NewModule(name string) *Module {
	return &Module{Name: name, Dict: NewDict()}
}

func (*Module) Class() *Class { return ModuleClass }

// KeywordArg is one name=value argument of a call.
type KeywordArg struct {
	Name  string
	Value Value
}

type NativeFunc func(ctx context.Context, args []Value, kwargs []KeywordArg) (Value, error)

type NativeFunction struct {
	Name string
	Impl NativeFunc
}

func NewNativeFunction(name string, impl NativeFunc) *NativeFunction {
	return &NativeFunction{Name: name, Impl: impl}
}

func (*NativeFunction) Class() *Class { return BuiltinFunctionClass }

// Reprer lets values defined outside this package control their display.
type Reprer interface {
	Repr() string
}

// TypeName is the class name of v, as used in error messages.
func TypeName(v Value) string {
	if v == nil {
		return "NoneType"
	}
	return v.Class().Name
}

// IsInstance reports whether v's class is cls or derives from it.
func IsInstance(v Value, cls *Class) bool {
	if v == nil {
		return cls == NoneClass || cls == ObjectClass
	}
	return v.Class().IsSubclass(cls)
}
