package runtime

import "context"

// Constructor builds an instance when a class is called.
type Constructor func(ctx context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error)

// Class is a runtime type. Node classes additionally carry their _fields
// and _attributes tuples.
type Class struct {
	Name   string
	Module string
	Base   *Class

	Fields     []string
	Attributes []string

	// HasDict marks instances as carrying a per-instance attribute Dict.
	HasDict    bool
	Unhashable bool

	Dict *Dict
	New  Constructor
}

// NewClass derives a class from base, inheriting its dict and hash flags.
func NewClass(name, module string, base *Class) *Class {
	cls := &Class{Name: name, Module: module, Base: base, Dict: NewDict()}
	if base != nil {
		cls.HasDict = base.HasDict
		cls.Unhashable = base.Unhashable
	}
	return cls
}

func (*Class) Class() *Class { return TypeClass }

// IsSubclass walks the base chain.
func (c *Class) IsSubclass(other *Class) bool {
	for cur := c; cur != nil; cur = cur.Base {
		if cur == other {
			return true
		}
	}
	return false
}

// Lookup resolves a class attribute along the base chain.
func (c *Class) Lookup(name string) (Value, bool, error) {
	for cur := c; cur != nil; cur = cur.Base {
		if cur.Dict == nil {
			continue
		}
		v, ok, err := cur.Dict.GetStr(name)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return nil, false, nil
}

func (c *Class) QualName() string {
	if c.Module == "" || c.Module == "builtins" {
		return c.Name
	}
	return c.Module + "." + c.Name
}

func builtin(name string, base *Class) *Class {
	return NewClass(name, "builtins", base)
}

// constructor finds the nearest New along the base chain.
func (c *Class) constructor() Constructor {
	for cur := c; cur != nil; cur = cur.Base {
		if cur.New != nil {
			return cur.New
		}
	}
	return nil
}

var (
	ObjectClass  = &Class{Name: "object", Module: "builtins", Dict: NewDict()}
	TypeClass    = builtin("type", ObjectClass)
	IntClass     = builtin("int", ObjectClass)
	BoolClass    = builtin("bool", IntClass)
	FloatClass   = builtin("float", ObjectClass)
	ComplexClass = builtin("complex", ObjectClass)
	StrClass     = builtin("str", ObjectClass)
	BytesClass   = builtin("bytes", ObjectClass)
	TupleClass   = builtin("tuple", ObjectClass)
	ListClass    = unhashable(builtin("list", ObjectClass))
	DictClass    = unhashable(builtin("dict", ObjectClass))
	NoneClass    = builtin("NoneType", ObjectClass)

	EllipsisClass        = builtin("ellipsis", ObjectClass)
	ModuleClass          = builtin("module", ObjectClass)
	FunctionClass        = builtin("function", ObjectClass)
	BuiltinFunctionClass = builtin("builtin_function_or_method", ObjectClass)
	CodeClass            = builtin("code", ObjectClass)

	BaseExceptionClass     = builtin("BaseException", ObjectClass)
	ExceptionClass         = builtin("Exception", BaseExceptionClass)
	TypeErrorClass         = builtin("TypeError", ExceptionClass)
	ValueErrorClass        = builtin("ValueError", ExceptionClass)
	AttributeErrorClass    = builtin("AttributeError", ExceptionClass)
	NameErrorClass         = builtin("NameError", ExceptionClass)
	LookupErrorClass       = builtin("LookupError", ExceptionClass)
	KeyErrorClass          = builtin("KeyError", LookupErrorClass)
	IndexErrorClass        = builtin("IndexError", LookupErrorClass)
	ArithmeticErrorClass   = builtin("ArithmeticError", ExceptionClass)
	ZeroDivisionErrorClass = builtin("ZeroDivisionError", ArithmeticErrorClass)
	OverflowErrorClass     = builtin("OverflowError", ArithmeticErrorClass)
	AssertionErrorClass    = builtin("AssertionError", ExceptionClass)
	RuntimeErrorClass      = builtin("RuntimeError", ExceptionClass)
	RecursionErrorClass    = builtin("RecursionError", RuntimeErrorClass)
	SyntaxErrorClass       = builtin("SyntaxError", ExceptionClass)
	ImportErrorClass       = builtin("ImportError", ExceptionClass)
)

func unhashable(c *Class) *Class {
	c.Unhashable = true
	return c
}

// BuiltinClasses lists the classes exposed as builtins by name.
func BuiltinClasses() []*Class {
	return []*Class{
		ObjectClass, TypeClass, IntClass, BoolClass, FloatClass, ComplexClass,
		StrClass, BytesClass, TupleClass, ListClass, DictClass,
		BaseExceptionClass, ExceptionClass, TypeErrorClass, ValueErrorClass,
		AttributeErrorClass, NameErrorClass, LookupErrorClass, KeyErrorClass,
		IndexErrorClass, ArithmeticErrorClass, ZeroDivisionErrorClass,
		OverflowErrorClass, AssertionErrorClass, RuntimeErrorClass,
		RecursionErrorClass, SyntaxErrorClass, ImportErrorClass,
	}
}

// Callable is implemented by values with their own call behaviour.
type Callable interface {
	Value
	Call(ctx context.Context, args []Value, kwargs []KeywordArg) (Value, error)
}

// Call invokes a native function, a callable value or a class constructor.
func Call(ctx context.Context, callee Value, args []Value, kwargs []KeywordArg) (Value, error) {
	switch fn := callee.(type) {
	case *NativeFunction:
		return fn.Impl(ctx, args, kwargs)
	case Callable:
		return fn.Call(ctx, args, kwargs)
	case *Class:
		ctor := fn.constructor()
		if ctor == nil {
			return nil, NewException(TypeErrorClass, "cannot create '%s' instances", fn.QualName())
		}
		return ctor(ctx, fn, args, kwargs)
	}
	return nil, NewException(TypeErrorClass, "'%s' object is not callable", TypeName(callee))
}
