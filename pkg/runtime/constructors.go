package runtime

import (
	"context"
	"math"
	"math/big"
	"strconv"
	"strings"
)

func init() {
	IntClass.New = newInt
	BoolClass.New = newBool
	FloatClass.New = newFloat
	StrClass.New = newStr
	TupleClass.New = newTuple
	ListClass.New = newList
	DictClass.New = newDict
	ObjectClass.New = newPlainObject
}

func noKeywords(cls *Class, kwargs []KeywordArg) error {
	if len(kwargs) > 0 {
		return NewException(TypeErrorClass, "%s() takes no keyword arguments", cls.Name)
	}
	return nil
}

func atMostOne(cls *Class, args []Value) error {
	if len(args) > 1 {
		return NewException(TypeErrorClass, "%s expected at most 1 argument, got %d", cls.Name, len(args))
	}
	return nil
}

func newPlainObject(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if cls != ObjectClass && cls.Module == "builtins" {
		return nil, NewException(TypeErrorClass, "cannot create '%s' instances", cls.Name)
	}
	if len(args) > 0 || len(kwargs) > 0 {
		return nil, NewException(TypeErrorClass, "%s() takes no arguments", cls.Name)
	}
	return NewObject(cls), nil
}

func newInt(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if err := noKeywords(cls, kwargs); err != nil {
		return nil, err
	}
	if err := atMostOne(cls, args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return NewInt(0), nil
	}
	switch x := args[0].(type) {
	case Int:
		return x, nil
	case Bool:
		return Int{V: x.Big()}, nil
	case Float:
		f := float64(x)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, NewException(OverflowErrorClass, "cannot convert float %s to integer", Repr(x))
		}
		i, _ := big.NewFloat(math.Trunc(f)).Int(nil)
		return Int{V: i}, nil
	case Str:
		text := strings.ReplaceAll(strings.TrimSpace(string(x)), "_", "")
		i, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, NewException(ValueErrorClass, "invalid literal for int() with base 10: %s", Repr(x))
		}
		return Int{V: i}, nil
	}
	return nil, NewException(TypeErrorClass, "int() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func newBool(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if err := noKeywords(cls, kwargs); err != nil {
		return nil, err
	}
	if err := atMostOne(cls, args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return False, nil
	}
	return Bool(Truthy(args[0])), nil
}

func newFloat(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if err := noKeywords(cls, kwargs); err != nil {
		return nil, err
	}
	if err := atMostOne(cls, args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Float(0), nil
	}
	switch x := args[0].(type) {
	case Float:
		return x, nil
	case Int, Bool:
		i, _ := IntValue(x)
		f, _ := new(big.Float).SetInt(i).Float64()
		return Float(f), nil
	case Str:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return nil, NewException(ValueErrorClass, "could not convert string to float: %s", Repr(x))
		}
		return Float(f), nil
	}
	return nil, NewException(TypeErrorClass, "float() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func newStr(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if err := noKeywords(cls, kwargs); err != nil {
		return nil, err
	}
	if err := atMostOne(cls, args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Str(""), nil
	}
	return Str(ToStr(args[0])), nil
}

func newTuple(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if err := noKeywords(cls, kwargs); err != nil {
		return nil, err
	}
	if err := atMostOne(cls, args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Tuple{}, nil
	}
	elems, err := Iterate(args[0])
	if err != nil {
		return nil, err
	}
	return Tuple(elems), nil
}

func newList(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if err := noKeywords(cls, kwargs); err != nil {
		return nil, err
	}
	if err := atMostOne(cls, args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return NewList(), nil
	}
	elems, err := Iterate(args[0])
	if err != nil {
		return nil, err
	}
	return NewList(elems...), nil
}

func newDict(_ context.Context, cls *Class, args []Value, kwargs []KeywordArg) (Value, error) {
	if err := atMostOne(cls, args); err != nil {
		return nil, err
	}
	var src Value
	if len(args) == 1 {
		src = args[0]
	}
	return DictFrom(src, kwargs)
}
