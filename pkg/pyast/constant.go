package pyast

import (
	"math/big"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/runtime"
)

type constCodec struct{}

func (constCodec) toObject(c *converter, v ast.ConstantValue) runtime.Value {
	switch x := v.(type) {
	case nil, ast.ConstNone:
		return runtime.None
	case ast.ConstBool:
		return runtime.Bool(x)
	case ast.ConstStr:
		return runtime.Str(x)
	case ast.ConstBytes:
		return runtime.Bytes(append([]byte(nil), x...))
	case ast.ConstInt:
		if x.Value == nil {
			return runtime.NewInt(0)
		}
		return runtime.Int{V: new(big.Int).Set(x.Value)}
	case ast.ConstTuple:
		out := make(runtime.Tuple, len(x))
		for i, elt := range x {
			out[i] = constCodec{}.toObject(c, elt)
		}
		return out
	case ast.ConstFloat:
		return runtime.Float(x)
	case ast.ConstComplex:
		return runtime.Complex{Real: x.Real, Imag: x.Imag}
	case ast.ConstEllipsis:
		return runtime.Ellipsis
	}
	return runtime.None
}

// fromObject classifies by class in a fixed order. The bool test is an
// exact class check inside the int arm so that a plain 1 stays an Int.
func (constCodec) fromObject(c *converter, obj runtime.Value) (ast.ConstantValue, error) {
	if obj == nil {
		return ast.ConstNone{}, nil
	}
	cls := obj.Class()
	switch {
	case cls.IsSubclass(runtime.IntClass):
		i, ok := runtime.IntValue(obj)
		if !ok {
			return nil, &UnsupportedConstantError{TypeName: cls.Name}
		}
		if cls == runtime.BoolClass {
			return ast.ConstBool(i.Sign() != 0), nil
		}
		return ast.ConstInt{Value: new(big.Int).Set(i)}, nil
	case cls.IsSubclass(runtime.FloatClass):
		if f, ok := obj.(runtime.Float); ok {
			return ast.ConstFloat(f), nil
		}
	case cls.IsSubclass(runtime.ComplexClass):
		if z, ok := obj.(runtime.Complex); ok {
			return ast.ConstComplex{Real: z.Real, Imag: z.Imag}, nil
		}
	case cls.IsSubclass(runtime.StrClass):
		if s, ok := obj.(runtime.Str); ok {
			return ast.ConstStr(s), nil
		}
	case cls.IsSubclass(runtime.BytesClass):
		if b, ok := obj.(runtime.Bytes); ok {
			return ast.ConstBytes(append([]byte(nil), b...)), nil
		}
	case cls.IsSubclass(runtime.TupleClass):
		if t, ok := obj.(runtime.Tuple); ok {
			return constTupleFromObject(c, t)
		}
	case cls == runtime.NoneClass:
		return ast.ConstNone{}, nil
	case cls == runtime.EllipsisClass:
		return ast.ConstEllipsis{}, nil
	}
	return nil, &UnsupportedConstantError{TypeName: cls.Name}
}

func constTupleFromObject(c *converter, t runtime.Tuple) (ast.ConstantValue, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	out := make(ast.ConstTuple, len(t))
	for i, elt := range t {
		v, err := constCodec{}.fromObject(c, elt)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// convFlagCodec encodes a ConversionFlag as its byte ordinal.
type convFlagCodec struct{}

func (convFlagCodec) toObject(_ *converter, v ast.ConversionFlag) runtime.Value {
	return runtime.NewInt(int64(v))
}

func (convFlagCodec) fromObject(_ *converter, obj runtime.Value) (ast.ConversionFlag, error) {
	i, ok := runtime.IntValue(obj)
	if !ok {
		return 0, mismatch("int", obj)
	}
	if i.Sign() < 0 || !i.IsInt64() || i.Int64() > 0xff {
		return 0, &InvalidEnumOrdinalError{Enum: "ConversionFlag", Value: i.String()}
	}
	flag, ok := ast.ConversionFlagFromByte(byte(i.Int64()))
	if !ok {
		return 0, &InvalidEnumOrdinalError{Enum: "ConversionFlag", Value: i.String()}
	}
	return flag, nil
}

type variant interface {
	~int
	String() string
}

// variantCodec maps a field-less sum kind (Load, Add, Eq, ...) to an
// instance of the class named after the variant.
type variantCodec[E variant] struct {
	category ast.Category
	variants []E
}

func variantsOf[E variant](category ast.Category, variants []E) codec[E] {
	return variantCodec[E]{category: category, variants: variants}
}

func (v variantCodec[E]) toObject(c *converter, e E) runtime.Value {
	return c.ns.instantiate(e.String())
}

func (v variantCodec[E]) fromObject(c *converter, obj runtime.Value) (E, error) {
	if obj != nil {
		for cls := obj.Class(); cls != nil; cls = cls.Base {
			for _, e := range v.variants {
				if nsCls, ok := c.ns.Class(e.String()); ok && nsCls == cls {
					return e, nil
				}
			}
		}
	}
	return 0, mismatch("some sort of "+string(v.category), obj)
}
