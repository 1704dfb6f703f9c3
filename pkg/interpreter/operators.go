package interpreter

import (
	"bytes"
	"math"
	"math/big"
	"math/cmplx"
	"strings"
	"unicode/utf8"

	"serpent/interpreter-go/pkg/ast"
	"serpent/interpreter-go/pkg/runtime"
)

// Limits on results that would otherwise exhaust memory.
const (
	maxShift    = 1 << 24
	maxPowBits  = 1 << 24
	maxRepeated = maxMaterialize
)

//-----------------------------------------------------------------------------
// Binary operators
//-----------------------------------------------------------------------------

func binaryOp(op ast.Operator, a, b runtime.Value) (runtime.Value, error) {
	if isNumeric(a) && isNumeric(b) {
		return numericBinary(op, a, b)
	}
	switch op {
	case ast.Add:
		return concat(a, b)
	case ast.Mult:
		if n, ok := runtime.IntValue(b); ok && isSequence(a) {
			return repeat(a, n)
		}
		if n, ok := runtime.IntValue(a); ok && isSequence(b) {
			return repeat(b, n)
		}
		if isSequence(a) && isNumeric(b) {
			return nil, typeError("can't multiply sequence by non-int of type '%s'", runtime.TypeName(b))
		}
	case ast.BitOr:
		x, okA := a.(*runtime.Dict)
		y, okB := b.(*runtime.Dict)
		if okA && okB {
			return mergeDicts(x, y)
		}
	}
	return nil, unsupportedOperands(op, a, b)
}

func unsupportedOperands(op ast.Operator, a, b runtime.Value) error {
	return typeError("unsupported operand type(s) for %s: '%s' and '%s'",
		op.Symbol(), runtime.TypeName(a), runtime.TypeName(b))
}

func isNumeric(v runtime.Value) bool {
	switch v.(type) {
	case runtime.Int, runtime.Bool, runtime.Float, runtime.Complex:
		return true
	}
	return false
}

func isSequence(v runtime.Value) bool {
	switch v.(type) {
	case runtime.Str, runtime.Bytes, runtime.Tuple, *runtime.List:
		return true
	}
	return false
}

func numericBinary(op ast.Operator, a, b runtime.Value) (runtime.Value, error) {
	x, xInt := runtime.IntValue(a)
	y, yInt := runtime.IntValue(b)
	if xInt && yInt {
		_, xBool := a.(runtime.Bool)
		_, yBool := b.(runtime.Bool)
		return intBinary(op, x, y, xBool && yBool)
	}
	_, xComplex := a.(runtime.Complex)
	_, yComplex := b.(runtime.Complex)
	if xComplex || yComplex {
		cx, err := toComplex(a)
		if err != nil {
			return nil, err
		}
		cy, err := toComplex(b)
		if err != nil {
			return nil, err
		}
		return complexBinary(op, cx, cy, a, b)
	}
	fx, err := toFloat(a)
	if err != nil {
		return nil, err
	}
	fy, err := toFloat(b)
	if err != nil {
		return nil, err
	}
	return floatBinary(op, fx, fy, a, b)
}

// toFloat converts a number to float64, failing on ints too large for a
// float.
func toFloat(v runtime.Value) (float64, error) {
	switch x := v.(type) {
	case runtime.Float:
		return float64(x), nil
	case runtime.Complex:
		return 0, typeError("must be real number, not complex")
	}
	n, ok := runtime.IntValue(v)
	if !ok {
		return 0, typeError("must be real number, not %s", runtime.TypeName(v))
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	if math.IsInf(f, 0) {
		return 0, runtime.NewException(runtime.OverflowErrorClass, "int too large to convert to float")
	}
	return f, nil
}

func toComplex(v runtime.Value) (complex128, error) {
	if c, ok := v.(runtime.Complex); ok {
		return complex(c.Real, c.Imag), nil
	}
	f, err := toFloat(v)
	return complex(f, 0), err
}

func zeroDivision(msg string) error {
	return runtime.NewException(runtime.ZeroDivisionErrorClass, msg)
}

func overflow(msg string) error {
	return runtime.NewException(runtime.OverflowErrorClass, msg)
}

// floorQuoRem returns the quotient rounded toward negative infinity and the
// remainder with the sign of y.
func floorQuoRem(x, y *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, y)
	}
	return q, r
}

func intBinary(op ast.Operator, x, y *big.Int, bothBool bool) (runtime.Value, error) {
	z := new(big.Int)
	switch op {
	case ast.Add:
		z.Add(x, y)
	case ast.Sub:
		z.Sub(x, y)
	case ast.Mult:
		z.Mul(x, y)
	case ast.Div:
		if y.Sign() == 0 {
			return nil, zeroDivision("division by zero")
		}
		f, _ := new(big.Rat).SetFrac(x, y).Float64()
		if math.IsInf(f, 0) {
			return nil, overflow("integer division result too large for a float")
		}
		return runtime.Float(f), nil
	case ast.FloorDiv:
		if y.Sign() == 0 {
			return nil, zeroDivision("integer division or modulo by zero")
		}
		q, _ := floorQuoRem(x, y)
		return runtime.Int{V: q}, nil
	case ast.Modulo:
		if y.Sign() == 0 {
			return nil, zeroDivision("integer modulo by zero")
		}
		_, r := floorQuoRem(x, y)
		return runtime.Int{V: r}, nil
	case ast.Pow:
		if y.Sign() < 0 {
			fx, err := toFloat(runtime.Int{V: x})
			if err != nil {
				return nil, err
			}
			fy, err := toFloat(runtime.Int{V: y})
			if err != nil {
				return nil, err
			}
			return floatBinary(op, fx, fy, runtime.Int{V: x}, runtime.Int{V: y})
		}
		if x.CmpAbs(big.NewInt(1)) > 0 && (!y.IsInt64() || y.Int64() > maxPowBits || y.Int64()*int64(x.BitLen()) > maxPowBits) {
			return nil, overflow("exponent too large")
		}
		z.Exp(x, y, nil)
	case ast.LShift, ast.RShift:
		if y.Sign() < 0 {
			return nil, valueError("negative shift count")
		}
		if op == ast.RShift {
			if !y.IsInt64() || y.Int64() > int64(x.BitLen()) {
				if x.Sign() < 0 {
					return runtime.NewInt(-1), nil
				}
				return runtime.NewInt(0), nil
			}
			z.Rsh(x, uint(y.Int64()))
			break
		}
		if x.Sign() == 0 {
			return runtime.NewInt(0), nil
		}
		if !y.IsInt64() || y.Int64() > maxShift {
			return nil, overflow("too many digits in integer")
		}
		z.Lsh(x, uint(y.Int64()))
	case ast.BitAnd, ast.BitOr, ast.BitXor:
		switch op {
		case ast.BitAnd:
			z.And(x, y)
		case ast.BitOr:
			z.Or(x, y)
		default:
			z.Xor(x, y)
		}
		if bothBool {
			return runtime.Bool(z.Sign() != 0), nil
		}
	default:
		return nil, unsupportedOperands(op, runtime.Int{V: x}, runtime.Int{V: y})
	}
	return runtime.Int{V: z}, nil
}

func floatBinary(op ast.Operator, x, y float64, a, b runtime.Value) (runtime.Value, error) {
	switch op {
	case ast.Add:
		return runtime.Float(x + y), nil
	case ast.Sub:
		return runtime.Float(x - y), nil
	case ast.Mult:
		return runtime.Float(x * y), nil
	case ast.Div:
		if y == 0 {
			return nil, zeroDivision("float division by zero")
		}
		return runtime.Float(x / y), nil
	case ast.FloorDiv:
		if y == 0 {
			return nil, zeroDivision("float floor division by zero")
		}
		return runtime.Float(math.Floor(x / y)), nil
	case ast.Modulo:
		if y == 0 {
			return nil, zeroDivision("float modulo")
		}
		return runtime.Float(floatMod(x, y)), nil
	case ast.Pow:
		if x == 0 && y < 0 {
			return nil, zeroDivision("0.0 cannot be raised to a negative power")
		}
		if x < 0 && y != math.Trunc(y) {
			return complexBinary(op, complex(x, 0), complex(y, 0), a, b)
		}
		return runtime.Float(math.Pow(x, y)), nil
	}
	return nil, unsupportedOperands(op, a, b)
}

// floatMod is x % y with the sign of y.
func floatMod(x, y float64) float64 {
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	if m == 0 {
		m = math.Copysign(0, y)
	}
	return m
}

func complexBinary(op ast.Operator, x, y complex128, a, b runtime.Value) (runtime.Value, error) {
	var z complex128
	switch op {
	case ast.Add:
		z = x + y
	case ast.Sub:
		z = x - y
	case ast.Mult:
		z = x * y
	case ast.Div:
		if y == 0 {
			return nil, zeroDivision("complex division by zero")
		}
		z = x / y
	case ast.Pow:
		if x == 0 && (imag(y) != 0 || real(y) < 0) {
			return nil, zeroDivision("0.0 to a negative or complex power")
		}
		z = cmplx.Pow(x, y)
	default:
		return nil, unsupportedOperands(op, a, b)
	}
	return runtime.Complex{Real: real(z), Imag: imag(z)}, nil
}

func concat(a, b runtime.Value) (runtime.Value, error) {
	switch x := a.(type) {
	case runtime.Str:
		if y, ok := b.(runtime.Str); ok {
			return x + y, nil
		}
		return nil, typeError(`can only concatenate str (not "%s") to str`, runtime.TypeName(b))
	case runtime.Bytes:
		if y, ok := b.(runtime.Bytes); ok {
			out := make(runtime.Bytes, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}
		return nil, typeError("can't concat %s to bytes", runtime.TypeName(b))
	case runtime.Tuple:
		if y, ok := b.(runtime.Tuple); ok {
			out := make(runtime.Tuple, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}
		return nil, typeError(`can only concatenate tuple (not "%s") to tuple`, runtime.TypeName(b))
	case *runtime.List:
		if y, ok := b.(*runtime.List); ok {
			return runtime.NewList(append(x.Snapshot(), y.Snapshot()...)...), nil
		}
		return nil, typeError(`can only concatenate list (not "%s") to list`, runtime.TypeName(b))
	}
	return nil, unsupportedOperands(ast.Add, a, b)
}

func repeat(seq runtime.Value, count *big.Int) (runtime.Value, error) {
	n := 0
	if count.Sign() > 0 {
		size, err := length(seq)
		if err != nil {
			return nil, err
		}
		if !count.IsInt64() || (size > 0 && count.Int64() > int64(maxRepeated/size)) {
			return nil, overflow("repeated sequence is too long")
		}
		n = int(count.Int64())
	}
	switch x := seq.(type) {
	case runtime.Str:
		return runtime.Str(strings.Repeat(string(x), n)), nil
	case runtime.Bytes:
		return runtime.Bytes(bytes.Repeat(x, n)), nil
	case runtime.Tuple:
		out := make(runtime.Tuple, 0, len(x)*n)
		for k := 0; k < n; k++ {
			out = append(out, x...)
		}
		return out, nil
	case *runtime.List:
		elems := x.Snapshot()
		out := make([]runtime.Value, 0, len(elems)*n)
		for k := 0; k < n; k++ {
			out = append(out, elems...)
		}
		return runtime.NewList(out...), nil
	}
	return nil, typeError("can't multiply sequence by non-int of type '%s'", runtime.TypeName(seq))
}

func mergeDicts(x, y *runtime.Dict) (runtime.Value, error) {
	out := runtime.NewDict()
	for _, d := range []*runtime.Dict{x, y} {
		items, err := d.Items()
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if err := out.Set(it.Key, it.Value); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

//-----------------------------------------------------------------------------
// Unary operators
//-----------------------------------------------------------------------------

var unarySymbols = map[ast.UnaryOperator]string{
	ast.Invert: "~",
	ast.Not:    "not",
	ast.UAdd:   "+",
	ast.USub:   "-",
}

func unaryOp(op ast.UnaryOperator, v runtime.Value) (runtime.Value, error) {
	if op == ast.Not {
		return runtime.Bool(!truthy(v)), nil
	}
	if n, ok := runtime.IntValue(v); ok {
		switch op {
		case ast.UAdd:
			return runtime.Int{V: n}, nil
		case ast.USub:
			return runtime.Int{V: new(big.Int).Neg(n)}, nil
		case ast.Invert:
			z := new(big.Int).Add(n, big.NewInt(1))
			return runtime.Int{V: z.Neg(z)}, nil
		}
	}
	switch x := v.(type) {
	case runtime.Float:
		switch op {
		case ast.UAdd:
			return x, nil
		case ast.USub:
			return -x, nil
		}
	case runtime.Complex:
		switch op {
		case ast.UAdd:
			return x, nil
		case ast.USub:
			return runtime.Complex{Real: -x.Real, Imag: -x.Imag}, nil
		}
	}
	return nil, typeError("bad operand type for unary %s: '%s'", unarySymbols[op], runtime.TypeName(v))
}

//-----------------------------------------------------------------------------
// Comparisons
//-----------------------------------------------------------------------------

func compareOp(op ast.CmpOperator, a, b runtime.Value) (runtime.Value, error) {
	switch op {
	case ast.Eq:
		return runtime.Bool(equal(a, b)), nil
	case ast.NotEq:
		return runtime.Bool(!equal(a, b)), nil
	case ast.Is:
		return runtime.Bool(identical(a, b)), nil
	case ast.IsNot:
		return runtime.Bool(!identical(a, b)), nil
	case ast.In, ast.NotIn:
		found, err := contains(b, a)
		if err != nil {
			return nil, err
		}
		return runtime.Bool(found == (op == ast.In)), nil
	}
	ok, err := order(op, a, b)
	if err != nil {
		return nil, err
	}
	return runtime.Bool(ok), nil
}

func equal(a, b runtime.Value) bool {
	if x, ok := a.(Range); ok {
		y, ok := b.(Range)
		if !ok {
			return false
		}
		n := x.Len()
		if n.Cmp(y.Len()) != 0 {
			return false
		}
		if n.Sign() == 0 {
			return true
		}
		return x.Start.Cmp(y.Start) == 0 && (n.Cmp(big.NewInt(1)) == 0 || x.Step.Cmp(y.Step) == 0)
	}
	return runtime.Equal(a, b)
}

// identical implements "is".
func identical(a, b runtime.Value) bool {
	switch x := a.(type) {
	case runtime.Int:
		y, ok := b.(runtime.Int)
		return ok && x.V == y.V
	case runtime.Float:
		y, ok := b.(runtime.Float)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case runtime.Str:
		y, ok := b.(runtime.Str)
		return ok && x == y
	case runtime.Bytes:
		y, ok := b.(runtime.Bytes)
		return ok && len(x) == len(y) && (len(x) == 0 || &x[0] == &y[0])
	case runtime.Tuple:
		y, ok := b.(runtime.Tuple)
		return ok && len(x) == len(y) && (len(x) == 0 || &x[0] == &y[0])
	}
	switch b.(type) {
	case runtime.Int, runtime.Float, runtime.Str, runtime.Bytes, runtime.Tuple:
		return false
	}
	return a == b
}

var cmpSymbols = map[ast.CmpOperator]string{
	ast.Lt:  "<",
	ast.LtE: "<=",
	ast.Gt:  ">",
	ast.GtE: ">=",
}

// order evaluates <, <=, > and >=.
func order(op ast.CmpOperator, a, b runtime.Value) (bool, error) {
	c, ok, err := threeWay(a, b)
	if err != nil {
		return false, err
	}
	if !ok {
		if isNumeric(a) && isNumeric(b) {
			if _, isC := a.(runtime.Complex); !isC {
				if _, isC := b.(runtime.Complex); !isC {
					// NaN orders false against everything.
					return false, nil
				}
			}
		}
		if seqA, seqB, ok := sameKindSequences(a, b); ok {
			return orderSequences(op, seqA, seqB)
		}
		return false, typeError("'%s' not supported between instances of '%s' and '%s'",
			cmpSymbols[op], runtime.TypeName(a), runtime.TypeName(b))
	}
	switch op {
	case ast.Lt:
		return c < 0, nil
	case ast.LtE:
		return c <= 0, nil
	case ast.Gt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// threeWay compares scalars with a total order. ok is false when the pair
// has none.
func threeWay(a, b runtime.Value) (c int, ok bool, err error) {
	if ra, okA := realValue(a); okA {
		if rb, okB := realValue(b); okB {
			return ra.Cmp(rb), true, nil
		}
		return 0, false, nil
	}
	switch x := a.(type) {
	case runtime.Str:
		if y, ok := b.(runtime.Str); ok {
			return strings.Compare(string(x), string(y)), true, nil
		}
	case runtime.Bytes:
		if y, ok := b.(runtime.Bytes); ok {
			return bytes.Compare(x, y), true, nil
		}
	}
	return 0, false, nil
}

func realValue(v runtime.Value) (*big.Float, bool) {
	switch x := v.(type) {
	case runtime.Float:
		if math.IsNaN(float64(x)) {
			return nil, false
		}
		return big.NewFloat(float64(x)), true
	}
	if n, ok := runtime.IntValue(v); ok {
		return new(big.Float).SetInt(n), true
	}
	return nil, false
}

func sameKindSequences(a, b runtime.Value) ([]runtime.Value, []runtime.Value, bool) {
	switch x := a.(type) {
	case runtime.Tuple:
		if y, ok := b.(runtime.Tuple); ok {
			return x, y, true
		}
	case *runtime.List:
		if y, ok := b.(*runtime.List); ok {
			return x.Snapshot(), y.Snapshot(), true
		}
	}
	return nil, nil, false
}

// orderSequences compares lexicographically: the first unequal pair
// decides, otherwise the lengths do.
func orderSequences(op ast.CmpOperator, x, y []runtime.Value) (bool, error) {
	for n := 0; n < len(x) && n < len(y); n++ {
		if !identical(x[n], y[n]) && !equal(x[n], y[n]) {
			return order(op, x[n], y[n])
		}
	}
	return order(op, runtime.NewInt(int64(len(x))), runtime.NewInt(int64(len(y))))
}

func contains(container, item runtime.Value) (bool, error) {
	switch c := container.(type) {
	case runtime.Str:
		s, ok := item.(runtime.Str)
		if !ok {
			return false, typeError("'in <string>' requires string as left operand, not %s", runtime.TypeName(item))
		}
		return strings.Contains(string(c), string(s)), nil
	case runtime.Bytes:
		switch x := item.(type) {
		case runtime.Bytes:
			return bytes.Contains(c, x), nil
		case runtime.Int, runtime.Bool:
			n, _ := runtime.IntValue(x)
			if !n.IsInt64() || n.Int64() < 0 || n.Int64() > 255 {
				return false, valueError("byte must be in range(0, 256)")
			}
			return bytes.IndexByte(c, byte(n.Int64())) >= 0, nil
		}
		return false, typeError("a bytes-like object is required, not '%s'", runtime.TypeName(item))
	case *runtime.Dict:
		return c.Contains(item)
	case Range:
		if n, ok := runtime.IntValue(item); ok {
			return rangeContains(c, n), nil
		}
	}
	items, err := sequence(container)
	if err != nil {
		return false, typeError("argument of type '%s' is not iterable", runtime.TypeName(container))
	}
	for _, v := range items {
		if identical(v, item) || equal(v, item) {
			return true, nil
		}
	}
	return false, nil
}

func rangeContains(r Range, n *big.Int) bool {
	if r.Step.Sign() > 0 {
		if n.Cmp(r.Start) < 0 || n.Cmp(r.Stop) >= 0 {
			return false
		}
	} else if n.Cmp(r.Start) > 0 || n.Cmp(r.Stop) <= 0 {
		return false
	}
	off := new(big.Int).Sub(n, r.Start)
	return off.Rem(off, r.Step).Sign() == 0
}

//-----------------------------------------------------------------------------
// Truth and length
//-----------------------------------------------------------------------------

func truthy(v runtime.Value) bool {
	if r, ok := v.(Range); ok {
		return r.Len().Sign() != 0
	}
	return runtime.Truthy(v)
}

func length(v runtime.Value) (int, error) {
	switch x := v.(type) {
	case runtime.Str:
		return utf8.RuneCountInString(string(x)), nil
	case runtime.Bytes:
		return len(x), nil
	case runtime.Tuple:
		return len(x), nil
	case *runtime.List:
		return x.Len(), nil
	case *runtime.Dict:
		return x.Len(), nil
	case Range:
		n := x.Len()
		if !n.IsInt64() || n.Int64() > math.MaxInt32 {
			return 0, overflow("Python int too large to convert to C ssize_t")
		}
		return int(n.Int64()), nil
	}
	return 0, typeError("object of type '%s' has no len()", runtime.TypeName(v))
}
