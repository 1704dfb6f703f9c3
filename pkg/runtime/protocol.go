package runtime

import (
	"bytes"
	"encoding/binary"
	"hash/maphash"
	"math"
	"math/big"
	"unicode/utf8"
)

var hashSeed = maphash.MakeSeed()

// Hash returns a hash consistent with Equal: numbers that compare equal
// across int, bool, float and complex hash the same.
func Hash(v Value) (uint64, error) {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	if err := writeHash(&h, v); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func writeHash(h *maphash.Hash, v Value) error {
	switch x := v.(type) {
	case nil, NoneType:
		h.WriteByte('N')
	case EllipsisType:
		h.WriteByte('E')
	case Bool:
		writeIntHash(h, x.Big())
	case Int:
		writeIntHash(h, x.Big())
	case Float:
		writeFloatHash(h, float64(x))
	case Complex:
		if x.Imag == 0 {
			writeFloatHash(h, x.Real)
			return nil
		}
		h.WriteByte('C')
		h.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(x.Real)))
		h.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(x.Imag)))
	case Str:
		h.WriteByte('S')
		h.WriteString(string(x))
	case Bytes:
		h.WriteByte('B')
		h.Write(x)
	case Tuple:
		h.WriteByte('T')
		for _, elt := range x {
			if err := writeHash(h, elt); err != nil {
				return err
			}
		}
	case *Dict, *List:
		return &UnhashableError{TypeName: TypeName(v)}
	default:
		if v.Class().Unhashable {
			return &UnhashableError{TypeName: TypeName(v)}
		}
		h.WriteByte('@')
		h.Write(binary.LittleEndian.AppendUint64(nil, maphash.Comparable(hashSeed, v)))
	}
	return nil
}

func writeIntHash(h *maphash.Hash, i *big.Int) {
	if i.IsInt64() {
		h.WriteByte('i')
		h.Write(binary.LittleEndian.AppendUint64(nil, uint64(i.Int64())))
		return
	}
	h.WriteByte('I')
	if i.Sign() < 0 {
		h.WriteByte('-')
	}
	h.Write(i.Bytes())
}

func writeFloatHash(h *maphash.Hash, f float64) {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		i, _ := big.NewFloat(f).Int(nil)
		writeIntHash(h, i)
		return
	}
	h.WriteByte('F')
	h.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(f)))
}

const maxCompareDepth = 1000

// Equal implements == for the value model, including the numeric tower
// (1 == 1.0 == True).
func Equal(a, b Value) bool {
	return equal(a, b, 0)
}

func equal(a, b Value, depth int) bool {
	if depth > maxCompareDepth {
		return false
	}
	if ra, ok := asReal(a); ok {
		if rb, ok := asReal(b); ok {
			return ra.Cmp(rb) == 0
		}
	}
	if isNumber(a) && isNumber(b) {
		ca, _ := asComplex(a)
		cb, _ := asComplex(b)
		return ca == cb
	}
	switch x := a.(type) {
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSeq(x, y, depth)
	case *List:
		y, ok := b.(*List)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		return equalSeq(x.Snapshot(), y.Snapshot(), depth)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		return equalDict(x, y, depth)
	case NoneType, EllipsisType:
		return a == b
	}
	switch b.(type) {
	case Str, Bytes, Tuple, *List, *Dict, Int, Bool, Float, Complex:
		return false
	}
	return a == b
}

func equalSeq(x, y []Value, depth int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !equal(x[i], y[i], depth+1) {
			return false
		}
	}
	return true
}

func equalDict(x, y *Dict, depth int) bool {
	if x.Len() != y.Len() {
		return false
	}
	items, err := x.Items()
	if err != nil {
		return false
	}
	for _, it := range items {
		other, ok, err := y.Get(it.Key)
		if err != nil || !ok || !equal(it.Value, other, depth+1) {
			return false
		}
	}
	return true
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, Bool, Float, Complex:
		return true
	}
	return false
}

// asReal returns int, bool and float values as an exact big.Float. NaN is
// never real-equal to anything.
func asReal(v Value) (*big.Float, bool) {
	switch x := v.(type) {
	case Int:
		return new(big.Float).SetInt(x.Big()), true
	case Bool:
		return new(big.Float).SetInt(x.Big()), true
	case Float:
		if math.IsNaN(float64(x)) {
			return nil, false
		}
		return big.NewFloat(float64(x)), true
	}
	return nil, false
}

func asComplex(v Value) (complex128, bool) {
	switch x := v.(type) {
	case Int:
		f, _ := new(big.Float).SetInt(x.Big()).Float64()
		return complex(f, 0), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	case Float:
		return complex(float64(x), 0), true
	case Complex:
		return complex(x.Real, x.Imag), true
	}
	return 0, false
}

// Truthy implements bool(v).
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, NoneType:
		return false
	case Bool:
		return bool(x)
	case Int:
		return x.Big().Sign() != 0
	case Float:
		return x != 0
	case Complex:
		return x.Real != 0 || x.Imag != 0
	case Str:
		return len(x) > 0
	case Bytes:
		return len(x) > 0
	case Tuple:
		return len(x) > 0
	case *List:
		return x.Len() > 0
	case *Dict:
		return x.Len() > 0
	}
	return true
}

// Iterate snapshots the elements produced by iterating v.
func Iterate(v Value) ([]Value, error) {
	switch x := v.(type) {
	case Tuple:
		return append([]Value(nil), x...), nil
	case *List:
		return x.Snapshot(), nil
	case *Dict:
		return x.Keys()
	case Str:
		out := make([]Value, 0, utf8.RuneCountInString(string(x)))
		for _, r := range string(x) {
			out = append(out, Str(string(r)))
		}
		return out, nil
	case Bytes:
		out := make([]Value, len(x))
		for i, b := range x {
			out[i] = NewInt(int64(b))
		}
		return out, nil
	case Iterable:
		return x.Elements()
	}
	return nil, NewException(TypeErrorClass, "'%s' object is not iterable", TypeName(v))
}

// Iterable is implemented by values defined outside this package that can
// be drained into a slice.
type Iterable interface {
	Value
	Elements() ([]Value, error)
}

// IntValue extracts the integer payload of an int or bool.
func IntValue(v Value) (*big.Int, bool) {
	switch x := v.(type) {
	case Int:
		return x.Big(), true
	case Bool:
		return x.Big(), true
	}
	return nil, false
}
