package ast

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ConstantValue is the closed set of literal payloads a Constant node can
// carry: ConstNone, ConstBool, ConstStr, ConstBytes, ConstInt, ConstTuple,
// ConstFloat, ConstComplex and ConstEllipsis.
type ConstantValue interface {
	fmt.Stringer
	constantValue()
}

type ConstNone struct{}

type ConstBool bool

type ConstStr string

type ConstBytes []byte

type ConstInt struct {
	Value *big.Int
}

type ConstTuple []ConstantValue

type ConstFloat float64

type ConstComplex struct {
	Real float64
	Imag float64
}

type ConstEllipsis struct{}

func (ConstNone) constantValue()     {}
func (ConstBool) constantValue()     {}
func (ConstStr) constantValue()      {}
func (ConstBytes) constantValue()    {}
func (ConstInt) constantValue()      {}
func (ConstTuple) constantValue()    {}
func (ConstFloat) constantValue()    {}
func (ConstComplex) constantValue()  {}
func (ConstEllipsis) constantValue() {}

// Int builds an integer constant from a machine int.
func Int(v int64) ConstInt {
	return ConstInt{Value: big.NewInt(v)}
}

func (ConstNone) String() string { return "None" }

func (b ConstBool) String() string {
	if b {
		return "True"
	}
	return "False"
}

func (s ConstStr) String() string { return quoteStr(string(s)) }

func (b ConstBytes) String() string { return "b" + quoteStr(string(b)) }

func (i ConstInt) String() string {
	if i.Value == nil {
		return "0"
	}
	return i.Value.String()
}

func (t ConstTuple) String() string {
	parts := make([]string, len(t))
	for i, elt := range t {
		parts[i] = elt.String()
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (f ConstFloat) String() string { return FormatFloat(float64(f)) }

func (c ConstComplex) String() string {
	if c.Real == 0 && !math.Signbit(c.Real) {
		return formatComplexPart(c.Imag) + "j"
	}
	sign := "+"
	imag := c.Imag
	if imag < 0 || (imag == 0 && math.Signbit(imag)) {
		sign = "-"
		imag = -imag
	}
	return "(" + formatComplexPart(c.Real) + sign + formatComplexPart(imag) + "j)"
}

// formatComplexPart drops the ".0" that FormatFloat keeps, as complex
// display does.
func formatComplexPart(f float64) string {
	return strings.TrimSuffix(FormatFloat(f), ".0")
}

func (ConstEllipsis) String() string { return "Ellipsis" }

// FormatFloat renders a float the way Python's repr does for the common
// cases: integral values keep a trailing ".0".
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	var s string
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s = strconv.FormatFloat(f, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func quoteStr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// ConversionFlag is the "!s", "!r" or "!a" suffix of a formatted value. Its
// ordinal is the byte of the flag letter.
type ConversionFlag byte

const (
	ConversionAscii ConversionFlag = 'a'
	ConversionRepr  ConversionFlag = 'r'
	ConversionStr   ConversionFlag = 's'
)

// ConversionFlags lists the recognized flags in ordinal order.
func ConversionFlags() []ConversionFlag {
	return []ConversionFlag{ConversionAscii, ConversionRepr, ConversionStr}
}

// ConversionFlagFromByte returns the flag whose ordinal is b.
func ConversionFlagFromByte(b byte) (ConversionFlag, bool) {
	switch ConversionFlag(b) {
	case ConversionAscii, ConversionRepr, ConversionStr:
		return ConversionFlag(b), true
	}
	return 0, false
}

func (f ConversionFlag) String() string {
	switch f {
	case ConversionAscii, ConversionRepr, ConversionStr:
		return "!" + string(rune(f))
	}
	return fmt.Sprintf("ConversionFlag(%d)", byte(f))
}
