package compiler

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"serpent/interpreter-go/pkg/ast"
)

// BytecodeVersion is stamped on every code object.
const BytecodeVersion uint16 = 1

// Code object flags.
const (
	FlagVarArgs     uint8 = 0x01 // takes *args
	FlagVarKeywords uint8 = 0x02 // takes **kwargs
	FlagFunction    uint8 = 0x04 // runs with fast locals
)

// CodeObject is the unit of compiled code: a module body, an expression or
// a function body. Nested functions live in Codes and are referenced by
// MAKE_FUNCTION.
type CodeObject struct {
	Version      uint16        `cbor:"1,keyasint"`
	Filename     string        `cbor:"2,keyasint"`
	Name         string        `cbor:"3,keyasint"`
	Mode         string        `cbor:"4,keyasint,omitempty"`
	Flags        uint8         `cbor:"5,keyasint"`
	ArgCount     int           `cbor:"6,keyasint"` // positional parameters, including positional-only
	PosOnlyCount int           `cbor:"7,keyasint,omitempty"`
	KwOnlyCount  int           `cbor:"8,keyasint,omitempty"`
	Code         []byte        `cbor:"9,keyasint"`
	Consts       []Constant    `cbor:"10,keyasint,omitempty"`
	Codes        []*CodeObject `cbor:"11,keyasint,omitempty"`
	Names        []string      `cbor:"12,keyasint,omitempty"`
	VarNames     []string      `cbor:"13,keyasint,omitempty"` // parameters first
	Lines        []LineEntry   `cbor:"14,keyasint,omitempty"`
	FirstLine    int           `cbor:"15,keyasint,omitempty"`
}

// LineEntry records that code from Offset on belongs to source Line.
type LineEntry struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
}

// ConstKind tags a constant pool entry.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstBool
	ConstStr
	ConstBytes
	ConstInt
	ConstTuple
	ConstFloat
	ConstComplex
	ConstEllipsis
)

// Constant is a pool entry: a literal from the tree in an encodable shape.
// Integers are kept as decimal text so that arbitrary sizes survive
// encoding.
type Constant struct {
	Kind  ConstKind  `cbor:"1,keyasint"`
	Text  string     `cbor:"2,keyasint,omitempty"` // str, int
	Bytes []byte     `cbor:"3,keyasint,omitempty"`
	Bool  bool       `cbor:"4,keyasint,omitempty"`
	Real  float64    `cbor:"5,keyasint,omitempty"` // float, complex real part
	Imag  float64    `cbor:"6,keyasint,omitempty"`
	Items []Constant `cbor:"7,keyasint,omitempty"`
}

// ConstantOf converts a tree literal into a pool entry.
func ConstantOf(v ast.ConstantValue) Constant {
	switch x := v.(type) {
	case ast.ConstBool:
		return Constant{Kind: ConstBool, Bool: bool(x)}
	case ast.ConstStr:
		return Constant{Kind: ConstStr, Text: string(x)}
	case ast.ConstBytes:
		return Constant{Kind: ConstBytes, Bytes: append([]byte{}, x...)}
	case ast.ConstInt:
		return Constant{Kind: ConstInt, Text: x.Value.String()}
	case ast.ConstTuple:
		items := make([]Constant, len(x))
		for i, item := range x {
			items[i] = ConstantOf(item)
		}
		return Constant{Kind: ConstTuple, Items: items}
	case ast.ConstFloat:
		return Constant{Kind: ConstFloat, Real: float64(x)}
	case ast.ConstComplex:
		return Constant{Kind: ConstComplex, Real: x.Real, Imag: x.Imag}
	case ast.ConstEllipsis:
		return Constant{Kind: ConstEllipsis}
	default:
		return Constant{Kind: ConstNone}
	}
}

// Literal converts a pool entry back into a tree literal.
func (c Constant) Literal() (ast.ConstantValue, error) {
	switch c.Kind {
	case ConstNone:
		return ast.ConstNone{}, nil
	case ConstBool:
		return ast.ConstBool(c.Bool), nil
	case ConstStr:
		return ast.ConstStr(c.Text), nil
	case ConstBytes:
		return ast.ConstBytes(c.Bytes), nil
	case ConstInt:
		n, ok := new(big.Int).SetString(c.Text, 10)
		if !ok {
			return nil, fmt.Errorf("compiler: malformed int constant %q", c.Text)
		}
		return ast.ConstInt{Value: n}, nil
	case ConstTuple:
		items := make(ast.ConstTuple, len(c.Items))
		for i, item := range c.Items {
			lit, err := item.Literal()
			if err != nil {
				return nil, err
			}
			items[i] = lit
		}
		return items, nil
	case ConstFloat:
		return ast.ConstFloat(c.Real), nil
	case ConstComplex:
		return ast.ConstComplex{Real: c.Real, Imag: c.Imag}, nil
	case ConstEllipsis:
		return ast.ConstEllipsis{}, nil
	default:
		return nil, fmt.Errorf("compiler: unknown constant kind %d", c.Kind)
	}
}

func (c Constant) String() string {
	lit, err := c.Literal()
	if err != nil {
		return "<invalid>"
	}
	return lit.String()
}

// key distinguishes pool entries that compare equal in Python but must
// stay separate (1, 1.0 and True).
func (c Constant) key() string {
	return fmt.Sprintf("%d:%s", c.Kind, c.String())
}

// Emit appends a single-byte opcode and returns its offset.
func (co *CodeObject) Emit(op Opcode) int {
	offset := len(co.Code)
	co.Code = append(co.Code, byte(op))
	return offset
}

// EmitU8 appends an opcode with a one-byte operand.
func (co *CodeObject) EmitU8(op Opcode, arg byte) int {
	offset := len(co.Code)
	co.Code = append(co.Code, byte(op), arg)
	return offset
}

// EmitU16 appends an opcode with a two-byte operand.
func (co *CodeObject) EmitU16(op Opcode, arg uint16) int {
	offset := len(co.Code)
	co.Code = append(co.Code, byte(op))
	co.Code = binary.BigEndian.AppendUint16(co.Code, arg)
	return offset
}

// EmitU16U8 appends an opcode with a two-byte and a one-byte operand.
func (co *CodeObject) EmitU16U8(op Opcode, arg uint16, extra byte) int {
	offset := co.EmitU16(op, arg)
	co.Code = append(co.Code, extra)
	return offset
}

// EmitJump emits a jump with a placeholder target and returns the offset of
// the placeholder for PatchJump.
func (co *CodeObject) EmitJump(op Opcode) int {
	co.Code = append(co.Code, byte(op), 0xFF, 0xFF)
	return len(co.Code) - 2
}

// PatchJump points the placeholder at the current offset.
func (co *CodeObject) PatchJump(placeholder int) {
	co.PatchJumpTo(placeholder, len(co.Code))
}

// PatchJumpTo points the placeholder at target.
func (co *CodeObject) PatchJumpTo(placeholder, target int) {
	binary.BigEndian.PutUint16(co.Code[placeholder:], uint16(target))
}

// CurrentOffset returns the offset the next instruction will have.
func (co *CodeObject) CurrentOffset() int {
	return len(co.Code)
}

// AddConstant adds c to the pool unless an identical entry is present.
func (co *CodeObject) AddConstant(c Constant) uint16 {
	k := c.key()
	for i, existing := range co.Consts {
		if existing.key() == k {
			return uint16(i)
		}
	}
	co.Consts = append(co.Consts, c)
	return uint16(len(co.Consts) - 1)
}

// AddName interns name in the name table.
func (co *CodeObject) AddName(name string) uint16 {
	for i, n := range co.Names {
		if n == name {
			return uint16(i)
		}
	}
	co.Names = append(co.Names, name)
	return uint16(len(co.Names) - 1)
}

// AddCode appends a nested code object.
func (co *CodeObject) AddCode(child *CodeObject) uint16 {
	co.Codes = append(co.Codes, child)
	return uint16(len(co.Codes) - 1)
}

// MarkLine records that subsequent code belongs to line.
func (co *CodeObject) MarkLine(line int) {
	if line <= 0 {
		return
	}
	if n := len(co.Lines); n > 0 {
		last := &co.Lines[n-1]
		if last.Line == line {
			return
		}
		if last.Offset == len(co.Code) {
			last.Line = line
			return
		}
	}
	co.Lines = append(co.Lines, LineEntry{Offset: len(co.Code), Line: line})
}

// LineFor returns the source line of the instruction at offset, or 0.
func (co *CodeObject) LineFor(offset int) int {
	line := 0
	for _, e := range co.Lines {
		if e.Offset > offset {
			break
		}
		line = e.Line
	}
	return line
}

// ReadU16 decodes the two-byte operand at offset.
func (co *CodeObject) ReadU16(offset int) uint16 {
	return binary.BigEndian.Uint16(co.Code[offset:])
}

// ParamNames returns the parameter names in binding order.
func (co *CodeObject) ParamNames() []string {
	n := co.ArgCount + co.KwOnlyCount
	if co.Flags&FlagVarArgs != 0 {
		n++
	}
	if co.Flags&FlagVarKeywords != 0 {
		n++
	}
	if n > len(co.VarNames) {
		n = len(co.VarNames)
	}
	return co.VarNames[:n]
}
