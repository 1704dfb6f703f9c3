package ast

import "fmt"

// The operator and context enumerations are field-less node kinds: each
// variant is represented on the dynamic side by an instance of a class of
// the same name. Variant order matches the registry order.

type ExprContext int

const (
	Load ExprContext = iota
	Store
	Del
)

var exprContextNames = []string{"Load", "Store", "Del"}

func (c ExprContext) String() string { return variantName(exprContextNames, int(c)) }

// ExprContexts lists every variant in registry order.
func ExprContexts() []ExprContext { return []ExprContext{Load, Store, Del} }

type BoolOperator int

const (
	And BoolOperator = iota
	Or
)

var boolOperatorNames = []string{"And", "Or"}

func (o BoolOperator) String() string { return variantName(boolOperatorNames, int(o)) }

func BoolOperators() []BoolOperator { return []BoolOperator{And, Or} }

type Operator int

const (
	Add Operator = iota
	Sub
	Mult
	MatMult
	Div
	Modulo
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
	FloorDiv
)

var operatorNames = []string{
	"Add", "Sub", "Mult", "MatMult", "Div", "Mod", "Pow",
	"LShift", "RShift", "BitOr", "BitXor", "BitAnd", "FloorDiv",
}

var operatorSymbols = []string{
	"+", "-", "*", "@", "/", "%", "**",
	"<<", ">>", "|", "^", "&", "//",
}

func (o Operator) String() string { return variantName(operatorNames, int(o)) }

// Symbol returns the source spelling of the operator.
func (o Operator) Symbol() string { return variantName(operatorSymbols, int(o)) }

func Operators() []Operator {
	ops := make([]Operator, len(operatorNames))
	for i := range ops {
		ops[i] = Operator(i)
	}
	return ops
}

// OperatorFromSymbol maps "+", "//", ... to the operator. Augmented forms
// ("+=") are accepted.
func OperatorFromSymbol(symbol string) (Operator, bool) {
	if n := len(symbol); n > 1 && symbol[n-1] == '=' {
		symbol = symbol[:n-1]
	}
	for i, s := range operatorSymbols {
		if s == symbol {
			return Operator(i), true
		}
	}
	return 0, false
}

type UnaryOperator int

const (
	Invert UnaryOperator = iota
	Not
	UAdd
	USub
)

var unaryOperatorNames = []string{"Invert", "Not", "UAdd", "USub"}

func (o UnaryOperator) String() string { return variantName(unaryOperatorNames, int(o)) }

func UnaryOperators() []UnaryOperator { return []UnaryOperator{Invert, Not, UAdd, USub} }

type CmpOperator int

const (
	Eq CmpOperator = iota
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
)

var cmpOperatorNames = []string{"Eq", "NotEq", "Lt", "LtE", "Gt", "GtE", "Is", "IsNot", "In", "NotIn"}

var cmpOperatorSymbols = []string{"==", "!=", "<", "<=", ">", ">=", "is", "is not", "in", "not in"}

func (o CmpOperator) String() string { return variantName(cmpOperatorNames, int(o)) }

func (o CmpOperator) Symbol() string { return variantName(cmpOperatorSymbols, int(o)) }

func CmpOperators() []CmpOperator {
	ops := make([]CmpOperator, len(cmpOperatorNames))
	for i := range ops {
		ops[i] = CmpOperator(i)
	}
	return ops
}

func CmpOperatorFromSymbol(symbol string) (CmpOperator, bool) {
	if symbol == "<>" {
		return NotEq, true
	}
	for i, s := range cmpOperatorSymbols {
		if s == symbol {
			return CmpOperator(i), true
		}
	}
	return 0, false
}

func variantName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("variant(%d)", i)
	}
	return names[i]
}
