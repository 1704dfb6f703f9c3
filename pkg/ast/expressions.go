package ast

type BoolOp struct {
	Located
	Op     BoolOperator
	Values []Expr
}

func (*BoolOp) NodeType() NodeType { return NodeBoolOp }
func (*BoolOp) exprNode()          {}

type BinOp struct {
	Located
	Left  Expr
	Op    Operator
	Right Expr
}

func (*BinOp) NodeType() NodeType { return NodeBinOp }
func (*BinOp) exprNode()          {}

type UnaryOp struct {
	Located
	Op      UnaryOperator
	Operand Expr
}

func (*UnaryOp) NodeType() NodeType { return NodeUnaryOp }
func (*UnaryOp) exprNode()          {}

type Lambda struct {
	Located
	Args *Arguments
	Body Expr
}

func (*Lambda) NodeType() NodeType { return NodeLambda }
func (*Lambda) exprNode()          {}

type IfExp struct {
	Located
	Test   Expr
	Body   Expr
	OrElse Expr
}

func (*IfExp) NodeType() NodeType { return NodeIfExp }
func (*IfExp) exprNode()          {}

type Dict struct {
	Located
	Keys   []Expr
	Values []Expr
}

func (*Dict) NodeType() NodeType { return NodeDict }
func (*Dict) exprNode()          {}

type Set struct {
	Located
	Elts []Expr
}

func (*Set) NodeType() NodeType { return NodeSet }
func (*Set) exprNode()          {}

type Compare struct {
	Located
	Left        Expr
	Ops         []CmpOperator
	Comparators []Expr
}

func (*Compare) NodeType() NodeType { return NodeCompare }
func (*Compare) exprNode()          {}

type Call struct {
	Located
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

func (*Call) NodeType() NodeType { return NodeCall }
func (*Call) exprNode()          {}

type FormattedValue struct {
	Located
	Value      Expr
	Conversion *ConversionFlag
	FormatSpec Expr
}

func (*FormattedValue) NodeType() NodeType { return NodeFormattedValue }
func (*FormattedValue) exprNode()          {}

type JoinedStr struct {
	Located
	Values []Expr
}

func (*JoinedStr) NodeType() NodeType { return NodeJoinedStr }
func (*JoinedStr) exprNode()          {}

type Constant struct {
	Located
	Value ConstantValue
	Kind  *string
}

func (*Constant) NodeType() NodeType { return NodeConstant }
func (*Constant) exprNode()          {}

type Attribute struct {
	Located
	Value Expr
	Attr  string
	Ctx   ExprContext
}

func (*Attribute) NodeType() NodeType { return NodeAttribute }
func (*Attribute) exprNode()          {}

type Subscript struct {
	Located
	Value Expr
	Slice Expr
	Ctx   ExprContext
}

func (*Subscript) NodeType() NodeType { return NodeSubscript }
func (*Subscript) exprNode()          {}

type Starred struct {
	Located
	Value Expr
	Ctx   ExprContext
}

func (*Starred) NodeType() NodeType { return NodeStarred }
func (*Starred) exprNode()          {}

type Name struct {
	Located
	ID  string
	Ctx ExprContext
}

func (*Name) NodeType() NodeType { return NodeName }
func (*Name) exprNode()          {}

type List struct {
	Located
	Elts []Expr
	Ctx  ExprContext
}

func (*List) NodeType() NodeType { return NodeList }
func (*List) exprNode()          {}

type Tuple struct {
	Located
	Elts []Expr
	Ctx  ExprContext
}

func (*Tuple) NodeType() NodeType { return NodeTuple }
func (*Tuple) exprNode()          {}

type Slice struct {
	Located
	Lower Expr
	Upper Expr
	Step  Expr
}

func (*Slice) NodeType() NodeType { return NodeSlice }
func (*Slice) exprNode()          {}

// SetContext rewrites the expression context of an assignment or deletion
// target, descending into starred, list and tuple targets. It reports
// false when expr cannot appear in a target position.
func SetContext(expr Expr, ctx ExprContext) bool {
	switch e := expr.(type) {
	case *Name:
		e.Ctx = ctx
	case *Attribute:
		e.Ctx = ctx
	case *Subscript:
		e.Ctx = ctx
	case *Starred:
		e.Ctx = ctx
		return SetContext(e.Value, ctx)
	case *List:
		e.Ctx = ctx
		for _, elt := range e.Elts {
			if !SetContext(elt, ctx) {
				return false
			}
		}
	case *Tuple:
		e.Ctx = ctx
		for _, elt := range e.Elts {
			if !SetContext(elt, ctx) {
				return false
			}
		}
	default:
		return false
	}
	return true
}
