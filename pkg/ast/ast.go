package ast

type NodeType string

const (
	NodeModule      NodeType = "Module"
	NodeInteractive NodeType = "Interactive"
	NodeExpression  NodeType = "Expression"

	NodeFunctionDef NodeType = "FunctionDef"
	NodeReturn      NodeType = "Return"
	NodeDelete      NodeType = "Delete"
	NodeAssign      NodeType = "Assign"
	NodeAugAssign   NodeType = "AugAssign"
	NodeAnnAssign   NodeType = "AnnAssign"
	NodeFor         NodeType = "For"
	NodeWhile       NodeType = "While"
	NodeIf          NodeType = "If"
	NodeRaise       NodeType = "Raise"
	NodeAssert      NodeType = "Assert"
	NodeImport      NodeType = "Import"
	NodeImportFrom  NodeType = "ImportFrom"
	NodeGlobal      NodeType = "Global"
	NodeNonlocal    NodeType = "Nonlocal"
	NodeExpr        NodeType = "Expr"
	NodePass        NodeType = "Pass"
	NodeBreak       NodeType = "Break"
	NodeContinue    NodeType = "Continue"

	NodeBoolOp         NodeType = "BoolOp"
	NodeBinOp          NodeType = "BinOp"
	NodeUnaryOp        NodeType = "UnaryOp"
	NodeLambda         NodeType = "Lambda"
	NodeIfExp          NodeType = "IfExp"
	NodeDict           NodeType = "Dict"
	NodeSet            NodeType = "Set"
	NodeCompare        NodeType = "Compare"
	NodeCall           NodeType = "Call"
	NodeFormattedValue NodeType = "FormattedValue"
	NodeJoinedStr      NodeType = "JoinedStr"
	NodeConstant       NodeType = "Constant"
	NodeAttribute      NodeType = "Attribute"
	NodeSubscript      NodeType = "Subscript"
	NodeStarred        NodeType = "Starred"
	NodeName           NodeType = "Name"
	NodeList           NodeType = "List"
	NodeTuple          NodeType = "Tuple"
	NodeSlice          NodeType = "Slice"

	NodeArguments NodeType = "arguments"
	NodeArg       NodeType = "arg"
	NodeKeyword   NodeType = "keyword"
	NodeAlias     NodeType = "alias"
)

// Node is implemented by every typed tree node.
type Node interface {
	NodeType() NodeType
}

// Mod is a tree root: Module, Interactive or Expression.
type Mod interface {
	Node
	modNode()
}

type Stmt interface {
	Node
	Location() Location
	stmtNode()
}

type Expr interface {
	Node
	Location() Location
	exprNode()
}

// Roots

type Module struct {
	Body []Stmt
}

func (*Module) NodeType() NodeType { return NodeModule }
func (*Module) modNode()           {}

type Interactive struct {
	Body []Stmt
}

func (*Interactive) NodeType() NodeType { return NodeInteractive }
func (*Interactive) modNode()           {}

type Expression struct {
	Body Expr
}

func (*Expression) NodeType() NodeType { return NodeExpression }
func (*Expression) modNode()           {}

// Shared product nodes

type Arguments struct {
	PosOnlyArgs []*Arg
	Args        []*Arg
	Vararg      *Arg
	KwOnlyArgs  []*Arg
	KwDefaults  []Expr
	Kwarg       *Arg
	Defaults    []Expr
}

func (*Arguments) NodeType() NodeType { return NodeArguments }

// Names returns every parameter name in binding order.
func (a *Arguments) Names() []string {
	if a == nil {
		return nil
	}
	var names []string
	for _, group := range [][]*Arg{a.PosOnlyArgs, a.Args} {
		for _, arg := range group {
			names = append(names, arg.Arg)
		}
	}
	if a.Vararg != nil {
		names = append(names, a.Vararg.Arg)
	}
	for _, arg := range a.KwOnlyArgs {
		names = append(names, arg.Arg)
	}
	if a.Kwarg != nil {
		names = append(names, a.Kwarg.Arg)
	}
	return names
}

type Arg struct {
	Located
	Arg         string
	Annotation  Expr
	TypeComment *string
}

func (*Arg) NodeType() NodeType { return NodeArg }

type Keyword struct {
	Located
	Arg   *string
	Value Expr
}

func (*Keyword) NodeType() NodeType { return NodeKeyword }

type Alias struct {
	Name   string
	AsName *string
}

func (*Alias) NodeType() NodeType { return NodeAlias }

// Str returns a pointer to s, for optional string fields.
func Str(s string) *string {
	return &s
}
