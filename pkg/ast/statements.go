package ast

type FunctionDef struct {
	Located
	Name          string
	Args          *Arguments
	Body          []Stmt
	DecoratorList []Expr
	Returns       Expr
	TypeComment   *string
}

func (*FunctionDef) NodeType() NodeType { return NodeFunctionDef }
func (*FunctionDef) stmtNode()          {}

type Return struct {
	Located
	Value Expr
}

func (*Return) NodeType() NodeType { return NodeReturn }
func (*Return) stmtNode()          {}

type Delete struct {
	Located
	Targets []Expr
}

func (*Delete) NodeType() NodeType { return NodeDelete }
func (*Delete) stmtNode()          {}

type Assign struct {
	Located
	Targets     []Expr
	Value       Expr
	TypeComment *string
}

func (*Assign) NodeType() NodeType { return NodeAssign }
func (*Assign) stmtNode()          {}

type AugAssign struct {
	Located
	Target Expr
	Op     Operator
	Value  Expr
}

func (*AugAssign) NodeType() NodeType { return NodeAugAssign }
func (*AugAssign) stmtNode()          {}

type AnnAssign struct {
	Located
	Target     Expr
	Annotation Expr
	Value      Expr
	Simple     bool
}

func (*AnnAssign) NodeType() NodeType { return NodeAnnAssign }
func (*AnnAssign) stmtNode()          {}

type For struct {
	Located
	Target      Expr
	Iter        Expr
	Body        []Stmt
	OrElse      []Stmt
	TypeComment *string
}

func (*For) NodeType() NodeType { return NodeFor }
func (*For) stmtNode()          {}

type While struct {
	Located
	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

func (*While) NodeType() NodeType { return NodeWhile }
func (*While) stmtNode()          {}

type If struct {
	Located
	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

func (*If) NodeType() NodeType { return NodeIf }
func (*If) stmtNode()          {}

type Raise struct {
	Located
	Exc   Expr
	Cause Expr
}

func (*Raise) NodeType() NodeType { return NodeRaise }
func (*Raise) stmtNode()          {}

type Assert struct {
	Located
	Test Expr
	Msg  Expr
}

func (*Assert) NodeType() NodeType { return NodeAssert }
func (*Assert) stmtNode()          {}

type Import struct {
	Located
	Names []*Alias
}

func (*Import) NodeType() NodeType { return NodeImport }
func (*Import) stmtNode()          {}

type ImportFrom struct {
	Located
	Module *string
	Names  []*Alias
	Level  *uint
}

func (*ImportFrom) NodeType() NodeType { return NodeImportFrom }
func (*ImportFrom) stmtNode()          {}

type Global struct {
	Located
	Names []string
}

func (*Global) NodeType() NodeType { return NodeGlobal }
func (*Global) stmtNode()          {}

type Nonlocal struct {
	Located
	Names []string
}

func (*Nonlocal) NodeType() NodeType { return NodeNonlocal }
func (*Nonlocal) stmtNode()          {}

// ExprStmt is an expression evaluated for its side effects (class name "Expr").
type ExprStmt struct {
	Located
	Value Expr
}

func (*ExprStmt) NodeType() NodeType { return NodeExpr }
func (*ExprStmt) stmtNode()          {}

type Pass struct {
	Located
}

func (*Pass) NodeType() NodeType { return NodePass }
func (*Pass) stmtNode()          {}

type Break struct {
	Located
}

func (*Break) NodeType() NodeType { return NodeBreak }
func (*Break) stmtNode()          {}

type Continue struct {
	Located
}

func (*Continue) NodeType() NodeType { return NodeContinue }
func (*Continue) stmtNode()          {}
