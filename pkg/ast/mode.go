package ast

import "fmt"

// Mode selects the kind of tree root a parse or compile works with.
type Mode int

const (
	ModeExec Mode = iota
	ModeEval
	ModeSingle
)

func (m Mode) String() string {
	switch m {
	case ModeExec:
		return "exec"
	case ModeEval:
		return "eval"
	case ModeSingle:
		return "single"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names used by the compile builtin.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "exec":
		return ModeExec, nil
	case "eval":
		return ModeEval, nil
	case "single":
		return ModeSingle, nil
	default:
		return 0, fmt.Errorf("mode must be 'exec', 'eval' or 'single', not %q", name)
	}
}

// RootType is the node kind a tree must have at its root for the mode.
func (m Mode) RootType() NodeType {
	switch m {
	case ModeEval:
		return NodeExpression
	case ModeSingle:
		return NodeInteractive
	default:
		return NodeModule
	}
}
