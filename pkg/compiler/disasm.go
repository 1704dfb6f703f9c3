package compiler

import (
	"fmt"
	"strings"

	"serpent/interpreter-go/pkg/ast"
)

// Disassemble returns a human-readable listing of co and every nested code
// object.
func Disassemble(co *CodeObject) string {
	var sb strings.Builder
	disassemble(&sb, co)
	return sb.String()
}

func disassemble(sb *strings.Builder, co *CodeObject) {
	fmt.Fprintf(sb, "; === %s (%s) ===\n", co.Name, co.Filename)
	fmt.Fprintf(sb, "; Bytecode v%d", co.Version)
	if co.Mode != "" {
		fmt.Fprintf(sb, ", mode %s", co.Mode)
	}
	sb.WriteString("\n")
	if params := co.ParamNames(); len(params) > 0 {
		fmt.Fprintf(sb, "; Parameters (%d): %s\n", len(params), strings.Join(params, ", "))
	}
	if len(co.VarNames) > 0 {
		fmt.Fprintf(sb, "; Locals: %s\n", strings.Join(co.VarNames, ", "))
	}
	if len(co.Names) > 0 {
		fmt.Fprintf(sb, "; Names: %s\n", strings.Join(co.Names, ", "))
	}
	if len(co.Consts) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range co.Consts {
			fmt.Fprintf(sb, ";   [%3d] %s\n", i, truncate(c.String(), 40))
		}
	}
	sb.WriteString("\n")

	line := 0
	for offset := 0; offset < len(co.Code); {
		text, n := disassembleInstruction(co, offset)
		if l := co.LineFor(offset); l != line {
			line = l
			fmt.Fprintf(sb, "%4d  %04X  %s\n", line, offset, text)
		} else {
			fmt.Fprintf(sb, "      %04X  %s\n", offset, text)
		}
		offset += n
	}

	for _, child := range co.Codes {
		sb.WriteString("\n")
		disassemble(sb, child)
	}
}

func disassembleInstruction(co *CodeObject, offset int) (string, int) {
	op := Opcode(co.Code[offset])
	info := GetOpcodeInfo(op)
	n := op.InstructionLen()
	if offset+n > len(co.Code) {
		return fmt.Sprintf("%s <truncated>", info.Name), len(co.Code) - offset
	}

	switch op {
	case OpLoadConst:
		idx := co.ReadU16(offset + 1)
		return fmt.Sprintf("%-20s %d ; %s", info.Name, idx, lookup(idx, len(co.Consts), func(i int) string {
			return truncate(co.Consts[i].String(), 20)
		})), n
	case OpLoadName, OpStoreName, OpDeleteName, OpLoadGlobal, OpStoreGlobal, OpDeleteGlobal,
		OpLoadAttr, OpStoreAttr, OpDeleteAttr, OpImportFrom:
		idx := co.ReadU16(offset + 1)
		return fmt.Sprintf("%-20s %d ; %s", info.Name, idx, lookup(idx, len(co.Names), func(i int) string { return co.Names[i] })), n
	case OpLoadFast, OpStoreFast, OpDeleteFast:
		idx := co.ReadU16(offset + 1)
		return fmt.Sprintf("%-20s %d ; %s", info.Name, idx, lookup(idx, len(co.VarNames), func(i int) string { return co.VarNames[i] })), n
	case OpImportName:
		idx := co.ReadU16(offset + 1)
		return fmt.Sprintf("%-20s %d ; %s leaf=%d", info.Name, idx, lookup(idx, len(co.Names), func(i int) string { return co.Names[i] }), co.Code[offset+3]), n
	case OpMakeFunction:
		idx := co.ReadU16(offset + 1)
		return fmt.Sprintf("%-20s %d ; %s flags=0x%02X", info.Name, idx, lookup(idx, len(co.Codes), func(i int) string { return co.Codes[i].Name }), co.Code[offset+3]), n
	case OpBinary:
		return fmt.Sprintf("%-20s %d ; %s", info.Name, co.Code[offset+1], ast.Operator(co.Code[offset+1]).Symbol()), n
	case OpUnary:
		return fmt.Sprintf("%-20s %d ; %s", info.Name, co.Code[offset+1], ast.UnaryOperator(co.Code[offset+1])), n
	case OpCompare:
		return fmt.Sprintf("%-20s %d ; %s", info.Name, co.Code[offset+1], ast.CmpOperator(co.Code[offset+1]).Symbol()), n
	}

	switch info.OperandLen {
	case 0:
		return info.Name, n
	case 1:
		return fmt.Sprintf("%-20s %d", info.Name, co.Code[offset+1]), n
	case 2:
		arg := co.ReadU16(offset + 1)
		if op.IsJump() {
			return fmt.Sprintf("%-20s %04X", info.Name, arg), n
		}
		return fmt.Sprintf("%-20s %d", info.Name, arg), n
	default:
		return fmt.Sprintf("%-20s % X", info.Name, co.Code[offset+1:offset+n]), n
	}
}

func lookup(idx uint16, size int, name func(int) string) string {
	if int(idx) >= size {
		return "<out of range>"
	}
	return name(int(idx))
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
