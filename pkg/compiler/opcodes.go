package compiler

import "fmt"

// Opcode is a single bytecode instruction. Opcodes are grouped into ranges
// by category; multi-byte operands are big-endian.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Pop top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpDup2 Opcode = 0x03 // Duplicate the top two: a b -> a b a b
	OpRot2 Opcode = 0x04 // Swap top two: a b -> b a
	OpRot3 Opcode = 0x05 // Move top down two: a b c -> c a b

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpLoadConst Opcode = 0x10 // Push constant from pool: <index:u16>
	OpLoadNone  Opcode = 0x11 // Push None

	// ========================================================================
	// Names (0x20-0x2F)
	// ========================================================================

	OpLoadName     Opcode = 0x20 // Push name from locals, globals, builtins: <name:u16>
	OpStoreName    Opcode = 0x21 // Pop into the local namespace: <name:u16>
	OpDeleteName   Opcode = 0x22 // <name:u16>
	OpLoadGlobal   Opcode = 0x23 // Push name from globals, builtins: <name:u16>
	OpStoreGlobal  Opcode = 0x24 // <name:u16>
	OpDeleteGlobal Opcode = 0x25 // <name:u16>
	OpLoadFast     Opcode = 0x26 // Push fast local: <slot:u16>
	OpStoreFast    Opcode = 0x27 // <slot:u16>
	OpDeleteFast   Opcode = 0x28 // <slot:u16>

	// ========================================================================
	// Attributes and subscripts (0x30-0x3F)
	// ========================================================================

	OpLoadAttr     Opcode = 0x30 // obj -> obj.name: <name:u16>
	OpStoreAttr    Opcode = 0x31 // value obj -> (obj.name = value): <name:u16>
	OpDeleteAttr   Opcode = 0x32 // obj -> : <name:u16>
	OpLoadSubscr   Opcode = 0x33 // container key -> container[key]
	OpStoreSubscr  Opcode = 0x34 // value container key ->
	OpDeleteSubscr Opcode = 0x35 // container key ->

	// ========================================================================
	// Operators (0x40-0x4F)
	// ========================================================================

	OpBinary  Opcode = 0x40 // a b -> a op b: <ast.Operator:u8>
	OpUnary   Opcode = 0x41 // a -> op a: <ast.UnaryOperator:u8>
	OpCompare Opcode = 0x42 // a b -> a op b: <ast.CmpOperator:u8>

	// ========================================================================
	// Builders (0x50-0x5F)
	// ========================================================================

	OpBuildTuple     Opcode = 0x50 // Pop n items, push tuple: <n:u16>
	OpBuildList      Opcode = 0x51 // Pop n items, push list: <n:u16>
	OpBuildMap       Opcode = 0x52 // Pop n key/value pairs, push dict: <n:u16>
	OpBuildSlice     Opcode = 0x53 // Pop 2 or 3 bounds, push slice: <n:u8>
	OpBuildString    Opcode = 0x54 // Pop n strings, push concatenation: <n:u16>
	OpFormatValue    Opcode = 0x55 // value [spec] -> str: <flags:u8>
	OpUnpackSequence Opcode = 0x56 // seq -> item[n-1] .. item[0]: <n:u16>

	// ========================================================================
	// Control flow (0x60-0x6F)
	// ========================================================================

	OpJump             Opcode = 0x60 // Jump to absolute offset: <target:u16>
	OpPopJumpIfFalse   Opcode = 0x61 // <target:u16>
	OpPopJumpIfTrue    Opcode = 0x62 // <target:u16>
	OpJumpIfFalseOrPop Opcode = 0x63 // Keep top and jump when false, else pop: <target:u16>
	OpJumpIfTrueOrPop  Opcode = 0x64 // <target:u16>
	OpForIter          Opcode = 0x65 // Push next item, or pop iterator and jump: <target:u16>
	OpGetIter          Opcode = 0x6F // iterable -> iterator

	// ========================================================================
	// Calls and functions (0x70-0x7F)
	// ========================================================================

	OpCall         Opcode = 0x70 // fn args... -> result: <argc:u16>
	OpCallKw       Opcode = 0x71 // fn args... names -> result; names is a const tuple: <argc:u16>
	OpMakeFunction Opcode = 0x72 // [defaults] [kwdefaults] -> fn: <code:u16> <flags:u8>
	OpReturnValue  Opcode = 0x73 // Return top of stack

	// ========================================================================
	// Statements (0x80-0x8F)
	// ========================================================================

	OpRaise              Opcode = 0x80 // Raise with 0, 1 or 2 operands: <n:u8>
	OpLoadAssertionError Opcode = 0x81 // Push AssertionError
	OpPrintExpr          Opcode = 0x82 // Pop and display unless None
	OpImportName         Opcode = 0x83 // Push module: <name:u16> <leaf:u8>
	OpImportFrom         Opcode = 0x84 // module -> module module.name: <name:u16>
	OpImportStar         Opcode = 0x85 // module -> (copy public names)
)

// MakeFunction flag bits.
const (
	MakeFunctionDefaults   byte = 0x01 // a tuple of positional defaults is on the stack
	MakeFunctionKwDefaults byte = 0x02 // a dict of keyword-only defaults is on the stack
)

// FormatValue flag bits. The low two bits select the conversion.
const (
	FormatConvNone  byte = 0x00
	FormatConvStr   byte = 0x01
	FormatConvRepr  byte = 0x02
	FormatConvAscii byte = 0x03
	FormatConvMask  byte = 0x03
	FormatHasSpec   byte = 0x04
)

// OpcodeInfo provides metadata about each opcode for disassembly and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop:  {"NOP", 0, 0, 0},
	OpPop:  {"POP_TOP", 1, 0, 0},
	OpDup:  {"DUP_TOP", 1, 2, 0},
	OpDup2: {"DUP_TOP_TWO", 2, 4, 0},
	OpRot2: {"ROT_TWO", 2, 2, 0},
	OpRot3: {"ROT_THREE", 3, 3, 0},

	// Constants
	OpLoadConst: {"LOAD_CONST", 0, 1, 2},
	OpLoadNone:  {"LOAD_NONE", 0, 1, 0},

	// Names
	OpLoadName:     {"LOAD_NAME", 0, 1, 2},
	OpStoreName:    {"STORE_NAME", 1, 0, 2},
	OpDeleteName:   {"DELETE_NAME", 0, 0, 2},
	OpLoadGlobal:   {"LOAD_GLOBAL", 0, 1, 2},
	OpStoreGlobal:  {"STORE_GLOBAL", 1, 0, 2},
	OpDeleteGlobal: {"DELETE_GLOBAL", 0, 0, 2},
	OpLoadFast:     {"LOAD_FAST", 0, 1, 2},
	OpStoreFast:    {"STORE_FAST", 1, 0, 2},
	OpDeleteFast:   {"DELETE_FAST", 0, 0, 2},

	// Attributes and subscripts
	OpLoadAttr:     {"LOAD_ATTR", 1, 1, 2},
	OpStoreAttr:    {"STORE_ATTR", 2, 0, 2},
	OpDeleteAttr:   {"DELETE_ATTR", 1, 0, 2},
	OpLoadSubscr:   {"LOAD_SUBSCR", 2, 1, 0},
	OpStoreSubscr:  {"STORE_SUBSCR", 3, 0, 0},
	OpDeleteSubscr: {"DELETE_SUBSCR", 2, 0, 0},

	// Operators
	OpBinary:  {"BINARY_OP", 2, 1, 1},
	OpUnary:   {"UNARY_OP", 1, 1, 1},
	OpCompare: {"COMPARE_OP", 2, 1, 1},

	// Builders
	OpBuildTuple:     {"BUILD_TUPLE", -1, 1, 2},
	OpBuildList:      {"BUILD_LIST", -1, 1, 2},
	OpBuildMap:       {"BUILD_MAP", -1, 1, 2},
	OpBuildSlice:     {"BUILD_SLICE", -1, 1, 1},
	OpBuildString:    {"BUILD_STRING", -1, 1, 2},
	OpFormatValue:    {"FORMAT_VALUE", -1, 1, 1},
	OpUnpackSequence: {"UNPACK_SEQUENCE", 1, -1, 2},

	// Control flow
	OpJump:             {"JUMP", 0, 0, 2},
	OpPopJumpIfFalse:   {"POP_JUMP_IF_FALSE", 1, 0, 2},
	OpPopJumpIfTrue:    {"POP_JUMP_IF_TRUE", 1, 0, 2},
	OpJumpIfFalseOrPop: {"JUMP_IF_FALSE_OR_POP", 1, -1, 2},
	OpJumpIfTrueOrPop:  {"JUMP_IF_TRUE_OR_POP", 1, -1, 2},
	OpForIter:          {"FOR_ITER", 1, -1, 2},
	OpGetIter:          {"GET_ITER", 1, 1, 0},

	// Calls and functions
	OpCall:         {"CALL", -1, 1, 2},
	OpCallKw:       {"CALL_KW", -1, 1, 2},
	OpMakeFunction: {"MAKE_FUNCTION", -1, 1, 3},
	OpReturnValue:  {"RETURN_VALUE", 1, 0, 0},

	// Statements
	OpRaise:              {"RAISE", -1, 0, 1},
	OpLoadAssertionError: {"LOAD_ASSERTION_ERROR", 0, 1, 0},
	OpPrintExpr:          {"PRINT_EXPR", 1, 0, 0},
	OpImportName:         {"IMPORT_NAME", 0, 1, 3},
	OpImportFrom:         {"IMPORT_FROM", 1, 2, 2},
	OpImportStar:         {"IMPORT_STAR", 1, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump reports whether the operand is an absolute jump target.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpForIter
}

// AllOpcodes returns every defined opcode.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
