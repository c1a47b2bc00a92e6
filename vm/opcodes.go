package vm

import (
	"errors"
	"fmt"
)

// Opcode is a bytecode instruction.
type Opcode byte

// HaveArgument is the lowest opcode taking an argument.
const HaveArgument Opcode = 90

// Opcodes implemented by the VM.
const (
	PopTop       Opcode = 1   // discard TOS
	Nop          Opcode = 9   // no operation
	BreakLoop    Opcode = 80  // leave the innermost loop
	ReturnValue  Opcode = 83  // return TOS to the caller
	PopBlock     Opcode = 87  // pop the innermost block
	EndFinally   Opcode = 88  // resume a completion suspended by a finally block
	StoreName    Opcode = 90  // names[arg] = pop()
	LoadConst    Opcode = 100 // push consts[arg]
	LoadName     Opcode = 101 // push value of names[arg]
	JumpForward  Opcode = 110 // pc += arg
	JumpAbsolute Opcode = 113 // pc = arg
	ContinueLoop Opcode = 119 // continue the innermost loop at arg
	SetupLoop    Opcode = 120 // push loop block, handler at pc+arg
	SetupExcept  Opcode = 121 // push except block, handler at pc+arg
	SetupFinally Opcode = 122 // push finally block, handler at pc+arg
	CallFunction Opcode = 131 // call with arg&0xff positional arguments
)

var opcodeNames = map[Opcode]string{
	0: "STOP_CODE", 1: "POP_TOP", 2: "ROT_TWO", 3: "ROT_THREE", 4: "DUP_TOP", 5: "ROT_FOUR",
	9: "NOP", 10: "UNARY_POSITIVE", 11: "UNARY_NEGATIVE", 12: "UNARY_NOT", 13: "UNARY_CONVERT",
	15: "UNARY_INVERT", 19: "BINARY_POWER", 20: "BINARY_MULTIPLY", 21: "BINARY_DIVIDE",
	22: "BINARY_MODULO", 23: "BINARY_ADD", 24: "BINARY_SUBTRACT", 25: "BINARY_SUBSCR",
	26: "BINARY_FLOOR_DIVIDE", 27: "BINARY_TRUE_DIVIDE", 28: "INPLACE_FLOOR_DIVIDE",
	29: "INPLACE_TRUE_DIVIDE", 30: "SLICE+0", 31: "SLICE+1", 32: "SLICE+2", 33: "SLICE+3",
	40: "STORE_SLICE+0", 41: "STORE_SLICE+1", 42: "STORE_SLICE+2", 43: "STORE_SLICE+3",
	50: "DELETE_SLICE+0", 51: "DELETE_SLICE+1", 52: "DELETE_SLICE+2", 53: "DELETE_SLICE+3",
	54: "STORE_MAP", 55: "INPLACE_ADD", 56: "INPLACE_SUBTRACT", 57: "INPLACE_MULTIPLY",
	58: "INPLACE_DIVIDE", 59: "INPLACE_MODULO", 60: "STORE_SUBSCR", 61: "DELETE_SUBSCR",
	62: "BINARY_LSHIFT", 63: "BINARY_RSHIFT", 64: "BINARY_AND", 65: "BINARY_XOR", 66: "BINARY_OR",
	67: "INPLACE_POWER", 68: "GET_ITER", 70: "PRINT_EXPR", 71: "PRINT_ITEM", 72: "PRINT_NEWLINE",
	73: "PRINT_ITEM_TO", 74: "PRINT_NEWLINE_TO", 75: "INPLACE_LSHIFT", 76: "INPLACE_RSHIFT",
	77: "INPLACE_AND", 78: "INPLACE_XOR", 79: "INPLACE_OR", 80: "BREAK_LOOP", 81: "WITH_CLEANUP",
	82: "LOAD_LOCALS", 83: "RETURN_VALUE", 84: "IMPORT_STAR", 85: "EXEC_STMT", 86: "YIELD_VALUE",
	87: "POP_BLOCK", 88: "END_FINALLY", 89: "BUILD_CLASS", 90: "STORE_NAME", 91: "DELETE_NAME",
	92: "UNPACK_SEQUENCE", 93: "FOR_ITER", 94: "LIST_APPEND", 95: "STORE_ATTR", 96: "DELETE_ATTR",
	97: "STORE_GLOBAL", 98: "DELETE_GLOBAL", 99: "DUP_TOPX", 100: "LOAD_CONST", 101: "LOAD_NAME",
	102: "BUILD_TUPLE", 103: "BUILD_LIST", 104: "BUILD_SET", 105: "BUILD_MAP", 106: "LOAD_ATTR",
	107: "COMPARE_OP", 108: "IMPORT_NAME", 109: "IMPORT_FROM", 110: "JUMP_FORWARD",
	111: "JUMP_IF_FALSE_OR_POP", 112: "JUMP_IF_TRUE_OR_POP", 113: "JUMP_ABSOLUTE",
	114: "POP_JUMP_IF_FALSE", 115: "POP_JUMP_IF_TRUE", 116: "LOAD_GLOBAL", 119: "CONTINUE_LOOP",
	120: "SETUP_LOOP", 121: "SETUP_EXCEPT", 122: "SETUP_FINALLY", 124: "LOAD_FAST",
	125: "STORE_FAST", 126: "DELETE_FAST", 130: "RAISE_VARARGS", 131: "CALL_FUNCTION",
	132: "MAKE_FUNCTION", 133: "BUILD_SLICE", 134: "MAKE_CLOSURE", 135: "LOAD_CLOSURE",
	136: "LOAD_DEREF", 137: "STORE_DEREF", 140: "CALL_FUNCTION_VAR", 141: "CALL_FUNCTION_KW",
	142: "CALL_FUNCTION_VAR_KW", 143: "SETUP_WITH", 145: "EXTENDED_ARG", 146: "SET_ADD",
	147: "MAP_ADD",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("<%d>", byte(op))
}

// HasArgument is a predicate: is op followed by a two-byte argument?
func (op Opcode) HasArgument() bool {
	return op >= HaveArgument
}

// Len is the length in bytes of an instruction with opcode op.
func (op Opcode) Len() int {
	if op.HasArgument() {
		return 3
	}
	return 1
}

// IsImplemented is a predicate: does the VM execute op?
func (op Opcode) IsImplemented() bool {
	switch op {
	case PopTop, Nop, BreakLoop, ReturnValue, PopBlock, EndFinally, StoreName, LoadConst,
		LoadName, JumpForward, JumpAbsolute, ContinueLoop, SetupLoop, SetupExcept,
		SetupFinally, CallFunction:
		return true
	}
	return false
}

// ErrTruncated is returned when decoding an instruction whose argument lies
// beyond the end of the bytecode.
var ErrTruncated = errors.New("truncated instruction")

// Instruction is a decoded instruction.
type Instruction struct {
	Offset int    // offset of the opcode byte
	Op     Opcode // opcode
	Arg    int    // argument, 0 for opcodes below HaveArgument
}

// Next is the offset of the instruction following ins.
func (ins Instruction) Next() int {
	return ins.Offset + ins.Op.Len()
}

func (ins Instruction) String() string {
	if ins.Op.HasArgument() {
		return fmt.Sprintf("%-20s %5d", ins.Op, ins.Arg)
	}
	return ins.Op.String()
}

// Decode decodes the instruction at offset.
func Decode(bytecode []byte, offset int) (Instruction, error) {
	if offset < 0 || offset >= len(bytecode) {
		return Instruction{Offset: offset}, fmt.Errorf("offset %d outside of bytecode: %w", offset, ErrTruncated)
	}
	ins := Instruction{Offset: offset, Op: Opcode(bytecode[offset])}
	if ins.Op.HasArgument() {
		if offset+2 >= len(bytecode) {
			return ins, fmt.Errorf("%s at %d: %w", ins.Op, offset, ErrTruncated)
		}
		ins.Arg = int(bytecode[offset+1]) | int(bytecode[offset+2])<<8
	}
	return ins, nil
}
