package vm

import (
	"fmt"
	"strings"

	"github.com/npillmayer/ovm/oheap"
)

// Disassemble returns a human-readable listing of a code object, with a header
// describing the code object's metadata and constants.
func Disassemble(co oheap.Code) string {
	var sb strings.Builder
	heap := co.Heap()
	sb.WriteString(fmt.Sprintf("; === %s ===\n", co.Name()))
	sb.WriteString(fmt.Sprintf("; %s:%d\n", co.Filename(), co.FirstLineNo()))
	sb.WriteString(fmt.Sprintf("; argcount=%d nlocals=%d stacksize=%d flags=0x%04X\n",
		co.ArgCount(), co.NLocals(), co.StackSize(), co.Flags()))
	if names := co.Names(); names.Len() > 0 {
		sb.WriteString("; Names:")
		for i := 0; i < names.Len(); i++ {
			sb.WriteString(" " + heap.CStr(names.At(i)))
		}
		sb.WriteString("\n")
	}
	if consts := co.Consts(); consts.Len() > 0 {
		sb.WriteString("; Constants:\n")
		for i := 0; i < consts.Len(); i++ {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, heap.DebugString(consts.At(i))))
		}
	}
	sb.WriteString("\n")
	for _, line := range DisassembleToLines(co) {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleToLines returns the instructions of a code object, one per line.
// A truncated last instruction is listed as such; disassembly stops there.
func DisassembleToLines(co oheap.Code) []string {
	var lines []string
	bytecode := co.Bytecode()
	offset := 0
	for offset < len(bytecode) {
		ins, err := Decode(bytecode, offset)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%04d  %s <truncated>", offset, ins.Op))
			break
		}
		line := fmt.Sprintf("%04d  %s", offset, ins)
		if note := annotate(co, ins); note != "" {
			line += " (" + note + ")"
		}
		lines = append(lines, line)
		offset = ins.Next()
	}
	return lines
}

// annotate explains the argument of an instruction.
func annotate(co oheap.Code, ins Instruction) string {
	heap := co.Heap()
	switch ins.Op {
	case LoadConst:
		if consts := co.Consts(); ins.Arg < consts.Len() {
			return heap.DebugString(consts.At(ins.Arg))
		}
		return "?"
	case LoadName, StoreName:
		if names := co.Names(); ins.Arg < names.Len() {
			return heap.CStr(names.At(ins.Arg))
		}
		return "?"
	case JumpForward, SetupLoop, SetupExcept, SetupFinally:
		return fmt.Sprintf("to %d", ins.Next()+ins.Arg)
	case JumpAbsolute, ContinueLoop:
		return fmt.Sprintf("to %d", ins.Arg)
	case CallFunction:
		return fmt.Sprintf("%d positional, %d keyword", ins.Arg&0xff, (ins.Arg>>8)&0xff)
	}
	return ""
}
