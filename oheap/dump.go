package oheap

import (
	"fmt"
	"strings"

	"github.com/npillmayer/ovm"
	"github.com/npillmayer/schuko/tracing"
)

// DebugString returns a short, human-readable description of the cell at h.
func (heap *OHeap) DebugString(h ovm.Handle) string {
	if h.IsNative() {
		return fmt.Sprintf("<native %d>", h)
	}
	c := heap.Cell(h)
	switch c.tag {
	case TagNone:
		return "None"
	case TagBool:
		return fmt.Sprintf("Bool %v", heap.Bool(h))
	case TagInt:
		return fmt.Sprintf("Int %d", heap.Int(h))
	case TagFloat:
		return fmt.Sprintf("Float %g", heap.Float(h))
	case TagStr:
		return fmt.Sprintf("Str %q", heap.Str(h))
	case TagTuple:
		return fmt.Sprintf("Tuple %v", heap.Tuple(h).Handles())
	case TagCode:
		co := heap.Code(h)
		if co.NumFields() < NumCodeFields {
			return fmt.Sprintf("Code <%d fields>", co.NumFields())
		}
		return fmt.Sprintf("Code %s", co.Name())
	}
	return c.tag.String()
}

// DebugHandles returns a description of a sequence of handles, e.g. of an
// operand stack, together with the tags of the cells they denote.
func (heap *OHeap) DebugHandles(hs []ovm.Handle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%d) [ ", len(hs))
	for _, h := range hs {
		fmt.Fprintf(&sb, "%d ", int32(h))
	}
	sb.WriteString("] [ ")
	for _, h := range hs {
		if h.IsNative() || !heap.Contains(h) {
			sb.WriteString("(native) ")
		} else {
			sb.WriteString(heap.cells[h].tag.String())
			sb.WriteByte(' ')
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Dump traces every cell of the heap at the given level.
func (heap *OHeap) Dump(level tracing.TraceLevel) {
	out := tracer().Infof
	if level == tracing.LevelDebug {
		out = tracer().Debugf
	}
	for i := range heap.cells {
		out("  <id %d> %s", i, heap.DebugString(ovm.Handle(i)))
	}
}
