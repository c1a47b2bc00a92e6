package runtime

import (
	"fmt"

	"github.com/npillmayer/ovm"
)

// BlockKind is the kind of a block on a frame's block stack.
type BlockKind int8

// Kinds of blocks.
const (
	LoopBlock    BlockKind = iota // intercepts Break and Continue
	ExceptBlock                   // intercepts Exception and Reraise
	FinallyBlock                  // intercepts every completion leaving the frame normally
	WithBlock                     // behaves like FinallyBlock
)

func (k BlockKind) String() string {
	switch k {
	case LoopBlock:
		return "loop"
	case ExceptBlock:
		return "except"
	case FinallyBlock:
		return "finally"
	case WithBlock:
		return "with"
	}
	return fmt.Sprintf("block(%d)", int8(k))
}

// Block is an entry of a frame's block stack. Level is the depth of the
// operand stack at block setup, Handler is the bytecode offset control is
// transferred to when the block intercepts a completion.
type Block struct {
	Kind    BlockKind
	Level   int
	Handler int
}

func (b Block) String() string {
	return fmt.Sprintf("<%s block level=%d handler=%d>", b.Kind, b.Level, b.Handler)
}

// Signal is a completion reason on its way out of a frame. Target is the
// jump target of a Continue.
type Signal struct {
	Why    ovm.Why
	Target int
}

// PushBlock sets up a block with a handler offset. The block remembers the
// current depth of the operand stack.
func (f *Frame) PushBlock(kind BlockKind, handler int) {
	b := Block{Kind: kind, Level: f.Depth(), Handler: handler}
	T().P("frame", f.Name).Debugf("setup %v", b)
	f.blocks.Push(b)
}

// PopBlock pops the innermost block and restores the operand stack to the
// block's level.
func (f *Frame) PopBlock() Block {
	v, ok := f.blocks.Pop()
	if !ok {
		panic(fmt.Sprintf("attempt to pop block from empty block stack in frame %s", f.Name))
	}
	b := v.(Block)
	f.truncate(b.Level)
	return b
}

// BlockDepth is the number of blocks set up in the frame.
func (f *Frame) BlockDepth() int {
	return f.blocks.Size()
}

// Blocks returns the block stack, innermost block first.
func (f *Frame) Blocks() []Block {
	vs := f.blocks.Values()
	bs := make([]Block, len(vs))
	for i, v := range vs {
		bs[i] = v.(Block)
	}
	return bs
}

// Unwind passes a completion through the block stack, innermost block first.
// If a block intercepts the completion, the frame's PC is set to the block's
// handler (or to the continue target) and Unwind returns WhyNot. Otherwise all
// blocks are popped and the completion is returned, to leave the frame.
//
// Yield and Unsupported leave the frame without unwinding.
func (f *Frame) Unwind(sig Signal) ovm.Why {
	switch sig.Why {
	case ovm.WhyNot, ovm.WhyYield, ovm.WhyUnsupported:
		return sig.Why
	}
	for !f.blocks.Empty() {
		v, _ := f.blocks.Peek()
		b := v.(Block)
		if b.Kind == LoopBlock && sig.Why == ovm.WhyContinue {
			f.PC = sig.Target
			return ovm.WhyNot
		}
		f.PopBlock()
		switch b.Kind {
		case LoopBlock:
			if sig.Why == ovm.WhyBreak {
				f.PC = b.Handler
				return ovm.WhyNot
			}
		case ExceptBlock:
			if sig.Why == ovm.WhyException || sig.Why == ovm.WhyReraise {
				f.PC = b.Handler
				return ovm.WhyNot
			}
		case FinallyBlock, WithBlock:
			f.pending = sig
			f.PC = b.Handler
			return ovm.WhyNot
		}
		T().P("frame", f.Name).Debugf("%s unwinds %v", sig.Why, b)
	}
	return sig.Why
}

// EndFinally resumes a completion suspended by a finally block. An exception
// is resumed as a re-raise. Returns WhyNot if there is nothing to resume or
// if an outer block intercepts the resumed completion.
func (f *Frame) EndFinally() ovm.Why {
	sig := f.pending
	f.pending = Signal{}
	if sig.Why == ovm.WhyException {
		sig.Why = ovm.WhyReraise
	}
	return f.Unwind(sig)
}

// Pending returns the completion suspended by a finally block, if any.
func (f *Frame) Pending() Signal {
	return f.pending
}
