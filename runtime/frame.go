package runtime

import (
	"fmt"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/npillmayer/ovm"
	"github.com/npillmayer/ovm/native"
	"github.com/npillmayer/ovm/oheap"
)

// This module implements frames. A frame is the activation record of a code
// object: an operand stack, a block stack and a scope for names.

// Frame is the execution state of a code object.
type Frame struct {
	Name   string
	Code   oheap.Code
	Scope  *Scope
	Parent *Frame
	PC     int        // offset of the next instruction in Code's bytecode
	Result ovm.Handle // value on top of the operand stack at Return, or None

	heap     *oheap.OHeap
	builtins *native.Registry
	stack    []ovm.Handle
	blocks   *arraystack.Stack
	pending  Signal // completion suspended by a finally block
}

// NewFrame creates a frame for a code object. Names are bound in scope and,
// if not found there, looked up in builtins.
func NewFrame(co oheap.Code, heap *oheap.OHeap, scope *Scope, builtins *native.Registry) *Frame {
	if builtins == nil {
		builtins = native.Default()
	}
	if scope == nil {
		scope = NewScope("locals", nil)
	}
	f := &Frame{
		Name:     string(co.Name()),
		Code:     co,
		Scope:    scope,
		heap:     heap,
		builtins: builtins,
		blocks:   arraystack.New(),
	}
	if n := co.StackSize(); n > 0 {
		f.stack = make([]ovm.Handle, 0, n)
	}
	return f
}

func (f *Frame) String() string {
	return fmt.Sprintf("<frame %s @%d -> %v>", f.Name, f.PC, f.Scope)
}

// IsRoot is a predicate: Is this a root frame?
func (f *Frame) IsRoot() bool {
	return f.Parent == nil
}

// Heap returns the heap the frame's code lives in.
func (f *Frame) Heap() *oheap.OHeap {
	return f.heap
}

// Builtins returns the registry of native functions visible to the frame.
func (f *Frame) Builtins() *native.Registry {
	return f.builtins
}

// --- Operand stack ---------------------------------------------------------

// Push pushes a handle onto the operand stack.
func (f *Frame) Push(h ovm.Handle) {
	f.stack = append(f.stack, h)
}

// Pop pops the top of the operand stack.
func (f *Frame) Pop() ovm.Handle {
	if len(f.stack) == 0 {
		panic(fmt.Sprintf("attempt to pop from empty operand stack in frame %s", f.Name))
	}
	h := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return h
}

// PopN pops n handles off the operand stack and returns them in the order
// they have been pushed.
func (f *Frame) PopN(n int) []ovm.Handle {
	if n < 0 || n > len(f.stack) {
		panic(fmt.Sprintf("attempt to pop %d values from operand stack of depth %d in frame %s",
			n, len(f.stack), f.Name))
	}
	hs := make([]ovm.Handle, n)
	copy(hs, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return hs
}

// Top returns the top of the operand stack without popping it.
func (f *Frame) Top() (ovm.Handle, bool) {
	if len(f.stack) == 0 {
		return ovm.None, false
	}
	return f.stack[len(f.stack)-1], true
}

// Depth is the number of handles on the operand stack.
func (f *Frame) Depth() int {
	return len(f.stack)
}

// Values returns a copy of the operand stack, bottom first.
func (f *Frame) Values() []ovm.Handle {
	hs := make([]ovm.Handle, len(f.stack))
	copy(hs, f.stack)
	return hs
}

func (f *Frame) truncate(level int) {
	if level < len(f.stack) {
		f.stack = f.stack[:level]
	}
}

// --- Names -----------------------------------------------------------------

// LoadName resolves a name, given as a handle of a string cell. Bindings of
// the frame's scope chain are consulted first, then the builtins. A name
// which cannot be resolved yields None.
//
// TODO: raise a NameError exception for unresolved names once exceptions
// carry a payload.
func (f *Frame) LoadName(name ovm.Handle) ovm.Handle {
	key := f.heap.CStr(name)
	if b, _ := f.Scope.Resolve(key); b != nil {
		return b.Handle
	}
	if h, ok := f.builtins.Lookup(key); ok {
		return h
	}
	T().P("frame", f.Name).Debugf("name '%s' is not bound, using None", key)
	return ovm.None
}

// StoreName binds a name, given as a handle of a string cell, to a value in
// the frame's own scope.
func (f *Frame) StoreName(name, value ovm.Handle) {
	f.Scope.Bind(f.heap.CStr(name), value)
}
