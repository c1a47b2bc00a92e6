/*
Package runtime implements the runtime environment of the OVM interpreter,
consisting of frames, scopes and bindings of names to handles.

For a thorough discussion of an interpreter's runtime environment, refer to
"Language Implementation Patterns" by Terence Parr.

Bindings and Scopes

Names are bound to handles in symbol tables. Symbol tables are attached to
scopes, which link to a parent scope. The scope of the root frame holds the
global names of a program.

Frames

A frame is the state of one call activation: an operand stack of handles, a stack
of blocks (loops, exception handlers, finally-clauses) and a scope for local names.
Frames are kept on a call stack, most recent call last.

Completion reasons raised during execution of a frame travel through the frame's
block stack (see Frame.Unwind). Every kind of block decides which reasons it
intercepts.

----------------------------------------------------------------------

BSD License

Copyright (c) 2017-21, Norbert Pillmayer

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions
are met:

1. Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright
notice, this list of conditions and the following disclaimer in the
documentation and/or other materials provided with the distribution.

3. Neither the name of this software or the names of its contributors
may be used to endorse or promote products derived from this software
without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE. */
package runtime

import (
	"github.com/npillmayer/ovm/native"
	"github.com/npillmayer/ovm/oheap"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the runtime tracer.
func T() tracing.Trace {
	return tracing.Select("ovm.runtime")
}

// Runtime is a type implementing a runtime environment for an interpreter.
type Runtime struct {
	Heap      *oheap.OHeap     // the heap all frames operate on
	Globals   *Scope           // global names
	CallStack *CallStack       // runtime stack of frames
	Builtins  *native.Registry // native functions, consulted by name lookup
}

// NewRuntimeEnvironment constructs a new runtime environment for a heap,
// initialized with an empty global scope and an empty call stack.
// If builtins is nil, the default registry is used.
//
func NewRuntimeEnvironment(heap *oheap.OHeap, builtins *native.Registry) *Runtime {
	if builtins == nil {
		builtins = native.Default()
	}
	rt := &Runtime{
		Heap:      heap,
		Globals:   NewScope("globals", nil),
		CallStack: NewCallStack(),
		Builtins:  builtins,
	}
	return rt
}

// PushFrame creates a frame for a code object and pushes it onto the call stack.
// The first frame pushed is the root frame and binds names in the global scope.
// Every other frame gets a local scope, which has the global scope as its parent.
func (rt *Runtime) PushFrame(co oheap.Code) *Frame {
	scope := rt.Globals
	if rt.CallStack.Size() > 0 {
		scope = NewScope(string(co.Name()), rt.Globals)
	}
	frame := NewFrame(co, rt.Heap, scope, rt.Builtins)
	rt.CallStack.Push(frame)
	return frame
}

// PopFrame pops the current frame off the call stack.
func (rt *Runtime) PopFrame() *Frame {
	return rt.CallStack.Pop()
}
