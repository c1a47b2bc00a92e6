/*
Package vm implements the bytecode interpreter of OVM.

A VM runs code objects of an object heap (see package oheap). The entry point
of a program is, by convention, the last cell of the heap. The VM builds a root
frame for it and runs the fetch-decode-execute loop until the frame's code
returns, runs off its end, or a completion reason escapes the frame's blocks.

Instructions are one opcode byte, followed by a two-byte little-endian
argument for opcodes at or above HaveArgument. Opcode numbering follows
CPython 2.7, which is what the producing compiler emits. Only a subset of the
opcodes is implemented; any other opcode ends execution with completion reason
WhyUnsupported, unless the VM runs in legacy-compatible mode (see LegacyCompat),
where unknown opcodes are skipped.

Calls

CALL_FUNCTION pops its arguments and the callee off the operand stack. Callees
denoted by a native sentinel handle are dispatched to the native registry
(package native). Calls to user-defined code objects are not supported yet.
Every call leaves exactly one result on the operand stack.

Configuration

Defaults for legacy-compatible mode and instruction tracing are taken from the
global configuration keys "ovm.legacy-compat" and "ovm.trace-instructions";
options given to New override them.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package vm

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ovm.vm'.
func tracer() tracing.Trace {
	return tracing.Select("ovm.vm")
}
