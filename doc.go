/*
Package ovm is a small virtual machine for pre-compiled object heaps.

OVM loads a compact, pre-serialized binary heap ("OHP2" format) and executes
a bytecode instruction stream against it. A heap is produced by an external
compiler; OVM is the consumer only. Package structure is as follows:

■ oheap: Package oheap implements the heap loader, the fixed-size tagged cells,
typed accessors for strings, tuples and scalars, and a read-only view of code objects.

■ runtime: Package runtime provides frames (operand stack, block stack, local
bindings) and the call stack for the interpreter.

■ native: Package native implements the table of native functions, callable
from bytecode through reserved negative handles.

■ vm: Package vm implements the fetch-decode-execute loop and the calling convention.

■ vm/ovm: Command ovm loads a heap file and runs its entry point, or lets
users inspect the heap interactively.

The base package contains data types which are used throughout all the other packages.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package ovm
