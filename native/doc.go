/*
Package native implements the table of native functions of OVM.

Native functions are implemented in Go, not in bytecode. Bytecode reaches them
through names: when a name cannot be resolved in a frame, the frame asks the
registry, which maps the name to a reserved negative handle. The VM recognizes
negative callee handles in CALL_FUNCTION and dispatches them to the registry.

The registry is built once, from an enumerated list of builtins. Presently the
only builtin is "print".

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package native

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ovm.native'.
func tracer() tracing.Trace {
	return tracing.Select("ovm.native")
}
