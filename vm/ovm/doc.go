/*
Package ovm/main provides the command line tool for running OVM heap images.

	ovm [flags] <heap-file>

ovm loads a heap image and runs its entry point, i.e. the last code object of
the heap. Flags:

	-trace level     trace level [Debug|Info|Error]
	-config file     TOML configuration file
	-compat          legacy-compatible mode: skip unknown opcodes, calls to
	                 user-defined callables produce None
	-verify          check the heap for consistency before running it
	-dis             print a disassembly of the entry point
	-export file     write the decoded heap as CBOR to file
	-inspect         start an interactive inspector instead of running

The exit code is 0 after a successful run. It is 1 if the heap file argument
is missing, the file cannot be opened or loaded, or the program ends with an
exception or with an unsupported operation.

A configuration file may contain the keys trace (string), legacy_compat (bool),
max_slab_size (int), trace_instructions (bool) and verify (bool). Flags given
on the command line override settings of the configuration file.


License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/

package main

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ovm.cli'
func tracer() tracing.Trace {
	return tracing.Select("ovm.cli")
}
