/*
Package oheap implements the object heap of OVM.

A heap is loaded from a binary image in "OHP2" format. The image consists of
a small header, one contiguous slab blob and a table of fixed-size cells:

    offset  size            field
    0       4               magic "OHP2"
    4       4               total slab size S
    8       4               number of cells N
    12      S               slab bytes
    12+S    N × 16          cell records

All integers are stored in the byte order of the host. Every cell is a tagged
16-byte record. Small strings (up to 12 bytes) and small tuples (up to 3 handles)
live inline in the cell. Bigger values live in the slab, prefixed by a 4-byte
length; their cells carry an offset into the slab. Loading resolves every slab
offset to a view into the slab buffer in one linear pass over the cell table.

Code objects are cells with tag Code. Their slab payload is an array of handles
to the fields of the code object, in a fixed order. Type Code is a read-only view
over such a cell.

Accessing a cell through an accessor which expects a different tag is an invariant
violation and will panic with an *AssertionError. The heap trusts its producer.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package oheap

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ovm.heap'.
func tracer() tracing.Trace {
	return tracing.Select("ovm.heap")
}
