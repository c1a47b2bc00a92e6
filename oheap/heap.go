package oheap

import (
	"bytes"
	"fmt"

	"github.com/npillmayer/ovm"
)

// OHeap is an immutable object heap. It exclusively owns the slab buffer and
// the cell table; every view handed out by an accessor borrows from one of them.
type OHeap struct {
	slab      []byte
	cells     []Cell
	patched   int  // number of relocated slab cells
	relocated bool // relocation pass done
}

// AssertionError is the panic value for violated heap invariants, e.g. accessing
// a cell with an accessor for a different tag.
type AssertionError struct {
	Handle   ovm.Handle
	Expected Tag
	Found    Tag
	Msg      string
}

func (e *AssertionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("heap assertion failed for %v: %s", e.Handle, e.Msg)
	}
	return fmt.Sprintf("heap assertion failed for %v: expected %s, found %s",
		e.Handle, e.Expected, e.Found)
}

func assertf(h ovm.Handle, format string, args ...interface{}) {
	panic(&AssertionError{Handle: h, Msg: fmt.Sprintf(format, args...)})
}

// Len returns the number of cells.
func (heap *OHeap) Len() int {
	return len(heap.cells)
}

// Last returns the handle of the last cell. By convention the last cell of a
// heap is the code object of the program's entry point.
func (heap *OHeap) Last() ovm.Handle {
	return ovm.Handle(len(heap.cells) - 1)
}

// SlabSize returns the size of the slab buffer in bytes.
func (heap *OHeap) SlabSize() int {
	return len(heap.slab)
}

// Patched returns the number of cells which have been relocated into the slab.
func (heap *OHeap) Patched() int {
	return heap.patched
}

// Contains is a predicate: does h address a live cell?
func (heap *OHeap) Contains(h ovm.Handle) bool {
	return h >= 0 && int(h) < len(heap.cells)
}

// Cell returns the cell for handle h. h must address a live cell; native
// handles are never valid here.
func (heap *OHeap) Cell(h ovm.Handle) *Cell {
	if h.IsNative() {
		assertf(h, "native handle used as heap index")
	}
	if int(h) >= len(heap.cells) {
		assertf(h, "handle out of range [0…%d)", len(heap.cells))
	}
	return &heap.cells[h]
}

// TagOf returns the tag of the cell for h.
func (heap *OHeap) TagOf(h ovm.Handle) Tag {
	return heap.Cell(h).tag
}

// SlabOffset returns the position of a big cell's payload within the slab.
// It is -1 for small cells.
func (heap *OHeap) SlabOffset(h ovm.Handle) int {
	c := heap.Cell(h)
	if !c.isSlab || c.slab == nil {
		return -1
	}
	return cap(heap.slab) - cap(c.slab)
}

func (heap *OHeap) typed(h ovm.Handle, tag Tag) *Cell {
	c := heap.Cell(h)
	if c.tag != tag {
		panic(&AssertionError{Handle: h, Expected: tag, Found: c.tag})
	}
	return c
}

// --- Strings ---------------------------------------------------------------

// Str returns the bytes of a string cell. The result may contain NUL bytes.
// It is a view into the heap and must not be modified.
func (heap *OHeap) Str(h ovm.Handle) []byte {
	return strBytes(heap.typed(h, TagStr))
}

// LookupStr returns the bytes of a string cell, or false if h does not denote
// a string.
func (heap *OHeap) LookupStr(h ovm.Handle) ([]byte, bool) {
	if !heap.Contains(h) || heap.cells[h].tag != TagStr {
		return nil, false
	}
	return strBytes(&heap.cells[h]), true
}

// CStr returns the string of a string cell up to its first NUL byte.
func (heap *OHeap) CStr(h ovm.Handle) string {
	b := heap.Str(h)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func strBytes(c *Cell) []byte {
	if c.isSlab {
		n := c.bigLen()
		return c.slab[4 : 4+n : 4+n]
	}
	return c.smallBytes(int(c.smallLen))
}

// --- Tuples ----------------------------------------------------------------

// Tuple is a read-only view of a sequence of handles.
type Tuple struct {
	raw []byte // 4 bytes per handle
}

// Len returns the number of entries.
func (t Tuple) Len() int {
	return len(t.raw) / 4
}

// At returns the i-th handle of a tuple.
func (t Tuple) At(i int) ovm.Handle {
	return ovm.Handle(int32(byteOrder.Uint32(t.raw[4*i:])))
}

// Handles returns a copy of the entries of t.
func (t Tuple) Handles() []ovm.Handle {
	hs := make([]ovm.Handle, t.Len())
	for i := range hs {
		hs[i] = t.At(i)
	}
	return hs
}

// Tuple returns the entries of a tuple cell.
func (heap *OHeap) Tuple(h ovm.Handle) Tuple {
	c := heap.typed(h, TagTuple)
	return tupleOf(c)
}

func tupleOf(c *Cell) Tuple {
	if c.isSlab {
		n := c.bigLen()
		return Tuple{raw: c.slab[4 : 4+4*n : 4+4*n]}
	}
	n := 4 * int(c.smallLen)
	return Tuple{raw: c.smallBytes(n)}
}

// --- Scalars ---------------------------------------------------------------

// Int returns the value of an integer cell.
func (heap *OHeap) Int(h ovm.Handle) int64 {
	return heap.typed(h, TagInt).int64()
}

// Float returns the value of a float cell.
func (heap *OHeap) Float(h ovm.Handle) float64 {
	return heap.typed(h, TagFloat).float64()
}

// Bool returns the value of a bool cell.
func (heap *OHeap) Bool(h ovm.Handle) bool {
	return heap.typed(h, TagBool).scalarBits() != 0
}
