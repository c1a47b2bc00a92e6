package oheap

import (
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/npillmayer/ovm"
)

// CellExport is the decoded form of a cell, as written by ExportCBOR.
type CellExport struct {
	Handle ovm.Handle   `cbor:"h"`
	Tag    string       `cbor:"tag"`
	Slab   bool         `cbor:"slab,omitempty"`
	Int    int64        `cbor:"int,omitempty"`
	Float  float64      `cbor:"float,omitempty"`
	Bool   bool         `cbor:"bool,omitempty"`
	Str    []byte       `cbor:"str,omitempty"`
	Tuple  []ovm.Handle `cbor:"tuple,omitempty"`
}

// HeapExport is the decoded form of a heap, as written by ExportCBOR.
type HeapExport struct {
	SlabSize int          `cbor:"slab_size"`
	Cells    []CellExport `cbor:"cells"`
}

// Export decodes every cell of the heap. Code objects export their field handles
// as a tuple.
func (heap *OHeap) Export() HeapExport {
	ex := HeapExport{SlabSize: len(heap.slab), Cells: make([]CellExport, len(heap.cells))}
	for i := range heap.cells {
		h := ovm.Handle(i)
		c := &heap.cells[i]
		ce := CellExport{Handle: h, Tag: c.tag.String(), Slab: c.isSlab}
		switch c.tag {
		case TagBool:
			ce.Bool = heap.Bool(h)
		case TagInt:
			ce.Int = heap.Int(h)
		case TagFloat:
			ce.Float = heap.Float(h)
		case TagStr:
			ce.Str = heap.Str(h)
		case TagTuple:
			ce.Tuple = heap.Tuple(h).Handles()
		case TagCode:
			co := heap.Code(h)
			for f := 1; f <= co.NumFields(); f++ {
				ce.Tuple = append(ce.Tuple, co.Field(f))
			}
		}
		ex.Cells[i] = ce
	}
	return ex
}

// ExportCBOR writes the decoded heap to w in CBOR format, for inspection by
// external tools.
func (heap *OHeap) ExportCBOR(w io.Writer) error {
	return cbor.NewEncoder(w).Encode(heap.Export())
}
