package oheap

import (
	"bytes"
	"io"
	"math"

	"github.com/npillmayer/ovm"
)

// ---------------------------------------------------------------------------
// Builder: produces heap images
// ---------------------------------------------------------------------------

// Builder assembles a heap image cell by cell. It is the writing counterpart of
// Load and produces images in the same layout an external compiler does.
// The None value is pre-allocated at handle 0.
//
//     b := NewBuilder()
//     hello := b.Str("hello")
//     print := b.Str("print")
//     b.Code(CodeSpec{Bytecode: ..., Names: []ovm.Handle{print}, Consts: []ovm.Handle{hello}})
//     image := b.Bytes()
//
// Values of more than MaxSmallLen bytes (or MaxSmallTuple entries) are placed
// into the slab.
type Builder struct {
	slab  []byte
	cells []Cell
}

// NewBuilder creates a builder with a None cell at handle 0.
func NewBuilder() *Builder {
	b := &Builder{}
	b.None()
	return b
}

// Len returns the number of cells built so far.
func (b *Builder) Len() int {
	return len(b.cells)
}

func (b *Builder) add(c Cell) ovm.Handle {
	b.cells = append(b.cells, c)
	return ovm.Handle(len(b.cells) - 1)
}

// addSlab appends a length-prefixed payload to the slab, 4-byte aligned, and
// returns its offset.
func (b *Builder) addSlab(n int, payload []byte) int32 {
	for len(b.slab)%4 != 0 {
		b.slab = append(b.slab, 0)
	}
	off := int32(len(b.slab))
	var prefix [4]byte
	byteOrder.PutUint32(prefix[:], uint32(int32(n)))
	b.slab = append(b.slab, prefix[:]...)
	b.slab = append(b.slab, payload...)
	return off
}

func (b *Builder) addBig(tag Tag, n int, payload []byte) ovm.Handle {
	c := Cell{tag: tag, isSlab: true}
	byteOrder.PutUint32(c.payload[offsetStart:], uint32(b.addSlab(n, payload)))
	return b.add(c)
}

// None adds a None cell.
func (b *Builder) None() ovm.Handle {
	return b.add(Cell{tag: TagNone})
}

// Bool adds a bool cell.
func (b *Builder) Bool(v bool) ovm.Handle {
	c := Cell{tag: TagBool}
	if v {
		c.setScalarBits(1)
	}
	return b.add(c)
}

// Int adds an integer cell.
func (b *Builder) Int(i int64) ovm.Handle {
	c := Cell{tag: TagInt}
	c.setScalarBits(uint64(i))
	return b.add(c)
}

// Float adds a float cell.
func (b *Builder) Float(f float64) ovm.Handle {
	c := Cell{tag: TagFloat}
	c.setScalarBits(math.Float64bits(f))
	return b.add(c)
}

// Str adds a string cell.
func (b *Builder) Str(s string) ovm.Handle {
	return b.StrBytes([]byte(s))
}

// StrBytes adds a string cell. The string may contain NUL bytes.
func (b *Builder) StrBytes(s []byte) ovm.Handle {
	if len(s) <= MaxSmallLen {
		c := Cell{tag: TagStr, smallLen: uint8(len(s))}
		copy(c.payload[:], s)
		return b.add(c)
	}
	return b.addBig(TagStr, len(s), s)
}

// Tuple adds a tuple cell.
func (b *Builder) Tuple(hs ...ovm.Handle) ovm.Handle {
	raw := encodeHandles(hs)
	if len(hs) <= MaxSmallTuple {
		c := Cell{tag: TagTuple, smallLen: uint8(len(hs))}
		copy(c.payload[:], raw)
		return b.add(c)
	}
	return b.addBig(TagTuple, len(hs), raw)
}

// CodeSpec describes a code object to be built.
type CodeSpec struct {
	ArgCount    int64
	NLocals     int64
	StackSize   int64
	Flags       int64
	FirstLineNo int64
	Name        string
	Filename    string
	Bytecode    []byte
	Names       []ovm.Handle // handles of Str cells
	VarNames    []ovm.Handle // handles of Str cells
	Consts      []ovm.Handle
}

// Code adds the field cells of a code object, followed by the code object itself.
// The code object is the last cell added, so a program's entry point should be
// built last.
func (b *Builder) Code(spec CodeSpec) ovm.Handle {
	var fields [NumCodeFields]ovm.Handle
	fields[FieldArgCount-1] = b.Int(spec.ArgCount)
	fields[FieldNLocals-1] = b.Int(spec.NLocals)
	fields[FieldStackSize-1] = b.Int(spec.StackSize)
	fields[FieldFlags-1] = b.Int(spec.Flags)
	fields[FieldFirstLineNo-1] = b.Int(spec.FirstLineNo)
	fields[FieldName-1] = b.Str(spec.Name)
	fields[FieldFilename-1] = b.Str(spec.Filename)
	fields[FieldCode-1] = b.StrBytes(spec.Bytecode)
	fields[FieldNames-1] = b.Tuple(spec.Names...)
	fields[FieldVarNames-1] = b.Tuple(spec.VarNames...)
	fields[FieldConsts-1] = b.Tuple(spec.Consts...)
	return b.CodeFields(fields[:]...)
}

// CodeFields adds a code object with the given field handles, without checking
// the tags of the fields.
func (b *Builder) CodeFields(fields ...ovm.Handle) ovm.Handle {
	return b.addBig(TagCode, len(fields), encodeHandles(fields))
}

func encodeHandles(hs []ovm.Handle) []byte {
	raw := make([]byte, 4*len(hs))
	for i, h := range hs {
		byteOrder.PutUint32(raw[4*i:], uint32(int32(h)))
	}
	return raw
}

// Bytes returns the heap image.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	b.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the heap image to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	var hdr [HeaderSize]byte
	copy(hdr[:magicSize], Magic[:])
	byteOrder.PutUint32(hdr[magicSize:], uint32(len(b.slab)))
	byteOrder.PutUint32(hdr[magicSize+slabSizeSize:], uint32(len(b.cells)))
	records := make([]byte, CellSize*len(b.cells))
	for i := range b.cells {
		b.cells[i].encode(records[i*CellSize:])
	}
	var total int64
	for _, chunk := range [][]byte{hdr[:], b.slab, records} {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
