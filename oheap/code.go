package oheap

import (
	"github.com/npillmayer/ovm"
)

// Positions of the fields of a code object. Position 0 of the slab payload
// holds the number of fields.
const (
	FieldArgCount = iota + 1
	FieldNLocals
	FieldStackSize
	FieldFlags
	FieldFirstLineNo
	FieldName
	FieldFilename
	FieldCode
	FieldNames
	FieldVarNames
	FieldConsts

	// NumCodeFields is the number of fields of a code object.
	NumCodeFields = FieldConsts
)

// Code is a read-only view of a code object. It borrows from the heap and must
// not outlive it. Every field is re-resolved through the heap on access.
type Code struct {
	heap   *OHeap
	self   ovm.Handle
	fields []byte // slab payload: length prefix followed by field handles
}

// Code returns a view of the code object at h.
func (heap *OHeap) Code(h ovm.Handle) Code {
	c := heap.typed(h, TagCode)
	if !c.isSlab {
		assertf(h, "code object is not slab-resident")
	}
	n := c.bigLen()
	return Code{heap: heap, self: h, fields: c.slab[: 4+4*n : 4+4*n]}
}

// Handle returns the handle of the code object.
func (co Code) Handle() ovm.Handle {
	return co.self
}

// Heap returns the heap the code object lives in.
func (co Code) Heap() *OHeap {
	return co.heap
}

// NumFields returns the number of field handles stored in the code object.
func (co Code) NumFields() int {
	return int(int32(byteOrder.Uint32(co.fields)))
}

// Field returns the handle stored at field position i (1…NumCodeFields).
func (co Code) Field(i int) ovm.Handle {
	if i < 1 || i > co.NumFields() {
		assertf(co.self, "code field %d out of range [1…%d]", i, co.NumFields())
	}
	return ovm.Handle(int32(byteOrder.Uint32(co.fields[4*i:])))
}

func (co Code) asInt(i int) int64 {
	return co.heap.Int(co.Field(i))
}

// ArgCount returns the number of positional arguments.
func (co Code) ArgCount() int64 { return co.asInt(FieldArgCount) }

// NLocals returns the number of local variables.
func (co Code) NLocals() int64 { return co.asInt(FieldNLocals) }

// StackSize returns the maximum depth of the operand stack.
func (co Code) StackSize() int64 { return co.asInt(FieldStackSize) }

// Flags returns the flag bits of the code object.
func (co Code) Flags() int64 { return co.asInt(FieldFlags) }

// FirstLineNo returns the first source line.
func (co Code) FirstLineNo() int64 { return co.asInt(FieldFirstLineNo) }

// Name returns the name of the callable unit.
func (co Code) Name() []byte { return co.heap.Str(co.Field(FieldName)) }

// Filename returns the name of the source file.
func (co Code) Filename() []byte { return co.heap.Str(co.Field(FieldFilename)) }

// Bytecode returns the instruction stream.
func (co Code) Bytecode() []byte { return co.heap.Str(co.Field(FieldCode)) }

// Names returns the tuple of names referenced by name-instructions.
func (co Code) Names() Tuple { return co.heap.Tuple(co.Field(FieldNames)) }

// VarNames returns the tuple of local variable names.
func (co Code) VarNames() Tuple { return co.heap.Tuple(co.Field(FieldVarNames)) }

// Consts returns the tuple of constants.
func (co Code) Consts() Tuple { return co.heap.Tuple(co.Field(FieldConsts)) }
