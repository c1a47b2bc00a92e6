package oheap

import (
	"errors"
	"fmt"

	"github.com/npillmayer/ovm"
)

// codeFieldTags lists the expected tag for every field position of a code object.
var codeFieldTags = [NumCodeFields + 1]Tag{
	FieldArgCount:    TagInt,
	FieldNLocals:     TagInt,
	FieldStackSize:   TagInt,
	FieldFlags:       TagInt,
	FieldFirstLineNo: TagInt,
	FieldName:        TagStr,
	FieldFilename:    TagStr,
	FieldCode:        TagStr,
	FieldNames:       TagTuple,
	FieldVarNames:    TagTuple,
	FieldConsts:      TagTuple,
}

// Verify checks the heap for consistency: slab payloads lie within the slab,
// inline lengths fit into a cell, tuple entries and code fields address live
// cells of the expected kind. Load does not call Verify; the heap trusts its
// producer unless a client asks for a check.
//
// Verify returns all problems found, joined into one error, or nil.
func (heap *OHeap) Verify() error {
	var errs []error
	fail := func(i int, format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: cell %d: %s", ErrCorruptData, i, fmt.Sprintf(format, args...)))
	}
	for i := range heap.cells {
		c := &heap.cells[i]
		if !c.tag.IsKnown() {
			fail(i, "unknown tag %d", int16(c.tag))
			continue
		}
		if c.isSlab {
			width := 1
			switch c.tag {
			case TagStr:
			case TagTuple, TagCode:
				width = 4
			default:
				fail(i, "%s cell must not be slab-resident", c.tag)
				continue
			}
			n := c.bigLen()
			if n < 0 || 4+width*n > len(c.slab) {
				fail(i, "slab payload of length %d exceeds slab", n)
				continue
			}
		} else {
			switch c.tag {
			case TagStr:
				if c.smallLen > MaxSmallLen {
					fail(i, "inline string length %d > %d", c.smallLen, MaxSmallLen)
					continue
				}
			case TagTuple:
				if c.smallLen > MaxSmallTuple {
					fail(i, "inline tuple length %d > %d", c.smallLen, MaxSmallTuple)
					continue
				}
			case TagCode:
				fail(i, "code object is not slab-resident")
				continue
			}
		}
		switch c.tag {
		case TagTuple:
			t := tupleOf(c)
			for j := 0; j < t.Len(); j++ {
				if h := t.At(j); !heap.Contains(h) {
					fail(i, "tuple entry %d is not a live handle: %d", j, h)
				}
			}
		case TagCode:
			errs = append(errs, heap.verifyCode(ovm.Handle(i))...)
		}
	}
	return errors.Join(errs...)
}

func (heap *OHeap) verifyCode(h ovm.Handle) []error {
	var errs []error
	co := heap.Code(h)
	if co.NumFields() < NumCodeFields {
		return []error{fmt.Errorf("%w: cell %d: code object has %d fields, expected %d",
			ErrCorruptData, h, co.NumFields(), NumCodeFields)}
	}
	for f := 1; f <= NumCodeFields; f++ {
		fh := co.Field(f)
		if !heap.Contains(fh) {
			errs = append(errs, fmt.Errorf("%w: cell %d: code field %d is not a live handle: %d",
				ErrCorruptData, h, f, fh))
			continue
		}
		if tag := heap.cells[fh].tag; tag != codeFieldTags[f] {
			errs = append(errs, fmt.Errorf("%w: cell %d: code field %d is %s, expected %s",
				ErrCorruptData, h, f, tag, codeFieldTags[f]))
		}
	}
	return errs
}
