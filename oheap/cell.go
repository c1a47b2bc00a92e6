package oheap

import (
	"encoding/binary"
	"math"
)

// byteOrder is the byte order of heap images. Images are written and read on
// the same host.
var byteOrder = binary.NativeEndian

// CellSize is the size of a cell record in bytes.
const CellSize = 16

// Layout of a cell record:
//
//    0..1    tag (int16)
//    2       is_slab flag
//    3       small length (bytes for strings, entries for tuples)
//    4..15   inline payload: small string bytes or small tuple handles
//    8..15   scalar payload: int64, float64 or bool
//    12..15  slab offset (int32), if is_slab is set
//
const (
	// MaxSmallLen is the number of inline payload bytes of a cell.
	MaxSmallLen = 12
	// MaxSmallTuple is the number of handles which fit into the inline payload.
	MaxSmallTuple = MaxSmallLen / 4

	payloadStart = 4 // payload starts at byte 4 of the record
	scalarStart  = 8 - payloadStart
	offsetStart  = 12 - payloadStart
)

// Cell is a fixed-size tagged record, the unit of storage of a heap.
// A cell either carries its value inline ("small form") or refers to a
// length-prefixed payload in the slab ("big form").
type Cell struct {
	tag      Tag
	isSlab   bool
	smallLen uint8
	payload  [MaxSmallLen]byte
	slab     []byte // resolved big payload, starting at its length prefix
}

// decodeCell decodes a cell from its 16-byte wire record.
func decodeCell(rec []byte) Cell {
	c := Cell{
		tag:      Tag(int16(byteOrder.Uint16(rec[0:2]))),
		isSlab:   rec[2] != 0,
		smallLen: rec[3],
	}
	copy(c.payload[:], rec[payloadStart:CellSize])
	return c
}

// encode writes the wire record of a cell into rec.
func (c *Cell) encode(rec []byte) {
	byteOrder.PutUint16(rec[0:2], uint16(c.tag))
	rec[2] = 0
	if c.isSlab {
		rec[2] = 1
	}
	rec[3] = c.smallLen
	copy(rec[payloadStart:CellSize], c.payload[:])
}

// Tag returns the tag of a cell.
func (c *Cell) Tag() Tag {
	return c.tag
}

// IsSlab is a predicate: does the cell hold its value in the slab?
func (c *Cell) IsSlab() bool {
	return c.isSlab
}

// SmallLen returns the inline length of a small cell.
func (c *Cell) SmallLen() int {
	return int(c.smallLen)
}

// WireOffset returns the slab offset a big cell carried on disk.
func (c *Cell) WireOffset() int32 {
	return int32(byteOrder.Uint32(c.payload[offsetStart:]))
}

// IsResolved is a predicate: has a big cell been relocated into the slab?
func (c *Cell) IsResolved() bool {
	return c.slab != nil
}

func (c *Cell) scalarBits() uint64 {
	return byteOrder.Uint64(c.payload[scalarStart:])
}

func (c *Cell) setScalarBits(bits uint64) {
	byteOrder.PutUint64(c.payload[scalarStart:], bits)
}

func (c *Cell) int64() int64 {
	return int64(c.scalarBits())
}

func (c *Cell) float64() float64 {
	return math.Float64frombits(c.scalarBits())
}

// bigLen returns the length prefix of a big payload.
func (c *Cell) bigLen() int {
	return int(int32(byteOrder.Uint32(c.slab)))
}

// smallBytes returns the inline payload, n bytes long.
func (c *Cell) smallBytes(n int) []byte {
	return c.payload[:n:n]
}
