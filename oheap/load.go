package oheap

import (
	"errors"
	"fmt"
	"io"

	"github.com/npillmayer/schuko/tracing"
)

// Magic is the header of every heap image.
var Magic = [4]byte{'O', 'H', 'P', '2'}

// Header size constants.
const (
	magicSize     = 4
	slabSizeSize  = 4
	numCellsSize  = 4
	HeaderSize    = magicSize + slabSizeSize + numCellsSize
	DefaultMaxLen = 1 << 30 // default limit for slab size and cell count
)

// Load errors. Errors returned by Load wrap one of these.
var (
	ErrInvalidMagic   = errors.New("invalid magic number: expected OHP2")
	ErrCorruptHeader  = errors.New("corrupt heap header")
	ErrCorruptData    = errors.New("corrupt heap data")
	ErrUnexpectedEOF  = errors.New("unexpected end of heap data")
	ErrSlabTooLarge   = errors.New("slab exceeds size limit")
	ErrTooManyCells   = errors.New("cell count exceeds limit")
	errRelocatedTwice = errors.New("heap relocated twice")
)

// --- Load options ----------------------------------------------------------

// Option configures the loader.
type Option func(l *loader)

// MaxSlabSize sets the largest slab size (in bytes) the loader will accept.
func MaxSlabSize(n int) Option {
	return func(l *loader) {
		l.maxSlab = n
	}
}

// MaxCells sets the largest number of cells the loader will accept.
func MaxCells(n int) Option {
	return func(l *loader) {
		l.maxCells = n
	}
}

type loader struct {
	r        io.Reader
	maxSlab  int
	maxCells int
}

// --- Loading ---------------------------------------------------------------

// Load reads a heap image from r. It reads and checks the header, reads the slab
// and the cell table, and resolves the slab offsets of all big cells.
//
// On failure Load returns a nil heap; nothing read so far is retained.
// Slab offsets are trusted to lie within the slab, apart from the minimal check
// needed to build a view. Use Verify for a full consistency check.
func Load(r io.Reader, opts ...Option) (*OHeap, error) {
	l := &loader{r: r, maxSlab: DefaultMaxLen, maxCells: DefaultMaxLen}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.readHeader(); err != nil {
		return nil, err
	}
	slabSize, err := l.readInt32("total_slab_size")
	if err != nil {
		return nil, err
	}
	tracer().Debugf("total_slab_size = %d", slabSize)
	numCells, err := l.readInt32("num_cells")
	if err != nil {
		return nil, err
	}
	tracer().Debugf("num_cells = %d", numCells)
	if slabSize < 0 || numCells < 0 {
		return nil, fmt.Errorf("%w: negative size (slab=%d, cells=%d)", ErrCorruptHeader, slabSize, numCells)
	}
	if int(slabSize) > l.maxSlab {
		return nil, fmt.Errorf("%w: %d > %d", ErrSlabTooLarge, slabSize, l.maxSlab)
	}
	if int(numCells) > l.maxCells {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyCells, numCells, l.maxCells)
	}
	heap := &OHeap{}
	if heap.slab, err = l.readChunk(int64(slabSize)); err != nil {
		return nil, fmt.Errorf("%w: reading slabs: expected %d bytes, got %d: %v", ErrUnexpectedEOF,
			slabSize, len(heap.slab), err)
	}
	records, err := l.readChunk(int64(numCells) * CellSize)
	if err != nil {
		return nil, fmt.Errorf("%w: expected %d cells, got %d: %v", ErrUnexpectedEOF,
			numCells, len(records)/CellSize, err)
	}
	heap.cells = make([]Cell, numCells)
	for i := range heap.cells {
		heap.cells[i] = decodeCell(records[i*CellSize : (i+1)*CellSize])
	}
	if err := heap.relocate(); err != nil {
		return nil, err
	}
	return heap, nil
}

func (l *loader) readHeader() error {
	var buf [magicSize]byte
	if _, err := io.ReadFull(l.r, buf[:]); err != nil {
		return fmt.Errorf("%w: couldn't read heap header: %v", ErrCorruptHeader, err)
	}
	if buf != Magic {
		return fmt.Errorf("%w: got %q", ErrInvalidMagic, buf[:])
	}
	return nil
}

// readChunk reads exactly n bytes. The buffer grows while reading, so a header
// claiming more data than the input holds fails with a short read instead of
// allocating the claimed size up front.
func (l *loader) readChunk(n int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(l.r, n))
	if err == nil && int64(len(buf)) < n {
		err = io.ErrUnexpectedEOF
	}
	return buf, err
}

func (l *loader) readInt32(what string) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(l.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrUnexpectedEOF, what, err)
	}
	return int32(byteOrder.Uint32(buf[:])), nil
}

// relocate resolves the slab offset of every big cell to a view into the slab.
// It must run exactly once per heap.
func (heap *OHeap) relocate() error {
	if heap.relocated {
		return errRelocatedTwice
	}
	heap.relocated = true
	for i := range heap.cells {
		c := &heap.cells[i]
		if !c.isSlab {
			continue
		}
		off := c.WireOffset()
		if off < 0 || int(off)+4 > len(heap.slab) {
			return fmt.Errorf("%w: cell %d has slab offset %d, slab size is %d",
				ErrCorruptData, i, off, len(heap.slab))
		}
		c.slab = heap.slab[off:]
		heap.patched++
	}
	tracer().Debugf("patched %d slabs", heap.patched)
	if tracer().GetTraceLevel() == tracing.LevelDebug {
		for i := range heap.cells {
			if c := &heap.cells[i]; c.isSlab {
				tracer().Debugf("cell %d: slab len = %d", i, c.bigLen())
			}
		}
	}
	return nil
}
