package oheap

import (
	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// TagCount counts the cells of one kind.
type TagCount struct {
	Tag   Tag
	Count int
}

// Stats summarizes a heap.
type Stats struct {
	Cells     int
	SlabSize  int
	SlabCells int
	Tags      []TagCount // ordered by tag, None first
}

// Stats collects summary information about the heap.
func (heap *OHeap) Stats() Stats {
	counts := treemap.NewWith(utils.IntComparator)
	for i := range heap.cells {
		key := -int(heap.cells[i].tag)
		n, found := counts.Get(key)
		if !found {
			n = 0
		}
		counts.Put(key, n.(int)+1)
	}
	st := Stats{
		Cells:     len(heap.cells),
		SlabSize:  len(heap.slab),
		SlabCells: heap.patched,
	}
	it := counts.Iterator()
	for it.Next() {
		st.Tags = append(st.Tags, TagCount{Tag: Tag(-it.Key().(int)), Count: it.Value().(int)})
	}
	return st
}

// Fingerprint returns a hash over the summary of the heap and its raw slab.
// Two loads of the same image yield the same fingerprint.
func (heap *OHeap) Fingerprint() (string, error) {
	return structhash.Hash(struct {
		Stats Stats
		Slab  []byte
	}{heap.Stats(), heap.slab}, 1)
}
