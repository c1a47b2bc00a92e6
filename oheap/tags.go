package oheap

import "fmt"

// Tag identifies the kind of value a cell holds. Tag values are negative; they
// are part of the contract with the heap producer.
type Tag int16

// Cell tags.
const (
	TagNone  Tag = -1
	TagBool  Tag = -2
	TagInt   Tag = -3
	TagFloat Tag = -4
	TagStr   Tag = -5
	TagTuple Tag = -6
	TagCode  Tag = -7
)

var tagNames = [...]string{
	"",
	"None",
	"bool",
	"int",
	"float",
	"str",
	"tuple",
	"code",
}

func (t Tag) String() string {
	if t >= 0 || int(-t) >= len(tagNames) {
		return fmt.Sprintf("tag(%d)", int16(t))
	}
	return tagNames[-t]
}

// IsKnown is a predicate: is t one of the tags defined above?
func (t Tag) IsKnown() bool {
	return t < 0 && int(-t) < len(tagNames)
}
