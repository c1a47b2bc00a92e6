package ovm

import "fmt"

// --- Handles ---------------------------------------------------------------

// Handle is an index into the cell table of a heap. Non-negative handles address
// a live cell. Negative handles form a separate namespace: they identify native
// callables and must never be used to index the cell table.
type Handle int32

// None is the handle of the heap's None cell. By convention a producer places
// the None value at position 0.
const None Handle = 0

// IsNative is a predicate: does h denote a native callable?
func (h Handle) IsNative() bool {
	return h < 0
}

func (h Handle) String() string {
	if h.IsNative() {
		return fmt.Sprintf("<native %d>", h)
	}
	return fmt.Sprintf("<id %d>", int32(h))
}

// --- Completion reasons ----------------------------------------------------

// Why is a completion reason. It tells why the execution of a frame (or of a
// native function) ended. Apart from WhyNot every reason unwinds the block stack
// of a frame until a block intercepts it or the frame is left.
type Why int8

// Completion reasons. WhyNot means "no reason yet", i.e. execution may go on.
const (
	WhyNot Why = iota
	WhyException
	WhyReraise
	WhyReturn
	WhyBreak
	WhyContinue
	WhyYield
	WhyUnsupported // unknown opcode or call of an unsupported callable
)

var whyNames = [...]string{
	"Not",
	"Exception",
	"Reraise",
	"Return",
	"Break",
	"Continue",
	"Yield",
	"Unsupported",
}

func (w Why) String() string {
	if int(w) < 0 || int(w) >= len(whyNames) {
		return fmt.Sprintf("Why(%d)", int8(w))
	}
	return whyNames[w]
}

// IsError is a predicate: does w signal an abnormal completion?
func (w Why) IsError() bool {
	return w == WhyException || w == WhyReraise || w == WhyUnsupported
}
