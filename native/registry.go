package native

import (
	"fmt"
	"io"
	"sync"

	"github.com/npillmayer/ovm"
	"github.com/npillmayer/ovm/oheap"
)

// ID is a native function identifier.
type ID int

// Builtin IDs. The sentinel handle of a builtin is derived from its ID.
const (
	Print ID = iota
	// future builtins go here
	numBuiltins
)

// Env provides host services to native functions.
type Env interface {
	Heap() *oheap.OHeap
	Stdout() io.Writer
}

// Func is the signature of native functions. A function receives its arguments
// in call order and returns its results together with a completion reason.
// Any reason other than WhyNot aborts the calling frame.
type Func func(env Env, args []ovm.Handle) ([]ovm.Handle, ovm.Why)

// Builtin describes a native function.
type Builtin struct {
	ID    ID
	Name  string
	Arity int // number of positional arguments, -1 for any
	Call  Func
}

// Sentinel returns the reserved handle for a builtin ID.
func Sentinel(id ID) ovm.Handle {
	return ovm.Handle(-1 - int32(id))
}

// IDOf returns the builtin ID for a sentinel handle.
func IDOf(h ovm.Handle) ID {
	return ID(-1 - int32(h))
}

// Registry maps names of builtins to sentinel handles and sentinel handles to
// implementations.
type Registry struct {
	byName map[string]ID
	table  []Builtin
}

// NewRegistry creates a registry from a list of builtins. Builtin IDs must be
// dense, starting at 0, and names must be unique.
func NewRegistry(builtins ...Builtin) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]ID, len(builtins)),
		table:  make([]Builtin, len(builtins)),
	}
	for _, b := range builtins {
		if b.ID < 0 || int(b.ID) >= len(builtins) {
			return nil, fmt.Errorf("builtin %q has ID %d outside [0…%d)", b.Name, b.ID, len(builtins))
		}
		if _, dup := r.byName[b.Name]; dup {
			return nil, fmt.Errorf("builtin %q registered twice", b.Name)
		}
		if r.table[b.ID].Call != nil {
			return nil, fmt.Errorf("builtin ID %d registered twice", b.ID)
		}
		r.byName[b.Name] = b.ID
		r.table[b.ID] = b
	}
	return r, nil
}

var defaultRegistry *Registry
var initOnce sync.Once

// Default returns the registry of standard builtins. It is built on first use.
func Default() *Registry {
	initOnce.Do(func() {
		r, err := NewRegistry(Builtin{
			ID:    Print,
			Name:  "print",
			Arity: -1,
			Call:  printFunc,
		})
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Size returns the number of registered builtins.
func (r *Registry) Size() int {
	return len(r.table)
}

// Lookup finds a builtin by name and returns its sentinel handle.
func (r *Registry) Lookup(name string) (ovm.Handle, bool) {
	id, ok := r.byName[name]
	if !ok {
		return ovm.None, false
	}
	return Sentinel(id), true
}

// Resolve returns the builtin for a sentinel handle.
func (r *Registry) Resolve(h ovm.Handle) (Builtin, bool) {
	if !h.IsNative() {
		return Builtin{}, false
	}
	id := IDOf(h)
	if int(id) >= len(r.table) {
		return Builtin{}, false
	}
	return r.table[id], true
}

// Call invokes the builtin denoted by h. An unknown sentinel yields
// WhyUnsupported; an arity mismatch yields WhyException.
func (r *Registry) Call(env Env, h ovm.Handle, args []ovm.Handle) ([]ovm.Handle, ovm.Why) {
	b, ok := r.Resolve(h)
	if !ok {
		tracer().Errorf("no native function for handle %d", h)
		return nil, ovm.WhyUnsupported
	}
	if b.Arity >= 0 && len(args) != b.Arity {
		tracer().Errorf("%s expects %d argument(s), got %d", b.Name, b.Arity, len(args))
		return nil, ovm.WhyException
	}
	tracer().Debugf("calling native %s with %d argument(s)", b.Name, len(args))
	return b.Call(env, args)
}
