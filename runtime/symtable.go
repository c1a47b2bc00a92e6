package runtime

import (
	"fmt"

	"github.com/npillmayer/ovm"
)

// Symbol table for names. Symbol tables are attached to scopes.
// Scopes are organized in a tree.
//

// --- Bindings ---------------------------------------------------------------

// Binding is the entry type of symbol tables: a name bound to a handle.
//
type Binding struct {
	name   string
	Handle ovm.Handle
	UData  interface{} // user data
}

// NewBinding creates a new binding of a name to None.
func NewBinding(nm string) *Binding {
	var b = &Binding{
		name:   nm,
		Handle: ovm.None,
	}
	return b
}

// To sets the handle of a binding. Use as
//
//    b := NewBinding("x").To(h)
//
func (b *Binding) To(h ovm.Handle) *Binding {
	b.Handle = h
	return b
}

// String is a debug Stringer for bindings.
func (b *Binding) String() string {
	return fmt.Sprintf("<binding '%s':%d>", b.Name(), int32(b.Handle))
}

// Name gets the binding's name.
func (b *Binding) Name() string {
	return b.name
}

// === Symbol Tables =========================================================

// SymbolTable is a symbol table to store bindings (map-like semantics).
type SymbolTable struct {
	Table         map[string]*Binding
	createBinding func(string) *Binding
}

// NewSymbolTable creates an empty symbol table.
//
func NewSymbolTable() *SymbolTable {
	var symtab = SymbolTable{
		Table:         make(map[string]*Binding),
		createBinding: NewBinding,
	}
	return &symtab
}

// Resolve checks for a binding in the symbol table.
// Returns a binding or nil.
//
func (t *SymbolTable) Resolve(name string) *Binding {
	return t.Table[name]
}

// ResolveOrDefine finds
// a binding in the table, inserts a new one if not found.
// Returns the binding and a flag, signalling wether the binding
// has already been present.
//
func (t *SymbolTable) ResolveOrDefine(name string) (*Binding, bool) {
	if len(name) == 0 {
		return nil, false
	}
	found := true
	b := t.Resolve(name)
	if b == nil { // if not already there, insert it
		b, _ = t.Define(name)
		found = false
	}
	return b, found
}

// Define creates a new binding to store into the symbol table.
// The name may not be empty.
// Overwrites an existing binding with this name, if any.
// Returns the new binding and the previously stored binding (or nil).
//
func (t *SymbolTable) Define(name string) (*Binding, *Binding) {
	if len(name) == 0 {
		return nil, nil
	}
	b := t.createBinding(name)
	old := t.Insert(b)
	return b, old
}

// Insert inserts a pre-created binding.
func (t *SymbolTable) Insert(b *Binding) *Binding {
	old := t.Resolve(b.name)
	t.Table[b.name] = b
	return old
}

// Size counts the bindings in a symbol table.
func (t *SymbolTable) Size() int {
	return len(t.Table)
}

// Each iterates over each binding in the table, executing a mapper function.
func (t *SymbolTable) Each(mapper func(string, *Binding)) {
	for k, v := range t.Table {
		mapper(k, v)
	}
}

// === Scopes ================================================================

// Scope is a named scope, which may contain bindings. Scopes link back to a
// parent scope, forming a tree.
type Scope struct {
	Name   string
	Parent *Scope
	symtab *SymbolTable
}

// NewScope creates a new scope.
func NewScope(nm string, parent *Scope) *Scope {
	sc := &Scope{
		Name:   nm,
		Parent: parent,
		symtab: NewSymbolTable(),
	}
	return sc
}

// Prettyfied Stringer.
func (s *Scope) String() string {
	return fmt.Sprintf("<scope %s>", s.Name)
}

// Bindings returns the symbol table of a scope.
func (s *Scope) Bindings() *SymbolTable {
	return s.symtab
}

// Bind binds a name to a handle in this scope, replacing a previous binding.
// Returns the new binding.
//
func (s *Scope) Bind(name string, h ovm.Handle) *Binding {
	b, _ := s.symtab.ResolveOrDefine(name)
	if b != nil {
		b.Handle = h
	}
	return b
}

// Resolve finds a binding. Returns the binding (or nil) and a scope. The scope is
// the scope (of a scope-tree-path) the binding was found in.
//
func (s *Scope) Resolve(name string) (*Binding, *Scope) {
	for ; s != nil; s = s.Parent {
		if b := s.symtab.Resolve(name); b != nil {
			return b, s
		}
	}
	return nil, nil
}
