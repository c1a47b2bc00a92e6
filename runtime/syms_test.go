package runtime

import (
	"testing"

	"github.com/npillmayer/ovm"
)

func TestNewSymTab(t *testing.T) {
	symtab := NewSymbolTable()
	if symtab == nil {
		t.Error("no symbol table created")
	}
}

func TestNewBinding(t *testing.T) {
	symtab := NewSymbolTable()
	b, _ := symtab.Define("new-sym")
	if b == nil {
		t.Error("no binding created for table")
	}
	if b.Handle != ovm.None {
		t.Errorf("expected fresh binding to be bound to None, is %d", b.Handle)
	}
	b.UData = 5
	if b.UData != 5 {
		t.Errorf("UData does not work")
	}
}

func TestTwoBindingsDistinct(t *testing.T) {
	symtab := NewSymbolTable()
	b1, _ := symtab.Define("new-sym1")
	b2, _ := symtab.Define("new-sym2")
	if b1 == b2 {
		t.Error("2 bindings with equal name")
	}
	if symtab.Size() != 2 {
		t.Errorf("expected 2 bindings, have %d", symtab.Size())
	}
}

func TestResolve(t *testing.T) {
	symtab := NewSymbolTable()
	b, _ := symtab.Define("new-sym")
	if s := symtab.Resolve(b.Name()); s == nil {
		t.Error("cannot find stored binding in table")
	}
}

func TestResolveOrDefine(t *testing.T) {
	symtab := NewSymbolTable()
	b, _ := symtab.Define("new-sym")
	if _, found := symtab.ResolveOrDefine(b.Name()); !found {
		t.Error("cannot find stored binding in table")
	}
	if _, found := symtab.ResolveOrDefine(""); found {
		t.Error("empty names must not be defined")
	}
}

func TestDefine(t *testing.T) {
	symtab := NewSymbolTable()
	b, _ := symtab.Define("new-sym")
	if _, old := symtab.Define("new-sym"); old != b {
		t.Error("binding should have been replaced")
	}
}

func TestScopeUpsearch(t *testing.T) {
	scopep := NewScope("parent", nil)
	scope := NewScope("current", scopep)
	scopep.Bind("new-sym", 7)
	if b, sc := scope.Resolve("new-sym"); b != nil && sc == scopep {
		t.Logf("found binding '%s' in parent scope, ok\n", b.Name())
	} else {
		t.Fail()
	}
	scope.Bind("new-sym", 8)
	if b, sc := scope.Resolve("new-sym"); b.Handle != 8 || sc != scope {
		t.Errorf("expected local binding to shadow parent binding")
	}
}

func TestBindingTo(t *testing.T) {
	b := NewBinding("x").To(12)
	if b.Handle != 12 || b.Name() != "x" {
		t.Errorf("unexpected binding %v", b)
	}
}
