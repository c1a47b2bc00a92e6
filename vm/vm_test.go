package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/ovm"
	"github.com/npillmayer/ovm/native"
	"github.com/npillmayer/ovm/oheap"
	"github.com/npillmayer/ovm/runtime"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// assembler is a helper for writing bytecode in tests.
type assembler struct {
	code []byte
}

func (a *assembler) op(op Opcode, arg ...int) *assembler {
	a.code = append(a.code, byte(op))
	if op.HasArgument() {
		x := 0
		if len(arg) > 0 {
			x = arg[0]
		}
		a.code = append(a.code, byte(x), byte(x>>8))
	}
	return a
}

// program builds a heap with a single entry point code object.
type program struct {
	b      *oheap.Builder
	names  []ovm.Handle
	consts []ovm.Handle
}

func newProgram() *program {
	return &program{b: oheap.NewBuilder()}
}

func (p *program) name(n string) *program {
	p.names = append(p.names, p.b.Str(n))
	return p
}

func (p *program) str(s string) *program {
	p.consts = append(p.consts, p.b.Str(s))
	return p
}

func (p *program) int(i int64) *program {
	p.consts = append(p.consts, p.b.Int(i))
	return p
}

func (p *program) load(t *testing.T, a *assembler) *oheap.OHeap {
	p.b.Code(oheap.CodeSpec{
		StackSize: 8,
		Name:      "<module>",
		Filename:  "test.py",
		Bytecode:  a.code,
		Names:     p.names,
		Consts:    p.consts,
	})
	heap, err := oheap.Load(bytes.NewReader(p.b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	return heap
}

func TestHelloWorld(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(LoadName, 0).op(LoadConst, 0).op(CallFunction, 1).op(ReturnValue)
	heap := newProgram().name("print").str("hello").load(t, a)
	var out bytes.Buffer
	vm := New(heap, Output(&out), TraceInstructions(true))
	if why := vm.RunMain(); why != ovm.WhyReturn {
		t.Errorf("expected program to end with Return, got %s", why)
	}
	if out.String() != "hello\n" {
		t.Errorf("expected output \"hello\\n\", got %q", out.String())
	}
	if vm.Executed() != 4 {
		t.Errorf("expected 4 instructions to be executed, got %d", vm.Executed())
	}
	if vm.Runtime().CallStack.Size() != 0 {
		t.Errorf("expected call stack to be empty after run")
	}
}

func TestCallStackDiscipline(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	var seen []ovm.Handle
	pair := native.Builtin{ID: 0, Name: "pair", Arity: 2,
		Call: func(env native.Env, args []ovm.Handle) ([]ovm.Handle, ovm.Why) {
			seen = args
			return []ovm.Handle{args[1]}, ovm.WhyNot
		},
	}
	registry, err := native.NewRegistry(pair)
	if err != nil {
		t.Fatal(err)
	}
	heap := newProgram().int(1).int(2).int(3).load(t, &assembler{})
	vm := New(heap, Builtins(registry))
	frame := vm.Runtime().PushFrame(heap.Code(heap.Last()))
	callee, _ := registry.Lookup("pair")
	frame.Push(heap.Code(heap.Last()).Consts().At(0))
	frame.Push(callee)
	frame.Push(2)
	frame.Push(3)
	depth := frame.Depth()
	if why := vm.callFunction(frame, 2); why != ovm.WhyNot {
		t.Fatalf("expected call to succeed, got %s", why)
	}
	if frame.Depth() != depth-2 {
		t.Errorf("expected stack depth to decrease by 2, from %d to %d, is %d", depth, depth-2, frame.Depth())
	}
	if len(seen) != 2 || seen[0] != 2 || seen[1] != 3 {
		t.Errorf("expected arguments in call order [2 3], got %v", seen)
	}
	if h, _ := frame.Top(); h != 3 {
		t.Errorf("expected result 3 on top of stack, got %d", h)
	}
}

// Unresolved names silently evaluate to None. This is a known limitation,
// a NameError should be raised instead.
func TestUnresolvedNameIsNone(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(LoadName, 0).op(ReturnValue)
	heap := newProgram().name("undefined").load(t, a)
	vm := New(heap)
	frame, why := vm.Run(heap.Last())
	if why != ovm.WhyReturn || frame.Result != ovm.None {
		t.Errorf("expected unresolved name to return None, got %s / %d", why, frame.Result)
	}
}

func TestStoreName(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(LoadConst, 0).op(StoreName, 0).op(LoadName, 0).op(ReturnValue)
	p := newProgram().name("x").int(42)
	heap := p.load(t, a)
	vm := New(heap)
	frame, why := vm.Run(heap.Last())
	if why != ovm.WhyReturn || heap.Int(frame.Result) != 42 {
		t.Errorf("expected x to evaluate to 42, got %s / %s", why, heap.DebugString(frame.Result))
	}
	if b, _ := vm.Runtime().Globals.Resolve("x"); b == nil || b.Handle != p.consts[0] {
		t.Errorf("expected x to be bound in globals")
	}
}

func TestUserCallee(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(LoadConst, 0).op(CallFunction, 0).op(ReturnValue)
	heap := newProgram().int(5).load(t, a)
	if why := New(heap, LegacyCompat(false)).RunMain(); why != ovm.WhyUnsupported {
		t.Errorf("expected call of user-defined callee to be unsupported, got %s", why)
	}
	frame, why := New(heap, LegacyCompat(true)).Run(heap.Last())
	if why != ovm.WhyReturn || frame.Result != ovm.None {
		t.Errorf("expected placeholder None in legacy mode, got %s / %d", why, frame.Result)
	}
}

func TestUnknownOpcode(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(LoadConst, 0).op(Opcode(23)).op(ReturnValue) // BINARY_ADD
	heap := newProgram().int(5).load(t, a)
	var out bytes.Buffer
	if why := New(heap, Output(&out), LegacyCompat(false)).RunMain(); why != ovm.WhyUnsupported {
		t.Errorf("expected unknown opcode to be unsupported, got %s", why)
	}
	frame, why := New(heap, LegacyCompat(true)).Run(heap.Last())
	if why != ovm.WhyReturn || heap.Int(frame.Result) != 5 {
		t.Errorf("expected unknown opcode to be skipped in legacy mode, got %s", why)
	}
}

func TestNativeException(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(LoadName, 0).op(LoadConst, 0).op(CallFunction, 1).op(ReturnValue)
	heap := newProgram().name("print").int(7).load(t, a)
	var out bytes.Buffer
	vm := New(heap, Output(&out))
	if why := vm.RunMain(); why != ovm.WhyException {
		t.Errorf("expected print of an int to raise, got %s", why)
	}
	if vm.Executed() != 3 {
		t.Errorf("expected execution to stop at the call, executed %d", vm.Executed())
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestExceptBlock(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(SetupExcept, 14) //  0: handler at 17
	a.op(LoadName, 0)     //  3
	a.op(LoadConst, 1)    //  6
	a.op(CallFunction, 1) //  9: raises
	a.op(PopTop)          // 12
	a.op(PopBlock)        // 13
	a.op(JumpForward, 4)  // 14: to 21
	a.op(LoadConst, 2)    // 17: handler
	a.op(ReturnValue)     // 20
	a.op(LoadConst, 0)    // 21
	a.op(ReturnValue)     // 24
	heap := newProgram().name("print").str("done").int(7).str("caught").load(t, a)
	frame, why := New(heap, Output(&bytes.Buffer{})).Run(heap.Last())
	if why != ovm.WhyReturn {
		t.Fatalf("expected exception to be caught, got %s", why)
	}
	if s := heap.CStr(frame.Result); s != "caught" {
		t.Errorf("expected handler to run, result is %q", s)
	}
}

func TestLoopBlock(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(SetupLoop, 9)     //  0: handler at 12
	a.op(ContinueLoop, 10) //  3
	a.op(LoadConst, 1)     //  6: skipped
	a.op(ReturnValue)      //  9
	a.op(BreakLoop)        // 10
	a.op(PopBlock)         // 11
	a.op(LoadConst, 0)     // 12
	a.op(ReturnValue)      // 15
	heap := newProgram().str("ok").str("bad").load(t, a)
	frame, why := New(heap).Run(heap.Last())
	if why != ovm.WhyReturn {
		t.Fatalf("expected Return, got %s", why)
	}
	if s := heap.CStr(frame.Result); s != "ok" {
		t.Errorf("expected loop to be left by break, result is %q", s)
	}
	if frame.BlockDepth() != 0 {
		t.Errorf("expected break to pop the loop block")
	}
}

func TestFinallyBlock(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(SetupFinally, 5) //  0: handler at 8
	a.op(LoadConst, 0)    //  3
	a.op(ReturnValue)     //  6: suspended by finally
	a.op(PopBlock)        //  7
	a.op(LoadName, 0)     //  8: handler
	a.op(LoadConst, 1)    // 11
	a.op(CallFunction, 1) // 14
	a.op(PopTop)          // 17
	a.op(EndFinally)      // 18: resumes Return
	a.op(LoadConst, 2)    // 19
	a.op(ReturnValue)     // 22
	heap := newProgram().name("print").str("ret").str("cleanup").str("bad").load(t, a)
	var out bytes.Buffer
	frame, why := New(heap, Output(&out)).Run(heap.Last())
	if why != ovm.WhyReturn {
		t.Fatalf("expected Return, got %s", why)
	}
	if out.String() != "cleanup\n" {
		t.Errorf("expected finally clause to run, output is %q", out.String())
	}
	if s := heap.CStr(frame.Result); s != "ret" {
		t.Errorf("expected return value of try clause, result is %q", s)
	}
}

func TestTraceback(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	heap := newProgram().load(t, (&assembler{}).op(ReturnValue))
	machine := New(heap)
	if lines := machine.traceback(); len(lines) != 0 {
		t.Errorf("expected empty traceback without frames, got %v", lines)
	}
	rt := machine.Runtime()
	outer := rt.PushFrame(heap.Code(heap.Last()))
	outer.PushBlock(runtime.LoopBlock, 12)
	outer.PushBlock(runtime.ExceptBlock, 20)
	outer.PC = 7
	rt.PushFrame(heap.Code(heap.Last()))
	lines := machine.traceback()
	expected := []string{"<module> at 0", "<module> at 7 [except 20] [loop 12]"}
	if strings.Join(lines, "|") != strings.Join(expected, "|") {
		t.Errorf("expected traceback %q, got %q", expected, lines)
	}
}

func TestTruncatedInstructionPanics(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	heap := newProgram().load(t, &assembler{code: []byte{byte(LoadConst), 0}})
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected truncated instruction to panic")
		}
	}()
	New(heap).RunMain()
}

func TestOpcodes(t *testing.T) {
	if LoadConst.String() != "LOAD_CONST" || Opcode(250).String() != "<250>" {
		t.Errorf("unexpected opcode names %s, %s", LoadConst, Opcode(250))
	}
	if PopTop.HasArgument() || !StoreName.HasArgument() || !CallFunction.HasArgument() {
		t.Errorf("wrong argument flags")
	}
	if !ReturnValue.IsImplemented() || Opcode(23).IsImplemented() {
		t.Errorf("wrong implementation flags")
	}
	ins, err := Decode([]byte{byte(CallFunction), 0x01, 0x02}, 0)
	if err != nil || ins.Arg != 0x0201 || ins.Next() != 3 {
		t.Errorf("expected little-endian argument 0x0201, got %v, %v", ins, err)
	}
	if _, err := Decode([]byte{byte(CallFunction), 0x01}, 0); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected truncated instruction, got %v", err)
	}
}

func TestDisassemble(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.vm")
	defer teardown()
	//
	a := &assembler{}
	a.op(LoadName, 0).op(LoadConst, 0).op(CallFunction, 1).op(ReturnValue)
	a.code = append(a.code, byte(LoadConst), 0)
	heap := newProgram().name("print").str("hello").load(t, a)
	lines := DisassembleToLines(heap.Code(heap.Last()))
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "0000  LOAD_NAME") || !strings.HasSuffix(lines[0], "(print)") {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], `(Str "hello")`) {
		t.Errorf("unexpected line %q", lines[1])
	}
	if !strings.Contains(lines[2], "1 positional") || lines[3] != "0009  RETURN_VALUE" {
		t.Errorf("unexpected lines %q, %q", lines[2], lines[3])
	}
	if !strings.HasSuffix(lines[4], "<truncated>") {
		t.Errorf("expected last instruction to be truncated, is %q", lines[4])
	}
	listing := Disassemble(heap.Code(heap.Last()))
	if !strings.Contains(listing, "; === <module> ===") || !strings.Contains(listing, "; Names: print") {
		t.Errorf("unexpected listing header:\n%s", listing)
	}
}
