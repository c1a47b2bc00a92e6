package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/npillmayer/ovm"
	"github.com/npillmayer/ovm/native"
	"github.com/npillmayer/ovm/oheap"
	"github.com/npillmayer/ovm/runtime"
	"github.com/npillmayer/schuko/gconf"
)

// VM is a bytecode interpreter for the code objects of a heap.
// A VM is not safe for concurrent use.
type VM struct {
	heap     *oheap.OHeap
	rt       *runtime.Runtime
	builtins *native.Registry
	out      io.Writer
	compat   bool
	traceIns bool
	executed int // instructions executed, over all runs
}

// Option configures a VM.
type Option func(*VM)

// Output sets the writer native functions print to. Default is os.Stdout.
func Output(w io.Writer) Option {
	return func(vm *VM) {
		vm.out = w
	}
}

// LegacyCompat switches legacy-compatible mode on or off. In legacy-compatible
// mode unknown opcodes are skipped and calls to user-defined callables
// produce None, instead of ending execution with WhyUnsupported.
func LegacyCompat(b bool) Option {
	return func(vm *VM) {
		vm.compat = b
	}
}

// TraceInstructions switches tracing of every executed instruction on or off.
func TraceInstructions(b bool) Option {
	return func(vm *VM) {
		vm.traceIns = b
	}
}

// Builtins sets the registry of native functions. Default is native.Default().
func Builtins(r *native.Registry) Option {
	return func(vm *VM) {
		vm.builtins = r
	}
}

// New creates a VM for a loaded heap.
func New(heap *oheap.OHeap, opts ...Option) *VM {
	vm := &VM{
		heap:     heap,
		out:      os.Stdout,
		compat:   gconf.GetBool("ovm.legacy-compat"),
		traceIns: gconf.GetBool("ovm.trace-instructions"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.builtins == nil {
		vm.builtins = native.Default()
	}
	vm.rt = runtime.NewRuntimeEnvironment(heap, vm.builtins)
	return vm
}

// Heap returns the heap the VM operates on. Part of interface native.Env.
func (vm *VM) Heap() *oheap.OHeap {
	return vm.heap
}

// Stdout returns the output writer for native functions. Part of interface native.Env.
func (vm *VM) Stdout() io.Writer {
	return vm.out
}

// Runtime returns the runtime environment, holding globals and the call stack.
func (vm *VM) Runtime() *runtime.Runtime {
	return vm.rt
}

// Executed returns the number of instructions executed so far.
func (vm *VM) Executed() int {
	return vm.executed
}

// RunMain runs the last code object of the heap, which by convention is the
// program's entry point.
func (vm *VM) RunMain() ovm.Why {
	_, why := vm.Run(vm.heap.Last())
	return why
}

// Run runs the code object at h in a new frame. The frame is pushed onto the
// call stack for the duration of the run and returned afterwards, together
// with its completion reason.
func (vm *VM) Run(h ovm.Handle) (*runtime.Frame, ovm.Why) {
	co := vm.heap.Code(h)
	frame := vm.rt.PushFrame(co)
	defer vm.rt.PopFrame()
	why := vm.RunFrame(frame)
	tracer().Infof("%s ended with %s", frame.Name, why)
	return frame, why
}

// RunFrame is the fetch-decode-execute loop for a frame. It runs until the
// frame's code returns or ends, or a completion reason escapes the frame's
// blocks.
//
// Malformed bytecode, i.e. a truncated instruction or an index out of range of
// the names or consts tuple, is an invariant violation and panics.
func (vm *VM) RunFrame(frame *runtime.Frame) ovm.Why {
	co := frame.Code
	bytecode := co.Bytecode()
	names, consts := co.Names(), co.Consts()
	tracer().Debugf("argcount = %d, nlocals = %d, stacksize = %d, flags = %d",
		co.ArgCount(), co.NLocals(), co.StackSize(), co.Flags())
	tracer().Debugf("%s (%s:%d), %d bytes of code, %d names, %d consts",
		frame.Name, co.Filename(), co.FirstLineNo(), len(bytecode), names.Len(), consts.Len())
	why := ovm.WhyNot
	n := 0
	for frame.PC < len(bytecode) {
		ins, err := Decode(bytecode, frame.PC)
		if err != nil {
			panic(fmt.Sprintf("frame %s: %v", frame.Name, err))
		}
		frame.PC = ins.Next()
		n++
		if vm.traceIns {
			tracer().Infof("%04d %s", ins.Offset, ins)
		}
		target := 0
		switch ins.Op {
		case Nop:
		case PopTop:
			frame.Pop()
		case LoadConst:
			frame.Push(consts.At(ins.Arg))
		case LoadName:
			frame.Push(frame.LoadName(names.At(ins.Arg)))
		case StoreName:
			frame.StoreName(names.At(ins.Arg), frame.Pop())
		case CallFunction:
			why = vm.callFunction(frame, ins.Arg)
		case ReturnValue:
			frame.Result = ovm.None
			if frame.Depth() > 0 {
				frame.Result = frame.Pop()
			}
			why = ovm.WhyReturn
		case SetupLoop:
			frame.PushBlock(runtime.LoopBlock, frame.PC+ins.Arg)
		case SetupExcept:
			frame.PushBlock(runtime.ExceptBlock, frame.PC+ins.Arg)
		case SetupFinally:
			frame.PushBlock(runtime.FinallyBlock, frame.PC+ins.Arg)
		case PopBlock:
			frame.PopBlock()
		case EndFinally:
			why = frame.EndFinally()
		case BreakLoop:
			why = ovm.WhyBreak
		case ContinueLoop:
			why, target = ovm.WhyContinue, ins.Arg
		case JumpForward:
			frame.PC += ins.Arg
		case JumpAbsolute:
			frame.PC = ins.Arg
		default:
			if vm.compat {
				tracer().Debugf("skipping unsupported opcode %s at %d", ins.Op, ins.Offset)
				break
			}
			tracer().Errorf("unsupported opcode %s at %d in %s", ins.Op, ins.Offset, frame.Name)
			why = ovm.WhyUnsupported
		}
		if why.IsError() {
			for _, line := range vm.traceback() {
				tracer().Debugf("  %s", line)
			}
		}
		if why != ovm.WhyNot {
			if why = frame.Unwind(runtime.Signal{Why: why, Target: target}); why != ovm.WhyNot {
				break
			}
		}
	}
	vm.executed += n
	tracer().Debugf("executed %d instructions", n)
	return why
}

// traceback describes the call stack, most recent call first. Every line
// names a frame, its PC and the blocks set up in the frame, innermost first.
func (vm *VM) traceback() []string {
	var lines []string
	vm.rt.CallStack.Each(func(f *runtime.Frame) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s at %d", f.Name, f.PC)
		for _, b := range f.Blocks() {
			fmt.Fprintf(&sb, " [%s %d]", b.Kind, b.Handler)
		}
		lines = append(lines, sb.String())
	})
	return lines
}

// callFunction implements CALL_FUNCTION. The low byte of arg is the number of
// positional arguments, the next byte the number of keyword arguments.
func (vm *VM) callFunction(frame *runtime.Frame, arg int) ovm.Why {
	nargs, nkwargs := arg&0xff, (arg>>8)&0xff
	if nkwargs > 0 && !vm.compat {
		tracer().Errorf("keyword arguments are not supported")
		return ovm.WhyUnsupported
	}
	tracer().Debugf("call with %d argument(s), stack %s", nargs, vm.heap.DebugHandles(frame.Values()))
	args := frame.PopN(nargs)
	callee := frame.Pop()
	var rets []ovm.Handle
	if callee.IsNative() {
		var why ovm.Why
		if rets, why = vm.builtins.Call(vm, callee, args); why != ovm.WhyNot {
			tracer().Errorf("%s after calling native function %d", why, callee)
			return why
		}
	} else if vm.compat {
		rets = []ovm.Handle{ovm.None}
	} else {
		tracer().Errorf("calling %s is not supported", vm.heap.DebugString(callee))
		return ovm.WhyUnsupported
	}
	if len(rets) != 1 {
		panic(fmt.Sprintf("call of %v returned %d values, expected exactly one", callee, len(rets)))
	}
	frame.Push(rets[0])
	return ovm.WhyNot
}
