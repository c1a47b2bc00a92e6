package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/ovm"
	"github.com/npillmayer/ovm/oheap"
	"github.com/npillmayer/ovm/vm"
	"github.com/pterm/pterm"
)

// Inspector is an interactive command interpreter for exploring a heap.
type Inspector struct {
	heap *oheap.OHeap
	cfg  Config
	out  io.Writer // output of programs run from the inspector
}

// NewInspector creates an inspector for a loaded heap.
func NewInspector(heap *oheap.OHeap, cfg Config, out io.Writer) *Inspector {
	return &Inspector{heap: heap, cfg: cfg, out: out}
}

var helpText = []string{
	"info             heap summary and fingerprint",
	"cell <h>         describe cell h",
	"tuple <h>        list the entries of tuple h",
	"code [<h>]       show code object h as a tree (default: entry point)",
	"dis [<h>]        disassemble code object h (default: entry point)",
	"run [<h>]        run code object h (default: entry point)",
	"export \"<file>\"  write the decoded heap as CBOR",
	"help             this text",
	"quit             leave the inspector",
}

// REPL starts interactive mode, reading commands with readline.
func (insp *Inspector) REPL() error {
	repl, err := readline.New("ovm> ")
	if err != nil {
		return err
	}
	defer repl.Close()
	tracer().Infof("Quit with <ctrl>D")
	for {
		line, err := repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if insp.evalAndReport(line) {
			break
		}
	}
	println("Good bye!")
	return nil
}

// Script reads commands line by line, e.g. from a pipe.
func (insp *Inspector) Script(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineno := 1
	for scanner.Scan() {
		if insp.evalAndReport(scanner.Text()) {
			break
		}
		lineno++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading command %d: %w", lineno, err)
	}
	return nil
}

func (insp *Inspector) evalAndReport(line string) bool {
	if line = strings.TrimSpace(line); line == "" {
		return false
	}
	quit, err := insp.Eval(line)
	if err != nil {
		pterm.Error.Println(err.Error())
	}
	return quit
}

// Eval evaluates a command, given on a line by itself. It returns true if the
// inspector should quit.
//
// Assertions raised by the heap while executing a command are turned into errors.
func (insp *Inspector) Eval(line string) (quit bool, err error) {
	cmd, err := scanCommand(line)
	if err != nil || cmd.verb == "" {
		return false, err
	}
	defer func() {
		if r := recover(); r != nil {
			var aerr *oheap.AssertionError
			if e, ok := r.(error); ok && errors.As(e, &aerr) {
				err = aerr
				return
			}
			err = fmt.Errorf("%s: %v", cmd.verb, r)
		}
	}()
	switch cmd.verb {
	case "quit", "exit":
		return true, nil
	case "help":
		for _, l := range helpText {
			pterm.Println(l)
		}
	case "info":
		return false, insp.info()
	case "cell":
		return false, insp.cell(cmd)
	case "tuple":
		return false, insp.tuple(cmd)
	case "code":
		return false, insp.code(cmd)
	case "dis":
		co, err := insp.codeArg(cmd)
		if err != nil {
			return false, err
		}
		pterm.Println(vm.Disassemble(co))
	case "run":
		return false, insp.run(cmd)
	case "export":
		path, err := cmd.str(0)
		if err != nil {
			return false, err
		}
		return false, exportHeap(insp.heap, path)
	default:
		return false, fmt.Errorf("unknown command: %s", cmd.verb)
	}
	return false, nil
}

func (insp *Inspector) info() error {
	st := insp.heap.Stats()
	fp, err := insp.heap.Fingerprint()
	if err != nil {
		return err
	}
	pterm.Info.Println(fmt.Sprintf("%d cells, %d bytes of slab, %d slab-resident cells",
		st.Cells, st.SlabSize, st.SlabCells))
	for _, tc := range st.Tags {
		pterm.Println(fmt.Sprintf("  %-6s %6d", tc.Tag, tc.Count))
	}
	pterm.Println(fmt.Sprintf("  fingerprint %s", fp))
	return nil
}

func (insp *Inspector) cellArg(cmd command, def ...ovm.Handle) (ovm.Handle, error) {
	h, err := cmd.handle(0, def...)
	if err != nil {
		return h, err
	}
	if !insp.heap.Contains(h) {
		return h, fmt.Errorf("%s: no cell %d in heap of %d cells", cmd.verb, h, insp.heap.Len())
	}
	return h, nil
}

func (insp *Inspector) cell(cmd command) error {
	h, err := insp.cellArg(cmd)
	if err != nil {
		return err
	}
	c := insp.heap.Cell(h)
	if c.IsSlab() {
		pterm.Info.Println(fmt.Sprintf("%v %s (slab @%d)", h, insp.heap.DebugString(h), insp.heap.SlabOffset(h)))
	} else {
		pterm.Info.Println(fmt.Sprintf("%v %s", h, insp.heap.DebugString(h)))
	}
	return nil
}

func (insp *Inspector) tuple(cmd command) error {
	h, err := insp.cellArg(cmd)
	if err != nil {
		return err
	}
	if tag := insp.heap.TagOf(h); tag != oheap.TagTuple {
		return fmt.Errorf("tuple: cell %d is %s", h, tag)
	}
	t := insp.heap.Tuple(h)
	pterm.Info.Println(fmt.Sprintf("%v tuple of %d", h, t.Len()))
	for i := 0; i < t.Len(); i++ {
		pterm.Println(fmt.Sprintf("  [%d] %s", i, insp.describe(t.At(i))))
	}
	return nil
}

func (insp *Inspector) codeArg(cmd command) (oheap.Code, error) {
	h, err := insp.cellArg(cmd, insp.heap.Last())
	if err != nil {
		return oheap.Code{}, err
	}
	if tag := insp.heap.TagOf(h); tag != oheap.TagCode {
		return oheap.Code{}, fmt.Errorf("%s: cell %d is %s", cmd.verb, h, tag)
	}
	return insp.heap.Code(h), nil
}

// code renders a code object as a tree.
func (insp *Inspector) code(cmd command) error {
	co, err := insp.codeArg(cmd)
	if err != nil {
		return err
	}
	ll := pterm.LeveledList{
		{Level: 0, Text: fmt.Sprintf("%v code %s", co.Handle(), co.Name())},
		{Level: 1, Text: fmt.Sprintf("file %s:%d", co.Filename(), co.FirstLineNo())},
		{Level: 1, Text: fmt.Sprintf("argcount=%d nlocals=%d stacksize=%d flags=0x%04X",
			co.ArgCount(), co.NLocals(), co.StackSize(), co.Flags())},
		{Level: 1, Text: fmt.Sprintf("bytecode, %d bytes", len(co.Bytecode()))},
	}
	for _, field := range []struct {
		name string
		t    oheap.Tuple
	}{{"names", co.Names()}, {"varnames", co.VarNames()}, {"consts", co.Consts()}} {
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: fmt.Sprintf("%s (%d)", field.name, field.t.Len())})
		for i := 0; i < field.t.Len(); i++ {
			ll = append(ll, pterm.LeveledListItem{Level: 2, Text: insp.describe(field.t.At(i))})
		}
	}
	root := pterm.NewTreeFromLeveledList(ll)
	pterm.DefaultTree.WithRoot(root).Render()
	return nil
}

func (insp *Inspector) describe(h ovm.Handle) string {
	if !h.IsNative() && !insp.heap.Contains(h) {
		return fmt.Sprintf("%v dangling", h)
	}
	return fmt.Sprintf("%v %s", h, insp.heap.DebugString(h))
}

func (insp *Inspector) run(cmd command) error {
	co, err := insp.codeArg(cmd)
	if err != nil {
		return err
	}
	machine := newVM(insp.heap, insp.cfg, insp.out)
	frame, why := machine.Run(co.Handle())
	if why.IsError() {
		return fmt.Errorf("run ended with %s", why)
	}
	pterm.Info.Println(fmt.Sprintf("%s after %d instructions, result %s",
		why, machine.Executed(), insp.describe(frame.Result)))
	return nil
}

// exportHeap writes the decoded heap as CBOR to a file.
func exportHeap(heap *oheap.OHeap, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = heap.ExportCBOR(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	tracer().Infof("heap exported to %s", path)
	return nil
}
