package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/npillmayer/ovm/oheap"
	"github.com/npillmayer/ovm/vm"
	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

// main() loads a heap image and runs its entry point. With flag -inspect it
// starts an interactive inspector instead ("ovm>"), which lets users
// look at cells, code objects and disassemblies, and run code objects.
//
func main() {
	// set up logging
	initTracing()
	initDisplay(term.IsTerminal(int(os.Stdout.Fd())))
	os.Exit(run(os.Args[1:], os.Stdout))
}

// initTracing routes every tracer to a Go logger writing to stderr. All trace
// keys share one tracer, so the level set by -trace applies to all of them.
func initTracing() tracing.Trace {
	tracing.SetTraceSelector(tracing.SelectorForAdapter(gologadapter.New))
	gtrace.SyntaxTracer = gologadapter.New()
	return tracer()
}

// run is the body of main, returning the exit code.
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("ovm", flag.ContinueOnError)
	f := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := loadConfig(*f.cfgfile)
	if err != nil {
		pterm.Error.Println(err.Error())
		return 1
	}
	f.override(&cfg, fs)
	tracer().SetTraceLevel(traceLevel(cfg.Trace))
	tracer().Infof("Trace level is %s", cfg.Trace)
	if fs.NArg() < 1 {
		pterm.Error.Println("Expected heap file")
		fs.Usage()
		return 1
	}
	heap, err := loadHeap(fs.Arg(0), cfg)
	if err != nil {
		pterm.Error.Println(err.Error())
		return 1
	}
	if cfg.Verify {
		if err := heap.Verify(); err != nil {
			pterm.Error.Println(err.Error())
			return 1
		}
		fp, _ := heap.Fingerprint()
		pterm.Info.Println(fmt.Sprintf("heap verified, fingerprint %s", fp))
	}
	if *f.export != "" {
		if err := exportHeap(heap, *f.export); err != nil {
			pterm.Error.Println(err.Error())
			return 1
		}
	}
	if heap.Len() == 0 || heap.TagOf(heap.Last()) != oheap.TagCode {
		pterm.Error.Println("heap has no entry point: last cell is not a code object")
		return 1
	}
	if *f.dis {
		pterm.Println(vm.Disassemble(heap.Code(heap.Last())))
	}
	if *f.inspect {
		insp := NewInspector(heap, cfg, stdout)
		if term.IsTerminal(int(os.Stdin.Fd())) {
			err = insp.REPL()
		} else {
			err = insp.Script(os.Stdin)
		}
		if err != nil {
			pterm.Error.Println(err.Error())
			return 1
		}
		return 0
	}
	return execute(heap, cfg, stdout)
}

// We use pterm for moderately fancy output. Colour is switched off if output
// does not go to a terminal.
func initDisplay(colour bool) {
	if !colour {
		pterm.DisableColor()
	}
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func loadHeap(path string, cfg Config) (*oheap.OHeap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	heap, err := oheap.Load(file, oheap.MaxSlabSize(cfg.MaxSlabSize))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	tracer().Infof("loaded %s: %d cells, %d bytes of slab", path, heap.Len(), heap.SlabSize())
	return heap, nil
}

func newVM(heap *oheap.OHeap, cfg Config, stdout io.Writer) *vm.VM {
	return vm.New(heap,
		vm.Output(stdout),
		vm.LegacyCompat(cfg.LegacyCompat),
		vm.TraceInstructions(cfg.TraceInstructions),
	)
}

// execute runs the entry point of a heap and reports abnormal completion.
// Assertions raised during the run are reported as errors.
func execute(heap *oheap.OHeap, cfg Config, stdout io.Writer) (exitcode int) {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Println(fmt.Sprintf("%v", r))
			exitcode = 1
		}
	}()
	machine := newVM(heap, cfg, stdout)
	why := machine.RunMain()
	tracer().Debugf("executed %d instructions", machine.Executed())
	if why.IsError() {
		pterm.Error.Println(fmt.Sprintf("program ended with %s", why))
		return 1
	}
	return 0
}

func traceLevel(l string) tracing.TraceLevel {
	return tracing.TraceLevelFromString(l)
}
