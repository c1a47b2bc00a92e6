package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/ovm"
	"github.com/npillmayer/ovm/oheap"
	"github.com/npillmayer/ovm/vm"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/pterm/pterm"
)

// writeHeap writes a heap with a single entry point calling print on a
// constant, and returns the file path.
func writeHeap(t *testing.T, arg func(b *oheap.Builder) ovm.Handle) string {
	b := oheap.NewBuilder()
	names := []ovm.Handle{b.Str("print")}
	consts := []ovm.Handle{arg(b)}
	code := []byte{
		byte(vm.LoadName), 0, 0,
		byte(vm.LoadConst), 0, 0,
		byte(vm.CallFunction), 1, 0,
		byte(vm.ReturnValue),
	}
	b.Code(oheap.CodeSpec{
		StackSize: 2,
		Name:      "<module>",
		Filename:  "hello.py",
		Bytecode:  code,
		Names:     names,
		Consts:    consts,
	})
	path := filepath.Join(t.TempDir(), "hello.ohp")
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func hello(b *oheap.Builder) ovm.Handle { return b.Str("hello") }

func seven(b *oheap.Builder) ovm.Handle { return b.Int(7) }

func TestRunHello(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.cli")
	defer teardown()
	//
	path := writeHeap(t, hello)
	var out bytes.Buffer
	if code := run([]string{"-verify", path}, &out); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if out.String() != "hello\n" {
		t.Errorf("expected output \"hello\\n\", got %q", out.String())
	}
}

func TestRunFailures(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.cli")
	defer teardown()
	//
	var out bytes.Buffer
	if code := run(nil, &out); code != 1 {
		t.Errorf("expected exit code 1 for missing argument, got %d", code)
	}
	if code := run([]string{filepath.Join(t.TempDir(), "missing.ohp")}, &out); code != 1 {
		t.Errorf("expected exit code 1 for missing file, got %d", code)
	}
	bad := filepath.Join(t.TempDir(), "bad.ohp")
	if err := os.WriteFile(bad, []byte("OHP1\x00\x00\x00\x00\x00\x00\x00\x00"), 0644); err != nil {
		t.Fatal(err)
	}
	if code := run([]string{bad}, &out); code != 1 {
		t.Errorf("expected exit code 1 for bad magic, got %d", code)
	}
	if code := run([]string{"-nosuchflag", bad}, &out); code != 1 {
		t.Errorf("expected exit code 1 for unknown flag, got %d", code)
	}
	if code := run([]string{writeHeap(t, seven)}, &out); code != 1 {
		t.Errorf("expected exit code 1 for program raising an exception, got %d", code)
	}
	if out.Len() != 0 {
		t.Errorf("expected no program output, got %q", out.String())
	}
}

func TestExportFlag(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.cli")
	defer teardown()
	//
	path := writeHeap(t, hello)
	export := filepath.Join(t.TempDir(), "heap.cbor")
	var out bytes.Buffer
	if code := run([]string{"-dis", "-export", export, path}, &out); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if fi, err := os.Stat(export); err != nil || fi.Size() == 0 {
		t.Errorf("expected non-empty export file, got %v", err)
	}
}

func TestConfigOverride(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.cli")
	defer teardown()
	//
	path := filepath.Join(t.TempDir(), "ovm.toml")
	content := "trace = \"Debug\"\nlegacy_compat = true\nmax_slab_size = 4096\nverify = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trace != "Debug" || !cfg.LegacyCompat || cfg.MaxSlabSize != 4096 || !cfg.Verify {
		t.Errorf("unexpected configuration %+v", cfg)
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := defineFlags(fs)
	if err := fs.Parse([]string{"-compat=false", "-trace", "Error"}); err != nil {
		t.Fatal(err)
	}
	f.override(&cfg, fs)
	if cfg.LegacyCompat || cfg.Trace != "Error" || !cfg.Verify {
		t.Errorf("expected explicitly set flags to override configuration, have %+v", cfg)
	}
}

func TestConfigErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ovm.cli")
	defer teardown()
	//
	if cfg, err := loadConfig(""); err != nil || cfg.MaxSlabSize != oheap.DefaultMaxLen {
		t.Errorf("expected defaults for empty path, got %+v, %v", cfg, err)
	}
	path := filepath.Join(t.TempDir(), "ovm.toml")
	if err := os.WriteFile(path, []byte("colour = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Errorf("expected unknown key to be rejected")
	}
	if err := os.WriteFile(path, []byte("max_slab_size = -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Errorf("expected negative slab size to be rejected")
	}
}

func TestTraceInstructions(t *testing.T) {
	root := initTracing()
	defer tracing.SetTraceSelector(nil)
	var trace bytes.Buffer
	root.SetOutput(&trace)
	defer root.SetOutput(os.Stderr)
	//
	path := writeHeap(t, hello)
	cfgpath := filepath.Join(t.TempDir(), "ovm.toml")
	if err := os.WriteFile(cfgpath, []byte("trace_instructions = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if code := run([]string{"-trace", "Debug", "-config", cfgpath, path}, &out); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if out.String() != "hello\n" {
		t.Errorf("expected tracing to leave program output alone, got %q", out.String())
	}
	for _, expected := range []string{"0000 LOAD_NAME", "0006 CALL_FUNCTION", "0009 RETURN_VALUE", "DEBUG "} {
		if !strings.Contains(trace.String(), expected) {
			t.Errorf("expected trace to contain %q, trace is\n%s", expected, trace.String())
		}
	}
	trace.Reset()
	if code := run([]string{"-trace", "Error", path}, &out); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if trace.Len() != 0 {
		t.Errorf("expected no trace output at level Error, got\n%s", trace.String())
	}
}

func TestDisplayWithoutTerminal(t *testing.T) {
	defer pterm.EnableColor()
	initDisplay(false)
	if pterm.PrintColor {
		t.Errorf("expected colour to be disabled for non-terminal output")
	}
}
