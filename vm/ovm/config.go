package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/npillmayer/ovm/oheap"
)

// Config holds the settings of a run of ovm.
type Config struct {
	Trace             string `toml:"trace"`
	LegacyCompat      bool   `toml:"legacy_compat"`
	MaxSlabSize       int    `toml:"max_slab_size"`
	TraceInstructions bool   `toml:"trace_instructions"`
	Verify            bool   `toml:"verify"`
}

func defaultConfig() Config {
	return Config{
		Trace:       "Info",
		MaxSlabSize: oheap.DefaultMaxLen,
	}
}

// loadConfig reads a TOML configuration file on top of the defaults. An empty
// path yields the defaults. Unknown keys are an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("reading configuration %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("configuration %s: unknown key(s) %s", path, strings.Join(keys, ", "))
	}
	if cfg.MaxSlabSize <= 0 {
		return cfg, fmt.Errorf("configuration %s: max_slab_size must be positive", path)
	}
	tracer().Debugf("configuration loaded from %s", path)
	return cfg, nil
}

// flags are the command line flags overriding configuration settings.
type flags struct {
	trace   *string
	compat  *bool
	verify  *bool
	cfgfile *string
	inspect *bool
	dis     *bool
	export  *string
}

func defineFlags(fs *flag.FlagSet) *flags {
	return &flags{
		trace:   fs.String("trace", "Info", "Trace level [Debug|Info|Error]"),
		cfgfile: fs.String("config", "", "TOML configuration file"),
		compat:  fs.Bool("compat", false, "legacy-compatible mode"),
		verify:  fs.Bool("verify", false, "verify heap before running"),
		inspect: fs.Bool("inspect", false, "start interactive inspector"),
		dis:     fs.Bool("dis", false, "disassemble entry point"),
		export:  fs.String("export", "", "export decoded heap as CBOR to file"),
	}
}

// override copies flags explicitly set on the command line into cfg.
func (f *flags) override(cfg *Config, fs *flag.FlagSet) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "trace":
			cfg.Trace = *f.trace
		case "compat":
			cfg.LegacyCompat = *f.compat
		case "verify":
			cfg.Verify = *f.verify
		}
	})
}
