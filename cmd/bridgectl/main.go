package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/abi"
	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/platform"
)

type flags struct {
	config      string
	allocator   string
	logLevel    string
	fn          string
	args        string
	wasm        string
	format      string
	iterations  int
	limit       int64
	debug       bool
	interactive bool
	list        bool
}

func parseFlags(fs *flag.FlagSet, argv []string) (*flags, error) {
	f := &flags{}
	fs.StringVar(&f.config, "config", "", "Path to YAML config file")
	fs.StringVar(&f.allocator, "allocator", "default", "Storage allocator (default, manual, mmap, heap)")
	fs.StringVar(&f.logLevel, "log-level", "warn", "Log level")
	fs.StringVar(&f.fn, "func", "", "Function to call once (sample name, or guest export with -wasm)")
	fs.StringVar(&f.args, "args", "", "Comma-separated arguments for -func")
	fs.StringVar(&f.wasm, "wasm", "", "Guest module importing the objbridge host module")
	fs.StringVar(&f.format, "format", "", "Report format: text or yaml (default text on a terminal)")
	fs.IntVar(&f.iterations, "n", 10_000, "Stress iterations per sample")
	fs.Int64Var(&f.limit, "limit", 0, "Memory limit in bytes (0 = none)")
	fs.BoolVar(&f.debug, "debug", false, "Panic on contract violations")
	fs.BoolVar(&f.interactive, "i", false, "Interactive mode with TUI")
	fs.BoolVar(&f.list, "list", false, "List sample functions and exit")
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	return f, nil
}

func main() {
	fs := flag.NewFlagSet("bridgectl", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: bridgectl [-n iterations]          stress all samples and report leaks")
		fmt.Fprintln(os.Stderr, "       bridgectl -func name [-args a,b]    call one sample")
		fmt.Fprintln(os.Stderr, "       bridgectl -wasm file.wasm -func f   call a guest export")
		fmt.Fprintln(os.Stderr, "       bridgectl -list | -i")
		fs.PrintDefaults()
	}
	f, _ := parseFlags(fs, os.Args[1:])

	if err := run(context.Background(), fs, f, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, fs *flag.FlagSet, f *flags, out io.Writer) error {
	if f.list {
		return list(out)
	}

	cfg, err := loadConfig(f.config)
	if err != nil {
		return err
	}
	cfg.applyFlags(fs, f)
	if err := cfg.validate(); err != nil {
		return err
	}

	logger, err := cfg.logger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	rt, err := cfg.runtime(logger)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	if f.interactive {
		return runInteractive(rt)
	}

	var calls int
	switch {
	case f.wasm != "":
		calls, err = runGuest(ctx, rt, f.wasm, f.fn, out)
	case f.fn != "":
		calls, err = callOnce(ctx, platform.New(rt), f.fn, splitArgs(f.args), out)
	default:
		calls, err = stress(ctx, platform.New(rt), cfg.Iterations)
	}
	if err != nil {
		return err
	}

	return printReport(newReport(rt, calls), f.format, out)
}

func list(out io.Writer) error {
	for _, s := range samples {
		fmt.Fprintf(out, "  %s\n", s.signature())
	}
	fmt.Fprintln(out)
	for _, sch := range []string{
		platform.ComplexSchema.WIT(),
		platform.NullableSchema.WIT(),
		platform.CustomObjectSchema.WIT(),
		platform.VolumeSchema.WIT(),
	} {
		fmt.Fprintln(out, sch)
	}
	return nil
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// callOnce invokes one sample, prints its exported result and releases it as
// the owner.
func callOnce(ctx context.Context, p *platform.Platform, name string, args []string, out io.Writer) (int, error) {
	s, ok := findSample(name)
	if !ok {
		return 0, fmt.Errorf("unknown function %q (see -list)", name)
	}

	rt := p.Runtime()
	h, err := s.invoke(ctx, p, args)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", name, err)
	}
	if !h.IsNull() {
		defer rt.ReleaseForeign(h)
	}

	v, err := rt.Export(h)
	if err != nil {
		return 1, fmt.Errorf("export result: %w", err)
	}
	fmt.Fprintf(out, "Calling %s(%s)...\n", name, strings.Join(args, ", "))
	fmt.Fprintf(out, "Result: %s\n\n", formatValue(v))
	return 1, nil
}

// stress calls every light sample n times with its example arguments,
// releasing each result as the owner would.
func stress(ctx context.Context, p *platform.Platform, n int) (int, error) {
	rt := p.Runtime()
	calls := 0
	for range n {
		for _, s := range samples {
			if s.heavy {
				continue
			}
			h, err := s.invoke(ctx, p, s.example)
			if err != nil {
				return calls, fmt.Errorf("call %s: %w", s.name, err)
			}
			calls++
			if !h.IsNull() {
				rt.ReleaseForeign(h)
			}
		}
	}
	rt.Logger().Info("stress run finished", zap.Int("calls", calls), zap.Int("iterations", n))
	return calls, nil
}

// runGuest instantiates a wasm guest against the bridge and calls one of its
// exports with no arguments. An i64 result that names a live object is
// exported, printed and released on the guest's behalf.
func runGuest(ctx context.Context, rt *objbridge.Runtime, wasmFile, fn string, out io.Writer) (int, error) {
	if fn == "" {
		return 0, fmt.Errorf("-wasm requires -func")
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	bridge := abi.New(rt)
	if _, err := bridge.Instantiate(ctx, r); err != nil {
		return 0, err
	}

	guest, err := r.Instantiate(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("instantiate: %w", err)
	}
	defer guest.Close(ctx)

	export := guest.ExportedFunction(fn)
	if export == nil {
		return 0, fmt.Errorf("guest does not export %q", fn)
	}

	fmt.Fprintf(out, "Calling %s()...\n", fn)
	results, err := export.Call(ctx)
	if err != nil {
		return 1, fmt.Errorf("call %s: %w", fn, err)
	}

	// Only a transferred handle carries a reference for the caller; borrowed
	// handles and plain integers are printed as numbers.
	if len(results) == 1 && rt.State(objbridge.Handle(results[0])) == handle.StateTransferred {
		h := objbridge.Handle(results[0])
		v, err := rt.Export(h)
		bridge.ReleaseObject(results[0])
		if err != nil {
			return 1, fmt.Errorf("export result: %w", err)
		}
		fmt.Fprintf(out, "Result: %s\n\n", formatValue(v))
		return 1, nil
	}
	fmt.Fprintf(out, "Result: %v\n\n", results)
	return 1, nil
}

func printReport(r report, format string, out io.Writer) error {
	if format == "" {
		format = "yaml"
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}

	switch format {
	case "yaml":
		return r.writeYAML(out)
	case "text":
		_, err := fmt.Fprintln(out, r.render())
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
