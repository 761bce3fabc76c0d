// Package main provides the fwftable command line tool: one-shot
// geometry/scan/index operations over a fixed-width-field file, plus a
// long-running server mode exposing the same operations over TCP or a Unix
// domain socket.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fwftable/fwftable/internal/filter"
	"github.com/fwftable/fwftable/internal/fwf"
	"github.com/fwftable/fwftable/internal/index"
	"github.com/fwftable/fwftable/internal/logging"
	"github.com/fwftable/fwftable/internal/persist"
	"github.com/fwftable/fwftable/internal/scan"
	"github.com/fwftable/fwftable/internal/server"
	"github.com/fwftable/fwftable/internal/sortmerge"
)

const (
	Version   = "0.1.0"
	BuildDate = "2026-08-01"
)

var (
	shutdownChan = make(chan os.Signal, 1)
	cleanupFuncs []func()
)

func main() {
	setupSignalHandler()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "geometry":
		runGeometry(os.Args[2:])
	case "scan-lines":
		runScanLines(os.Args[2:])
	case "scan-bytes":
		runScanBytes(os.Args[2:])
	case "scan-int":
		runScanInt(os.Args[2:])
	case "build-unique":
		runBuildIndex(os.Args[2:], false)
	case "build-multi":
		runBuildIndex(os.Args[2:], true)
	case "build-external":
		runBuildExternal(os.Args[2:])
	case "serve-tcp":
		runServeTCP(os.Args[2:])
	case "serve-uds":
		runServeUDS(os.Args[2:])
	case "version":
		fmt.Printf("fwftable v%s (%s)\n", Version, BuildDate)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func setupSignalHandler() {
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	go handleShutdown()
}

func handleShutdown() {
	<-shutdownChan
	fmt.Fprintln(os.Stderr, "received shutdown signal, cleaning up...")
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	os.Exit(130)
}

func printUsage() {
	fmt.Println(`fwftable - fixed-width-field scan and index engine

Usage:
    fwftable <command> [arguments]

Commands:
    geometry        Print a file's derived record geometry
    scan-lines      Print line numbers of records passing a filter set
    scan-bytes      Print one byte-range field per passing record
    scan-int        Print one decimal-int field per passing record
    build-unique    Build an in-memory unique index over a field
    build-multi     Build an in-memory multi-value index over a field
    build-external  Build a persisted index via external merge sort
    serve-tcp       Run a TCP JSON-RPC server
    serve-uds       Run a Unix domain socket JSON-RPC server
    version         Show version
    help            Show this help

Use "fwftable <command> --help" for command-specific flags.`)
}

// fileFlags are the geometry-defining flags shared by every file-reading
// subcommand.
type fileFlags struct {
	path         *string
	dataWidth    *int
	newlineBytes *int
	filters      multiFlag
}

// multiFlag collects a repeatable flag's values, grounded on the teacher's
// JSON-array flags but for fwftable's simpler colon-delimited filter syntax.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func addFileFlags(fs *flag.FlagSet) *fileFlags {
	ff := &fileFlags{
		path:         fs.String("path", "", "Path to the FWF file"),
		dataWidth:    fs.Int("data-width", 0, "Sum of field widths (record width minus newline bytes)"),
		newlineBytes: fs.Int("newline-bytes", 1, "Newline byte count: 0, 1, or 2"),
	}
	fs.Var(&ff.filters, "filter", "Filter predicate start:bound:inclusive:value, repeatable (bound is lower or upper)")
	return ff
}

func (ff *fileFlags) open() (*fwf.FileMap, fwf.RecordGeometry, error) {
	if *ff.path == "" {
		return nil, fwf.RecordGeometry{}, fmt.Errorf("--path is required")
	}
	fm, err := fwf.OpenFileMap(*ff.path)
	if err != nil {
		return nil, fwf.RecordGeometry{}, err
	}
	geom, err := fwf.DeriveGeometry(fm.Bytes(), *ff.dataWidth, *ff.newlineBytes, nil)
	if err != nil {
		_ = fm.Close()
		return nil, fwf.RecordGeometry{}, err
	}
	return fm, geom, nil
}

// buildFilterSet parses each "start:bound:inclusive:value" filter flag
// against the record's data width.
func (ff *fileFlags) buildFilterSet(dataWidth int) (*filter.FilterSet, error) {
	fs := filter.NewFilterSet()
	for _, raw := range ff.filters {
		parts := strings.SplitN(raw, ":", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("--filter %q: expected start:bound:inclusive:value", raw)
		}
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("--filter %q: bad start: %w", raw, err)
		}
		var bound filter.Bound
		switch parts[1] {
		case "lower":
			bound = filter.Lower
		case "upper":
			bound = filter.Upper
		default:
			return nil, fmt.Errorf("--filter %q: bound must be lower or upper", raw)
		}
		inclusive, err := strconv.ParseBool(parts[2])
		if err != nil {
			return nil, fmt.Errorf("--filter %q: bad inclusive flag: %w", raw, err)
		}
		if err := fs.Add(start, []byte(parts[3]), bound, inclusive, dataWidth); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func runGeometry(args []string) {
	fs := flag.NewFlagSet("geometry", flag.ExitOnError)
	ff := addFileFlags(fs)
	_ = fs.Parse(args)

	fm, geom, err := ff.open()
	if err != nil {
		fail("%v", err)
	}
	defer func() { _ = fm.Close() }()

	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(map[string]any{
		"width":         geom.Width,
		"newline_bytes": geom.NewlineBytes,
		"start":         geom.Start,
		"count":         geom.Count,
	})
}

func runScanLines(args []string) {
	fs := flag.NewFlagSet("scan-lines", flag.ExitOnError)
	ff := addFileFlags(fs)
	_ = fs.Parse(args)

	fm, geom, err := ff.open()
	if err != nil {
		fail("%v", err)
	}
	defer func() { _ = fm.Close() }()

	fset, err := ff.buildFilterSet(geom.DataWidth())
	if err != nil {
		fail("%v", err)
	}

	result, err := scan.Run(fm, geom, fset, scan.NewLineNumberSink(1024), 0)
	if err != nil {
		fail("%v", err)
	}
	for _, ln := range result.([]int64) {
		fmt.Println(ln)
	}
}

func runScanBytes(args []string) {
	fs := flag.NewFlagSet("scan-bytes", flag.ExitOnError)
	ff := addFileFlags(fs)
	start := fs.Int("field-start", 0, "Field start offset")
	length := fs.Int("field-len", 0, "Field length")
	_ = fs.Parse(args)

	fm, geom, err := ff.open()
	if err != nil {
		fail("%v", err)
	}
	defer func() { _ = fm.Close() }()

	fset, err := ff.buildFilterSet(geom.DataWidth())
	if err != nil {
		fail("%v", err)
	}

	result, err := scan.Run(fm, geom, fset, scan.NewBytesColumnSink(*start, *length, 1024), 0)
	if err != nil {
		fail("%v", err)
	}
	rows := result.(scan.BytesColumnResult)
	for i := 0; i < rows.Rows; i++ {
		fmt.Println(string(rows.Row(i)))
	}
}

func runScanInt(args []string) {
	fs := flag.NewFlagSet("scan-int", flag.ExitOnError)
	ff := addFileFlags(fs)
	start := fs.Int("field-start", 0, "Field start offset")
	length := fs.Int("field-len", 0, "Field length")
	lenient := fs.Bool("lenient", false, "Skip unparsable records instead of failing the scan")
	_ = fs.Parse(args)

	fm, geom, err := ff.open()
	if err != nil {
		fail("%v", err)
	}
	defer func() { _ = fm.Close() }()

	fset, err := ff.buildFilterSet(geom.DataWidth())
	if err != nil {
		fail("%v", err)
	}

	var sink scan.Sink
	if *lenient {
		sink = scan.NewLenientIntColumnSink(*start, *length, 1024)
	} else {
		sink = scan.NewIntColumnSink(*start, *length, 1024)
	}

	result, err := scan.Run(fm, geom, fset, sink, 0)
	if err != nil {
		fail("%v", err)
	}
	for _, v := range result.([]int64) {
		fmt.Println(v)
	}
}

func runBuildIndex(args []string, multi bool) {
	name := "build-unique"
	if multi {
		name = "build-multi"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	ff := addFileFlags(fs)
	start := fs.Int("field-start", 0, "Field start offset")
	length := fs.Int("field-len", 0, "Field length")
	asInt := fs.Bool("int", false, "Parse the field as a decimal int64 key instead of raw bytes")
	fileID := fs.Int("file-id", 0, "File identifier stamped into every coordinate")
	out := fs.String("out", "", "Persist the built index to this path instead of just reporting its size")
	_ = fs.Parse(args)

	fm, geom, err := ff.open()
	if err != nil {
		fail("%v", err)
	}
	defer func() { _ = fm.Close() }()

	fset, err := ff.buildFilterSet(geom.DataWidth())
	if err != nil {
		fail("%v", err)
	}

	var sink scan.Sink
	if multi {
		sink = index.NewMultiIndexSink(*start, *length, geom.Count, *fileID, *asInt)
	} else {
		sink = index.NewUniqueIndexSink(*start, *length, geom.Count, *fileID, *asInt)
	}

	result, err := scan.Run(fm, geom, fset, sink, 0)
	if err != nil {
		fail("%v", err)
	}

	if *out == "" {
		switch idx := result.(type) {
		case *index.UniqueIndex:
			fmt.Printf("distinct_keys=%d\n", idx.Len())
		case *index.MultiIndex:
			fmt.Printf("distinct_keys=%d\n", idx.Len())
		}
		return
	}

	outFile, err := os.Create(*out)
	if err != nil {
		fail("create %s: %v", *out, err)
	}
	defer func() { _ = outFile.Close() }()

	switch idx := result.(type) {
	case *index.UniqueIndex:
		err = persist.WriteUniqueIndex(outFile, idx)
	case *index.MultiIndex:
		fail("persisting a multi-value index is not yet supported; omit --out")
		return
	default:
		err = fmt.Errorf("unexpected index result type %T", idx)
	}
	if err != nil {
		fail("write index: %v", err)
	}
}

func runBuildExternal(args []string) {
	fs := flag.NewFlagSet("build-external", flag.ExitOnError)
	ff := addFileFlags(fs)
	start := fs.Int("field-start", 0, "Field start offset")
	length := fs.Int("field-len", 0, "Field length")
	asInt := fs.Bool("int", false, "Parse the field as a decimal int64 key instead of raw bytes")
	fileID := fs.Int("file-id", 0, "File identifier stamped into every coordinate")
	out := fs.String("out", "", "Output path for the persisted index (required)")
	tmpDir := fs.String("tmp-dir", os.TempDir(), "Directory for spilled sort chunks")
	memMB := fs.Int("memory", 256, "In-memory sort buffer limit, in megabytes")
	bloomOut := fs.String("bloom-out", "", "Also write a bloom filter sidecar to this path")
	bloomFP := fs.Float64("bloom-fp", 0.01, "Bloom filter false positive rate")
	_ = fs.Parse(args)

	if *out == "" {
		fail("--out is required")
	}

	fm, geom, err := ff.open()
	if err != nil {
		fail("%v", err)
	}
	defer func() { _ = fm.Close() }()

	fset, err := ff.buildFilterSet(geom.DataWidth())
	if err != nil {
		fail("%v", err)
	}

	var bloom *persist.BloomFilter
	if *bloomOut != "" {
		bloom = persist.NewBloomFilter(geom.Count, *bloomFP)
	}

	log, logErr := logging.New(logging.Config{})
	if logErr != nil {
		log = logging.Nop()
	}

	sorter := sortmerge.NewSorter(*out, *tmpDir, *memMB<<20, bloom, log)
	cleanupFuncs = append(cleanupFuncs, sorter.Cleanup)

	sink := sortmerge.NewSink(sorter, *start, *length, *fileID, *asInt)

	if _, err := scan.Run(fm, geom, fset, sink, 0); err != nil {
		sorter.Cleanup()
		fail("%v", err)
	}

	distinct, err := sorter.Finalize()
	sorter.Cleanup()
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("distinct_keys=%d\n", distinct)

	if *bloomOut != "" {
		if err := persist.WriteBloomFilter(*bloomOut, bloom); err != nil {
			fail("write bloom filter: %v", err)
		}
	}
}

func runServeTCP(args []string) {
	fs := flag.NewFlagSet("serve-tcp", flag.ExitOnError)
	port := fs.Int("port", 9090, "TCP port to listen on")
	maxConcurrency := fs.Int("max-concurrency", 50, "Maximum concurrent connections")
	level := fs.String("log-level", "info", "Log level")
	_ = fs.Parse(args)

	log, err := logging.New(logging.Config{Level: *level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reg := server.NewRegistry()
	cleanupFuncs = append(cleanupFuncs, func() { _ = reg.Close() })

	srv := server.NewTCPServer(server.TCPConfig{
		Port:           *port,
		MaxConcurrency: *maxConcurrency,
		Logger:         log,
	}, reg)

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServeUDS(args []string) {
	fs := flag.NewFlagSet("serve-uds", flag.ExitOnError)
	socket := fs.String("socket", "/tmp/fwftable.sock", "Unix domain socket path")
	maxConcurrency := fs.Int("max-concurrency", 50, "Maximum concurrent connections")
	level := fs.String("log-level", "info", "Log level")
	_ = fs.Parse(args)

	log, err := logging.New(logging.Config{Level: *level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reg := server.NewRegistry()
	srv := server.NewUDSServer(server.UDSConfig{
		SocketPath:     *socket,
		MaxConcurrency: *maxConcurrency,
		Logger:         log,
	}, reg)

	cleanupFuncs = append(cleanupFuncs, srv.Shutdown)
	cleanupFuncs = append(cleanupFuncs, func() { _ = reg.Close() })

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
