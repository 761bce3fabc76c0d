package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwftable/fwftable/internal/filter"
	"github.com/fwftable/fwftable/internal/fwf"
)

// openFixture writes contents to a temp file and derives geometry for
// 4-byte records plus a trailing newline.
func openFixture(t *testing.T, contents string) (*fwf.FileMap, fwf.RecordGeometry) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.fwf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	fm, err := fwf.OpenFileMap(path)
	if err != nil {
		t.Fatalf("OpenFileMap: %v", err)
	}
	t.Cleanup(func() { _ = fm.Close() })

	geom, err := fwf.DeriveGeometry(fm.Bytes(), 4, 1, nil)
	if err != nil {
		t.Fatalf("DeriveGeometry: %v", err)
	}
	return fm, geom
}

func TestRunLineNumberSinkNoFilter(t *testing.T) {
	fm, geom := openFixture(t, "0001\n0002\n0003\n")
	result, err := Run(fm, geom, nil, NewLineNumberSink(8), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := result.([]int64)
	if len(lines) != 3 || lines[0] != 0 || lines[2] != 2 {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestRunAppliesFilterSet(t *testing.T) {
	fm, geom := openFixture(t, "0001\n0002\n0003\n")
	fs := filter.NewFilterSet()
	if err := fs.Add(0, []byte("0002"), filter.Lower, true, geom.DataWidth()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	result, err := Run(fm, geom, fs, NewLineNumberSink(8), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := result.([]int64)
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 2 {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestRunOffsetNumbersRecordsGlobally(t *testing.T) {
	fm, geom := openFixture(t, "0001\n0002\n")
	result, err := Run(fm, geom, nil, NewLineNumberSink(8), 100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := result.([]int64)
	if lines[0] != 100 || lines[1] != 101 {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestBytesColumnSinkCopiesRows(t *testing.T) {
	fm, geom := openFixture(t, "AB01\nCD02\n")
	result, err := Run(fm, geom, nil, NewBytesColumnSink(0, 2, 8), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	cols := result.(BytesColumnResult)
	if cols.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", cols.Rows)
	}
	if string(cols.Row(0)) != "AB" || string(cols.Row(1)) != "CD" {
		t.Fatalf("unexpected rows: %q %q", cols.Row(0), cols.Row(1))
	}
}

func TestIntColumnSinkParsesField(t *testing.T) {
	fm, geom := openFixture(t, "0042\n0099\n")
	result, err := Run(fm, geom, nil, NewIntColumnSink(0, 4, 8), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	values := result.([]int64)
	if len(values) != 2 || values[0] != 42 || values[1] != 99 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestIntColumnSinkFailsScanOnParseError(t *testing.T) {
	fm, geom := openFixture(t, "00X2\n")
	if _, err := Run(fm, geom, nil, NewIntColumnSink(0, 4, 8), 0); err == nil {
		t.Fatal("expected a parse error to abort the scan")
	}
}

func TestLenientIntColumnSinkSkipsBadRows(t *testing.T) {
	fm, geom := openFixture(t, "0042\n00X2\n0099\n")
	sink := NewLenientIntColumnSink(0, 4, 8)
	result, err := Run(fm, geom, nil, sink, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	values := result.([]int64)
	if len(values) != 2 || values[0] != 42 || values[1] != 99 {
		t.Fatalf("unexpected values: %v", values)
	}
	if len(sink.Errors) != 1 || sink.Errors[0].LineNo != 1 {
		t.Fatalf("unexpected errors: %+v", sink.Errors)
	}
}
