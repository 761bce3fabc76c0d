package multifile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwftable/fwftable/internal/fwf"
	"github.com/fwftable/fwftable/internal/index"
	"github.com/fwftable/fwftable/internal/scan"
)

// writeFixedWidth writes rows of a single 3-byte field plus a trailing
// newline, e.g. "AAA\nBBB\n".
func writeFixedWidth(t *testing.T, dir, name string, keys []string) *fwf.FileMap {
	t.Helper()
	path := filepath.Join(dir, name)
	var buf []byte
	for _, k := range keys {
		buf = append(buf, []byte(k)...)
		buf = append(buf, '\n')
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	fm, err := fwf.OpenFileMap(path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	t.Cleanup(func() { _ = fm.Close() })
	return fm
}

func geom(t *testing.T, fm *fwf.FileMap) fwf.RecordGeometry {
	t.Helper()
	g, err := fwf.DeriveGeometry(fm.Bytes(), 3, 1, nil)
	if err != nil {
		t.Fatalf("derive geometry: %v", err)
	}
	return g
}

func TestMultiFileFileLocalNumberingAndProvenance(t *testing.T) {
	dir := t.TempDir()
	fmA := writeFixedWidth(t, dir, "a.fwf", []string{"AAA", "BBB"})
	fmB := writeFixedWidth(t, dir, "b.fwf", []string{"BBB", "CCC"})

	files := []File{
		{ID: 1, Map: fmA, Geom: geom(t, fmA)},
		{ID: 2, Map: fmB, Geom: geom(t, fmB)},
	}
	mf := New(files, false)

	shared := index.NewMultiIndex(8)
	err := Scan(mf, nil, func(fileID int) scan.Sink {
		return index.NewMultiIndexSinkInto(shared, 0, 3, fileID, false)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	coords, ok := shared.Lookup(index.BytesKey([]byte("BBB")))
	if !ok {
		t.Fatal("expected BBB to be found")
	}
	if len(coords) != 2 {
		t.Fatalf("expected 2 coordinates for BBB, got %d", len(coords))
	}
	if coords[0].FileID != 1 || coords[0].LineNo != 1 {
		t.Fatalf("first BBB coordinate = %+v, want {FileID:1 LineNo:1}", coords[0])
	}
	if coords[1].FileID != 2 || coords[1].LineNo != 0 {
		t.Fatalf("second BBB coordinate = %+v, want {FileID:2 LineNo:0}", coords[1])
	}
}

func TestMultiFileGlobalNumbering(t *testing.T) {
	dir := t.TempDir()
	fmA := writeFixedWidth(t, dir, "a.fwf", []string{"AAA", "BBB"})
	fmB := writeFixedWidth(t, dir, "b.fwf", []string{"CCC"})

	files := []File{
		{ID: 1, Map: fmA, Geom: geom(t, fmA)},
		{ID: 2, Map: fmB, Geom: geom(t, fmB)},
	}
	mf := New(files, true)

	shared := index.NewUniqueIndex(8)
	err := Scan(mf, nil, func(fileID int) scan.Sink {
		return index.NewUniqueIndexSinkInto(shared, 0, 3, fileID, false)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	coord, ok := shared.Lookup(index.BytesKey([]byte("CCC")))
	if !ok {
		t.Fatal("expected CCC to be found")
	}
	if coord.FileID != 2 || coord.LineNo != 2 {
		t.Fatalf("CCC coordinate = %+v, want {FileID:2 LineNo:2}", coord)
	}
}
