package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwftable/fwftable/internal/index"
	"github.com/fwftable/fwftable/internal/packedindex"
)

func TestUniqueIndexRoundTrip(t *testing.T) {
	idx := index.NewUniqueIndex(8)
	idx.Insert(index.BytesKey([]byte("AAA")), index.Coordinate{FileID: 0, LineNo: 1})
	idx.Insert(index.BytesKey([]byte("BBB")), index.Coordinate{FileID: 0, LineNo: 2})
	idx.Insert(index.IntKey(42), index.Coordinate{FileID: 1, LineNo: 9})

	var buf bytes.Buffer
	if err := WriteUniqueIndex(&buf, idx); err != nil {
		t.Fatalf("write: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "u.pidx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reloaded, err := ReadUniqueIndex(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if reloaded.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reloaded.Len())
	}
	c, ok := reloaded.Lookup(index.BytesKey([]byte("AAA")))
	if !ok || c.LineNo != 1 {
		t.Fatalf("lookup AAA = %+v, ok=%v", c, ok)
	}
	c, ok = reloaded.Lookup(index.IntKey(42))
	if !ok || c.FileID != 1 || c.LineNo != 9 {
		t.Fatalf("lookup 42 = %+v, ok=%v", c, ok)
	}
	if _, ok := reloaded.Lookup(index.BytesKey([]byte("ZZZ"))); ok {
		t.Fatal("expected ZZZ to be a miss")
	}
}

func TestUniqueReaderLookupViaCache(t *testing.T) {
	idx := index.NewUniqueIndex(8)
	idx.Insert(index.BytesKey([]byte("AAA")), index.Coordinate{FileID: 0, LineNo: 1})
	idx.Insert(index.BytesKey([]byte("CCC")), index.Coordinate{FileID: 0, LineNo: 3})

	var buf bytes.Buffer
	if err := WriteUniqueIndex(&buf, idx); err != nil {
		t.Fatalf("write: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "u.pidx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	r, err := OpenUniqueReader(path, 1<<20, "")
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	c, ok, err := r.Lookup(index.BytesKey([]byte("AAA")))
	if err != nil || !ok || c.LineNo != 1 {
		t.Fatalf("lookup AAA = %+v, ok=%v, err=%v", c, ok, err)
	}
	_, ok, err = r.Lookup(index.BytesKey([]byte("ZZZ")))
	if err != nil || ok {
		t.Fatalf("expected ZZZ miss, got ok=%v err=%v", ok, err)
	}
}

func TestPackedIndexRoundTrip(t *testing.T) {
	p := packedindex.New(8)
	_ = p.InsertBytes("K1", 1)
	_ = p.InsertBytes("K1", 2)
	_ = p.InsertBytes("K2", 9)
	p.Finalize()

	var buf bytes.Buffer
	if err := WritePackedIndex(&buf, p); err != nil {
		t.Fatalf("write: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "p.pidx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reloaded, err := ReadPackedIndex(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, ok := reloaded.LookupBytes("K1")
	if !ok || len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("LookupBytes(K1) = %v, ok=%v", got, ok)
	}
	if !reloaded.IsUniqueBytes("K2") {
		t.Fatal("expected K2 to remain unique after round trip")
	}
}

func TestBloomFilterNeverFalseNegative(t *testing.T) {
	bf := NewBloomFilter(1000, 0.01)
	keys := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, k := range keys {
		bf.Add(k)
	}
	for _, k := range keys {
		if !bf.MightContain(k) {
			t.Fatalf("false negative for %q", k)
		}
	}

	data := bf.Serialize()
	reloaded, err := DeserializeBloom(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	for _, k := range keys {
		if !reloaded.MightContain(k) {
			t.Fatalf("false negative after round trip for %q", k)
		}
	}
}

func TestBlockCacheEvictsLRU(t *testing.T) {
	c := NewBlockCache(10)
	c.Put("a", []byte("12345"))
	c.Put("b", []byte("12345"))
	// Cache full at 10 bytes; touching "a" should make "b" the next victim.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.Put("c", []byte("12345"))

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction (recently used)")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to be cached")
	}
}
