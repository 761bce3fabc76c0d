package sortmerge

import (
	"testing"

	"github.com/fwftable/fwftable/internal/index"
	"github.com/fwftable/fwftable/internal/persist"
)

func TestSorterMergesAcrossChunksLastWriteWins(t *testing.T) {
	dir := t.TempDir()
	outPath := dir + "/merged.pidx"

	// Force tiny chunks so the merge actually exercises multiple spilled
	// files, not just a single in-memory sort. NewSorter never sizes a chunk
	// below 1000 records, so the chunk size is set directly.
	s := NewSorter(outPath, dir, 300, nil, nil)
	s.chunkSize = 2

	records := []Record{
		{RawKey: "AAA", FileID: 0, LineNo: 0},
		{RawKey: "BBB", FileID: 0, LineNo: 1},
		{RawKey: "AAA", FileID: 0, LineNo: 5}, // later write for AAA
		{RawKey: "CCC", FileID: 0, LineNo: 2},
		{RawKey: "BBB", FileID: 0, LineNo: 9}, // later write for BBB
	}
	for _, r := range records {
		if err := s.Add(r); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	distinct, err := s.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if distinct != 3 {
		t.Fatalf("distinct = %d, want 3", distinct)
	}
	s.Cleanup()

	idx, err := persist.ReadUniqueIndex(outPath)
	if err != nil {
		t.Fatalf("read merged index: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}

	c, ok := idx.Lookup(index.BytesKey([]byte("AAA")))
	if !ok || c.LineNo != 5 {
		t.Fatalf("AAA = %+v, ok=%v, want LineNo=5 (last write wins)", c, ok)
	}
	c, ok = idx.Lookup(index.BytesKey([]byte("BBB")))
	if !ok || c.LineNo != 9 {
		t.Fatalf("BBB = %+v, ok=%v, want LineNo=9 (last write wins)", c, ok)
	}
	c, ok = idx.Lookup(index.BytesKey([]byte("CCC")))
	if !ok || c.LineNo != 2 {
		t.Fatalf("CCC = %+v, ok=%v", c, ok)
	}
}

func TestSorterEmptyInput(t *testing.T) {
	dir := t.TempDir()
	outPath := dir + "/empty.pidx"
	s := NewSorter(outPath, dir, 1<<20, nil, nil)

	distinct, err := s.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if distinct != 0 {
		t.Fatalf("distinct = %d, want 0", distinct)
	}

	idx, err := persist.ReadUniqueIndex(outPath)
	if err != nil {
		t.Fatalf("read empty merged index: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", idx.Len())
	}
}

func TestSorterPopulatesBloomFilterWithDistinctKeysOnly(t *testing.T) {
	dir := t.TempDir()
	outPath := dir + "/bloom.pidx"
	bf := persist.NewBloomFilter(10, 0.01)
	s := NewSorter(outPath, dir, 1<<20, bf, nil)

	for _, r := range []Record{
		{RawKey: "X", FileID: 0, LineNo: 0},
		{RawKey: "X", FileID: 0, LineNo: 1},
		{RawKey: "Y", FileID: 0, LineNo: 2},
	} {
		if err := s.Add(r); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !bf.MightContain([]byte("X")) || !bf.MightContain([]byte("Y")) {
		t.Fatal("expected both distinct keys to be present in the bloom filter")
	}
}

func TestSorterIntKeys(t *testing.T) {
	dir := t.TempDir()
	outPath := dir + "/ints.pidx"
	s := NewSorter(outPath, dir, 1<<20, nil, nil)

	for _, r := range []Record{
		{RawKey: int64(100), FileID: 0, LineNo: 0},
		{RawKey: int64(-5), FileID: 0, LineNo: 1},
		{RawKey: int64(42), FileID: 0, LineNo: 2},
	} {
		if err := s.Add(r); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	idx, err := persist.ReadUniqueIndex(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	c, ok := idx.Lookup(index.IntKey(-5))
	if !ok || c.LineNo != 1 {
		t.Fatalf("lookup -5 = %+v, ok=%v", c, ok)
	}
}
